package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AliasGateway reads and writes the alias resource of the destination.
// Write methods return an error only when the destination could not be reached;
// a refused write is reported through the Outcome.
type AliasGateway interface {
	ListIdentities(ctx context.Context) ([]Identity, error)
	// ListAliases returns ErrNotFound when the identity has no alias, which the
	// destination does not distinguish from an unknown identity.
	ListAliases(ctx context.Context, identity string) ([]Alias, error)
	CreateAlias(ctx context.Context, identity string, alias Alias) (Outcome, error)
	RemoveAlias(ctx context.Context, identity string, alias Alias) (Outcome, error)
	RemoveIdentity(ctx context.Context, identity string) (Outcome, error)
}

// ContactGateway reads and writes domain contacts.
type ContactGateway interface {
	ListContacts(ctx context.Context) ([]Identity, error)
	GetContact(ctx context.Context, address string) (*Contact, error)
	CreateContact(ctx context.Context, contact Contact) (Outcome, error)
	UpdateContact(ctx context.Context, contact Contact) (Outcome, error)
	RemoveContact(ctx context.Context, address string) (Outcome, error)
}

// DomainGateway provisions mail domains.
type DomainGateway interface {
	CreateDomain(ctx context.Context, domain string) (Outcome, error)
	DomainExists(ctx context.Context, domain string) (bool, error)
}

// WritableService is what the synchronization engine calls into.
type WritableService interface {
	// Apply never fails for expected destination errors; they become false.
	Apply(ctx context.Context, change ChangeDescriptor) bool
	GetListPivots(ctx context.Context) (PivotMap, error)
	GetWriteDatasetIDs() []string
	GetBean(ctx context.Context, idAttribute string, datasets Datasets, sameService bool) (Bean, error)
}

// OutcomeApplier is implemented by services that can report why a change failed.
type OutcomeApplier interface {
	ApplyChange(ctx context.Context, change ChangeDescriptor) Outcome
}

// ChangeRecord is a journal entry for one applied change.
type ChangeRecord struct {
	ID             uuid.UUID
	RunID          uuid.UUID
	Task           string
	Operation      OperationKind
	MainIdentifier string
	Succeeded      bool
	Diagnostic     string
	AppliedAt      time.Time
}

// RunSummary aggregates the journal entries of one run.
type RunSummary struct {
	RunID      uuid.UUID
	Task       string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// RunJournal persists what each run did.
type RunJournal interface {
	Record(ctx context.Context, record ChangeRecord) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]ChangeRecord, error)
	LatestRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// SnapshotStore keeps the last pivot map computed for a task.
type SnapshotStore interface {
	Save(ctx context.Context, task string, pivots PivotMap, ttl time.Duration) error
	Load(ctx context.Context, task string) (PivotMap, bool, error)
	Close() error
}
