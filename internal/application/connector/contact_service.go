package connector

import (
	"context"
	"errors"

	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/telemetry"
)

// ContactService writes domain contacts to the destination
type ContactService struct {
	*base
	contacts directory.ContactGateway
}

var (
	_ directory.WritableService = (*ContactService)(nil)
	_ directory.OutcomeApplier  = (*ContactService)(nil)
)

// NewContactService creates a contact service for task
func NewContactService(contacts directory.ContactGateway, task TaskConfig, opts ...Option) (*ContactService, error) {
	task.Service = ServiceContact
	b, err := newBase(task, "contacts", opts)
	if err != nil {
		return nil, err
	}
	return &ContactService{base: b, contacts: contacts}, nil
}

// Apply applies change and reports whether the destination accepted it
func (s *ContactService) Apply(ctx context.Context, change directory.ChangeDescriptor) bool {
	return s.ApplyChange(ctx, change).Succeeded
}

// ApplyChange applies change and returns its outcome
func (s *ContactService) ApplyChange(ctx context.Context, change directory.ChangeDescriptor) directory.Outcome {
	return s.apply(ctx, change, s.dispatch)
}

func (s *ContactService) dispatch(ctx context.Context, change directory.ChangeDescriptor) directory.Outcome {
	switch change.Operation {
	case directory.OperationCreate:
		contact := contactFrom(change)
		return s.write(ctx, "creating contact", func() (directory.Outcome, error) {
			return s.contacts.CreateContact(ctx, contact)
		})
	case directory.OperationUpdate:
		if s.task.UpdateMode != UpdatePatch {
			s.logger.Debug("Update skipped", zapID(change.MainIdentifier))
			return directory.Success()
		}
		contact := contactFrom(change)
		return s.write(ctx, "updating contact", func() (directory.Outcome, error) {
			return s.contacts.UpdateContact(ctx, contact)
		})
	case directory.OperationDelete:
		return s.write(ctx, "removing contact", func() (directory.Outcome, error) {
			return s.contacts.RemoveContact(ctx, change.MainIdentifier)
		})
	default:
		return directory.Success()
	}
}

func contactFrom(change directory.ChangeDescriptor) directory.Contact {
	first, _ := change.FirstValue(directory.AttrGivenName)
	last, _ := change.FirstValue(directory.AttrSurname)
	return directory.NewContact(change.MainIdentifier, first, last)
}

// GetListPivots returns one entry per contact address
func (s *ContactService) GetListPivots(ctx context.Context) (directory.PivotMap, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.name, "list_pivots", "task", s.task.Name)
	defer span.End()

	contacts, err := s.contacts.ListContacts(ctx)
	if err != nil {
		return nil, s.readError(ctx, span, "listing contacts", err)
	}

	pivots := make(directory.PivotMap, len(contacts))
	for _, c := range contacts {
		pivots[c.Email] = c.Datasets()
	}

	s.metrics.RecordPivots(ctx, s.task.Name, len(pivots))
	telemetry.SetAttributes(span, "pivots", len(pivots))
	return pivots, nil
}

// GetBean reads one contact. Unknown contacts are reported as absent.
func (s *ContactService) GetBean(ctx context.Context, idAttribute string, datasets directory.Datasets, sameService bool) (directory.Bean, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.name, "get_bean", "task", s.task.Name)
	defer span.End()

	id, ok := beanKey(idAttribute, datasets, sameService)
	if !ok {
		return nil, nil
	}
	contact, err := s.contacts.GetContact(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.readError(ctx, span, "reading contact "+id, err)
	}
	return s.newBean(contact.Email, contact.Datasets()), nil
}
