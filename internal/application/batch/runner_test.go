package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// scriptedService answers ApplyChange from a table keyed by main identifier
type scriptedService struct {
	outcomes map[string]directory.Outcome
	applied  []string
	onApply  func()
}

func (s *scriptedService) ApplyChange(_ context.Context, change directory.ChangeDescriptor) directory.Outcome {
	s.applied = append(s.applied, change.MainIdentifier)
	if s.onApply != nil {
		s.onApply()
	}
	if o, ok := s.outcomes[change.MainIdentifier]; ok {
		return o
	}
	return directory.Success()
}

func (s *scriptedService) Apply(ctx context.Context, change directory.ChangeDescriptor) bool {
	return s.ApplyChange(ctx, change).Succeeded
}

func (s *scriptedService) GetListPivots(context.Context) (directory.PivotMap, error) {
	return directory.PivotMap{}, nil
}

func (s *scriptedService) GetWriteDatasetIDs() []string { return []string{} }

func (s *scriptedService) GetBean(context.Context, string, directory.Datasets, bool) (directory.Bean, error) {
	return nil, nil
}

// boolService only implements the bool-returning Apply
type boolService struct {
	directory.WritableService
	ok bool
}

func (b boolService) Apply(context.Context, directory.ChangeDescriptor) bool { return b.ok }

// MockRunJournal is a mock implementation of directory.RunJournal
type MockRunJournal struct {
	mock.Mock
}

func (m *MockRunJournal) Record(ctx context.Context, record directory.ChangeRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRunJournal) ListByRun(ctx context.Context, runID uuid.UUID) ([]directory.ChangeRecord, error) {
	args := m.Called(ctx, runID)
	records, _ := args.Get(0).([]directory.ChangeRecord)
	return records, args.Error(1)
}

func (m *MockRunJournal) LatestRuns(ctx context.Context, limit int) ([]directory.RunSummary, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]directory.RunSummary)
	return runs, args.Error(1)
}

func changes(ids ...string) []directory.ChangeDescriptor {
	out := make([]directory.ChangeDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, directory.ChangeDescriptor{Operation: directory.OperationCreate, MainIdentifier: id})
	}
	return out
}

func TestRunner_Status(t *testing.T) {
	tests := []struct {
		name      string
		ids       []string
		failing   []string
		want      RunStatus
		succeeded int
		failed    int
	}{
		{name: "nothing to do", want: RunStatusSuccess},
		{name: "all applied", ids: []string{"a", "b"}, want: RunStatusSuccess, succeeded: 2},
		{name: "some refused", ids: []string{"a", "b", "c"}, failing: []string{"b"}, want: RunStatusPartial, succeeded: 2, failed: 1},
		{name: "all refused", ids: []string{"a", "b"}, failing: []string{"a", "b"}, want: RunStatusFailed, failed: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &scriptedService{outcomes: map[string]directory.Outcome{}}
			for _, id := range tt.failing {
				svc.outcomes[id] = directory.Failure("%s refused", id)
			}
			report, err := NewRunner(svc, WithLogger(zaptest.NewLogger(t))).Run(context.Background(), "aliases", changes(tt.ids...))
			require.NoError(t, err)

			assert.Equal(t, tt.want, report.Status)
			assert.Equal(t, len(tt.ids), report.Total)
			assert.Equal(t, tt.succeeded, report.Succeeded)
			assert.Equal(t, tt.failed, report.Failed)
			assert.Len(t, report.Failures, tt.failed)
			assert.Equal(t, tt.ids, nilIfEmpty(svc.applied))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestRunner_FailureDetails(t *testing.T) {
	svc := &scriptedService{outcomes: map[string]directory.Outcome{
		"b@example.org": directory.Failure("Error 400 (Bad Request - nope) while creating alias: x"),
	}}
	report, err := NewRunner(svc).Run(context.Background(), "aliases", changes("a@example.org", "b@example.org"))
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, ChangeFailure{
		Index:          1,
		Operation:      directory.OperationCreate,
		MainIdentifier: "b@example.org",
		Diagnostic:     "Error 400 (Bad Request - nope) while creating alias: x",
	}, report.Failures[0])
}

func TestRunner_BoolOnlyService(t *testing.T) {
	report, err := NewRunner(boolService{ok: false}).Run(context.Background(), "t", changes("a"))
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, report.Status)
	assert.Contains(t, report.Failures[0].Diagnostic, "create a was not applied")
}

func TestRunner_Journal(t *testing.T) {
	t.Run("records each change", func(t *testing.T) {
		fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		journal := &MockRunJournal{}
		journal.On("Record", mock.Anything, mock.MatchedBy(func(r directory.ChangeRecord) bool {
			return r.Task == "aliases" && r.AppliedAt.Equal(fixed)
		})).Return(nil).Twice()
		svc := &scriptedService{outcomes: map[string]directory.Outcome{"b": directory.Failure("refused")}}

		report, err := NewRunner(svc, WithJournal(journal), WithClock(func() time.Time { return fixed })).
			Run(context.Background(), "aliases", changes("a", "b"))
		require.NoError(t, err)
		journal.AssertExpectations(t)

		second := journal.Calls[1].Arguments.Get(1).(directory.ChangeRecord)
		assert.Equal(t, report.RunID, second.RunID)
		assert.Equal(t, "b", second.MainIdentifier)
		assert.False(t, second.Succeeded)
		assert.Equal(t, "refused", second.Diagnostic)
	})

	t.Run("journal failure does not change outcomes", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		journal := &MockRunJournal{}
		journal.On("Record", mock.Anything, mock.Anything).Return(errors.New("database is locked"))
		svc := &scriptedService{}

		report, err := NewRunner(svc, WithJournal(journal), WithLogger(zap.New(core))).
			Run(context.Background(), "aliases", changes("a", "b"))
		require.NoError(t, err)
		assert.Equal(t, RunStatusSuccess, report.Status)
		assert.Equal(t, 2, logs.FilterMessage("Failed to journal change").Len())
	})
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &scriptedService{}
	svc.onApply = func() {
		if len(svc.applied) == 2 {
			cancel()
		}
	}

	report, err := NewRunner(svc).Run(ctx, "aliases", changes("a", "b", "c", "d"))
	assert.ErrorIs(t, err, ErrRunCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, RunStatusCancelled, report.Status)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, []string{"a", "b"}, svc.applied)
	assert.False(t, report.FinishedAt.IsZero())
}

func TestRunner_RunIDInLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	report, err := NewRunner(&scriptedService{}, WithLogger(zap.New(core))).Run(context.Background(), "contacts", changes("a"))
	require.NoError(t, err)

	entries := logs.FilterMessage("Run completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, report.RunID.String(), fields["run_id"])
	assert.Equal(t, "contacts", fields["task"])
	assert.Equal(t, "SUCCESS", fields["status"])
}
