package connector

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// MockAliasGateway is a mock implementation of directory.AliasGateway
type MockAliasGateway struct {
	mock.Mock
}

func (m *MockAliasGateway) ListIdentities(ctx context.Context) ([]directory.Identity, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]directory.Identity)
	return ids, args.Error(1)
}

func (m *MockAliasGateway) ListAliases(ctx context.Context, identity string) ([]directory.Alias, error) {
	args := m.Called(ctx, identity)
	aliases, _ := args.Get(0).([]directory.Alias)
	return aliases, args.Error(1)
}

func (m *MockAliasGateway) CreateAlias(ctx context.Context, identity string, alias directory.Alias) (directory.Outcome, error) {
	args := m.Called(ctx, identity, alias)
	return args.Get(0).(directory.Outcome), args.Error(1)
}

func (m *MockAliasGateway) RemoveAlias(ctx context.Context, identity string, alias directory.Alias) (directory.Outcome, error) {
	args := m.Called(ctx, identity, alias)
	return args.Get(0).(directory.Outcome), args.Error(1)
}

func (m *MockAliasGateway) RemoveIdentity(ctx context.Context, identity string) (directory.Outcome, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(directory.Outcome), args.Error(1)
}

// MockContactGateway is a mock implementation of directory.ContactGateway
type MockContactGateway struct {
	mock.Mock
}

func (m *MockContactGateway) ListContacts(ctx context.Context) ([]directory.Identity, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]directory.Identity)
	return ids, args.Error(1)
}

func (m *MockContactGateway) GetContact(ctx context.Context, address string) (*directory.Contact, error) {
	args := m.Called(ctx, address)
	c, _ := args.Get(0).(*directory.Contact)
	return c, args.Error(1)
}

func (m *MockContactGateway) CreateContact(ctx context.Context, contact directory.Contact) (directory.Outcome, error) {
	args := m.Called(ctx, contact)
	return args.Get(0).(directory.Outcome), args.Error(1)
}

func (m *MockContactGateway) UpdateContact(ctx context.Context, contact directory.Contact) (directory.Outcome, error) {
	args := m.Called(ctx, contact)
	return args.Get(0).(directory.Outcome), args.Error(1)
}

func (m *MockContactGateway) RemoveContact(ctx context.Context, address string) (directory.Outcome, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(directory.Outcome), args.Error(1)
}

type changeMetric struct {
	task      string
	operation string
	succeeded bool
}

type recordingMetrics struct {
	mu      sync.Mutex
	changes []changeMetric
	pivots  []int
}

func (r *recordingMetrics) RecordChange(_ context.Context, task, operation string, succeeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, changeMetric{task, operation, succeeded})
}

func (r *recordingMetrics) RecordPivots(_ context.Context, _ string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pivots = append(r.pivots, count)
}

func create(id string, sources ...string) directory.ChangeDescriptor {
	return directory.ChangeDescriptor{
		Operation:      directory.OperationCreate,
		MainIdentifier: id,
		Attributes:     directory.Datasets{directory.AttrSources: sources},
	}
}
