package connector

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// Dependencies are the collaborators a service may need. Only the gateway
// matching the task's service type is required.
type Dependencies struct {
	Aliases  directory.AliasGateway
	Contacts directory.ContactGateway
	Logger   *zap.Logger
	Metrics  Metrics
	Beans    *directory.BeanRegistry
}

func (d Dependencies) options() []Option {
	return []Option{WithLogger(d.Logger), WithMetrics(d.Metrics), WithBeanRegistry(d.Beans)}
}

// Builder constructs a writable service for a task
type Builder func(task TaskConfig, deps Dependencies) (directory.WritableService, error)

// Registry maps service types to builders
type Registry struct {
	mu       sync.RWMutex
	builders map[ServiceType]Builder
}

// NewRegistry returns a registry knowing the alias and contact services
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[ServiceType]Builder)}
	r.builders[ServiceAlias] = buildAliasService
	r.builders[ServiceContact] = buildContactService
	return r
}

// Register adds or replaces the builder of a service type
func (r *Registry) Register(service ServiceType, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[service] = b
}

// Types lists the registered service types
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.builders))
	for t := range r.builders {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// Build resolves the task's service type and constructs the service
func (r *Registry) Build(task TaskConfig, deps Dependencies) (directory.WritableService, error) {
	r.mu.RLock()
	b, ok := r.builders[task.Service]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", directory.ErrConfiguration, directory.ErrUnknownServiceType, task.Service)
	}
	return b(task, deps)
}

func buildAliasService(task TaskConfig, deps Dependencies) (directory.WritableService, error) {
	if deps.Aliases == nil {
		return nil, fmt.Errorf("%w: alias gateway is required", directory.ErrConfiguration)
	}
	return NewAliasService(deps.Aliases, task, deps.options()...)
}

func buildContactService(task TaskConfig, deps Dependencies) (directory.WritableService, error) {
	if deps.Contacts == nil {
		return nil, fmt.Errorf("%w: contact gateway is required", directory.ErrConfiguration)
	}
	return NewContactService(deps.Contacts, task, deps.options()...)
}
