package directory

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultBeanName is the bean type used when none is configured.
const DefaultBeanName = "SimpleBean"

// Bean is an entity materialised from the destination.
type Bean interface {
	MainIdentifier() string
	Datasets() Datasets
}

// BeanConstructor builds a bean from its identifier and attributes.
type BeanConstructor func(mainIdentifier string, datasets Datasets) Bean

// SimpleBean is a plain attribute holder.
type SimpleBean struct {
	id       string
	datasets Datasets
}

// NewSimpleBean creates a SimpleBean. The datasets are copied.
func NewSimpleBean(mainIdentifier string, datasets Datasets) Bean {
	return &SimpleBean{id: mainIdentifier, datasets: datasets.Clone()}
}

func (b *SimpleBean) MainIdentifier() string { return b.id }

func (b *SimpleBean) Datasets() Datasets { return b.datasets.Clone() }

// BeanRegistry maps configured bean names to constructors.
type BeanRegistry struct {
	mu    sync.RWMutex
	ctors map[string]BeanConstructor
}

// NewBeanRegistry returns a registry with the built-in bean types.
func NewBeanRegistry() *BeanRegistry {
	r := &BeanRegistry{ctors: make(map[string]BeanConstructor)}
	r.ctors[DefaultBeanName] = NewSimpleBean
	r.ctors["org.lsc.beans.SimpleBean"] = NewSimpleBean
	return r
}

// Register adds a bean type. Registering the same name twice is an error.
func (r *BeanRegistry) Register(name string, ctor BeanConstructor) error {
	if name == "" || ctor == nil {
		return fmt.Errorf("%w: bean name and constructor are required", ErrConfiguration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[name]; exists {
		return fmt.Errorf("%w: bean %q already registered", ErrConfiguration, name)
	}
	r.ctors[name] = ctor
	return nil
}

// Resolve returns the constructor for name. An empty name selects the default bean.
func (r *BeanRegistry) Resolve(name string) (BeanConstructor, error) {
	if name == "" {
		name = DefaultBeanName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrUnknownBean, name)
	}
	return ctor, nil
}

// Names lists registered bean types.
func (r *BeanRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
