package connector

import (
	"fmt"
	"strings"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// ServiceType selects which destination resource a task writes to
type ServiceType string

const (
	ServiceAlias   ServiceType = "alias"
	ServiceContact ServiceType = "contact"
)

// UpdateMode controls how update changes are applied
type UpdateMode string

const (
	// UpdateSkip reports updates as successful without touching the destination
	UpdateSkip UpdateMode = "skip"
	// UpdatePatch reconciles the destination with the new attribute values
	UpdatePatch UpdateMode = "patch"
)

// TaskConfig describes one synchronization task
type TaskConfig struct {
	Name               string
	Service            ServiceType
	Bean               string
	WritableAttributes []string
	UpdateMode         UpdateMode
	AliasAttribute     string
}

// Validate checks the task and fills in defaults
func (c *TaskConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = string(c.Service)
	}
	switch c.Service {
	case ServiceAlias, ServiceContact:
	default:
		return fmt.Errorf("%w: %w: %q", directory.ErrConfiguration, directory.ErrUnknownServiceType, c.Service)
	}
	switch c.UpdateMode {
	case "":
		c.UpdateMode = UpdateSkip
	case UpdateSkip, UpdatePatch:
	default:
		return fmt.Errorf("%w: unknown update mode %q", directory.ErrConfiguration, c.UpdateMode)
	}
	if c.AliasAttribute == "" {
		c.AliasAttribute = directory.AttrSources
	}
	if c.Bean == "" {
		c.Bean = directory.DefaultBeanName
	}
	if c.WritableAttributes == nil {
		c.WritableAttributes = defaultWritableAttributes(c.Service, c.AliasAttribute)
	}
	return nil
}

func defaultWritableAttributes(service ServiceType, aliasAttribute string) []string {
	if service == ServiceContact {
		return []string{directory.AttrGivenName, directory.AttrSurname}
	}
	return []string{aliasAttribute}
}
