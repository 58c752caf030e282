package directory

import (
	"fmt"
	"strings"
)

// OperationKind is the kind of change requested by the source side.
type OperationKind string

const (
	OperationCreate   OperationKind = "create"
	OperationUpdate   OperationKind = "update"
	OperationDelete   OperationKind = "delete"
	OperationChangeID OperationKind = "change_id"
	OperationNoop     OperationKind = "noop"
)

// ParseOperation converts user input into an OperationKind.
func ParseOperation(s string) (OperationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create", "create_object":
		return OperationCreate, nil
	case "update", "update_object":
		return OperationUpdate, nil
	case "delete", "delete_object":
		return OperationDelete, nil
	case "change_id", "changeid":
		return OperationChangeID, nil
	case "noop", "":
		return OperationNoop, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

func (k OperationKind) String() string {
	return string(k)
}

// ChangeDescriptor is one change to apply on the destination.
type ChangeDescriptor struct {
	Operation      OperationKind
	MainIdentifier string
	Attributes     Datasets
	Task           string
}

// HasMainIdentifier reports whether the change can be addressed to an identity.
func (c ChangeDescriptor) HasMainIdentifier() bool {
	return strings.TrimSpace(c.MainIdentifier) != ""
}

// Values returns the replacement values of an attribute.
func (c ChangeDescriptor) Values(name string) []string {
	return c.Attributes.Values(name)
}

// FirstValue returns the first replacement value of an attribute.
func (c ChangeDescriptor) FirstValue(name string) (string, bool) {
	return c.Attributes.First(name)
}
