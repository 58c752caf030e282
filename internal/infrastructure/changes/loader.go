// Package changes reads change descriptors from YAML or JSON files.
package changes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// ChangeSet is the content of a change file
type ChangeSet struct {
	Task    string
	Changes []directory.ChangeDescriptor
}

type fileChangeSet struct {
	Task    string       `yaml:"task"`
	Changes []fileChange `yaml:"changes"`
}

type fileChange struct {
	Operation  string                `yaml:"operation"`
	ID         string                `yaml:"id"`
	Attributes map[string]attrValues `yaml:"attributes"`
}

// attrValues accepts either a single scalar or a list of scalars
type attrValues []string

func (v *attrValues) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = attrValues{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*v = list
		return nil
	default:
		return fmt.Errorf("line %d: attribute values must be a scalar or a list", node.Line)
	}
}

// LoadFile reads a change file. The format follows the extension:
// .yaml and .yml are YAML, .json is JSON.
func LoadFile(path string) (*ChangeSet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("%w: %s: unsupported change file extension", directory.ErrConfiguration, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading change file: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a change document. JSON documents are accepted since
// they are valid YAML.
func Parse(data []byte) (*ChangeSet, error) {
	var doc fileChangeSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", directory.ErrConfiguration, err)
	}

	set := &ChangeSet{
		Task:    strings.TrimSpace(doc.Task),
		Changes: make([]directory.ChangeDescriptor, 0, len(doc.Changes)),
	}
	for i, c := range doc.Changes {
		op, err := directory.ParseOperation(c.Operation)
		if err != nil {
			return nil, fmt.Errorf("%w: changes[%d].operation: %w", directory.ErrConfiguration, i, err)
		}
		attrs := make(directory.Datasets, len(c.Attributes))
		for name, values := range c.Attributes {
			attrs.Set(name, values...)
		}
		set.Changes = append(set.Changes, directory.ChangeDescriptor{
			Operation:      op,
			MainIdentifier: strings.TrimSpace(c.ID),
			Attributes:     attrs,
			Task:           set.Task,
		})
	}
	return set, nil
}
