package connector

import (
	"context"
	"errors"

	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/telemetry"
)

// AliasService writes identity aliases to the destination
type AliasService struct {
	*base
	aliases directory.AliasGateway
}

var (
	_ directory.WritableService = (*AliasService)(nil)
	_ directory.OutcomeApplier  = (*AliasService)(nil)
)

// NewAliasService creates an alias service for task
func NewAliasService(aliases directory.AliasGateway, task TaskConfig, opts ...Option) (*AliasService, error) {
	task.Service = ServiceAlias
	b, err := newBase(task, "aliases", opts)
	if err != nil {
		return nil, err
	}
	return &AliasService{base: b, aliases: aliases}, nil
}

// Apply applies change and reports whether every destination write succeeded
func (s *AliasService) Apply(ctx context.Context, change directory.ChangeDescriptor) bool {
	return s.ApplyChange(ctx, change).Succeeded
}

// ApplyChange applies change and returns the combined outcome
func (s *AliasService) ApplyChange(ctx context.Context, change directory.ChangeDescriptor) directory.Outcome {
	return s.apply(ctx, change, s.dispatch)
}

func (s *AliasService) dispatch(ctx context.Context, change directory.ChangeDescriptor) directory.Outcome {
	switch change.Operation {
	case directory.OperationCreate:
		return s.createAliases(ctx, change.MainIdentifier, change.Values(s.task.AliasAttribute))
	case directory.OperationUpdate:
		if s.task.UpdateMode != UpdatePatch {
			s.logger.Debug("Update skipped", zapID(change.MainIdentifier))
			return directory.Success()
		}
		return s.patchAliases(ctx, change)
	case directory.OperationDelete:
		return s.write(ctx, "removing user", func() (directory.Outcome, error) {
			return s.aliases.RemoveIdentity(ctx, change.MainIdentifier)
		})
	default:
		return directory.Success()
	}
}

// createAliases creates every source in order. Each one is attempted even
// after a failure.
func (s *AliasService) createAliases(ctx context.Context, identity string, sources []string) directory.Outcome {
	outcomes := make([]directory.Outcome, 0, len(sources))
	for _, src := range sources {
		outcomes = append(outcomes, s.write(ctx, "creating alias", func() (directory.Outcome, error) {
			return s.aliases.CreateAlias(ctx, identity, directory.Alias{Source: src})
		}))
	}
	return directory.Combine(outcomes...)
}

// patchAliases adds missing sources and removes the ones no longer wanted.
// An update that does not carry the alias attribute leaves the identity alone.
func (s *AliasService) patchAliases(ctx context.Context, change directory.ChangeDescriptor) directory.Outcome {
	desired, present := change.Attributes[s.task.AliasAttribute]
	if !present {
		return directory.Success()
	}

	current, err := s.aliases.ListAliases(ctx, change.MainIdentifier)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		s.logger.Error("Cannot read current aliases", zapID(change.MainIdentifier), zapErr(err))
		return directory.FailureFromError(err)
	}

	have := make(map[string]bool, len(current))
	for _, a := range current {
		have[a.Source] = true
	}
	want := make(map[string]bool, len(desired))
	var toCreate []string
	for _, src := range desired {
		if want[src] {
			continue
		}
		want[src] = true
		if !have[src] {
			toCreate = append(toCreate, src)
		}
	}

	outcomes := []directory.Outcome{s.createAliases(ctx, change.MainIdentifier, toCreate)}
	for _, a := range current {
		if want[a.Source] {
			continue
		}
		alias := a
		outcomes = append(outcomes, s.write(ctx, "removing alias", func() (directory.Outcome, error) {
			return s.aliases.RemoveAlias(ctx, change.MainIdentifier, alias)
		}))
	}
	return directory.Combine(outcomes...)
}

// GetListPivots returns every identity with its alias sources.
// Any read failure aborts the whole enumeration.
func (s *AliasService) GetListPivots(ctx context.Context) (directory.PivotMap, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.name, "list_pivots", "task", s.task.Name)
	defer span.End()

	identities, err := s.aliases.ListIdentities(ctx)
	if err != nil {
		return nil, s.readError(ctx, span, "listing identities", err)
	}

	pivots := make(directory.PivotMap, len(identities))
	for _, id := range identities {
		sources, err := s.sources(ctx, id.Email)
		if err != nil {
			return nil, s.readError(ctx, span, "listing aliases of "+id.Email, err)
		}
		ds := id.Datasets()
		ds.Set(s.task.AliasAttribute, sources...)
		pivots[id.Email] = ds
	}

	s.metrics.RecordPivots(ctx, s.task.Name, len(pivots))
	telemetry.SetAttributes(span, "pivots", len(pivots))
	return pivots, nil
}

// GetBean reads one identity and its aliases. An identity without aliases
// is reported as absent.
func (s *AliasService) GetBean(ctx context.Context, idAttribute string, datasets directory.Datasets, sameService bool) (directory.Bean, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.name, "get_bean", "task", s.task.Name)
	defer span.End()

	id, ok := beanKey(idAttribute, datasets, sameService)
	if !ok {
		return nil, nil
	}
	aliases, err := s.aliases.ListAliases(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.readError(ctx, span, "reading aliases of "+id, err)
	}

	ds := directory.NewIdentity(id).Datasets()
	ds.Set(s.task.AliasAttribute, sourcesOf(aliases)...)
	return s.newBean(id, ds), nil
}

func (s *AliasService) sources(ctx context.Context, identity string) ([]string, error) {
	aliases, err := s.aliases.ListAliases(ctx, identity)
	if errors.Is(err, directory.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return sourcesOf(aliases), nil
}

func sourcesOf(aliases []directory.Alias) []string {
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, a.Source)
	}
	return out
}
