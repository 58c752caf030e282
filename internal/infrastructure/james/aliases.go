package james

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// AliasesPath is the webadmin resource root for address aliases
const AliasesPath = "/address/aliases"

// AliasGateway implements directory.AliasGateway against /address/aliases
type AliasGateway struct {
	resource *Resource
	logger   *zap.Logger
}

var _ directory.AliasGateway = (*AliasGateway)(nil)

// NewAliasGateway creates an alias gateway on top of client
func NewAliasGateway(client *Client) *AliasGateway {
	return &AliasGateway{
		resource: client.Resource(AliasesPath),
		logger:   client.logger.Named("aliases"),
	}
}

// ListIdentities returns every identity owning at least one alias
func (g *AliasGateway) ListIdentities(ctx context.Context) ([]directory.Identity, error) {
	var users []string
	if _, err := g.resource.GetList(ctx, &users); err != nil {
		return nil, err
	}
	identities := make([]directory.Identity, 0, len(users))
	for _, u := range users {
		identities = append(identities, directory.NewIdentity(u))
	}
	return identities, nil
}

// ListAliases returns the aliases of identity, ErrNotFound when there is none
func (g *AliasGateway) ListAliases(ctx context.Context, identity string) ([]directory.Alias, error) {
	var aliases []directory.Alias
	resp, err := g.resource.GetList(ctx, &aliases, identity)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, identity)
		}
		return nil, err
	}
	if len(aliases) == 0 {
		return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, identity)
	}
	return aliases, nil
}

// CreateAlias maps alias.Source onto identity
func (g *AliasGateway) CreateAlias(ctx context.Context, identity string, alias directory.Alias) (directory.Outcome, error) {
	resp, err := g.resource.Do(ctx, http.MethodPut, nil, identity, "sources", alias.Source)
	return g.outcome(resp, err, "creating alias")
}

// RemoveAlias removes a single alias source from identity
func (g *AliasGateway) RemoveAlias(ctx context.Context, identity string, alias directory.Alias) (directory.Outcome, error) {
	resp, err := g.resource.Do(ctx, http.MethodDelete, nil, identity, "sources", alias.Source)
	return g.outcome(resp, err, "removing alias")
}

// RemoveIdentity removes identity together with all its aliases
func (g *AliasGateway) RemoveIdentity(ctx context.Context, identity string) (directory.Outcome, error) {
	resp, err := g.resource.Do(ctx, http.MethodDelete, nil, identity)
	return g.outcome(resp, err, "removing user")
}

func (g *AliasGateway) outcome(resp *Response, err error, action string) (directory.Outcome, error) {
	return writeOutcome(g.logger, resp, err, action)
}

// writeOutcome turns a write response into an Outcome. Refused writes are
// logged with status and body; unreachable destinations are returned as errors.
func writeOutcome(logger *zap.Logger, resp *Response, err error, action string) (directory.Outcome, error) {
	if err != nil {
		if errors.Is(err, directory.ErrServiceCommunication) {
			return directory.FailureFromError(err), err
		}
		return directory.FailureFromError(err), nil
	}
	if resp.OK() {
		return directory.Success(), nil
	}
	diagnostic := resp.Diagnostic(action)
	logger.Error(diagnostic,
		zap.String("method", resp.Method),
		zap.String("url", resp.URL),
		zap.Int("status", resp.StatusCode),
		zap.String("status_text", resp.StatusText),
		zap.ByteString("body", resp.Body),
	)
	return directory.Failure("%s", diagnostic), nil
}
