package james

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// DomainGateway provisions mail domains
type DomainGateway struct {
	resource *Resource
	logger   *zap.Logger
}

var _ directory.DomainGateway = (*DomainGateway)(nil)

// NewDomainGateway creates a domain gateway on top of client
func NewDomainGateway(client *Client) *DomainGateway {
	return &DomainGateway{
		resource: client.Resource(DomainsPath),
		logger:   client.logger.Named("domains"),
	}
}

// CreateDomain declares domain on the server. Existing domains are accepted.
func (g *DomainGateway) CreateDomain(ctx context.Context, domain string) (directory.Outcome, error) {
	resp, err := g.resource.Do(ctx, http.MethodPut, nil, domain)
	return writeOutcome(g.logger, resp, err, "creating domain")
}

// DomainExists reports whether domain is declared
func (g *DomainGateway) DomainExists(ctx context.Context, domain string) (bool, error) {
	resp, err := g.resource.Do(ctx, http.MethodGet, nil, domain)
	if err != nil {
		return false, err
	}
	switch {
	case resp.OK():
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, resp.ServiceError()
	}
}
