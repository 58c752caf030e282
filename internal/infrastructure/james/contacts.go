package james

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// DomainsPath is the webadmin resource root for domains and their contacts
const DomainsPath = "/domains"

// ContactGateway implements directory.ContactGateway against /domains/.../contacts
type ContactGateway struct {
	resource *Resource
	validate *validator.Validate
	logger   *zap.Logger
}

var _ directory.ContactGateway = (*ContactGateway)(nil)

// NewContactGateway creates a contact gateway on top of client
func NewContactGateway(client *Client) *ContactGateway {
	return &ContactGateway{
		resource: client.Resource(DomainsPath),
		validate: validator.New(),
		logger:   client.logger.Named("contacts"),
	}
}

// ListContacts returns the addresses of every domain contact
func (g *ContactGateway) ListContacts(ctx context.Context) ([]directory.Identity, error) {
	var addresses []string
	if _, err := g.resource.GetList(ctx, &addresses, "contacts", "all"); err != nil {
		return nil, err
	}
	identities := make([]directory.Identity, 0, len(addresses))
	for _, a := range addresses {
		identities = append(identities, directory.NewIdentity(a))
	}
	return identities, nil
}

// GetContact reads one contact, ErrNotFound when it does not exist
func (g *ContactGateway) GetContact(ctx context.Context, address string) (*directory.Contact, error) {
	domain, err := directory.DomainOf(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, address)
	}
	var body contactResponse
	resp, err := g.resource.GetList(ctx, &body, domain, "contacts", address)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, address)
		}
		return nil, err
	}
	email := body.EmailAddress
	if email == "" {
		email = address
	}
	return &directory.Contact{Email: email, Firstname: body.Firstname, Surname: body.Surname}, nil
}

// CreateContact adds a contact to the domain of its address
func (g *ContactGateway) CreateContact(ctx context.Context, contact directory.Contact) (directory.Outcome, error) {
	payload := contactPayload{
		EmailAddress: contact.Email,
		Firstname:    contact.Firstname,
		Surname:      contact.Surname,
	}
	if err := g.validate.Struct(payload); err != nil {
		g.logger.Error("Invalid contact", zap.String("address", contact.Email), zap.Error(err))
		return directory.Failure("%v: %s", directory.ErrInvalidAddress, contact.Email), nil
	}
	domain, err := contact.Domain()
	if err != nil {
		return directory.Failure("%v: %s", err, contact.Email), nil
	}
	resp, err := g.resource.Do(ctx, http.MethodPost, payload, domain, "contacts")
	return writeOutcome(g.logger, resp, err, "creating contact")
}

// UpdateContact replaces the names of an existing contact
func (g *ContactGateway) UpdateContact(ctx context.Context, contact directory.Contact) (directory.Outcome, error) {
	domain, err := contact.Domain()
	if err != nil {
		return directory.Failure("%v: %s", err, contact.Email), nil
	}
	payload := contactNamesPayload{Firstname: contact.Firstname, Surname: contact.Surname}
	resp, err := g.resource.Do(ctx, http.MethodPut, payload, domain, "contacts", contact.Email)
	return writeOutcome(g.logger, resp, err, "updating contact")
}

// RemoveContact deletes a contact
func (g *ContactGateway) RemoveContact(ctx context.Context, address string) (directory.Outcome, error) {
	domain, err := directory.DomainOf(address)
	if err != nil {
		return directory.Failure("%v: %s", err, address), nil
	}
	resp, err := g.resource.Do(ctx, http.MethodDelete, nil, domain, "contacts", address)
	return writeOutcome(g.logger, resp, err, "removing contact")
}
