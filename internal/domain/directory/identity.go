package directory

import "strings"

// Identity is a destination principal keyed by its e-mail address.
type Identity struct {
	Email string
}

// NewIdentity creates an identity from an address, trimming surrounding spaces.
func NewIdentity(email string) Identity {
	return Identity{Email: strings.TrimSpace(email)}
}

// Datasets returns the pivot attributes of the identity.
func (i Identity) Datasets() Datasets {
	return Datasets{AttrEmail: {i.Email}}
}

// Alias is a source address delivering into an identity's mailbox.
type Alias struct {
	Source string `json:"source"`
}

// Contact is a domain contact. Names are optional.
type Contact struct {
	Email     string  `json:"emailAddress" validate:"required,email"`
	Firstname *string `json:"firstname,omitempty"`
	Surname   *string `json:"surname,omitempty"`
}

// NewContact builds a contact, keeping empty names unset.
func NewContact(email, firstname, surname string) Contact {
	c := Contact{Email: strings.TrimSpace(email)}
	if firstname != "" {
		c.Firstname = &firstname
	}
	if surname != "" {
		c.Surname = &surname
	}
	return c
}

// Domain returns the part of the address after '@'.
func (c Contact) Domain() (string, error) {
	return DomainOf(c.Email)
}

// Datasets returns the bean attributes of the contact.
func (c Contact) Datasets() Datasets {
	ds := Datasets{AttrEmail: {c.Email}}
	if c.Firstname != nil {
		ds.Set(AttrGivenName, *c.Firstname)
	}
	if c.Surname != nil {
		ds.Set(AttrSurname, *c.Surname)
	}
	return ds
}

// DomainOf extracts the mail domain of an address.
func DomainOf(address string) (string, error) {
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return "", ErrInvalidAddress
	}
	return address[at+1:], nil
}
