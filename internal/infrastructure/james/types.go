package james

// contactPayload is the body of POST /domains/{domain}/contacts
type contactPayload struct {
	EmailAddress string  `json:"emailAddress" validate:"required,email"`
	Firstname    *string `json:"firstname,omitempty"`
	Surname      *string `json:"surname,omitempty"`
}

// contactNamesPayload is the body of PUT /domains/{domain}/contacts/{address}
type contactNamesPayload struct {
	Firstname *string `json:"firstname,omitempty"`
	Surname   *string `json:"surname,omitempty"`
}

// contactResponse is the body of GET /domains/{domain}/contacts/{address}
type contactResponse struct {
	ID           string  `json:"id"`
	EmailAddress string  `json:"emailAddress"`
	Firstname    *string `json:"firstname"`
	Surname      *string `json:"surname"`
}
