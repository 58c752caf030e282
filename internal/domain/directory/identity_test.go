package directory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		address string
		want    string
		wantErr bool
	}{
		{address: "user@example.org", want: "example.org"},
		{address: "first.last@mail.example.org", want: "mail.example.org"},
		{address: "no-domain", wantErr: true},
		{address: "@example.org", wantErr: true},
		{address: "user@", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, err := DomainOf(tt.address)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewContact(t *testing.T) {
	t.Run("keeps names", func(t *testing.T) {
		c := NewContact("ada@example.org", "Ada", "Lovelace")
		require.NotNil(t, c.Firstname)
		require.NotNil(t, c.Surname)
		assert.Equal(t, "Ada", *c.Firstname)
		assert.Equal(t, Datasets{
			AttrEmail:     {"ada@example.org"},
			AttrGivenName: {"Ada"},
			AttrSurname:   {"Lovelace"},
		}, c.Datasets())
	})

	t.Run("empty names stay unset", func(t *testing.T) {
		c := NewContact("ada@example.org", "", "")
		assert.Nil(t, c.Firstname)
		assert.Nil(t, c.Surname)
		assert.Equal(t, Datasets{AttrEmail: {"ada@example.org"}}, c.Datasets())
	})
}

func TestIdentity_Datasets(t *testing.T) {
	id := NewIdentity(" user@example.org ")
	assert.Equal(t, Datasets{AttrEmail: {"user@example.org"}}, id.Datasets())
}

func TestTypedErrors(t *testing.T) {
	cause := errors.New("connection refused")
	commErr := &CommunicationError{Method: "GET", URL: "http://james:8000/address/aliases", Err: cause}
	assert.True(t, IsCommunication(commErr))
	assert.ErrorIs(t, commErr, cause)
	assert.Contains(t, commErr.Error(), "connection refused")

	svcErr := &ServiceError{Method: "GET", URL: "/x", StatusCode: 500, StatusText: "Internal Server Error", Body: "oops"}
	assert.ErrorIs(t, svcErr, ErrService)
	assert.False(t, IsCommunication(svcErr))
	assert.Equal(t, "GET /x: error 500 (Internal Server Error - oops)", svcErr.Error())
}
