package directory

import (
	"errors"
	"fmt"
)

var (
	// Construction errors
	ErrConfiguration      = errors.New("directory: invalid configuration")
	ErrUnknownBean        = errors.New("directory: unknown bean type")
	ErrUnknownServiceType = errors.New("directory: unknown service type")

	// Destination errors
	ErrServiceCommunication = errors.New("directory: destination unreachable")
	ErrService              = errors.New("directory: destination request failed")
	ErrInvalidResponse      = errors.New("directory: invalid destination response")
	ErrNotFound             = errors.New("directory: entry not found")

	// Change errors
	ErrMissingMainIdentifier = errors.New("directory: main identifier is needed to update")
	ErrInvalidAddress        = errors.New("directory: invalid mail address")
	ErrUnknownOperation      = errors.New("directory: unknown operation")
)

// CommunicationError reports a request that never produced an HTTP response:
// DNS, TCP, TLS failures or timeouts.
type CommunicationError struct {
	Method string
	URL    string
	Err    error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap lets errors.Is match both ErrServiceCommunication and the cause.
func (e *CommunicationError) Unwrap() []error {
	return []error{ErrServiceCommunication, e.Err}
}

// ServiceError reports a response outside the 2xx family on a read path.
type ServiceError struct {
	Method     string
	URL        string
	StatusCode int
	StatusText string
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s %s: error %d (%s - %s)", e.Method, e.URL, e.StatusCode, e.StatusText, e.Body)
}

func (e *ServiceError) Unwrap() error {
	return ErrService
}

// IsCommunication reports whether err was caused by an unreachable destination.
func IsCommunication(err error) bool {
	return errors.Is(err, ErrServiceCommunication)
}
