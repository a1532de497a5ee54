package errors

import "fmt"

// ErrUpstream is returned when an external API answers with an unexpected status
type ErrUpstream struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *ErrUpstream) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Body)
}

// ErrValidation is returned when an inbound payload is missing a required field
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// ErrNotConfigured is returned when a client is used without its credentials
type ErrNotConfigured struct {
	Service string
}

func (e *ErrNotConfigured) Error() string {
	return fmt.Sprintf("%s client not configured", e.Service)
}
