package apperrors

import "fmt"

// ErrNotFound represents an error when a requested resource is not found.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// NewIconMapNotFoundError creates a specific error for a missing icon mapping
// file. Daily runs treat it as a signal to skip the rewrite stage rather than
// as a failure.
func NewIconMapNotFoundError(path string) *ErrNotFound {
	return &ErrNotFound{
		Resource: "icon mapping file",
		ID:       path,
	}
}

// ErrEmptyPayload is returned when an upstream source answered successfully
// but delivered a zero-byte body.
type ErrEmptyPayload struct {
	URL string
}

// Error implements the error interface.
func (e *ErrEmptyPayload) Error() string {
	return fmt.Sprintf("empty payload from %s", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrEmptyPayload) Is(target error) bool {
	_, ok := target.(*ErrEmptyPayload)
	return ok
}

// NewEmptyPayloadError creates a new ErrEmptyPayload.
func NewEmptyPayloadError(url string) *ErrEmptyPayload {
	return &ErrEmptyPayload{URL: url}
}

// ErrUnexpectedStatus is returned when an upstream request answered with a
// non-success HTTP status code.
type ErrUnexpectedStatus struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *ErrUnexpectedStatus) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrUnexpectedStatus) Is(target error) bool {
	_, ok := target.(*ErrUnexpectedStatus)
	return ok
}

// NewUnexpectedStatusError creates a new ErrUnexpectedStatus.
func NewUnexpectedStatusError(url string, statusCode int) *ErrUnexpectedStatus {
	return &ErrUnexpectedStatus{URL: url, StatusCode: statusCode}
}
