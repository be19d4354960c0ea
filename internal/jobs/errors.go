package jobs

// validationError signals a rejected job request for 400 mapping.
type validationError struct{ msg string }

func (e validationError) Error() string { return "invalid request: " + e.msg }

// ErrValidation constructs a validationError.
func ErrValidation(msg string) error { return validationError{msg: msg} }

// IsValidation reports whether err indicates a bad request payload.
func IsValidation(err error) bool {
	_, ok := err.(validationError)
	return ok
}

// tooBusyError signals queue overflow for 429 mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "job queue is full" }

// ErrTooBusy constructs a tooBusyError.
func ErrTooBusy() error { return tooBusyError{} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// unknownResourceError signals a job referencing an unregistered id.
type unknownResourceError struct{ id string }

func (e unknownResourceError) Error() string { return "resource not found: " + e.id }

// ErrUnknownResource constructs an unknownResourceError.
func ErrUnknownResource(id string) error { return unknownResourceError{id: id} }

// IsUnknownResource reports whether the error indicates a missing resource id.
func IsUnknownResource(err error) bool {
	_, ok := err.(unknownResourceError)
	return ok
}
