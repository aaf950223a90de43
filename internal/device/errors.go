package device

// unavailableError signals that the accelerator could not be opened or was
// lost mid-request (driver error, hardware reset in progress).
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates the device cannot be used.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}

// unknownOperationError signals a name absent from the device namespace.
type unknownOperationError struct{ name string }

func (e unknownOperationError) Error() string {
	return "operation \"" + e.name + "\" not found in device namespace"
}

// ErrUnknownOperation constructs an unknownOperationError.
func ErrUnknownOperation(name string) error { return unknownOperationError{name: name} }

// IsUnknownOperation reports whether err indicates an unresolvable
// operation name.
func IsUnknownOperation(err error) bool {
	_, ok := err.(unknownOperationError)
	return ok
}
