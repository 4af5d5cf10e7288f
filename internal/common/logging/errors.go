package logging

// TopmostWithCause recursively calls cause on the given error until it finds an error that does
// not implement the causer interface, and returns the error directly preceding that one.
// Typically, that is the final or penultimate error in the chain.
//
// Logging the returned error with the %+v verb prints the stack trace recorded where the
// error was created by pkg/errors.
func TopmostWithCause(err error) error {
	type causer interface {
		Cause() error
	}

	rv := err
	for rv != nil {
		cause, ok := rv.(causer)
		if !ok {
			break
		}
		next := cause.Cause()
		if _, ok := next.(causer); !ok {
			break
		}
		rv = next
	}
	return rv
}
