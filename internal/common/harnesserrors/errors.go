// Package harnesserrors contains the errors that end a harness run. The command line entrypoint
// looks for the error types defined in this file and sets the process exit code accordingly.
//
// If multiple errors occur in some function (e.g., if several workers fail to terminate), that
// function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package harnesserrors

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Process exit codes.
const (
	ExitOK                     = 0
	ExitUnknown                = 1
	ExitConfiguration          = 2
	ExitSpawn                  = 3
	ExitAccuracyBelowThreshold = 4
	ExitInterrupted            = 130
)

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "samples"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrTooManyWorkers is returned when more ticket weights are provided than workers can be tracked.
type ErrTooManyWorkers struct {
	Count int
	Max   int
}

func (err *ErrTooManyWorkers) Error() string {
	return fmt.Sprintf("too many processes (max %d, got %d)", err.Max, err.Count)
}

// ErrInvalidTicketCount is returned for a ticket weight that is not a positive integer.
// Arg is the literal text that was provided.
type ErrInvalidTicketCount struct {
	Arg string
}

func (err *ErrInvalidTicketCount) Error() string {
	return fmt.Sprintf("invalid ticket count: %q", err.Arg)
}

// ErrSpawn is returned when a worker could not be created, weighted, or released.
type ErrSpawn struct {
	Index   int // Position of the worker in the configuration
	Tickets int
	Cause   error
}

func (err *ErrSpawn) Error() string {
	return fmt.Sprintf("failed to start P%d with %d tickets: %s", err.Index+1, err.Tickets, err.Cause)
}

func (err *ErrSpawn) Unwrap() error {
	return err.Cause
}

// ErrAccuracyBelowThreshold is returned after a complete run whose accuracy score is lower than required.
type ErrAccuracyBelowThreshold struct {
	Accuracy  int
	Threshold int
}

func (err *ErrAccuracyBelowThreshold) Error() string {
	return fmt.Sprintf("accuracy %d%% is below the required %d%%", err.Accuracy, err.Threshold)
}

// IsConfigurationError reports whether err was caused by invalid input, in which case nothing has been spawned.
func IsConfigurationError(err error) bool {
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return true
		}
	}
	{
		var e *ErrTooManyWorkers
		if errors.As(err, &e) {
			return true
		}
	}
	{
		var e *ErrInvalidTicketCount
		if errors.As(err, &e) {
			return true
		}
	}
	return false
}

// ExitCodeFromError maps error types to process exit codes.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitOK
	}
	if IsConfigurationError(err) {
		return ExitConfiguration
	}
	{
		var e *ErrSpawn
		if errors.As(err, &e) {
			return ExitSpawn
		}
	}
	{
		var e *ErrAccuracyBelowThreshold
		if errors.As(err, &e) {
			return ExitAccuracyBelowThreshold
		}
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	return ExitUnknown
}
