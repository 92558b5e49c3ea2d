package provision

import (
	"errors"
	"fmt"
)

// Class partitions pipeline failures by what the operator has to fix. Every
// class is terminal for the run; re-running after fixing the cause is the
// recovery path.
type Class string

const (
	// ClassPrivilege means the process lacks root privilege.
	ClassPrivilege Class = "privilege"

	// ClassInput means a required input (the bot token) was not obtained.
	ClassInput Class = "input"

	// ClassDependency means a system package or runtime dependency failed
	// to install. The host may be left half-provisioned.
	ClassDependency Class = "dependency"

	// ClassArtifact means no deployable artifact was obtained. Raised
	// before any unit registration.
	ClassArtifact Class = "artifact"

	// ClassVerification means the supervisor reported the service
	// non-active after the restart attempt.
	ClassVerification Class = "verification"

	// ClassInternal covers host mutations that failed for other reasons.
	ClassInternal Class = "internal"
)

// Error is a classified, step-attributed pipeline failure.
type Error struct {
	Class Class
	Step  string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] step %s failed: %v", e.Class, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// stepError wraps err with a class and step name, keeping an existing
// classification if one is already present.
func stepError(class Class, step string, err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Class: class, Step: step, Err: err}
}

// ClassOf extracts the failure class from an error chain.
func ClassOf(err error) (Class, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class, true
	}
	return "", false
}
