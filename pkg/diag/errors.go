// Package diag defines the diagnostics produced while translating classes
// and generating native glue.
package diag

import (
	"errors"
	"fmt"
)

// MalformedInputError reports a descriptor, signature or bytecode stream
// that cannot be decoded. It is fatal for the enclosing class.
type MalformedInputError struct {
	Class  string
	Member string
	Input  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %q%s: %s", e.Input, location(e.Class, e.Member), e.Reason)
}

// Malformed returns a MalformedInputError without class context. Callers
// higher up attach the class and member with InClass.
func Malformed(input, format string, args ...any) *MalformedInputError {
	return &MalformedInputError{Input: input, Reason: fmt.Sprintf(format, args...)}
}

// UnresolvedReferenceError reports a class, accessor or enum constant that
// could not be found. It is fatal for the class or annotation being built.
type UnresolvedReferenceError struct {
	Class     string
	Member    string
	Reference string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %s%s", e.Reference, location(e.Class, e.Member))
}

// MissingBodyWarning reports a native method declaration without inline
// code. Only the glue for that method is skipped.
type MissingBodyWarning struct {
	File   string
	Method string
}

func (e *MissingBodyWarning) Error() string {
	return fmt.Sprintf("no native method body for: %s (%s)", e.Method, e.File)
}

// RegionInvariantViolation reports an exception region depth that goes
// negative or does not return to the method base by the final instruction.
type RegionInvariantViolation struct {
	Class  string
	Method string
	Label  string
	Depth  int
	Base   int
}

func (e *RegionInvariantViolation) Error() string {
	at := "method end"
	if e.Label != "" {
		at = e.Label
	}
	return fmt.Sprintf("unbalanced exception regions%s: depth %d at %s, base %d",
		location(e.Class, e.Method), e.Depth, at, e.Base)
}

// InClass fills in missing class and member context on err if it carries
// one of the typed diagnostics. Other errors are returned unchanged.
func InClass(err error, class, member string) error {
	var mal *MalformedInputError
	if errors.As(err, &mal) {
		if mal.Class == "" {
			mal.Class = class
		}
		if mal.Member == "" {
			mal.Member = member
		}
	}
	var unres *UnresolvedReferenceError
	if errors.As(err, &unres) {
		if unres.Class == "" {
			unres.Class = class
		}
		if unres.Member == "" {
			unres.Member = member
		}
	}
	var region *RegionInvariantViolation
	if errors.As(err, &region) {
		if region.Class == "" {
			region.Class = class
		}
		if region.Method == "" {
			region.Method = member
		}
	}
	return err
}

// IsWarning reports whether err only describes a recoverable condition.
func IsWarning(err error) bool {
	var w *MissingBodyWarning
	return errors.As(err, &w)
}

func location(class, member string) string {
	switch {
	case class != "" && member != "":
		return fmt.Sprintf(" in %s.%s", class, member)
	case class != "":
		return " in " + class
	case member != "":
		return " in " + member
	}
	return ""
}
