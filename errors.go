package datum

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInput is returned when a link targets a datum that cannot take input.
	ErrNoInput = errors.New("datum does not accept input")
	// ErrCycle is returned when a link would make a datum depend on itself.
	ErrCycle = errors.New("link would create a cycle")
	// ErrIncompatible is returned when the target's input handler refuses a link.
	ErrIncompatible = errors.New("input handler rejected link")
	// ErrDuplicateName is returned when a name is already taken within its parent.
	ErrDuplicateName = errors.New("name already in use")
	// ErrNotEditable is returned when editing a datum driven by a link.
	ErrNotEditable = errors.New("datum is driven by an input link")
	// ErrSourceNotEditable is returned when a datum's source has no editable text.
	ErrSourceNotEditable = errors.New("datum source cannot be edited")
	// ErrDestroyed is returned when operating on a destroyed datum or node.
	ErrDestroyed = errors.New("destroyed")
	// ErrInvalidName is returned for empty names or names containing a dot.
	ErrInvalidName = errors.New("invalid name")
)

// LinkError describes a rejected link proposal.
type LinkError struct {
	Source *Datum
	Target *Datum
	Cause  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s -> %s: %v", e.Source.QualifiedName(), e.Target.QualifiedName(), e.Cause)
}

func (e *LinkError) Unwrap() error {
	return e.Cause
}

func newLinkError(l *Link, target *Datum) *LinkError {
	err := &LinkError{Source: l.Source(), Target: target}
	switch {
	case target.input == nil:
		err.Cause = ErrNoInput
	case l.Source().upstream.Contains(uint32(target.id)):
		err.Cause = ErrCycle
	default:
		err.Cause = ErrIncompatible
	}
	return err
}
