package portal

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict reports a uniqueness violation while writing webpart rows. Saves treat it as
	// a concurrent writer having already converged the layout.
	ErrConflict = errors.New("portal: webpart layout conflict")

	ErrPermanent      = errors.New("portal: webpart is permanent")
	ErrUnknownFactory = errors.New("portal: unknown webpart type")
	ErrNoContainer    = errors.New("portal: view context has no container")
	ErrNotFound       = errors.New("portal: not found")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

func errNotFound(kind string, id any) error {
	return NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

// FactoryPanicError wraps a panic raised while a factory built a webpart view.
type FactoryPanicError struct {
	Name  string
	Value any
}

func (e *FactoryPanicError) Error() string {
	return fmt.Sprintf("webpart factory %q panicked: %v", e.Name, e.Value)
}
