package domain

import "fmt"

// ErrNotFound is returned when an operation references a missing record.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrAlreadyExists is returned when a create collides with an existing id or unique key.
type ErrAlreadyExists struct {
	Entity EntityType
	Key    string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Key)
}
