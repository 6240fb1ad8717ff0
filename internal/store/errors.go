package store

import (
	"errors"
	"fmt"
)

// ErrStore is the parent of every failure the store surfaces. Concrete
// error types unwrap to it, so callers can errors.Is(err, ErrStore) to
// distinguish store failures from transport failures.
var ErrStore = errors.New("store error")

// ObjectNotFoundError reports that no live anchor exists for an object id
// or issue number.
type ObjectNotFoundError struct {
	ObjectID    string
	IssueNumber int
}

func (e *ObjectNotFoundError) Error() string {
	if e.ObjectID != "" {
		return fmt.Sprintf("no object found with ID: %s", e.ObjectID)
	}
	return fmt.Sprintf("no object found for issue #%d", e.IssueNumber)
}

func (e *ObjectNotFoundError) Unwrap() error { return ErrStore }

// DuplicateUIDError reports a create against an id that already has a
// live anchor.
type DuplicateUIDError struct {
	ObjectID    string
	IssueNumber int
}

func (e *DuplicateUIDError) Error() string {
	return fmt.Sprintf("object %q already exists as issue #%d", e.ObjectID, e.IssueNumber)
}

func (e *DuplicateUIDError) Unwrap() error { return ErrStore }

// ConcurrentUpdateError reports an update attempt while the anchor is
// open, i.e. a process cycle is already pending.
type ConcurrentUpdateError struct {
	ObjectID    string
	IssueNumber int
}

func (e *ConcurrentUpdateError) Error() string {
	return fmt.Sprintf("object %q has unprocessed updates on issue #%d; process them before updating again", e.ObjectID, e.IssueNumber)
}

func (e *ConcurrentUpdateError) Unwrap() error { return ErrStore }

// AccessDeniedError reports a process attempt on an anchor created by an
// unauthorized account.
type AccessDeniedError struct {
	IssueNumber int
	Login       string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("issue #%d was created by unauthorized user %q", e.IssueNumber, e.Login)
}

func (e *AccessDeniedError) Unwrap() error { return ErrStore }

// AliasedObjectError reports an alias operation against an id that is
// already an alias.
type AliasedObjectError struct {
	ObjectID  string
	Canonical string
}

func (e *AliasedObjectError) Error() string {
	return fmt.Sprintf("object %q is already an alias of %q", e.ObjectID, e.Canonical)
}

func (e *AliasedObjectError) Unwrap() error { return ErrStore }

// CanonicalObjectError reports an attempt to turn an existing canonical
// object with its own data into an alias.
type CanonicalObjectError struct {
	ObjectID string
}

func (e *CanonicalObjectError) Error() string {
	return fmt.Sprintf("object %q already exists with its own data and cannot become an alias", e.ObjectID)
}

func (e *CanonicalObjectError) Unwrap() error { return ErrStore }

// CircularReferenceError reports an alias creation that would close a
// loop in the alias graph.
type CircularReferenceError struct {
	ObjectID string
	Target   string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("aliasing %q to %q would create a circular reference", e.ObjectID, e.Target)
}

func (e *CircularReferenceError) Unwrap() error { return ErrStore }
