package configdoc

import (
	"fmt"

	"github.com/dub-go/dub/internal/docnode"
)

// TypeMismatchError reports a node kind that doesn't match what the
// target field expected (e.g. a mapping expected, got a scalar).
type TypeMismatchError struct {
	Pos      docnode.Position
	Field    string
	Expected string
	Got      docnode.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: field %q: expected %s, got %s", e.Pos, e.Field, e.Expected, e.Got)
}

// UnknownKeyError reports a mapping key that bound to no field and no
// pattern-prefix in strict mode.
type UnknownKeyError struct {
	Pos docnode.Position
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("%s: unknown key %q", e.Pos, e.Key)
}

// MissingRequiredKeyError reports a non-optional field absent from the document.
type MissingRequiredKeyError struct {
	Pos   docnode.Position
	Field string
}

func (e *MissingRequiredKeyError) Error() string {
	return fmt.Sprintf("%s: missing required key %q", e.Pos, e.Field)
}

// DurationAmbiguityError reports a duration field specified in both its
// mapping-of-units form and its unit-suffixed scalar form. A required
// duration given in neither form is a MissingRequiredKeyError.
type DurationAmbiguityError struct {
	Pos   docnode.Position
	Field string
	Msg   string
}

func (e *DurationAmbiguityError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", e.Pos, e.Field, e.Msg)
}

// ConstructionFailureError wraps an error raised by a user hook
// (NodeUnmarshaler, encoding.TextUnmarshaler, or a registered converter)
// with the node's source location.
type ConstructionFailureError struct {
	Pos   docnode.Position
	Field string
	Err   error
}

func (e *ConstructionFailureError) Error() string {
	return fmt.Sprintf("%s: field %q: %v", e.Pos, e.Field, e.Err)
}

func (e *ConstructionFailureError) Unwrap() error { return e.Err }

// DuplicateKeyError reports a record whose rename attribute collides
// with another field's real name.
type DuplicateKeyError struct {
	Field string
	Name  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("field %q: external name %q collides with another field", e.Field, e.Name)
}

// AliasAttributeError reports an alias-this field (`cfg:",alias"`) that
// can't legally flatten: either it carries its own rename or a
// registered converter exists for its type. Neither attribute has a
// meaning once the sub-record's fields are spliced into the parent's
// own mapping.
type AliasAttributeError struct {
	Field  string
	Reason string
}

func (e *AliasAttributeError) Error() string {
	return fmt.Sprintf("field %q: alias-this flattening rejected: %s", e.Field, e.Reason)
}
