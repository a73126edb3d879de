package tlv

import "fmt"

// EncodingError is returned when a value's shape does not match the
// declared kind of the tag it is encoded under.
type EncodingError struct {
	Tag    Tag
	Reason string
}

func newEncodingError(tag Tag, reason string) *EncodingError {
	return &EncodingError{Tag: tag, Reason: reason}
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %s: %s", e.Tag, e.Reason)
}

// MissingTagError is returned when a required tag is absent from a sequence.
type MissingTagError struct {
	Tag Tag
}

func newMissingTagError(tag Tag) *MissingTagError {
	return &MissingTagError{Tag: tag}
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("%s not found", e.Tag)
}

// TypeMismatchError is returned when a record's length or content is invalid
// for the declared kind of its tag.
type TypeMismatchError struct {
	Tag    Tag
	Reason string
}

func newTypeMismatchError(tag Tag, reason string) *TypeMismatchError {
	return &TypeMismatchError{Tag: tag, Reason: reason}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot decode %s: %s", e.Tag, e.Reason)
}

// DuplicateTagError is returned by the builder when a single-valued tag is
// appended twice.
type DuplicateTagError struct {
	Tag Tag
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("%s appended twice but is single-valued", e.Tag)
}
