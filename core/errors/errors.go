// Package errors provides the typed errors returned by the corpus model,
// the codecs, the compression algorithms and the persistence façade.
//
// Every type unwraps to a sentinel so callers can branch with errors.Is
// without knowing the concrete type, and use errors.As when they need the
// structured fields (offsets, paths, algorithm names).
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates an entity or file was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists indicates an entity already exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmptyObject indicates an entity without children was attached
	ErrEmptyObject = errors.New("empty object")
	// ErrCompression indicates a compression or decompression failure
	ErrCompression = errors.New("compression failure")
	// ErrInternal indicates an internal encoder error
	ErrInternal = errors.New("internal error")
	// ErrUnsupported indicates an unsupported format, extension or algorithm
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError represents a lookup by an unknown id or a missing file.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "document", "sentence", "file")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// EmptyObjectError is returned when a document without sentences, or a
// sentence or translation without tokens, is attached to its parent, and
// when a removal would take away the last sentence or token of an
// attached entity.
type EmptyObjectError struct {
	Resource string // "document", "sentence", "translation" or "token"
	ID       string // Reserved id of the rejected entity
	Removal  bool   // Set when a removal would leave Resource empty
}

func (e *EmptyObjectError) Error() string {
	if e.Removal {
		return fmt.Sprintf("removal would leave %s %s empty", e.Resource, e.ID)
	}
	if e.ID != "" {
		return fmt.Sprintf("empty %s %s cannot be attached", e.Resource, e.ID)
	}
	return fmt.Sprintf("empty %s cannot be attached", e.Resource)
}

func (e *EmptyObjectError) Unwrap() error {
	return ErrEmptyObject
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// CompressionError wraps a failure of a compression algorithm.
type CompressionError struct {
	Algorithm string // Algorithm name (e.g., "gzip", "xz")
	Op        string // "compress" or "decompress"
	Err       error  // Underlying algorithm error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Algorithm, e.Op, e.Err)
}

// Unwrap returns both the sentinel and the algorithm error so errors.Is
// matches either one.
func (e *CompressionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompression}
	}
	return []error{ErrCompression, e.Err}
}

// ParseKind classifies a ParseError. The zero value is ParseUnknown, so a
// ParseError built without a Kind never claims to be an I/O failure.
type ParseKind int

const (
	// ParseUnknown means the failure was not classified.
	ParseUnknown ParseKind = iota
	// ParseIO means the decoder failed while reading bytes.
	ParseIO
	// ParseSyntax means the bytes are not well-formed for the format.
	ParseSyntax
	// ParseSemantic means a value is well-formed but invalid for its target.
	ParseSemantic
	// ParseRecursion means the nesting limit was exceeded.
	ParseRecursion
)

func (k ParseKind) String() string {
	switch k {
	case ParseUnknown:
		return "unknown"
	case ParseIO:
		return "io"
	case ParseSyntax:
		return "syntax"
	case ParseSemantic:
		return "semantic"
	case ParseRecursion:
		return "recursion limit"
	default:
		return fmt.Sprintf("ParseKind(%d)", int(k))
	}
}

// ParseError represents a deserialization error. Offset is a byte offset
// and Line a 1-based line number; either is unknown when negative or zero
// respectively.
type ParseError struct {
	Format  string    // Format being parsed (e.g., "json", "cbor")
	Path    string    // File path, if applicable
	Kind    ParseKind // What went wrong
	Offset  int64     // Byte offset, -1 if unknown
	Line    int       // Line number, 0 if unknown
	Message string    // Error details
	Err     error     // Underlying error, if any
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("failed to parse %s", e.Format)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	msg += fmt.Sprintf(" (%s", e.Kind)
	switch {
	case e.Line > 0:
		msg += fmt.Sprintf(", line %d", e.Line)
	case e.Offset >= 0:
		msg += fmt.Sprintf(", offset %d", e.Offset)
	}
	return msg + "): " + e.Message
}

// Unwrap always includes ErrInvalidInput, plus the decoder error if any.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidInput}
	}
	return []error{ErrInvalidInput, e.Err}
}

// SerializeError is returned when an encoder rejects a value.
type SerializeError struct {
	Format  string // Format being written
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("failed to serialize %s: %s", e.Format, e.Message)
}

func (e *SerializeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInternal}
	}
	return []error{ErrInternal, e.Err}
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewEmptyObject creates an EmptyObjectError
func NewEmptyObject(resource, id string) *EmptyObjectError {
	return &EmptyObjectError{
		Resource: resource,
		ID:       id,
	}
}

// NewEmptyRemoval creates an EmptyObjectError for a removal that would
// leave the named entity without children.
func NewEmptyRemoval(resource, id string) *EmptyObjectError {
	return &EmptyObjectError{
		Resource: resource,
		ID:       id,
		Removal:  true,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewDuplicate creates a ValidationError that unwraps to ErrAlreadyExists.
func NewDuplicate(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     ErrAlreadyExists,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewCompression creates a CompressionError
func NewCompression(algorithm, op string, err error) *CompressionError {
	return &CompressionError{
		Algorithm: algorithm,
		Op:        op,
		Err:       err,
	}
}

// NewParse creates a ParseError with unknown position.
func NewParse(format string, kind ParseKind, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Kind:    kind,
		Offset:  -1,
		Message: message,
		Err:     err,
	}
}

// NewSerialize creates a SerializeError
func NewSerialize(format string, err error) *SerializeError {
	return &SerializeError{
		Format:  format,
		Message: err.Error(),
		Err:     err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
