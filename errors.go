package dal

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the error taxonomy. Every typed error below reports
// true from errors.Is for its sentinel.
var (
	// ErrCompile indicates bad or missing declarative entity metadata.
	ErrCompile = errors.New("dal: entity compile failed")

	// ErrStatementNotFound is returned when a statement id is not registered.
	ErrStatementNotFound = errors.New("dal: statement not found")

	// ErrRegistry indicates a statement resource could not be loaded.
	ErrRegistry = errors.New("dal: registry load failed")

	// ErrNoResources is returned when the resource location holds no statement
	// resources at all. No queries are possible without a registry.
	ErrNoResources = errors.New("dal: no statement resources found")

	// ErrTemplateRender indicates a dynamic SQL template failed to render.
	ErrTemplateRender = errors.New("dal: template render failed")

	// ErrMapping indicates a result row could not be marshaled.
	ErrMapping = errors.New("dal: result mapping failed")

	// ErrSubstrate indicates the execution substrate returned an error.
	ErrSubstrate = errors.New("dal: substrate error")

	// ErrConfig indicates an invalid configuration value.
	ErrConfig = errors.New("dal: invalid configuration")
)

// CompileError represents bad declarative metadata on a record type.
type CompileError struct {
	Type    string // Record type name
	Field   string // Field name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("dal: compile error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrCompile.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// NewCompileError creates a new CompileError.
func NewCompileError(typeName, fieldName, message string, cause error) *CompileError {
	return &CompileError{
		Type:    typeName,
		Field:   fieldName,
		Message: message,
		Cause:   cause,
	}
}

// MissingIdentityError is returned when a mapped record type has no field
// carrying the identity marker.
type MissingIdentityError struct {
	Type string
}

// Error implements the error interface.
func (e *MissingIdentityError) Error() string {
	return fmt.Sprintf("dal: compile error on type %s: no identity field", e.Type)
}

// Is reports whether the target matches ErrCompile.
func (e *MissingIdentityError) Is(target error) bool {
	return target == ErrCompile
}

// NewMissingIdentityError returns a new MissingIdentityError.
func NewMissingIdentityError(typeName string) *MissingIdentityError {
	return &MissingIdentityError{Type: typeName}
}

// UnmappedEntityError is returned when a record type carries no mapping
// metadata at all.
type UnmappedEntityError struct {
	Type string
}

// Error implements the error interface.
func (e *UnmappedEntityError) Error() string {
	return fmt.Sprintf("dal: compile error on type %s: type is not mapped to a table", e.Type)
}

// Is reports whether the target matches ErrCompile.
func (e *UnmappedEntityError) Is(target error) bool {
	return target == ErrCompile
}

// NewUnmappedEntityError returns a new UnmappedEntityError.
func NewUnmappedEntityError(typeName string) *UnmappedEntityError {
	return &UnmappedEntityError{Type: typeName}
}

// IsCompileError reports whether err is any of the compile errors.
func IsCompileError(err error) bool {
	return errors.Is(err, ErrCompile)
}

// IsMissingIdentity reports whether err is a MissingIdentityError.
func IsMissingIdentity(err error) bool {
	var e *MissingIdentityError
	return errors.As(err, &e)
}

// IsUnmappedEntity reports whether err is an UnmappedEntityError.
func IsUnmappedEntity(err error) bool {
	var e *UnmappedEntityError
	return errors.As(err, &e)
}

// StatementNotFoundError is returned by registry lookups for unknown ids.
type StatementNotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *StatementNotFoundError) Error() string {
	return fmt.Sprintf("dal: statement %q not found", e.ID)
}

// Is reports whether the target matches ErrStatementNotFound.
func (e *StatementNotFoundError) Is(target error) bool {
	return target == ErrStatementNotFound
}

// NewStatementNotFoundError returns a new StatementNotFoundError.
func NewStatementNotFoundError(id string) *StatementNotFoundError {
	return &StatementNotFoundError{ID: id}
}

// IsStatementNotFound reports whether err is a StatementNotFoundError.
func IsStatementNotFound(err error) bool {
	var e *StatementNotFoundError
	return errors.As(err, &e)
}

// DuplicateStatementError is returned when two resources register the same
// statement id. Loading fails; the first registration is never overwritten.
type DuplicateStatementError struct {
	ID     string
	First  string // Source of the first registration
	Second string // Source of the rejected registration
}

// Error implements the error interface.
func (e *DuplicateStatementError) Error() string {
	return fmt.Sprintf("dal: duplicate statement %q in %s (first declared in %s)", e.ID, e.Second, e.First)
}

// Is reports whether the target matches ErrRegistry.
func (e *DuplicateStatementError) Is(target error) bool {
	return target == ErrRegistry
}

// ResourceError wraps a failure to read or parse one statement resource.
type ResourceError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("dal: resource %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrRegistry.
func (e *ResourceError) Is(target error) bool {
	return target == ErrRegistry
}

// NewResourceError returns a new ResourceError.
func NewResourceError(source string, cause error) *ResourceError {
	return &ResourceError{Source: source, Cause: cause}
}

// TemplateRenderError wraps a template syntax or evaluation failure.
type TemplateRenderError struct {
	Cause error
}

// Error implements the error interface.
func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("dal: render template: %v", e.Cause)
}

// Unwrap returns the underlying error.
func (e *TemplateRenderError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrTemplateRender.
func (e *TemplateRenderError) Is(target error) bool {
	return target == ErrTemplateRender
}

// NewTemplateRenderError returns a new TemplateRenderError.
func NewTemplateRenderError(cause error) *TemplateRenderError {
	return &TemplateRenderError{Cause: cause}
}

// IsTemplateRenderError reports whether err is a TemplateRenderError.
func IsTemplateRenderError(err error) bool {
	var e *TemplateRenderError
	return errors.As(err, &e)
}

// MappingError is returned when a result row cannot be marshaled into the
// target type at all. Per-column misses are not errors.
type MappingError struct {
	Type    string
	Column  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	var b strings.Builder
	b.WriteString("dal: mapping error")
	if e.Type != "" {
		b.WriteString(" into ")
		b.WriteString(e.Type)
	}
	if e.Column != "" {
		b.WriteString(" column ")
		b.WriteString(e.Column)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrMapping.
func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// NewMappingError returns a new MappingError.
func NewMappingError(typeName, column, message string, cause error) *MappingError {
	return &MappingError{Type: typeName, Column: column, Message: message, Cause: cause}
}

// IsMappingError reports whether err is a MappingError.
func IsMappingError(err error) bool {
	var e *MappingError
	return errors.As(err, &e)
}

// SubstrateError wraps an error propagated from the execution substrate
// with the originating statement id and the SQL that was submitted.
type SubstrateError struct {
	Op          string // Client operation (e.g. "persist", "queryForList")
	StatementID string // Statement id, or the record type for entity operations
	SQL         string
	Code        string // Driver specific error code, if known
	Err         error
}

// Error implements the error interface.
func (e *SubstrateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dal: %s %s", e.Op, e.StatementID)
	if e.Code != "" {
		fmt.Fprintf(&b, " (code %s)", e.Code)
	}
	fmt.Fprintf(&b, ": %v [sql: %s]", e.Err, e.SQL)
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SubstrateError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches ErrSubstrate.
func (e *SubstrateError) Is(target error) bool {
	return target == ErrSubstrate
}

// IsSubstrateError reports whether err is a SubstrateError.
func IsSubstrateError(err error) bool {
	var e *SubstrateError
	return errors.As(err, &e)
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("dal: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("dal: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}
