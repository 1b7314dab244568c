package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Class represents the classification of errors for handling purposes.
type Class int

const (
	// ClassResolution covers failures to determine a schema, endpoint,
	// identifier or record for a request.
	ClassResolution Class = iota
	// ClassPermission covers schema/endpoint restriction and scope denials.
	ClassPermission
	// ClassConflict covers optimistic-lock token mismatches.
	ClassConflict
	// ClassTranslation covers unsupported filter or order parameters.
	ClassTranslation
	// ClassUpstream covers canonical-store and cache-store failures.
	ClassUpstream
)

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case ClassResolution:
		return "resolution"
	case ClassPermission:
		return "permission"
	case ClassConflict:
		return "conflict"
	case ClassTranslation:
		return "translation"
	case ClassUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Standard error variables for common gateway conditions.
var (
	// Resolution errors
	ErrNoIdentifier      = errors.New("no id could be established")
	ErrIdentifierPresent = errors.New("an id is already present")
	ErrNoSchema          = errors.New("no schema could be established")
	ErrNoEndpoint        = errors.New("no endpoint matches the request")
	ErrRecordNotFound    = errors.New("record not found")
	ErrSchemaNotFound    = errors.New("schema not found")

	// Permission errors
	ErrSchemaNotAllowed = errors.New("schema is not supported by this endpoint")
	ErrScopeDenied      = errors.New("scope does not permit this operation")

	// Conflict errors
	ErrLockMismatch = errors.New("lock token does not match")

	// Translation errors
	ErrBadQueryParameter = errors.New("unsupported query parameter")

	// Upstream errors
	ErrStoreUnavailable = errors.New("canonical store unavailable")
	ErrCacheUnavailable = errors.New("cache store unavailable")

	// Routing errors
	ErrProxyOnly     = errors.New("endpoint requires proxying")
	ErrUnknownMethod = errors.New("unknown method")
)

// ClassifiedError wraps an error with its classification and the
// component/operation that raised it.
type ClassifiedError struct {
	Class     Class
	Err       error
	Component string
	Operation string
	Message   string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Wrap creates a standardized error with context following the pattern
// "component.method: action failed: %w".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// newClassified creates a new classified error. Internal helper, use the
// WrapResolution/WrapPermission/... functions instead.
func newClassified(class Class, err error, component, method, action string) error {
	if err == nil {
		err = errors.New(action)
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Component: component,
		Operation: method,
		Message:   wrapped.Error(),
	}
}

// WrapResolution wraps an error as a resolution failure with context.
func WrapResolution(err error, component, method, action string) error {
	return newClassified(ClassResolution, err, component, method, action)
}

// WrapPermission wraps an error as a permission failure with context.
func WrapPermission(err error, component, method, action string) error {
	return newClassified(ClassPermission, err, component, method, action)
}

// WrapConflict wraps an error as a lock conflict with context.
func WrapConflict(err error, component, method, action string) error {
	return newClassified(ClassConflict, err, component, method, action)
}

// WrapTranslation wraps an error as a filter translation failure with context.
func WrapTranslation(err error, component, method, action string) error {
	return newClassified(ClassTranslation, err, component, method, action)
}

// WrapUpstream wraps an error as an upstream store failure with context.
func WrapUpstream(err error, component, method, action string) error {
	return newClassified(ClassUpstream, err, component, method, action)
}

// classOf returns the class of a classified error and whether err carries one.
func classOf(err error) (Class, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

// IsResolution checks whether an error is a resolution failure.
func IsResolution(err error) bool {
	if c, ok := classOf(err); ok {
		return c == ClassResolution
	}
	return errors.Is(err, ErrNoIdentifier) ||
		errors.Is(err, ErrIdentifierPresent) ||
		errors.Is(err, ErrNoSchema) ||
		errors.Is(err, ErrNoEndpoint) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrSchemaNotFound)
}

// IsPermission checks whether an error is a permission failure.
func IsPermission(err error) bool {
	if c, ok := classOf(err); ok {
		return c == ClassPermission
	}
	return errors.Is(err, ErrSchemaNotAllowed) || errors.Is(err, ErrScopeDenied)
}

// IsConflict checks whether an error is an optimistic-lock conflict.
func IsConflict(err error) bool {
	if c, ok := classOf(err); ok {
		return c == ClassConflict
	}
	return errors.Is(err, ErrLockMismatch)
}

// IsTranslation checks whether an error is a filter translation failure.
func IsTranslation(err error) bool {
	if c, ok := classOf(err); ok {
		return c == ClassTranslation
	}
	return errors.Is(err, ErrBadQueryParameter)
}

// IsUpstream checks whether an error is an upstream store failure.
func IsUpstream(err error) bool {
	if c, ok := classOf(err); ok {
		return c == ClassUpstream
	}
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrCacheUnavailable)
}

// IsNotFound reports whether err means a record or schema does not exist.
// Not-found is a resolution failure but maps to 404 rather than 400.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrSchemaNotFound)
}

// HTTPStatus maps a gateway error to the HTTP status code the produced
// surface documents for it. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownMethod):
		return http.StatusNotFound
	case errors.Is(err, ErrSchemaNotAllowed):
		return http.StatusNotAcceptable
	case errors.Is(err, ErrScopeDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrProxyOnly):
		return http.StatusNotImplemented
	case IsConflict(err):
		return http.StatusConflict
	case IsResolution(err), IsTranslation(err):
		return http.StatusBadRequest
	case IsUpstream(err):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
