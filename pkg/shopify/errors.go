package shopify

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMissingPathParameter matches any *MissingPathParameterError.
	ErrMissingPathParameter = errors.New("shopify: missing path parameter")
	// ErrNotPersisted is returned when destroying a model that was never synced with the server.
	ErrNotPersisted = errors.New("shopify: model has not been persisted")
	// ErrUnexpectedCount is returned by CountInt when the count body is not a single integer.
	ErrUnexpectedCount = errors.New("shopify: count response is not a single integer")
	// ErrNoResource is returned by a Dynamic handle that has no resource selected.
	ErrNoResource = errors.New("shopify: no resource selected")
	// ErrInvalidShop is returned when a shop identifier cannot be normalized.
	ErrInvalidShop = errors.New("shopify: invalid shop")
	// ErrEmptyID is returned by Find when called without an id.
	ErrEmptyID = errors.New("shopify: empty id")
	// ErrNilRecord is returned when a nil model is saved, destroyed or sent.
	ErrNilRecord = errors.New("shopify: nil record")
)

// ResponseError is returned for every response with a status of 400 or above.
// Callers inspect StatusCode directly; no status is retried or rewritten,
// except 404 from Find which is wrapped in a *ModelNotFoundError.
type ResponseError struct {
	Method     string
	Path       string
	StatusCode int
	RequestID  string
	Body       []byte
	// Errors is the decoded "errors" member of the body: a string, a
	// field -> messages map or a list, as the API returned it.
	Errors any
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("shopify: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if detail := formatErrors(e.Errors); detail != "" {
		msg += ": " + detail
	}
	return msg
}

func formatErrors(v any) string {
	switch errs := v.(type) {
	case nil:
		return ""
	case string:
		return errs
	case []any:
		parts := make([]string, 0, len(errs))
		for _, item := range errs {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+" "+formatErrors(errs[k]))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(errs)
	}
}

// ModelNotFoundError is returned by Find when the server answers 404.
type ModelNotFoundError struct {
	Resource ResourceType
	ID       string
	Err      error
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("shopify: %s %s not found", e.Resource, e.ID)
}

func (e *ModelNotFoundError) Unwrap() error { return e.Err }

// MissingPathParameterError reports an endpoint template that needed more
// path parameters than were supplied.
type MissingPathParameterError struct {
	Template string
	Want     int
	Got      int
}

func (e *MissingPathParameterError) Error() string {
	return fmt.Sprintf("shopify: endpoint %q needs %d path parameter(s), got %d", e.Template, e.Want, e.Got)
}

func (e *MissingPathParameterError) Is(target error) bool {
	return target == ErrMissingPathParameter
}

// UnknownOperationError is returned when a resource is selected by a name
// that is not in the registry.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("shopify: unknown resource operation %q", e.Name)
}

// IsNotFound reports whether err is a not-found condition, either a
// *ModelNotFoundError or a raw 404 *ResponseError.
func IsNotFound(err error) bool {
	var nf *ModelNotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var re *ResponseError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}
