package shopify

import (
	"context"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// ResourceClient performs requests for one resource type. It is immutable:
// path parameters are fixed at construction, so concurrent callers on
// different parents never see each other's parameters.
type ResourceClient[T Record] struct {
	client *Client
	desc   Descriptor
	params []string
	newT   func() T
}

func newResourceClient[T Record](c *Client, d Descriptor, newT func() T, params []string) *ResourceClient[T] {
	return &ResourceClient[T]{
		client: c,
		desc:   d,
		params: slices.Clone(params),
		newT:   newT,
	}
}

// Orders returns the order resource.
func (c *Client) Orders() *ResourceClient[*Order] {
	return newResourceClient(c, orderDescriptor, func() *Order { return &Order{} }, nil)
}

// Products returns the product resource.
func (c *Client) Products() *ResourceClient[*Product] {
	return newResourceClient(c, productDescriptor, func() *Product { return &Product{} }, nil)
}

// Themes returns the theme resource.
func (c *Client) Themes() *ResourceClient[*Theme] {
	return newResourceClient(c, themeDescriptor, func() *Theme { return &Theme{} }, nil)
}

// Assets returns the asset resource of one theme.
func (c *Client) Assets(themeID string) *ResourceClient[*Asset] {
	return newResourceClient(c, assetDescriptor, func() *Asset { return &Asset{} }, []string{themeID})
}

// Select returns an untyped resource client by registry name. Params fill
// the template's path parameters; extras are ignored.
func (c *Client) Select(t ResourceType, params ...string) (*ResourceClient[Record], error) {
	reg, ok := registry[t]
	if !ok {
		return nil, &UnknownOperationError{Name: string(t)}
	}
	return newResourceClient(c, reg.desc, reg.newModel, params), nil
}

// Descriptor returns the resource's descriptor.
func (r *ResourceClient[T]) Descriptor() Descriptor { return r.desc }

// Params returns a copy of the bound path parameters.
func (r *ResourceClient[T]) Params() []string { return slices.Clone(r.params) }

// Endpoint resolves the request path for suffix and action.
func (r *ResourceClient[T]) Endpoint(suffix, action string) (string, error) {
	return r.client.endpoint(r.desc, r.params, suffix, action)
}

// Get sends a GET and returns the decoded body.
func (r *ResourceClient[T]) Get(ctx context.Context, query any, suffix string) (map[string]any, error) {
	return r.query(ctx, http.MethodGet, query, suffix, "")
}

// Delete sends a DELETE and returns the decoded body.
func (r *ResourceClient[T]) Delete(ctx context.Context, query any, suffix string) (map[string]any, error) {
	return r.query(ctx, http.MethodDelete, query, suffix, "")
}

// Post sends payload as a POST body. See send for how models are handled.
func (r *ResourceClient[T]) Post(ctx context.Context, payload any, suffix string) (map[string]any, error) {
	return r.send(ctx, http.MethodPost, payload, suffix)
}

// Put sends payload as a PUT body. See send for how models are handled.
func (r *ResourceClient[T]) Put(ctx context.Context, payload any, suffix string) (map[string]any, error) {
	return r.send(ctx, http.MethodPut, payload, suffix)
}

func (r *ResourceClient[T]) query(ctx context.Context, method string, query any, suffix, action string) (map[string]any, error) {
	values, err := encodeQuery(query)
	if err != nil {
		return nil, err
	}
	path, err := r.Endpoint(suffix, action)
	if err != nil {
		return nil, err
	}
	return r.client.do(ctx, method, path, values, nil)
}

// send writes a body. A Record payload is wrapped as {"<singular>": attrs},
// where attrs are all attributes for POST and the dirty attributes plus the
// identifier for PUT. On success the record is resynced in place from the
// unwrapped response, unless that carries no data; the raw decoded body is
// returned either way.
func (r *ResourceClient[T]) send(ctx context.Context, method string, payload any, suffix string) (map[string]any, error) {
	path, err := r.Endpoint(suffix, "")
	if err != nil {
		return nil, err
	}

	rec, isRecord := payload.(Record)
	if isRecord && isNilRecord(rec) {
		return nil, ErrNilRecord
	}
	body := payload
	if isRecord {
		m := rec.base()
		m.bind(rec.Descriptor())
		body = map[string]any{rec.Descriptor().Singular: m.payload(method == http.MethodPut)}
	}

	out, err := r.client.do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}

	if isRecord {
		data := out
		if inner, ok := out[rec.Descriptor().Singular].(map[string]any); ok {
			data = inner
		}
		// An empty answer would wipe the identifier and make the next
		// Save create a duplicate.
		if len(data) > 0 {
			rec.base().sync(data)
		}
	}
	return out, nil
}

// isNilRecord reports whether rec is nil or a typed nil pointer such as
// (*Order)(nil).
func isNilRecord(rec Record) bool {
	if rec == nil {
		return true
	}
	v := reflect.ValueOf(rec)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Find fetches one record. It returns a nil record and no error when the
// response carries no data, and a *ModelNotFoundError on 404.
func (r *ResourceClient[T]) Find(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrEmptyID
	}

	out, err := r.Get(ctx, nil, id)
	if err != nil {
		var re *ResponseError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			return zero, &ModelNotFoundError{Resource: r.desc.Type, ID: id, Err: re}
		}
		return zero, err
	}

	data, _ := out[r.desc.Singular].(map[string]any)
	if len(data) == 0 {
		return zero, nil
	}
	return r.hydrate(data), nil
}

// FindMany fetches the records with the given ids in one request. Each
// entry may itself be a comma separated list; blanks are dropped. No
// request is made when no id remains.
func (r *ResourceClient[T]) FindMany(ctx context.Context, ids []string, suffix string) ([]T, error) {
	normalized := normalizeIDs(ids)
	if len(normalized) == 0 {
		return []T{}, nil
	}
	return r.All(ctx, url.Values{"ids": {strings.Join(normalized, ",")}}, suffix)
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, entry := range ids {
		for _, id := range strings.Split(entry, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

// All fetches a collection. Records are hydrated from the plural envelope
// key; a missing key yields an empty slice.
func (r *ResourceClient[T]) All(ctx context.Context, query any, suffix string) ([]T, error) {
	out, err := r.Get(ctx, query, suffix)
	if err != nil {
		return nil, err
	}

	items, _ := out[r.desc.Plural].([]any)
	records := make([]T, 0, len(items))
	for _, item := range items {
		data, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, r.hydrate(data))
	}
	return records, nil
}

// Save creates the model when it has no identifier (POST) and updates it
// otherwise (PUT at the identifier, sending only dirty attributes). The
// same instance is returned, resynced from the response.
func (r *ResourceClient[T]) Save(ctx context.Context, model T, suffix string) (T, error) {
	if isNilRecord(model) {
		var zero T
		return zero, ErrNilRecord
	}
	m := model.base()
	m.bind(r.desc)

	var err error
	if m.IsNew() {
		_, err = r.Post(ctx, model, suffix)
	} else {
		_, err = r.Put(ctx, model, joinSegments(suffix, m.ID()))
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return model, nil
}

// Destroy deletes the model by its originally synced identifier. It
// reports true only when the server answers with an empty body, after
// which the model no longer exists.
func (r *ResourceClient[T]) Destroy(ctx context.Context, model T) (bool, error) {
	if isNilRecord(model) {
		return false, ErrNilRecord
	}
	m := model.base()
	m.bind(r.desc)

	id := m.OriginalID()
	if !m.Exists() || id == "" {
		return false, ErrNotPersisted
	}

	out, err := r.Delete(ctx, nil, id)
	if err != nil {
		return false, err
	}
	if len(out) != 0 {
		return false, nil
	}
	m.exists = false
	return true, nil
}

// Count fetches the count action. A body with exactly one field yields
// that field's value, as int64 when integral; anything else is returned
// as the decoded map.
func (r *ResourceClient[T]) Count(ctx context.Context, query any, suffix string) (any, error) {
	out, err := r.query(ctx, http.MethodGet, query, suffix, "count")
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return out, nil
	}
	for _, v := range out {
		return scalar(v), nil
	}
	return out, nil
}

// CountInt is Count for callers that need a number.
func (r *ResourceClient[T]) CountInt(ctx context.Context, query any, suffix string) (int64, error) {
	v, err := r.Count(ctx, query, suffix)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, errors.Wrapf(ErrUnexpectedCount, "got %T", v)
	}
	return n, nil
}

func (r *ResourceClient[T]) hydrate(data map[string]any) T {
	rec := r.newT()
	m := rec.base()
	m.bind(r.desc)
	m.sync(data)
	return rec
}

func scalar(v any) any {
	n, ok := v.(number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
