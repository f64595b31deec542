package shopify

import (
	"reflect"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Record is implemented by every resource model. Only types embedding
// Model satisfy it.
type Record interface {
	Descriptor() Descriptor
	base() *Model
}

// Model is an attribute bag with change tracking. The zero value is an
// empty, never-persisted model.
//
// Attributes and the original snapshot are independent copies: edits to
// one never show through the other. The snapshot is replaced wholesale
// every time the model is synced from a server response.
type Model struct {
	identifier string
	attributes map[string]any
	original   map[string]any
	exists     bool
}

func (m *Model) base() *Model { return m }

func (m *Model) bind(d Descriptor) {
	m.identifier = d.Identifier
}

func (m *Model) idKey() string {
	if m.identifier == "" {
		return "id"
	}
	return m.identifier
}

// Get returns an attribute, or nil when unset.
func (m *Model) Get(key string) any {
	return m.attributes[key]
}

// Has reports whether the attribute is set, even to nil.
func (m *Model) Has(key string) bool {
	_, ok := m.attributes[key]
	return ok
}

// Set assigns an attribute.
func (m *Model) Set(key string, value any) {
	if m.attributes == nil {
		m.attributes = make(map[string]any)
	}
	m.attributes[key] = value
}

// Unset removes an attribute.
func (m *Model) Unset(key string) {
	delete(m.attributes, key)
}

// Fill assigns every entry of attrs.
func (m *Model) Fill(attrs map[string]any) {
	for k, v := range attrs {
		m.Set(k, cloneValue(v))
	}
}

// Attributes returns a copy of the current attributes.
func (m *Model) Attributes() map[string]any {
	return cloneMap(m.attributes)
}

// Original returns a copy of the attributes as last synced from the server.
func (m *Model) Original() map[string]any {
	return cloneMap(m.original)
}

// GetOriginal returns one attribute of the original snapshot.
func (m *Model) GetOriginal(key string) any {
	return m.original[key]
}

// Dirty returns the attributes whose value differs from the original
// snapshot, including attributes the snapshot does not have.
func (m *Model) Dirty() map[string]any {
	dirty := make(map[string]any)
	for k, v := range m.attributes {
		orig, ok := m.original[k]
		if !ok || !reflect.DeepEqual(v, orig) {
			dirty[k] = cloneValue(v)
		}
	}
	return dirty
}

// DirtyKeys returns the names of the dirty attributes, sorted.
func (m *Model) DirtyKeys() []string {
	dirty := m.Dirty()
	keys := make([]string, 0, len(dirty))
	for k := range dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsDirty reports whether any of keys is dirty, or any attribute at all
// when keys is empty.
func (m *Model) IsDirty(keys ...string) bool {
	dirty := m.Dirty()
	if len(keys) == 0 {
		return len(dirty) > 0
	}
	for _, k := range keys {
		if _, ok := dirty[k]; ok {
			return true
		}
	}
	return false
}

// Exists reports whether the model was last synced from a successful
// server response and not destroyed since.
func (m *Model) Exists() bool {
	return m.exists
}

// IsNew reports whether the identifier attribute is absent. Absent means
// unset, nil or the empty string; a numeric 0 is a present identifier.
func (m *Model) IsNew() bool {
	return !present(m.attributes[m.idKey()])
}

// ID returns the identifier attribute formatted as a path segment, or ""
// when absent.
func (m *Model) ID() string {
	return formatID(m.attributes[m.idKey()])
}

// OriginalID returns the identifier as last synced from the server.
func (m *Model) OriginalID() string {
	return formatID(m.original[m.idKey()])
}

// IntID returns a numeric identifier, or 0 when it is absent or not numeric.
func (m *Model) IntID() int64 {
	n, _ := toInt64(m.attributes[m.idKey()])
	return n
}

// GetString returns a string attribute, or "" when unset or not a string.
func (m *Model) GetString(key string) string {
	s, _ := m.attributes[key].(string)
	return s
}

// GetInt64 returns an integral attribute.
func (m *Model) GetInt64(key string) (int64, bool) {
	return toInt64(m.attributes[key])
}

// GetBool returns a boolean attribute, or false when unset.
func (m *Model) GetBool(key string) bool {
	b, _ := m.attributes[key].(bool)
	return b
}

// GetDecimal parses a money attribute. The API sends amounts as strings
// ("19.99"); plain numbers are accepted too.
func (m *Model) GetDecimal(key string) (decimal.Decimal, error) {
	switch v := m.attributes[key].(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		if v == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		return d, errors.Wrapf(err, "shopify: attribute %q", key)
	case number:
		d, err := decimal.NewFromString(v.String())
		return d, errors.Wrapf(err, "shopify: attribute %q", key)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case decimal.Decimal:
		return v, nil
	default:
		return decimal.Zero, errors.Errorf("shopify: attribute %q is %T, not an amount", key, v)
	}
}

// GetTime parses an RFC 3339 timestamp attribute. The zero time is
// returned when the attribute is unset.
func (m *Model) GetTime(key string) (time.Time, error) {
	s := m.GetString(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, errors.Wrapf(err, "shopify: attribute %q", key)
}

// Decode copies the attributes into v through a JSON round trip, so v may
// be any struct with json tags.
func (m *Model) Decode(v any) error {
	data, err := json.Marshal(m.attributes)
	if err != nil {
		return errors.Wrap(err, "shopify: encoding attributes")
	}
	return errors.Wrap(json.Unmarshal(data, v), "shopify: decoding attributes")
}

// MarshalJSON encodes the current attributes.
func (m *Model) MarshalJSON() ([]byte, error) {
	if m.attributes == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.attributes)
}

// UnmarshalJSON replaces the attributes. The model stays unsynced: the
// original snapshot is untouched and Exists does not change.
func (m *Model) UnmarshalJSON(data []byte) error {
	attrs, err := decodeObject(data)
	if err != nil {
		return err
	}
	m.attributes = attrs
	return nil
}

// sync replaces both the attributes and the original snapshot with data
// from a successful response.
func (m *Model) sync(data map[string]any) {
	m.attributes = cloneMap(data)
	m.original = cloneMap(data)
	m.exists = true
}

// payload returns the body of a create (all attributes) or an update
// (dirty attributes plus the identifier).
func (m *Model) payload(update bool) map[string]any {
	if !update {
		return m.Attributes()
	}
	body := m.Dirty()
	if id, ok := m.attributes[m.idKey()]; ok {
		body[m.idKey()] = cloneValue(id)
	}
	return body
}

// number is satisfied by json.Number from both encoding/json and
// goccy/go-json.
type number interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

func present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

func formatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
