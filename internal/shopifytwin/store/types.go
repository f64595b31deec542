package store

import (
	"encoding/json"
	"strconv"
)

// Record is one API object exactly as the twin serves it. Shopify objects
// carry many optional fields, so records stay schemaless and handlers
// validate only what a request must provide.
type Record = map[string]any

// AccessToken grants API access to a shop.
type AccessToken struct {
	Token  string   `json:"token" yaml:"token"`
	Shop   string   `json:"shop" yaml:"shop"`
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// Resource names, matching the plural envelope keys.
const (
	Orders   = "orders"
	Products = "products"
	Themes   = "themes"
	Assets   = "assets"
)

// ID base values, so seeded ids look like the ones Shopify hands out.
const (
	orderIDBase   = 450789468
	productIDBase = 632910391
	themeIDBase   = 828155752
	lineIDBase    = 466157048
	variantIDBase = 808950809
)

// RecordID extracts the numeric id of a record, whatever numeric type it
// was decoded as.
func RecordID(rec Record) (int64, bool) {
	return Int64(rec["id"])
}

// Int64 converts a decoded JSON or YAML number to int64.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Clone copies a record and every nested map or slice in it.
func Clone(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
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
