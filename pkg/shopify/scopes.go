package shopify

import (
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Scope is an OAuth access scope an app can request.
type Scope string

const (
	ScopeReadAnalytics Scope = "read_analytics"

	ScopeReadCheckouts  Scope = "read_checkouts"
	ScopeWriteCheckouts Scope = "write_checkouts"

	ScopeReadContent  Scope = "read_content"
	ScopeWriteContent Scope = "write_content"

	ScopeReadCustomers  Scope = "read_customers"
	ScopeWriteCustomers Scope = "write_customers"

	ScopeReadDraftOrders  Scope = "read_draft_orders"
	ScopeWriteDraftOrders Scope = "write_draft_orders"

	ScopeReadFulfillments  Scope = "read_fulfillments"
	ScopeWriteFulfillments Scope = "write_fulfillments"

	ScopeReadOrders  Scope = "read_orders"
	ScopeWriteOrders Scope = "write_orders"

	ScopeReadPriceRules  Scope = "read_price_rules"
	ScopeWritePriceRules Scope = "write_price_rules"

	ScopeReadProducts  Scope = "read_products"
	ScopeWriteProducts Scope = "write_products"

	ScopeReadReports  Scope = "read_reports"
	ScopeWriteReports Scope = "write_reports"

	ScopeReadScriptTags  Scope = "read_script_tags"
	ScopeWriteScriptTags Scope = "write_script_tags"

	ScopeReadShipping  Scope = "read_shipping"
	ScopeWriteShipping Scope = "write_shipping"

	ScopeReadThemes  Scope = "read_themes"
	ScopeWriteThemes Scope = "write_themes"

	ScopeReadUsers  Scope = "read_users"
	ScopeWriteUsers Scope = "write_users"
)

var allScopes = []Scope{
	ScopeReadAnalytics,
	ScopeReadCheckouts,
	ScopeWriteCheckouts,
	ScopeReadContent,
	ScopeWriteContent,
	ScopeReadCustomers,
	ScopeWriteCustomers,
	ScopeReadDraftOrders,
	ScopeWriteDraftOrders,
	ScopeReadFulfillments,
	ScopeWriteFulfillments,
	ScopeReadOrders,
	ScopeWriteOrders,
	ScopeReadPriceRules,
	ScopeWritePriceRules,
	ScopeReadProducts,
	ScopeWriteProducts,
	ScopeReadReports,
	ScopeWriteReports,
	ScopeReadScriptTags,
	ScopeWriteScriptTags,
	ScopeReadShipping,
	ScopeWriteShipping,
	ScopeReadThemes,
	ScopeWriteThemes,
	ScopeReadUsers,
	ScopeWriteUsers,
}

var knownScopes = func() map[Scope]struct{} {
	m := make(map[Scope]struct{}, len(allScopes))
	for _, s := range allScopes {
		m[s] = struct{}{}
	}
	return m
}()

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	_, ok := knownScopes[s]
	return ok
}

// AllScopes returns every known scope in name order.
func AllScopes() []Scope {
	out := slices.Clone(allScopes)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseScopes splits a comma separated scope list, as sent in OAuth
// requests. Blank entries are skipped; an unknown scope is an error.
func ParseScopes(list string) ([]Scope, error) {
	var out []Scope
	seen := make(map[Scope]bool)
	for _, part := range strings.Split(list, ",") {
		s := Scope(strings.TrimSpace(part))
		if s == "" || seen[s] {
			continue
		}
		if !s.Valid() {
			return nil, errors.Errorf("shopify: unknown scope %q", s)
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// JoinScopes formats scopes as a comma separated list.
func JoinScopes(scopes []Scope) string {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
