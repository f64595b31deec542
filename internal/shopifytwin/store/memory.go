package store

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wondertwin-ai/shopkit/pkg/shopify"
	pkgstore "github.com/wondertwin-ai/shopkit/pkg/store"
)

// DefaultToken is the access token seeded by SeedDefaults.
const DefaultToken = "shpat_twin_default_token"

// DefaultShop is the shop the default token belongs to.
const DefaultShop = "twin-shop"

// MemoryStore holds all twin state in memory.
type MemoryStore struct {
	Orders   *pkgstore.Store[Record]
	Products *pkgstore.Store[Record]
	Themes   *pkgstore.Store[Record]
	// Assets are keyed by AssetKey(themeID, key).
	Assets *pkgstore.Store[Record]
	Tokens *pkgstore.Store[AccessToken]
	Clock  *pkgstore.Clock

	orderNumber    atomic.Int64
	lineCounter    atomic.Int64
	variantCounter atomic.Int64
}

// New creates an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{
		Orders:   pkgstore.New[Record](orderIDBase),
		Products: pkgstore.New[Record](productIDBase),
		Themes:   pkgstore.New[Record](themeIDBase),
		Assets:   pkgstore.New[Record](0),
		Tokens:   pkgstore.New[AccessToken](0),
		Clock:    pkgstore.NewClock(),
	}
}

// Collection returns the store backing a top-level resource.
func (s *MemoryStore) Collection(resource string) (*pkgstore.Store[Record], bool) {
	switch resource {
	case Orders:
		return s.Orders, true
	case Products:
		return s.Products, true
	case Themes:
		return s.Themes, true
	default:
		return nil, false
	}
}

// ValidToken reports whether token grants API access.
func (s *MemoryStore) ValidToken(token string) bool {
	if token == "" {
		return false
	}
	_, ok := s.Tokens.Get(token)
	return ok
}

// IssueToken creates a random access token for shop.
func (s *MemoryStore) IssueToken(shop string, scopes []string) AccessToken {
	tok := AccessToken{
		Token:  "shpat_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Shop:   shop,
		Scopes: scopes,
	}
	s.Tokens.Set(tok.Token, tok)
	return tok
}

// IssueAccessToken issues a token for shop, or DefaultShop when empty.
// Unknown scopes are rejected; the granted scope list is deduplicated.
func (s *MemoryStore) IssueAccessToken(shop, scope string) (string, string, error) {
	scopes, err := shopify.ParseScopes(scope)
	if err != nil {
		return "", "", err
	}
	if shop == "" {
		shop = DefaultShop
	}
	names := make([]string, len(scopes))
	for i, sc := range scopes {
		names[i] = string(sc)
	}
	return s.IssueToken(shop, names).Token, shopify.JoinScopes(scopes), nil
}

// Timestamp formats the simulated now the way the API does.
func (s *MemoryStore) Timestamp() string {
	return s.Clock.Now().Format(time.RFC3339)
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// NextOrderNumber returns the next human-facing order number, from 1001.
func (s *MemoryStore) NextOrderNumber() int64 {
	return 1000 + s.orderNumber.Add(1)
}

// NextVariantID returns the next product variant id.
func (s *MemoryStore) NextVariantID() int64 {
	return variantIDBase + s.variantCounter.Add(1)
}

// PrepareLineItems assigns ids to new line items and recomputes the order
// subtotal and total from price * quantity. Amounts are strings with two
// decimals, as the API sends them.
func (s *MemoryStore) PrepareLineItems(order Record) error {
	items, _ := order["line_items"].([]any)
	subtotal := decimal.Zero
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("line_items[%d] is not an object", i)
		}
		item = Clone(item)
		if _, ok := Int64(item["id"]); !ok {
			item["id"] = lineIDBase + s.lineCounter.Add(1)
		}
		price, err := Amount(item["price"])
		if err != nil {
			return fmt.Errorf("line_items[%d].price: %w", i, err)
		}
		qty, ok := Int64(item["quantity"])
		if !ok {
			qty = 1
		}
		item["price"] = price.StringFixed(2)
		item["quantity"] = qty
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(qty)))
		items[i] = item
	}
	if items != nil {
		order["line_items"] = items
	}
	order["subtotal_price"] = subtotal.StringFixed(2)
	order["total_price"] = subtotal.StringFixed(2)
	return nil
}

// Amount parses a money value given as a string or a number.
func Amount(v any) (decimal.Decimal, error) {
	switch a := v.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		if a == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(a)
	case json.Number:
		return decimal.NewFromString(a.String())
	case float64:
		return decimal.NewFromFloat(a), nil
	case int:
		return decimal.NewFromInt(int64(a)), nil
	case int64:
		return decimal.NewFromInt(a), nil
	default:
		return decimal.Zero, fmt.Errorf("%T is not an amount", v)
	}
}

// ---------------------------------------------------------------------------
// Assets
// ---------------------------------------------------------------------------

// AssetKey is the store key of an asset within a theme.
func AssetKey(themeID int64, key string) string {
	return pkgstore.Key(themeID) + "/" + key
}

// ThemeAssets returns the assets of one theme in insertion order.
func (s *MemoryStore) ThemeAssets(themeID int64) []Record {
	prefix := pkgstore.Key(themeID) + "/"
	return s.Assets.Filter(func(k string, _ Record) bool {
		return strings.HasPrefix(k, prefix)
	})
}

// PutAsset creates or replaces an asset and fills the derived fields.
// The returned record is the stored one.
func (s *MemoryStore) PutAsset(themeID int64, asset Record) Record {
	key, _ := asset["key"].(string)
	storeKey := AssetKey(themeID, key)
	now := s.Timestamp()

	rec := Clone(asset)
	if prev, ok := s.Assets.Get(storeKey); ok {
		rec["created_at"] = prev["created_at"]
	} else {
		rec["created_at"] = now
	}
	rec["updated_at"] = now
	rec["theme_id"] = themeID
	rec["content_type"] = contentType(key)

	var body []byte
	if v, ok := rec["value"].(string); ok {
		body = []byte(v)
	} else if a, ok := rec["attachment"].(string); ok {
		body = []byte(a)
	}
	sum := md5.Sum(body)
	rec["checksum"] = hex.EncodeToString(sum[:])
	rec["size"] = int64(len(body))
	if !strings.HasSuffix(key, ".liquid") {
		rec["public_url"] = fmt.Sprintf("https://cdn.shopify.com/s/files/1/theme/%d/%s", themeID, key)
	} else {
		rec["public_url"] = nil
	}

	s.Assets.Set(storeKey, rec)
	return rec
}

func contentType(key string) string {
	ext := path.Ext(key)
	if ext == ".liquid" {
		return "text/x-liquid"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return strings.SplitN(ct, ";", 2)[0]
	}
	return "application/octet-stream"
}

// ---------------------------------------------------------------------------
// Snapshots and seeding
// ---------------------------------------------------------------------------

type stateSnapshot struct {
	Orders   map[string]Record      `json:"orders"`
	Products map[string]Record      `json:"products"`
	Themes   map[string]Record      `json:"themes"`
	Assets   map[string]Record      `json:"assets"`
	Tokens   map[string]AccessToken `json:"tokens"`
}

// Snapshot returns full state as JSON-serializable value.
func (s *MemoryStore) Snapshot() any {
	return stateSnapshot{
		Orders:   s.Orders.Snapshot(),
		Products: s.Products.Snapshot(),
		Themes:   s.Themes.Snapshot(),
		Assets:   s.Assets.Snapshot(),
		Tokens:   s.Tokens.Snapshot(),
	}
}

// LoadState replaces state from a JSON snapshot. Collections missing from
// the snapshot are left as they are.
func (s *MemoryStore) LoadState(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var snap stateSnapshot
	if err := dec.Decode(&snap); err != nil {
		return err
	}
	if snap.Orders != nil {
		s.Orders.LoadSnapshot(snap.Orders)
	}
	if snap.Products != nil {
		s.Products.LoadSnapshot(snap.Products)
	}
	if snap.Themes != nil {
		s.Themes.LoadSnapshot(snap.Themes)
	}
	if snap.Assets != nil {
		s.Assets.LoadSnapshot(snap.Assets)
	}
	if snap.Tokens != nil {
		s.Tokens.LoadSnapshot(snap.Tokens)
	}
	return nil
}

// Seed is the fixture format accepted by LoadSeed, in YAML or JSON.
type Seed struct {
	Tokens   []AccessToken `yaml:"tokens"`
	Orders   []Record      `yaml:"orders"`
	Products []Record      `yaml:"products"`
	Themes   []Record      `yaml:"themes"`
	// Assets must carry theme_id.
	Assets []Record `yaml:"assets"`
}

// LoadSeed adds fixture records to the current state. Records without an
// id get a fresh one; orders get line item ids and totals. The whole seed
// is checked first, so a rejected seed leaves the state untouched.
func (s *MemoryStore) LoadSeed(data []byte) error {
	var seed Seed
	// JSON is valid YAML, so one decoder serves both formats.
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	if err := s.checkSeed(&seed); err != nil {
		return err
	}

	for _, tok := range seed.Tokens {
		s.Tokens.Set(tok.Token, tok)
	}
	for _, rec := range seed.Orders {
		if err := s.PrepareLineItems(rec); err != nil {
			return fmt.Errorf("seed order: %w", err)
		}
		if _, ok := rec["order_number"]; !ok {
			n := s.NextOrderNumber()
			rec["order_number"] = n
			rec["name"] = fmt.Sprintf("#%d", n)
		}
		s.insert(s.Orders, rec)
	}
	for _, rec := range seed.Products {
		s.insert(s.Products, rec)
	}
	for _, rec := range seed.Themes {
		s.insert(s.Themes, rec)
	}
	for _, rec := range seed.Assets {
		themeID, _ := Int64(rec["theme_id"])
		s.PutAsset(themeID, rec)
	}
	return nil
}

// checkSeed rejects a seed that could not be applied in full. Assets may
// reference existing themes or seeded themes with an explicit id.
func (s *MemoryStore) checkSeed(seed *Seed) error {
	for _, tok := range seed.Tokens {
		if tok.Token == "" {
			return fmt.Errorf("seed token without a token value")
		}
	}
	for _, rec := range seed.Orders {
		if err := checkLineItems(rec); err != nil {
			return fmt.Errorf("seed order: %w", err)
		}
	}

	seeded := make(map[int64]bool, len(seed.Themes))
	for _, rec := range seed.Themes {
		if id, ok := RecordID(rec); ok {
			seeded[id] = true
		}
	}
	for _, rec := range seed.Assets {
		themeID, ok := Int64(rec["theme_id"])
		if !ok {
			return fmt.Errorf("seed asset %v without theme_id", rec["key"])
		}
		if _, ok := s.Themes.Get(pkgstore.Key(themeID)); !ok && !seeded[themeID] {
			return fmt.Errorf("seed asset %v: theme %d not found", rec["key"], themeID)
		}
	}
	return nil
}

// checkLineItems reports the first line item PrepareLineItems would reject.
func checkLineItems(order Record) error {
	items, _ := order["line_items"].([]any)
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("line_items[%d] is not an object", i)
		}
		if _, err := Amount(item["price"]); err != nil {
			return fmt.Errorf("line_items[%d].price: %w", i, err)
		}
	}
	return nil
}

func (s *MemoryStore) insert(coll *pkgstore.Store[Record], rec Record) {
	rec = Clone(rec)
	id, ok := RecordID(rec)
	if ok {
		coll.Observe(id)
	} else {
		id = coll.NextID()
	}
	rec["id"] = id
	now := s.Timestamp()
	if _, ok := rec["created_at"]; !ok {
		rec["created_at"] = now
	}
	if _, ok := rec["updated_at"]; !ok {
		rec["updated_at"] = now
	}
	coll.Set(pkgstore.Key(id), rec)
}

// Reset clears all state and reloads seed fixtures.
func (s *MemoryStore) Reset() {
	s.Orders.Reset()
	s.Products.Reset()
	s.Themes.Reset()
	s.Assets.Reset()
	s.Tokens.Reset()
	s.Clock.Reset()
	s.orderNumber.Store(0)
	s.lineCounter.Store(0)
	s.variantCounter.Store(0)
	s.SeedDefaults()
}

// SeedDefaults populates the store with default fixture data.
func (s *MemoryStore) SeedDefaults() {
	s.Tokens.Set(DefaultToken, AccessToken{
		Token:  DefaultToken,
		Shop:   DefaultShop,
		Scopes: []string{"read_orders", "write_orders", "read_products", "write_products", "read_themes", "write_themes"},
	})

	for _, o := range []struct {
		email, status string
		lines         []any
	}{
		{"bob.norman@example.com", "paid", []any{
			map[string]any{"title": "IPod Nano - 8gb", "sku": "IPOD2008GREEN", "quantity": 1, "price": "199.00"},
			map[string]any{"title": "IPod Touch 8GB", "sku": "IPOD2009BLACK", "quantity": 2, "price": "59.00"},
		}},
		{"jane.doe@example.com", "pending", []any{
			map[string]any{"title": "Shipping Case", "sku": "CASE-01", "quantity": 3, "price": "9.99"},
		}},
	} {
		n := s.NextOrderNumber()
		order := Record{
			"email":              o.email,
			"financial_status":   o.status,
			"fulfillment_status": nil,
			"currency":           "USD",
			"order_number":       n,
			"name":               fmt.Sprintf("#%d", n),
			"line_items":         o.lines,
			"tags":               "",
			"note":               nil,
		}
		_ = s.PrepareLineItems(order)
		s.insert(s.Orders, order)
	}

	for _, p := range []struct {
		title, vendor, productType, price string
	}{
		{"IPod Nano - 8GB", "Apple", "Cult Products", "199.00"},
		{"Shipping Case", "Acme", "Accessories", "9.99"},
	} {
		s.insert(s.Products, Record{
			"title":        p.title,
			"vendor":       p.vendor,
			"product_type": p.productType,
			"handle":       Handleize(p.title),
			"status":       "active",
			"tags":         "",
			"body_html":    "",
			"variants": []any{map[string]any{
				"id":                 s.NextVariantID(),
				"title":              "Default Title",
				"price":              p.price,
				"sku":                "",
				"inventory_quantity": 10,
			}},
		})
	}

	mainID := s.Themes.NextID()
	s.insert(s.Themes, Record{"id": mainID, "name": "Dawn", "role": "main", "previewable": true, "processing": false})
	s.insert(s.Themes, Record{"name": "Sandbox", "role": "unpublished", "previewable": true, "processing": false})

	s.PutAsset(mainID, Record{"key": "layout/theme.liquid", "value": "<html>{{ content_for_layout }}</html>"})
	s.PutAsset(mainID, Record{"key": "templates/index.liquid", "value": "<h1>{{ shop.name }}</h1>"})
	s.PutAsset(mainID, Record{"key": "assets/theme.css", "value": "body { margin: 0; }"})
}

// Handleize derives a URL handle from a title: lower case, runs of
// anything but letters and digits collapsed to a single dash.
func Handleize(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
