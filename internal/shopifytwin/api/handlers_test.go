package api_test

import (
	"net/http/httptest"
	"testing"

	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/api"
	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
	"github.com/wondertwin-ai/shopkit/pkg/admin"
	"github.com/wondertwin-ai/shopkit/pkg/testutil"
	"github.com/wondertwin-ai/shopkit/pkg/twincore"
)

const (
	firstOrder  = "450789469"
	secondOrder = "450789470"
	mainTheme   = "828155753"
	otherTheme  = "828155754"
)

func setupShopify(t *testing.T) (*testutil.TwinClient, *testutil.AdminClient, *store.MemoryStore) {
	t.Helper()
	memStore := store.New()
	memStore.SeedDefaults()
	cfg := &twincore.Config{Name: "twin-shopify-test"}
	twin := twincore.New(cfg)
	mw := twin.Middleware()
	handler := api.NewHandler(memStore, mw)
	handler.Routes(twin.Router)
	adminHandler := admin.NewHandler(memStore, mw, memStore.Clock)
	adminHandler.SetConfigProvider(twin)
	adminHandler.Routes(twin.Router)
	srv := httptest.NewServer(twin.Router)
	t.Cleanup(srv.Close)
	tc := testutil.NewTwinClient(t, srv).WithToken(store.DefaultToken)
	ac := testutil.NewAdminClient(tc)
	return tc, ac, memStore
}

// --- Auth ---

func TestAuthRequired(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.WithToken("").Get("/admin/orders.json").
		AssertStatus(401).
		AssertBodyContains("Invalid API key or access token")
}

func TestAuthRejectsUnknownToken(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.WithToken("shpat_nope").Get("/admin/orders.json").AssertStatus(401)
}

func TestAuthDoesNotGuardControlPlane(t *testing.T) {
	tc, _, _ := setupShopify(t)
	ac := testutil.NewAdminClient(tc.WithToken(""))
	ac.Health().AssertStatus(200)
}

func TestSeededTokenFromFixture(t *testing.T) {
	tc, _, memStore := setupShopify(t)
	seed := []byte("tokens:\n  - token: shpat_fixture\n    shop: fixture-shop\n")
	if err := memStore.LoadSeed(seed); err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	tc.WithToken("shpat_fixture").Get("/admin/orders.json").AssertStatus(200)
}

// --- Orders ---

func TestListOrders(t *testing.T) {
	tc, _, _ := setupShopify(t)
	resp := tc.Get("/admin/orders.json").AssertStatus(200)
	orders := resp.List("orders")
	if len(orders) != 2 {
		t.Fatalf("expected 2 seeded orders, got %d", len(orders))
	}
	if resp.Headers.Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id response header")
	}
}

func TestListOrdersVersionedPath(t *testing.T) {
	tc, _, _ := setupShopify(t)
	orders := tc.Get("/admin/api/2024-01/orders.json").AssertStatus(200).List("orders")
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
}

func TestListOrdersFilters(t *testing.T) {
	tc, _, _ := setupShopify(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"ids", "?ids=" + secondOrder, 1},
		{"ids with spaces", "?ids=" + firstOrder + ",%20" + secondOrder, 2},
		{"since_id", "?since_id=" + firstOrder, 1},
		{"limit", "?limit=1", 1},
		{"status any", "?status=any", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := tc.Get("/admin/orders.json" + tt.query).AssertStatus(200).List("orders")
			if len(orders) != tt.want {
				t.Errorf("got %d orders, want %d", len(orders), tt.want)
			}
		})
	}
}

func TestListOrdersLimitTooLarge(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Get("/admin/orders.json?limit=251").
		AssertStatus(400).
		AssertBodyContains("limit")
}

func TestListOrdersBadQuery(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Get("/admin/orders.json?since_id=abc").AssertStatus(400)
}

func TestListOrdersFields(t *testing.T) {
	tc, _, _ := setupShopify(t)
	orders := tc.Get("/admin/orders.json?fields=id,email").AssertStatus(200).List("orders")
	first := orders[0].(map[string]any)
	if len(first) != 2 {
		t.Errorf("expected only id and email, got %v", first)
	}
	if first["email"] != "bob.norman@example.com" {
		t.Errorf("email = %v", first["email"])
	}
}

func TestCountOrders(t *testing.T) {
	tc, _, _ := setupShopify(t)
	if n := tc.Get("/admin/orders/count.json").Count(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if n := tc.Get("/admin/orders/count.json?since_id=" + firstOrder).Count(); n != 1 {
		t.Errorf("count since_id = %d, want 1", n)
	}
}

func TestGetOrder(t *testing.T) {
	tc, _, _ := setupShopify(t)
	order := tc.Get("/admin/orders/" + firstOrder + ".json").AssertStatus(200).Envelope("order")
	if order["id"] != float64(450789469) {
		t.Errorf("id = %v", order["id"])
	}
	if order["total_price"] != "317.00" {
		t.Errorf("total_price = %v, want 317.00", order["total_price"])
	}
	if order["name"] != "#1001" {
		t.Errorf("name = %v, want #1001", order["name"])
	}
	items := order["line_items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(items))
	}
	if items[0].(map[string]any)["id"] == nil {
		t.Error("expected line item id")
	}
}

func TestGetOrderNotFound(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Get("/admin/orders/1.json").
		AssertStatus(404).
		AssertBodyContains(`"errors":"Not Found"`)
}

func TestCreateOrder(t *testing.T) {
	tc, _, _ := setupShopify(t)
	resp := tc.Post("/admin/orders.json", map[string]any{
		"order": map[string]any{
			"email": "new@example.com",
			"line_items": []any{
				map[string]any{"title": "Widget", "quantity": 2, "price": "5.50"},
			},
		},
	}).AssertStatus(201)

	order := resp.Envelope("order")
	if order["id"] != float64(450789471) {
		t.Errorf("id = %v, want 450789471", order["id"])
	}
	if order["name"] != "#1003" {
		t.Errorf("name = %v, want #1003", order["name"])
	}
	if order["total_price"] != "11.00" {
		t.Errorf("total_price = %v, want 11.00", order["total_price"])
	}
	if order["financial_status"] != "pending" {
		t.Errorf("financial_status = %v", order["financial_status"])
	}
	if order["currency"] != "USD" {
		t.Errorf("currency = %v", order["currency"])
	}

	if n := tc.Get("/admin/orders/count.json").Count(); n != 3 {
		t.Errorf("count after create = %d, want 3", n)
	}
}

func TestCreateOrderIgnoresClientID(t *testing.T) {
	tc, _, _ := setupShopify(t)
	order := tc.Post("/admin/orders.json", map[string]any{
		"order": map[string]any{
			"id":         firstOrder,
			"line_items": []any{map[string]any{"title": "Widget"}},
		},
	}).AssertStatus(201).Envelope("order")
	if order["id"] == float64(450789469) {
		t.Error("create must assign a fresh id")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	tc, _, _ := setupShopify(t)

	tests := []struct {
		name  string
		order map[string]any
		field string
		msg   string
	}{
		{
			name:  "missing line items",
			order: map[string]any{"email": "a@example.com"},
			field: "line_items",
			msg:   "can't be blank",
		},
		{
			name: "bad email",
			order: map[string]any{
				"email":      "not-an-email",
				"line_items": []any{map[string]any{"title": "Widget"}},
			},
			field: "email",
			msg:   "is invalid",
		},
		{
			name: "bad quantity",
			order: map[string]any{
				"line_items": []any{map[string]any{"title": "Widget", "quantity": -1}},
			},
			field: "line_items[0].quantity",
			msg:   "must be greater than or equal to 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc.Post("/admin/orders.json", map[string]any{"order": tt.order}).
				AssertFieldError(tt.field, tt.msg)
		})
	}
}

func TestCreateOrderMissingEnvelope(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Post("/admin/orders.json", map[string]any{"product": map[string]any{}}).
		AssertStatus(400).
		AssertBodyContains("required parameter missing or invalid: order")
}

func TestUpdateOrder(t *testing.T) {
	tc, _, _ := setupShopify(t)
	order := tc.Put("/admin/orders/"+firstOrder+".json", map[string]any{
		"order": map[string]any{"id": 450789469, "note": "gift wrap"},
	}).AssertStatus(200).Envelope("order")

	if order["note"] != "gift wrap" {
		t.Errorf("note = %v", order["note"])
	}
	if order["email"] != "bob.norman@example.com" {
		t.Errorf("untouched email changed to %v", order["email"])
	}
	if order["name"] != "#1001" {
		t.Errorf("update must not renumber, name = %v", order["name"])
	}

	got := tc.Get("/admin/orders/" + firstOrder + ".json").Envelope("order")
	if got["note"] != "gift wrap" {
		t.Errorf("note not persisted: %v", got["note"])
	}
}

func TestUpdateOrderNotFound(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Put("/admin/orders/1.json", map[string]any{"order": map[string]any{"note": "x"}}).AssertStatus(404)
}

func TestDeleteOrder(t *testing.T) {
	tc, _, _ := setupShopify(t)
	resp := tc.Delete("/admin/orders/" + firstOrder + ".json").AssertStatus(200)
	if string(resp.Body) != "{}\n" {
		t.Errorf("expected empty object body, got %q", resp.Body)
	}
	tc.Get("/admin/orders/" + firstOrder + ".json").AssertStatus(404)
	tc.Delete("/admin/orders/" + firstOrder + ".json").AssertStatus(404)
	if n := tc.Get("/admin/orders/count.json").Count(); n != 1 {
		t.Errorf("count after delete = %d, want 1", n)
	}
}

// --- Products ---

func TestCreateProductDefaults(t *testing.T) {
	tc, _, _ := setupShopify(t)
	product := tc.Post("/admin/products.json", map[string]any{
		"product": map[string]any{"title": "Cool Shirt!"},
	}).AssertStatus(201).Envelope("product")

	if product["handle"] != "cool-shirt" {
		t.Errorf("handle = %v, want cool-shirt", product["handle"])
	}
	if product["status"] != "active" {
		t.Errorf("status = %v, want active", product["status"])
	}
	variants := product["variants"].([]any)
	if len(variants) != 1 {
		t.Fatalf("expected a default variant, got %d", len(variants))
	}
	v := variants[0].(map[string]any)
	if v["price"] != "0.00" || v["title"] != "Default Title" || v["id"] == nil {
		t.Errorf("unexpected default variant %v", v)
	}
}

func TestCreateProductNormalizesVariantPrice(t *testing.T) {
	tc, _, _ := setupShopify(t)
	product := tc.Post("/admin/products.json", map[string]any{
		"product": map[string]any{
			"title":    "Mug",
			"variants": []any{map[string]any{"title": "Large", "price": 12.5}},
		},
	}).AssertStatus(201).Envelope("product")
	v := product["variants"].([]any)[0].(map[string]any)
	if v["price"] != "12.50" {
		t.Errorf("price = %v, want 12.50", v["price"])
	}
}

func TestCreateProductValidation(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Post("/admin/products.json", map[string]any{
		"product": map[string]any{"title": "", "status": "bogus"},
	}).AssertFieldError("title", "can't be blank").
		AssertFieldError("status", "is not included in the list")
}

func TestListProductsByStatus(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Post("/admin/products.json", map[string]any{
		"product": map[string]any{"title": "Draft thing", "status": "draft"},
	}).AssertStatus(201)

	if n := len(tc.Get("/admin/products.json?status=draft").List("products")); n != 1 {
		t.Errorf("draft products = %d, want 1", n)
	}
	if n := tc.Get("/admin/products/count.json?status=active").Count(); n != 2 {
		t.Errorf("active count = %d, want 2", n)
	}
}

// --- Themes ---

func TestListThemesByRole(t *testing.T) {
	tc, _, _ := setupShopify(t)
	themes := tc.Get("/admin/themes.json?role=main").AssertStatus(200).List("themes")
	if len(themes) != 1 || themes[0].(map[string]any)["name"] != "Dawn" {
		t.Errorf("unexpected main themes %v", themes)
	}
}

func TestPublishThemeDemotesMain(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Put("/admin/themes/"+otherTheme+".json", map[string]any{
		"theme": map[string]any{"role": "main"},
	}).AssertStatus(200)

	old := tc.Get("/admin/themes/" + mainTheme + ".json").Envelope("theme")
	if old["role"] != "unpublished" {
		t.Errorf("previous main role = %v, want unpublished", old["role"])
	}
	if n := len(tc.Get("/admin/themes.json?role=main").List("themes")); n != 1 {
		t.Errorf("main themes = %d, want 1", n)
	}
}

func TestCreateThemeDefaults(t *testing.T) {
	tc, _, _ := setupShopify(t)
	theme := tc.Post("/admin/themes.json", map[string]any{
		"theme": map[string]any{"name": "Lab"},
	}).AssertStatus(201).Envelope("theme")
	if theme["role"] != "unpublished" {
		t.Errorf("role = %v, want unpublished", theme["role"])
	}
	if theme["previewable"] != true {
		t.Errorf("previewable = %v", theme["previewable"])
	}
}

func TestDeleteThemeDropsAssets(t *testing.T) {
	tc, _, memStore := setupShopify(t)
	tc.Delete("/admin/themes/" + mainTheme + ".json").AssertStatus(200)
	if n := len(memStore.ThemeAssets(828155753)); n != 0 {
		t.Errorf("assets left after theme delete: %d", n)
	}
	tc.Get("/admin/themes/" + mainTheme + "/assets.json").AssertStatus(404)
}

// --- Assets ---

func TestListAssetsOmitsBodies(t *testing.T) {
	tc, _, _ := setupShopify(t)
	assets := tc.Get("/admin/themes/" + mainTheme + "/assets.json").AssertStatus(200).List("assets")
	if len(assets) != 3 {
		t.Fatalf("expected 3 seeded assets, got %d", len(assets))
	}
	for _, raw := range assets {
		a := raw.(map[string]any)
		if _, ok := a["value"]; ok {
			t.Errorf("listing leaked value for %v", a["key"])
		}
	}
}

func TestCountAssets(t *testing.T) {
	tc, _, _ := setupShopify(t)
	if n := tc.Get("/admin/themes/" + mainTheme + "/assets/count.json").Count(); n != 3 {
		t.Errorf("asset count = %d, want 3", n)
	}
	if n := tc.Get("/admin/themes/" + otherTheme + "/assets/count.json").Count(); n != 0 {
		t.Errorf("asset count = %d, want 0", n)
	}
}

func TestGetAssetByPath(t *testing.T) {
	tc, _, _ := setupShopify(t)
	asset := tc.Get("/admin/themes/" + mainTheme + "/assets/templates/index.liquid.json").
		AssertStatus(200).Envelope("asset")
	if asset["value"] != "<h1>{{ shop.name }}</h1>" {
		t.Errorf("value = %v", asset["value"])
	}
	if asset["content_type"] != "text/x-liquid" {
		t.Errorf("content_type = %v", asset["content_type"])
	}
}

func TestGetAssetByQuery(t *testing.T) {
	tc, _, _ := setupShopify(t)
	asset := tc.Get("/admin/themes/" + mainTheme + "/assets.json?asset%5Bkey%5D=assets/theme.css").
		AssertStatus(200).Envelope("asset")
	if asset["key"] != "assets/theme.css" {
		t.Errorf("key = %v", asset["key"])
	}
	if asset["public_url"] == nil {
		t.Error("expected public_url for a static asset")
	}
}

func TestGetAssetNotFound(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Get("/admin/themes/" + mainTheme + "/assets/missing.liquid.json").AssertStatus(404)
	tc.Get("/admin/themes/1/assets/templates/index.liquid.json").AssertStatus(404)
}

func TestPutAssetCreatesThenUpdates(t *testing.T) {
	tc, _, _ := setupShopify(t)
	created := tc.Put("/admin/themes/"+mainTheme+"/assets.json", map[string]any{
		"asset": map[string]any{"key": "snippets/new.liquid", "value": "hi"},
	}).AssertStatus(200).Envelope("asset")

	if created["size"] != float64(2) {
		t.Errorf("size = %v, want 2", created["size"])
	}
	if created["theme_id"] != float64(828155753) {
		t.Errorf("theme_id = %v", created["theme_id"])
	}
	if n := tc.Get("/admin/themes/" + mainTheme + "/assets/count.json").Count(); n != 4 {
		t.Errorf("asset count = %d, want 4", n)
	}

	updated := tc.Put("/admin/themes/"+mainTheme+"/assets/snippets/new.liquid.json", map[string]any{
		"asset": map[string]any{"value": "hello"},
	}).AssertStatus(200).Envelope("asset")
	if updated["size"] != float64(5) {
		t.Errorf("size = %v, want 5", updated["size"])
	}
	if updated["created_at"] != created["created_at"] {
		t.Errorf("created_at changed: %v -> %v", created["created_at"], updated["created_at"])
	}
	if updated["checksum"] == created["checksum"] {
		t.Error("checksum should change with the value")
	}
}

func TestPutAssetPartialUpdateKeepsValue(t *testing.T) {
	tc, _, _ := setupShopify(t)
	asset := tc.Put("/admin/themes/"+mainTheme+"/assets/assets/theme.css.json", map[string]any{
		"asset": map[string]any{"key": "ignored"},
	}).AssertStatus(200).Envelope("asset")
	if asset["key"] != "assets/theme.css" {
		t.Errorf("path key should win, got %v", asset["key"])
	}
	if asset["value"] != "body { margin: 0; }" {
		t.Errorf("value = %v", asset["value"])
	}
}

func TestPutAssetValidation(t *testing.T) {
	tc, _, _ := setupShopify(t)
	tc.Put("/admin/themes/"+mainTheme+"/assets.json", map[string]any{
		"asset": map[string]any{"key": "snippets/empty.liquid"},
	}).AssertStatus(422).AssertBodyContains(`"value":["can't be blank"]`)
}

func TestPostAssetAttachment(t *testing.T) {
	tc, _, _ := setupShopify(t)
	asset := tc.Post("/admin/themes/"+otherTheme+"/assets.json", map[string]any{
		"asset": map[string]any{"key": "assets/logo.png", "attachment": "iVBORw0KGgo="},
	}).AssertStatus(200).Envelope("asset")
	if asset["content_type"] != "image/png" {
		t.Errorf("content_type = %v, want image/png", asset["content_type"])
	}
}

func TestDeleteAsset(t *testing.T) {
	tc, _, _ := setupShopify(t)
	path := "/admin/themes/" + mainTheme + "/assets/layout/theme.liquid.json"
	tc.Delete(path).AssertStatus(200)
	tc.Get(path).AssertStatus(404)
	tc.Delete(path).AssertStatus(404)
}

// --- Control plane ---

func TestFaultInjection(t *testing.T) {
	tc, ac, _ := setupShopify(t)
	ac.InjectFault("/admin/orders.json", map[string]any{"status_code": 503}).AssertStatus(200)

	tc.Get("/admin/orders.json").
		AssertStatus(503).
		AssertBodyContains("injected fault (503)")
	tc.Get("/admin/products.json").AssertStatus(200)

	ac.RemoveFault("/admin/orders.json").AssertStatus(200)
	tc.Get("/admin/orders.json").AssertStatus(200)
}

func TestFaultCoversVersionedPath(t *testing.T) {
	tc, ac, _ := setupShopify(t)
	ac.InjectFault("/admin/orders.json", map[string]any{"status_code": 500, "method": "POST"}).AssertStatus(200)

	tc.Get("/admin/api/2024-01/orders.json").AssertStatus(200)
	tc.Post("/admin/api/2024-01/orders.json", map[string]any{
		"order": map[string]any{"line_items": []any{map[string]any{"title": "Widget"}}},
	}).AssertStatus(500)
}

func TestCallLimit(t *testing.T) {
	tc, ac, _ := setupShopify(t)
	tc.Get("/admin/orders.json").AssertStatus(200)

	ac.SetConfig(map[string]any{"call_limit": 2}).AssertStatus(200)

	first := tc.Get("/admin/orders.json").AssertStatus(200)
	if h := first.Headers.Get(twincore.CallLimitHeader); h != "1/2" {
		t.Errorf("call limit header = %q, want 1/2", h)
	}
	tc.Get("/admin/products.json").AssertStatus(200)
	tc.Get("/admin/themes.json").
		AssertStatus(429).
		AssertBodyContains("Exceeded 2 calls per second")

	ac.Health().AssertStatus(200)
	tc.WithToken("").Get("/admin/orders.json").AssertStatus(401)

	ac.Reset().AssertStatus(200)
	if tc.Get("/admin/orders.json").AssertStatus(200).Headers.Get(twincore.CallLimitHeader) != "1/2" {
		t.Error("expected reset to empty the call buckets")
	}
}

func TestIssueTokenEndpoint(t *testing.T) {
	tc, ac, _ := setupShopify(t)

	body := ac.Post(admin.Prefix+"/tokens", map[string]any{"shop": "acme", "scope": "read_orders"}).
		AssertStatus(200).JSONMap()
	if body["scope"] != "read_orders" {
		t.Errorf("scope = %v", body["scope"])
	}
	token, _ := body["access_token"].(string)
	tc.WithToken(token).Get("/admin/orders.json").AssertStatus(200)

	ac.Post(admin.Prefix+"/tokens", map[string]any{"scope": "read_everything"}).
		AssertStatus(422).
		AssertBodyContains("unknown scope")
}

func TestResetRestoresFixtures(t *testing.T) {
	tc, ac, _ := setupShopify(t)
	tc.Delete("/admin/orders/" + firstOrder + ".json").AssertStatus(200)
	ac.Reset().AssertStatus(200)

	if n := tc.Get("/admin/orders/count.json").Count(); n != 2 {
		t.Errorf("count after reset = %d, want 2", n)
	}
	order := tc.Post("/admin/orders.json", map[string]any{
		"order": map[string]any{"line_items": []any{map[string]any{"title": "Widget"}}},
	}).AssertStatus(201).Envelope("order")
	if order["name"] != "#1003" {
		t.Errorf("order numbering not reset, name = %v", order["name"])
	}
}

func TestSeedEndpoint(t *testing.T) {
	tc, ac, _ := setupShopify(t)
	ac.Seed(map[string]any{
		"products": []any{map[string]any{"id": 700, "title": "Seeded"}},
	}).AssertStatus(200).AssertBodyContains("seeded")

	if n := tc.Get("/admin/products/count.json").Count(); n != 3 {
		t.Errorf("product count = %d, want 3", n)
	}
	tc.Get("/admin/products/700.json").AssertStatus(200)
}

func TestStateRoundTrip(t *testing.T) {
	tc, ac, _ := setupShopify(t)
	tc.Delete("/admin/orders/" + secondOrder + ".json").AssertStatus(200)

	var state map[string]any
	ac.GetState().AssertStatus(200).JSON(&state)

	ac.Reset().AssertStatus(200)
	ac.LoadState(state).AssertStatus(200)

	tc.Get("/admin/orders/" + secondOrder + ".json").AssertStatus(404)
	tc.Get("/admin/orders/" + firstOrder + ".json").AssertStatus(200)
}
