package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ---------------------------------------------------------------------------
// Helper: create a test server with Shopify-shaped endpoints
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /admin/orders.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"orders": []map[string]any{{"id": 1}, {"id": 2}},
		})
	})

	mux.HandleFunc("GET /admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"order": map[string]string{"id": r.PathValue("id")},
		})
	})

	mux.HandleFunc("POST /admin/orders.json", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		order := body["order"]
		order["id"] = 1001
		writeJSON(w, http.StatusCreated, map[string]any{"order": order})
	})

	mux.HandleFunc("PUT /admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"order": map[string]string{"id": r.PathValue("id"), "note": "updated"},
		})
	})

	mux.HandleFunc("DELETE /admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	mux.HandleFunc("GET /admin/orders/count.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 2})
	})

	mux.HandleFunc("POST /admin/products.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": map[string][]string{"title": {"can't be blank"}},
		})
	})

	mux.HandleFunc("GET /admin/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"errors": "Not Found"})
	})

	mux.HandleFunc("GET /echo-headers", func(w http.ResponseWriter, r *http.Request) {
		headers := map[string]string{}
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}
		writeJSON(w, http.StatusOK, headers)
	})

	// Control-plane endpoints
	mux.HandleFunc("GET /_admin/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /_admin/reset", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	})
	mux.HandleFunc("GET /_admin/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"orders": []string{"a", "b"}})
	})
	mux.HandleFunc("POST /_admin/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
	})
	mux.HandleFunc("POST /_admin/fault/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "injected", "path": r.URL.Path})
	})
	mux.HandleFunc("DELETE /_admin/fault/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "path": r.URL.Path})
	})
	mux.HandleFunc("GET /_admin/requests", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{{"method": "GET", "path": "/admin/orders.json"}})
	})
	mux.HandleFunc("POST /_admin/seed", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
	})
	mux.HandleFunc("PUT /_admin/config", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, body)
	})
	mux.HandleFunc("POST /_admin/time/advance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "advanced"})
	})

	return httptest.NewServer(mux)
}

// ---------------------------------------------------------------------------
// TwinClient tests
// ---------------------------------------------------------------------------

func TestNewTwinClient(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	if tc.BaseURL != srv.URL {
		t.Errorf("expected BaseURL=%s, got %s", srv.URL, tc.BaseURL)
	}
}

func TestNewTwinClientURL(t *testing.T) {
	tc := NewTwinClientURL(t, "http://localhost:8080/")
	if tc.BaseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %s", tc.BaseURL)
	}
}

func TestTwinClientGet(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	resp := tc.Get("/admin/orders.json")

	resp.AssertStatus(http.StatusOK)
	if items := resp.List("orders"); len(items) != 2 {
		t.Errorf("expected 2 orders, got %d", len(items))
	}
}

func TestTwinClientPost(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	resp := tc.Post("/admin/orders.json", map[string]any{"order": map[string]string{"email": "a@example.com"}})

	resp.AssertStatus(http.StatusCreated)
	order := resp.Envelope("order")
	if order["id"] != float64(1001) {
		t.Errorf("expected id=1001, got %v", order["id"])
	}
	if order["email"] != "a@example.com" {
		t.Errorf("expected email echoed, got %v", order["email"])
	}
}

func TestTwinClientPut(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	resp := tc.Put("/admin/orders/42.json", map[string]any{"order": map[string]string{"note": "updated"}})

	resp.AssertStatus(http.StatusOK)
	if note := resp.Envelope("order")["note"]; note != "updated" {
		t.Errorf("expected note=updated, got %v", note)
	}
}

func TestTwinClientDelete(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	resp := tc.Delete("/admin/orders/42.json")

	resp.AssertStatus(http.StatusOK)
	if m := resp.JSONMap(); len(m) != 0 {
		t.Errorf("expected empty object, got %v", m)
	}
}

func TestTwinClientSendsToken(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv).WithToken("shpat_test")
	m := tc.Get("/echo-headers").JSONMap()
	if m[TokenHeader] != "shpat_test" {
		t.Errorf("expected %s=shpat_test, got %v", TokenHeader, m[TokenHeader])
	}
}

func TestTwinClientWithTokenCopies(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	_ = tc.WithToken("shpat_test")
	if tc.Token != "" {
		t.Errorf("expected original client untouched, got token %q", tc.Token)
	}
}

func TestTwinClientDoWithHeaders(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	resp := tc.DoWithHeaders("GET", "/echo-headers", nil, map[string]string{
		"X-Custom": "header-value",
	})

	resp.AssertStatus(http.StatusOK)
	m := resp.JSONMap()
	if m["X-Custom"] != "header-value" {
		t.Errorf("expected X-Custom=header-value, got %v", m["X-Custom"])
	}
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func TestResponseJSONMap(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	order := tc.Get("/admin/orders/42.json").Envelope("order")
	if order["id"] != "42.json" {
		t.Errorf("expected raw path value, got %v", order["id"])
	}
}

func TestResponseAssertBodyContains(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	tc.Get("/admin/orders.json").AssertBodyContains(`"orders"`)
}

func TestResponseAssertStatusChaining(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	resp := tc.Get("/admin/orders.json")

	chained := resp.AssertStatus(http.StatusOK)
	if chained != resp {
		t.Error("expected AssertStatus to return the same Response for chaining")
	}
	if resp.AssertBodyContains(`"id"`) != resp {
		t.Error("expected AssertBodyContains to return the same Response for chaining")
	}
}

// ---------------------------------------------------------------------------
// AdminClient tests
// ---------------------------------------------------------------------------

func TestAdminClientHealth(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	ac := NewAdminClient(NewTwinClient(t, srv))

	resp := ac.Health()
	resp.AssertStatus(http.StatusOK)
	if m := resp.JSONMap(); m["status"] != "ok" {
		t.Errorf("expected status=ok, got %v", m["status"])
	}
}

func TestAdminClientEndpoints(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	ac := NewAdminClient(NewTwinClient(t, srv))

	tests := []struct {
		name string
		call func() *Response
		want string
	}{
		{"reset", ac.Reset, "reset"},
		{"get state", ac.GetState, "orders"},
		{"load state", func() *Response { return ac.LoadState(map[string]any{"k": "v"}) }, "loaded"},
		{"requests", ac.GetRequests, "method"},
		{"advance time", func() *Response { return ac.AdvanceTime("1h") }, "advanced"},
		{"seed", func() *Response { return ac.Seed(map[string]any{"products": []any{}}) }, "seeded"},
		{"set config", func() *Response { return ac.SetConfig(map[string]any{"call_limit": 40}) }, "call_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.call().AssertStatus(http.StatusOK).AssertBodyContains(tt.want)
		})
	}
}

func TestAdminClientFaultPathStripsLeadingSlash(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	ac := NewAdminClient(NewTwinClient(t, srv))

	resp := ac.InjectFault("/admin/orders.json", map[string]any{"status_code": 503})
	resp.AssertStatus(http.StatusOK)
	if p := resp.JSONMap()["path"]; p != "/_admin/fault/admin/orders.json" {
		t.Errorf("unexpected fault path %v", p)
	}

	resp = ac.RemoveFault("/admin/orders.json")
	resp.AssertStatus(http.StatusOK)
	if p := resp.JSONMap()["path"]; p != "/_admin/fault/admin/orders.json" {
		t.Errorf("unexpected fault path %v", p)
	}
}

// ---------------------------------------------------------------------------
// Shopify body helpers
// ---------------------------------------------------------------------------

func TestResponseCount(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	if n := NewTwinClient(t, srv).Get("/admin/orders/count.json").Count(); n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}
}

func TestResponseShopifyErrors(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	tc := NewTwinClient(t, srv)
	tc.Get("/admin/products/1.json").AssertStatus(http.StatusNotFound).AssertError("Not Found")
	tc.Post("/admin/products.json", map[string]any{"product": map[string]any{}}).
		AssertFieldError("title", "can't be blank")
}
