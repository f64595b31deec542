package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
	"github.com/wondertwin-ai/shopkit/pkg/twincore"
)

const (
	tokenHeader = "X-Shopify-Access-Token"

	invalidTokenMessage = "[API] Invalid API key or access token (unrecognized login or wrong password)"

	defaultLimit = 50
)

// Handler holds all API handler state.
type Handler struct {
	store    *store.MemoryStore
	mw       *twincore.Middleware
	validate *validator.Validate
	decoder  *schema.Decoder
}

// NewHandler creates a new API handler.
func NewHandler(s *store.MemoryStore, mw *twincore.Middleware) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names, as the API does.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)

	return &Handler{
		store:    s,
		mw:       mw,
		validate: v,
		decoder:  dec,
	}
}

// Routes mounts the API under /admin and the versioned /admin/api/{version}.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Use(h.mw.CallLimit)
		r.Use(h.mw.FaultInjection)

		h.resources(r)
		r.Route("/api/{version}", h.resources)
	})
}

func (h *Handler) resources(r chi.Router) {
	for _, kind := range []resourceKind{h.orderKind(), h.productKind(), h.themeKind()} {
		r.Get("/"+kind.plural+".json", h.list(kind))
		r.Post("/"+kind.plural+".json", h.create(kind))
		r.Get("/"+kind.plural+"/count.json", h.count(kind))
		r.Get("/"+kind.plural+"/{id}.json", h.show(kind))
		r.Put("/"+kind.plural+"/{id}.json", h.update(kind))
		r.Delete("/"+kind.plural+"/{id}.json", h.destroy(kind))
	}

	r.Get("/themes/{theme_id}/assets.json", h.ListAssets)
	r.Put("/themes/{theme_id}/assets.json", h.PutAsset)
	r.Post("/themes/{theme_id}/assets.json", h.PutAsset)
	r.Get("/themes/{theme_id}/assets/count.json", h.CountAssets)
	r.Get("/themes/{theme_id}/assets/*", h.GetAsset)
	r.Put("/themes/{theme_id}/assets/*", h.PutAsset)
	r.Delete("/themes/{theme_id}/assets/*", h.DeleteAsset)
}

// authMiddleware checks the access token header.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.store.ValidToken(r.Header.Get(tokenHeader)) {
			twincore.Error(w, http.StatusUnauthorized, invalidTokenMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// decodeEnvelope reads {"<key>": {...}} and returns the inner object.
func decodeEnvelope(r *http.Request, key string) (store.Record, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body map[string]json.RawMessage
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}
	raw, ok := body[key]
	if !ok {
		return nil, fmt.Errorf("required parameter missing or invalid: %s", key)
	}
	inner := json.NewDecoder(strings.NewReader(string(raw)))
	inner.UseNumber()
	var rec store.Record
	if err := inner.Decode(&rec); err != nil || rec == nil {
		return nil, fmt.Errorf("required parameter missing or invalid: %s", key)
	}
	return rec, nil
}

// validateRecord maps rec onto input and runs struct validation, returning
// Shopify-style field errors.
func (h *Handler) validateRecord(rec store.Record, input any) map[string][]string {
	data, err := json.Marshal(rec)
	if err == nil {
		err = json.Unmarshal(data, input)
	}
	if err != nil {
		return map[string][]string{"base": {"is invalid"}}
	}

	err = h.validate.Struct(input)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string][]string{"base": {err.Error()}}
	}
	fields := make(map[string][]string)
	for _, fe := range verrs {
		name := fieldPath(fe)
		fields[name] = append(fields[name], fieldMessage(fe))
	}
	return fields
}

// fieldPath strips the struct name from the namespace:
// "orderInput.line_items[0].quantity" -> "line_items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "can't be blank"
	case "min":
		return "must be greater than or equal to " + fe.Param()
	case "max":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "is not included in the list"
	case "email":
		return "is invalid"
	default:
		return "is invalid"
	}
}

// listQuery holds the collection filters shared by every resource.
type listQuery struct {
	IDs     string `schema:"ids" json:"ids"`
	SinceID int64  `schema:"since_id" json:"since_id" validate:"min=0"`
	Limit   int    `schema:"limit" json:"limit" validate:"min=0,max=250"`
	Fields  string `schema:"fields" json:"fields"`
	Status  string `schema:"status" json:"status"`
	Role    string `schema:"role" json:"role"`
}

func (h *Handler) parseListQuery(w http.ResponseWriter, r *http.Request) (listQuery, bool) {
	var q listQuery
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid query: "+err.Error())
		return q, false
	}
	if err := h.validate.Struct(q); err != nil {
		fields := make(map[string][]string)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
			}
		}
		twincore.JSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
		return q, false
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	return q, true
}

// matcher builds the predicate for a list or count request.
func (q listQuery) matcher() func(string, store.Record) bool {
	var ids map[int64]bool
	if q.IDs != "" {
		ids = make(map[int64]bool)
		for _, part := range strings.Split(q.IDs, ",") {
			if id, ok := store.Int64(strings.TrimSpace(part)); ok {
				ids[id] = true
			}
		}
	}
	return func(_ string, rec store.Record) bool {
		id, _ := store.RecordID(rec)
		if ids != nil && !ids[id] {
			return false
		}
		if q.SinceID > 0 && id <= q.SinceID {
			return false
		}
		if q.Status != "" && q.Status != "any" && rec["status"] != nil && rec["status"] != q.Status {
			return false
		}
		if q.Role != "" && rec["role"] != q.Role {
			return false
		}
		return true
	}
}

// project keeps only the requested comma separated fields.
func project(rec store.Record, fields string) store.Record {
	if fields == "" {
		return rec
	}
	out := make(store.Record)
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}
