package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
	pkgstore "github.com/wondertwin-ai/shopkit/pkg/store"
	"github.com/wondertwin-ai/shopkit/pkg/twincore"
)

// resourceKind wires one top-level resource (orders, products, themes) into
// the shared CRUD handlers.
type resourceKind struct {
	plural   string
	singular string
	coll     *pkgstore.Store[store.Record]
	// prepare validates rec and fills defaults before it is stored. create
	// is true for POST. Field errors abort the request with 422.
	prepare func(rec store.Record, create bool) map[string][]string
	// onDelete runs after a record was removed.
	onDelete func(id int64)
}

// list handles GET /admin/{resource}.json.
func (h *Handler) list(k resourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := h.parseListQuery(w, r)
		if !ok {
			return
		}
		items, _ := k.coll.Page(q.matcher(), q.Limit)
		out := make([]store.Record, len(items))
		for i, rec := range items {
			out[i] = project(rec, q.Fields)
		}
		twincore.JSON(w, http.StatusOK, map[string]any{k.plural: out})
	}
}

// count handles GET /admin/{resource}/count.json.
func (h *Handler) count(k resourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := h.parseListQuery(w, r)
		if !ok {
			return
		}
		_, total := k.coll.Page(q.matcher(), 0)
		twincore.JSON(w, http.StatusOK, map[string]any{"count": total})
	}
}

// show handles GET /admin/{resource}/{id}.json.
func (h *Handler) show(k resourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := k.coll.Get(chi.URLParam(r, "id"))
		if !ok {
			twincore.NotFound(w)
			return
		}
		twincore.JSON(w, http.StatusOK, map[string]any{
			k.singular: project(rec, r.URL.Query().Get("fields")),
		})
	}
}

// create handles POST /admin/{resource}.json.
func (h *Handler) create(k resourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := decodeEnvelope(r, k.singular)
		if err != nil {
			twincore.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		delete(rec, "id")

		if errs := k.prepare(rec, true); len(errs) > 0 {
			twincore.FieldErrors(w, errs)
			return
		}

		id := k.coll.NextID()
		now := h.store.Timestamp()
		rec["id"] = id
		rec["created_at"] = now
		rec["updated_at"] = now
		k.coll.Set(pkgstore.Key(id), rec)

		twincore.JSON(w, http.StatusCreated, map[string]any{k.singular: rec})
	}
}

// update handles PUT /admin/{resource}/{id}.json. Only the fields present
// in the body change.
func (h *Handler) update(k resourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "id")
		existing, ok := k.coll.Get(key)
		if !ok {
			twincore.NotFound(w)
			return
		}

		patch, err := decodeEnvelope(r, k.singular)
		if err != nil {
			twincore.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		merged := store.Clone(existing)
		for field, v := range patch {
			switch field {
			case "id", "created_at", "updated_at":
				continue
			}
			merged[field] = v
		}

		if errs := k.prepare(merged, false); len(errs) > 0 {
			twincore.FieldErrors(w, errs)
			return
		}

		merged["updated_at"] = h.store.Timestamp()
		k.coll.Set(key, merged)

		twincore.JSON(w, http.StatusOK, map[string]any{k.singular: merged})
	}
}

// destroy handles DELETE /admin/{resource}/{id}.json and answers with an
// empty object.
func (h *Handler) destroy(k resourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "id")
		rec, ok := k.coll.Get(key)
		if !ok || !k.coll.Delete(key) {
			twincore.NotFound(w)
			return
		}
		if k.onDelete != nil {
			id, _ := store.RecordID(rec)
			k.onDelete(id)
		}
		twincore.JSON(w, http.StatusOK, map[string]any{})
	}
}
