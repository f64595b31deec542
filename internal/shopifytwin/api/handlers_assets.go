package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
	"github.com/wondertwin-ai/shopkit/pkg/twincore"
)

type assetInput struct {
	Key        string `json:"key" validate:"required"`
	Value      string `json:"value" validate:"required_without=Attachment"`
	Attachment string `json:"attachment"`
}

// themeID resolves {theme_id} to an existing theme, writing a 404 otherwise.
func (h *Handler) themeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "theme_id")
	id, ok := store.Int64(raw)
	if !ok {
		twincore.NotFound(w)
		return 0, false
	}
	if _, ok := h.store.Themes.Get(raw); !ok {
		twincore.NotFound(w)
		return 0, false
	}
	return id, true
}

// assetKeyParam recovers the asset key from the wildcard path, e.g.
// /themes/1/assets/templates/index.liquid.json -> templates/index.liquid.
func assetKeyParam(r *http.Request) string {
	return strings.TrimSuffix(chi.URLParam(r, "*"), ".json")
}

// ListAssets handles GET /admin/themes/{theme_id}/assets.json. With
// ?asset[key]= it returns that single asset instead. Listings omit values.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	themeID, ok := h.themeID(w, r)
	if !ok {
		return
	}

	fields := r.URL.Query().Get("fields")
	if key := r.URL.Query().Get("asset[key]"); key != "" {
		h.writeAsset(w, themeID, key, fields)
		return
	}

	assets := h.store.ThemeAssets(themeID)
	out := make([]store.Record, len(assets))
	for i, a := range assets {
		summary := store.Clone(a)
		delete(summary, "value")
		delete(summary, "attachment")
		out[i] = project(summary, fields)
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"assets": out})
}

// CountAssets handles GET /admin/themes/{theme_id}/assets/count.json.
func (h *Handler) CountAssets(w http.ResponseWriter, r *http.Request) {
	themeID, ok := h.themeID(w, r)
	if !ok {
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"count": len(h.store.ThemeAssets(themeID))})
}

// GetAsset handles GET /admin/themes/{theme_id}/assets/{key}.json.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	themeID, ok := h.themeID(w, r)
	if !ok {
		return
	}
	h.writeAsset(w, themeID, assetKeyParam(r), r.URL.Query().Get("fields"))
}

func (h *Handler) writeAsset(w http.ResponseWriter, themeID int64, key, fields string) {
	rec, ok := h.store.Assets.Get(store.AssetKey(themeID, key))
	if !ok {
		twincore.NotFound(w)
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"asset": project(rec, fields)})
}

// PutAsset creates or replaces an asset. It serves PUT and POST on the
// collection (key in the body) and PUT on the asset path (key in the URL).
func (h *Handler) PutAsset(w http.ResponseWriter, r *http.Request) {
	themeID, ok := h.themeID(w, r)
	if !ok {
		return
	}

	rec, err := decodeEnvelope(r, "asset")
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if key := assetKeyParam(r); key != "" {
		rec["key"] = key
	}

	storeKey := store.AssetKey(themeID, stringField(rec, "key"))
	if prev, ok := h.store.Assets.Get(storeKey); ok {
		_, hasValue := rec["value"]
		_, hasAttachment := rec["attachment"]
		// A partial update keeps the stored body.
		if !hasValue && !hasAttachment {
			for _, f := range []string{"value", "attachment"} {
				if v, ok := prev[f]; ok {
					rec[f] = v
				}
			}
		}
	}

	if errs := h.validateRecord(rec, &assetInput{}); len(errs) > 0 {
		twincore.FieldErrors(w, errs)
		return
	}

	for _, derived := range []string{"theme_id", "size", "checksum", "content_type", "public_url", "created_at", "updated_at"} {
		delete(rec, derived)
	}
	saved := h.store.PutAsset(themeID, rec)
	twincore.JSON(w, http.StatusOK, map[string]any{"asset": saved})
}

// DeleteAsset handles DELETE /admin/themes/{theme_id}/assets/{key}.json.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	themeID, ok := h.themeID(w, r)
	if !ok {
		return
	}
	if !h.store.Assets.Delete(store.AssetKey(themeID, assetKeyParam(r))) {
		twincore.NotFound(w)
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{})
}

func stringField(rec store.Record, key string) string {
	s, _ := rec[key].(string)
	return s
}
