package api

import (
	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
	pkgstore "github.com/wondertwin-ai/shopkit/pkg/store"
)

type themeInput struct {
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"omitempty,oneof=main unpublished demo"`
}

func (h *Handler) themeKind() resourceKind {
	return resourceKind{
		plural:   store.Themes,
		singular: "theme",
		coll:     h.store.Themes,
		prepare:  h.prepareTheme,
		onDelete: h.deleteThemeAssets,
	}
}

// prepareTheme validates a theme and keeps at most one main theme:
// publishing a theme demotes the previous main one.
func (h *Handler) prepareTheme(rec store.Record, create bool) map[string][]string {
	if errs := h.validateRecord(rec, &themeInput{}); len(errs) > 0 {
		return errs
	}

	setDefault(rec, "role", "unpublished")
	if create {
		rec["previewable"] = true
		rec["processing"] = false
	}

	if rec["role"] == "main" {
		selfID, _ := store.RecordID(rec)
		for _, other := range h.store.Themes.Filter(func(_ string, t store.Record) bool {
			id, _ := store.RecordID(t)
			return t["role"] == "main" && id != selfID
		}) {
			demoted := store.Clone(other)
			demoted["role"] = "unpublished"
			id, _ := store.RecordID(demoted)
			h.store.Themes.Set(pkgstore.Key(id), demoted)
		}
	}
	return nil
}

func (h *Handler) deleteThemeAssets(themeID int64) {
	for _, a := range h.store.ThemeAssets(themeID) {
		key, _ := a["key"].(string)
		h.store.Assets.Delete(store.AssetKey(themeID, key))
	}
}
