package api

import (
	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
)

type variantInput struct {
	Title string `json:"title"`
	SKU   string `json:"sku"`
}

type productInput struct {
	Title    string         `json:"title" validate:"required"`
	Status   string         `json:"status" validate:"omitempty,oneof=active archived draft"`
	Variants []variantInput `json:"variants" validate:"dive"`
}

func (h *Handler) productKind() resourceKind {
	return resourceKind{
		plural:   store.Products,
		singular: "product",
		coll:     h.store.Products,
		prepare:  h.prepareProduct,
	}
}

func (h *Handler) prepareProduct(rec store.Record, create bool) map[string][]string {
	if errs := h.validateRecord(rec, &productInput{}); len(errs) > 0 {
		return errs
	}

	title, _ := rec["title"].(string)
	setDefault(rec, "handle", store.Handleize(title))
	setDefault(rec, "status", "active")
	setDefault(rec, "tags", "")
	setDefault(rec, "body_html", "")

	variants, _ := rec["variants"].([]any)
	if len(variants) == 0 && create {
		variants = []any{map[string]any{"title": "Default Title", "price": "0.00"}}
	}
	for i, raw := range variants {
		v, ok := raw.(map[string]any)
		if !ok {
			return map[string][]string{"variants": {"is invalid"}}
		}
		v = store.Clone(v)
		if _, ok := store.Int64(v["id"]); !ok {
			v["id"] = h.store.NextVariantID()
		}
		price, err := store.Amount(v["price"])
		if err != nil {
			return map[string][]string{"variants.price": {"is invalid"}}
		}
		v["price"] = price.StringFixed(2)
		setDefault(v, "title", "Default Title")
		variants[i] = v
	}
	if variants != nil {
		rec["variants"] = variants
	}
	return nil
}
