package api

import (
	"fmt"

	"github.com/wondertwin-ai/shopkit/internal/shopifytwin/store"
)

type lineItemInput struct {
	Title    string `json:"title" validate:"required"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1"`
}

type orderCreateInput struct {
	Email     string          `json:"email" validate:"omitempty,email"`
	LineItems []lineItemInput `json:"line_items" validate:"required,min=1,dive"`
}

type orderUpdateInput struct {
	Email     string          `json:"email" validate:"omitempty,email"`
	LineItems []lineItemInput `json:"line_items" validate:"dive"`
}

func (h *Handler) orderKind() resourceKind {
	return resourceKind{
		plural:   store.Orders,
		singular: "order",
		coll:     h.store.Orders,
		prepare:  h.prepareOrder,
	}
}

func (h *Handler) prepareOrder(rec store.Record, create bool) map[string][]string {
	var errs map[string][]string
	if create {
		errs = h.validateRecord(rec, &orderCreateInput{})
	} else {
		errs = h.validateRecord(rec, &orderUpdateInput{})
	}
	if len(errs) > 0 {
		return errs
	}

	if err := h.store.PrepareLineItems(rec); err != nil {
		return map[string][]string{"line_items": {"is invalid"}}
	}

	if create {
		n := h.store.NextOrderNumber()
		rec["order_number"] = n
		rec["name"] = fmt.Sprintf("#%d", n)
		setDefault(rec, "financial_status", "pending")
		setDefault(rec, "currency", "USD")
		setDefault(rec, "tags", "")
		if _, ok := rec["fulfillment_status"]; !ok {
			rec["fulfillment_status"] = nil
		}
	}
	return nil
}

// setDefault sets rec[key] when it is missing or empty.
func setDefault(rec store.Record, key string, value any) {
	if v, ok := rec[key]; !ok || v == nil || v == "" {
		rec[key] = value
	}
}
