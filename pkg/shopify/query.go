package shopify

import (
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/pkg/errors"
)

// MaxLimit is the largest page size the API accepts.
const MaxLimit = 250

// ListOptions are the common collection filters. Zero fields are omitted.
type ListOptions struct {
	IDs     string `schema:"ids,omitempty"`
	Limit   int    `schema:"limit,omitempty" validate:"omitempty,min=1,max=250"`
	SinceID int64  `schema:"since_id,omitempty" validate:"omitempty,min=0"`
	Fields  string `schema:"fields,omitempty"`
	Status  string `schema:"status,omitempty"`
}

// CountOptions are the filters accepted by count endpoints.
type CountOptions struct {
	Status string `schema:"status,omitempty"`
}

// AssetQuery fetches a single asset by key through the collection
// endpoint, e.g. Assets(themeID).Get(ctx, AssetQuery{Key: "layout/theme.liquid"}, "").
type AssetQuery struct {
	Key    string `schema:"asset[key]" validate:"required"`
	Fields string `schema:"fields,omitempty"`
}

var (
	queryEncoder  = schema.NewEncoder()
	queryValidate = validator.New(validator.WithRequiredStructEnabled())
)

// encodeQuery turns a caller supplied query into URL values. It accepts nil,
// url.Values, map[string]string, map[string][]string or a struct (or
// pointer to one) tagged for gorilla/schema and go-playground/validator.
func encodeQuery(query any) (url.Values, error) {
	switch q := query.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return q, nil
	case map[string][]string:
		return url.Values(q), nil
	case map[string]string:
		values := make(url.Values, len(q))
		for k, v := range q {
			values.Set(k, v)
		}
		return values, nil
	default:
		if err := queryValidate.Struct(q); err != nil {
			return nil, errors.Wrap(err, "shopify: invalid query")
		}
		values := make(url.Values)
		if err := queryEncoder.Encode(q, values); err != nil {
			return nil, errors.Wrap(err, "shopify: encoding query")
		}
		return values, nil
	}
}
