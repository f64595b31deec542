package shopify

import (
	"github.com/shopspring/decimal"
)

// Order is a shop order.
type Order struct{ Model }

// NewOrder returns an unsaved order with the given attributes.
func NewOrder(attrs map[string]any) *Order {
	o := &Order{}
	o.bind(orderDescriptor)
	o.Fill(attrs)
	return o
}

func (*Order) Descriptor() Descriptor { return orderDescriptor }

func (o *Order) Name() string { return o.GetString("name") }
func (o *Order) Email() string { return o.GetString("email") }
func (o *Order) SetEmail(email string) { o.Set("email", email) }
func (o *Order) Note() string { return o.GetString("note") }
func (o *Order) SetNote(note string) { o.Set("note", note) }
func (o *Order) Tags() string { return o.GetString("tags") }
func (o *Order) SetTags(tags string) { o.Set("tags", tags) }
func (o *Order) Currency() string { return o.GetString("currency") }
func (o *Order) FinancialStatus() string { return o.GetString("financial_status") }
func (o *Order) FulfillmentStatus() string { return o.GetString("fulfillment_status") }

// TotalPrice parses total_price.
func (o *Order) TotalPrice() (decimal.Decimal, error) { return o.GetDecimal("total_price") }

// LineItem is one line of an order.
type LineItem struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	VariantID int64           `json:"variant_id"`
	Title     string          `json:"title"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// LineItems decodes the line_items attribute.
func (o *Order) LineItems() ([]LineItem, error) {
	var v struct {
		LineItems []LineItem `json:"line_items"`
	}
	if err := o.Decode(&v); err != nil {
		return nil, err
	}
	return v.LineItems, nil
}

// Product is a catalog product.
type Product struct{ Model }

// NewProduct returns an unsaved product with the given attributes.
func NewProduct(attrs map[string]any) *Product {
	p := &Product{}
	p.bind(productDescriptor)
	p.Fill(attrs)
	return p
}

func (*Product) Descriptor() Descriptor { return productDescriptor }

func (p *Product) Title() string { return p.GetString("title") }
func (p *Product) SetTitle(title string) { p.Set("title", title) }
func (p *Product) Vendor() string { return p.GetString("vendor") }
func (p *Product) SetVendor(vendor string) { p.Set("vendor", vendor) }
func (p *Product) ProductType() string { return p.GetString("product_type") }
func (p *Product) Handle() string { return p.GetString("handle") }
func (p *Product) Status() string { return p.GetString("status") }
func (p *Product) SetStatus(status string) { p.Set("status", status) }
func (p *Product) Tags() string { return p.GetString("tags") }
func (p *Product) SetTags(tags string) { p.Set("tags", tags) }
func (p *Product) BodyHTML() string { return p.GetString("body_html") }
func (p *Product) SetBodyHTML(html string) { p.Set("body_html", html) }

// Variant is one purchasable variant of a product.
type Variant struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	InventoryQuantity int             `json:"inventory_quantity"`
}

// Variants decodes the variants attribute.
func (p *Product) Variants() ([]Variant, error) {
	var v struct {
		Variants []Variant `json:"variants"`
	}
	if err := p.Decode(&v); err != nil {
		return nil, err
	}
	return v.Variants, nil
}

// Theme is a storefront theme.
type Theme struct{ Model }

// Theme roles.
const (
	ThemeRoleMain        = "main"
	ThemeRoleUnpublished = "unpublished"
	ThemeRoleDemo        = "demo"
)

// NewTheme returns an unsaved theme with the given attributes.
func NewTheme(attrs map[string]any) *Theme {
	t := &Theme{}
	t.bind(themeDescriptor)
	t.Fill(attrs)
	return t
}

func (*Theme) Descriptor() Descriptor { return themeDescriptor }

func (t *Theme) Name() string { return t.GetString("name") }
func (t *Theme) SetName(name string) { t.Set("name", name) }
func (t *Theme) Role() string { return t.GetString("role") }
func (t *Theme) SetRole(role string) { t.Set("role", role) }
func (t *Theme) Previewable() bool { return t.GetBool("previewable") }
func (t *Theme) IsMain() bool { return t.Role() == ThemeRoleMain }

// Asset is a file inside a theme. Its identifier is the key attribute,
// e.g. "templates/index.liquid".
type Asset struct{ Model }

// NewAsset returns an unsaved asset with the given key and text value.
func NewAsset(key, value string) *Asset {
	a := &Asset{}
	a.bind(assetDescriptor)
	a.SetKey(key)
	if value != "" {
		a.SetValue(value)
	}
	return a
}

func (*Asset) Descriptor() Descriptor { return assetDescriptor }

func (a *Asset) Key() string { return a.GetString("key") }
func (a *Asset) SetKey(key string) { a.Set("key", key) }
func (a *Asset) Value() string { return a.GetString("value") }
func (a *Asset) SetValue(value string) { a.Set("value", value) }
func (a *Asset) Attachment() string { return a.GetString("attachment") }
func (a *Asset) SetAttachment(b64 string) { a.Set("attachment", b64) }
func (a *Asset) ContentType() string { return a.GetString("content_type") }
func (a *Asset) PublicURL() string { return a.GetString("public_url") }

// ThemeID returns the owning theme id, or 0 when unknown.
func (a *Asset) ThemeID() int64 {
	n, _ := a.GetInt64("theme_id")
	return n
}

// Size returns the asset size in bytes.
func (a *Asset) Size() int64 {
	n, _ := a.GetInt64("size")
	return n
}
