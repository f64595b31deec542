package shopify

import (
	"sort"
	"strings"
)

// ResourceType names one entry of the fixed resource registry.
type ResourceType string

const (
	ResourceOrders   ResourceType = "orders"
	ResourceProducts ResourceType = "products"
	ResourceThemes   ResourceType = "themes"
	ResourceAssets   ResourceType = "assets"
)

// Descriptor describes how a resource type is addressed and wrapped on the wire.
type Descriptor struct {
	Type ResourceType
	// Template is the path below the namespace. Each "%s" is filled with
	// one path parameter, e.g. the owning theme id for assets.
	Template string
	// Singular and Plural are the JSON envelope keys of single-object and
	// collection responses.
	Singular string
	Plural   string
	// Identifier is the attribute holding the primary key.
	Identifier string
}

// Placeholders returns how many path parameters the template needs.
func (d Descriptor) Placeholders() int {
	return strings.Count(d.Template, "%s")
}

var (
	orderDescriptor = Descriptor{
		Type: ResourceOrders, Template: "orders",
		Singular: "order", Plural: "orders", Identifier: "id",
	}
	productDescriptor = Descriptor{
		Type: ResourceProducts, Template: "products",
		Singular: "product", Plural: "products", Identifier: "id",
	}
	themeDescriptor = Descriptor{
		Type: ResourceThemes, Template: "themes",
		Singular: "theme", Plural: "themes", Identifier: "id",
	}
	assetDescriptor = Descriptor{
		Type: ResourceAssets, Template: "themes/%s/assets",
		Singular: "asset", Plural: "assets", Identifier: "key",
	}
)

type registration struct {
	desc     Descriptor
	newModel func() Record
}

var registry = map[ResourceType]registration{
	ResourceOrders:   {orderDescriptor, func() Record { return &Order{} }},
	ResourceProducts: {productDescriptor, func() Record { return &Product{} }},
	ResourceThemes:   {themeDescriptor, func() Record { return &Theme{} }},
	ResourceAssets:   {assetDescriptor, func() Record { return &Asset{} }},
}

// Lookup returns the descriptor registered for a resource type.
func Lookup(t ResourceType) (Descriptor, bool) {
	reg, ok := registry[t]
	return reg.desc, ok
}

// ResourceTypes lists the registered resource types in name order.
func ResourceTypes() []ResourceType {
	out := make([]ResourceType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
