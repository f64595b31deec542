// Package shopify is a typed client for the Shopify Admin REST API.
//
// A Client is bound to one shop and access token. Resources are reached
// through typed accessors, each returning an immutable ResourceClient:
//
//	c, err := shopify.New("acme", token, shopify.WithAPIVersion("2024-01"))
//	order, err := c.Orders().Find(ctx, "450789469")
//	order.SetNote("gift wrap")
//	_, err = c.Orders().Save(ctx, order, "")
//
// Nested resources take their parent ids up front:
//
//	assets, err := c.Assets(themeID).All(ctx, nil, "")
//
// Models keep the attributes last received from the server, so Save sends
// only what changed. Every response with status 400 or above is returned
// as a *ResponseError; Find turns a 404 into a *ModelNotFoundError.
package shopify
