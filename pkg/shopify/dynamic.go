package shopify

// Dynamic selects resources by name at run time, for callers such as CLIs
// that only know the resource as a string. Each selection returns a new
// value, so a Dynamic can be shared freely.
type Dynamic struct {
	client *Client
	active *ResourceClient[Record]
}

// Dynamic returns a handle with no resource selected.
func (c *Client) Dynamic() Dynamic {
	return Dynamic{client: c}
}

// Property selects a resource without path parameters. An unknown name
// returns the receiver unchanged.
func (d Dynamic) Property(name string) Dynamic {
	rc, err := d.client.Select(ResourceType(name))
	if err != nil {
		return d
	}
	return Dynamic{client: d.client, active: rc}
}

// Call selects a resource and binds its path parameters. An unknown name
// fails with *UnknownOperationError and leaves the receiver as it was.
func (d Dynamic) Call(name string, params ...string) (Dynamic, error) {
	rc, err := d.client.Select(ResourceType(name), params...)
	if err != nil {
		return d, err
	}
	return Dynamic{client: d.client, active: rc}, nil
}

// Selected returns the selected resource type, if any.
func (d Dynamic) Selected() (ResourceType, bool) {
	if d.active == nil {
		return "", false
	}
	return d.active.desc.Type, true
}

// Resource returns the selected resource client.
func (d Dynamic) Resource() (*ResourceClient[Record], error) {
	if d.active == nil {
		return nil, ErrNoResource
	}
	return d.active, nil
}
