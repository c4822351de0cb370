package redis

// NewWithCmdable wires a Client over an arbitrary command surface. Used by
// tests in other packages to run against an in-memory fake.
func NewWithCmdable(store cmdable) *Client {
	return &Client{store: store}
}
