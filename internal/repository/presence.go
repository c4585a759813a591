package repository

import "context"

// PresenceRepository holds the global online-identity set in a shared store
// so multiple server processes can agree on who is online. Entries are a
// point-in-time approximation rebuilt from zero on restart; there is no
// durability requirement.
type PresenceRepository interface {
	// SetOnline upserts identity -> connection id. Re-registering the same
	// identity on a new connection overwrites the old mapping, so an
	// identity is never double-counted.
	SetOnline(ctx context.Context, identity, connID string) error

	// RemoveByConn deletes the entry whose mapped connection id equals
	// connID and returns the identity that went offline. A connection that
	// was never registered globally, or whose identity has since
	// re-registered on a newer connection, removes nothing.
	RemoveByConn(ctx context.Context, connID string) (identity string, removed bool, err error)

	// ListOnline returns the full current set of online identities.
	ListOnline(ctx context.Context) ([]string, error)
}
