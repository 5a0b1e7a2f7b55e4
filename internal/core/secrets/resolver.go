// Package secrets defines the capability the merge engine uses to pull
// credential values out of an external store. The engine only depends on the
// Resolver interface; concrete backends live in infrastructure.
package secrets

import "errors"

// ErrNotFound is returned by resolvers when no secret exists for the given
// service and account. Backends must return it (possibly wrapped) so callers
// can distinguish a missing entry from a broken store.
var ErrNotFound = errors.New("secret not found")

// Resolver looks up one secret. Implementations may block; timeouts and
// retries are the implementation's concern.
type Resolver interface {
	Lookup(service, account string) (string, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(service, account string) (string, error)

func (f ResolverFunc) Lookup(service, account string) (string, error) {
	return f(service, account)
}

// Disabled returns the resolver used when no backend is configured: every
// lookup reports ErrNotFound.
func Disabled() Resolver {
	return ResolverFunc(func(service, account string) (string, error) {
		return "", ErrNotFound
	})
}
