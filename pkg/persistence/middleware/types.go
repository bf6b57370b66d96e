// Package middleware wraps session stores to change what reaches the backend.
package middleware

import "github.com/aretw0/journey/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Wrap applies mws to store. The first middleware is the outermost.
func Wrap(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
