package auth

import "context"

// Identity is the trusted caller identity derived from a verified bearer
// credential. It lives only in the request context that produced it.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	Claims        map[string]any
}

type contextKey string

const identityContextKey contextKey = "mandi.identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityContextKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
