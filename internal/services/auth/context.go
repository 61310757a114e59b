package auth

import "context"

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

// Identity is the authenticated Telegram user attached to a request context.
type Identity struct {
	UserID   int64
	Username string
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
