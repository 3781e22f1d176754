package circles

import "context"

type userKey struct{}

// WithUser attaches the authenticated caller to ctx
func WithUser(ctx context.Context, user CurrentUser) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the caller placed in ctx by the auth middleware
func UserFrom(ctx context.Context) (CurrentUser, bool) {
	user, ok := ctx.Value(userKey{}).(CurrentUser)
	return user, ok && user.ID != ""
}
