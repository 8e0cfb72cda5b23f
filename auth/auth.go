// Package auth carries the pre-authenticated caller identity through context.
// Who authenticates the caller is a transport concern; the core only ever
// reads the identity back out.
package auth

import (
	"context"

	"github.com/ridematch/ridematch/types"
)

var ctxKeyUser = struct{ name string }{name: "ctx-key-user"}

func ContextWithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(types.User)
	return user, ok
}
