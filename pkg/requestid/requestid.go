// Package requestid carries the inbound request id through contexts so that
// audit entries and logs written off the request goroutine can still name it.
package requestid

import "context"

type ctxKey struct{}

const Header = "X-Request-ID"

func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
