package graph

import "context"

// TokenSource supplies bearer tokens for Graph requests. Token acquisition
// (silent refresh, interactive fallback) belongs to the identity-provider SDK
// on the other side of this interface; the client only asks for a usable
// token per request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a plain function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticTokenSource returns a TokenSource that always yields the same token.
// Intended for tests and short-lived tooling, not for production use where
// tokens expire.
func StaticTokenSource(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) { return token, nil })
}
