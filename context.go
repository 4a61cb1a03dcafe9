package sessionauth

import "context"

// clientMeta is the per-request caller information the engine stamps on
// sessions and audit entries.
type clientMeta struct {
	ip        string
	userAgent string
}

type clientMetaKey struct{}

func clientFrom(ctx context.Context) clientMeta {
	if ctx == nil {
		return clientMeta{}
	}
	m, _ := ctx.Value(clientMetaKey{}).(clientMeta)
	return m
}

// WithClientIP records the caller's address. It feeds per-IP rate limiting,
// session metadata and audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	m := clientFrom(ctx)
	m.ip = ip
	return context.WithValue(ctx, clientMetaKey{}, m)
}

// WithUserAgent records the raw User-Agent; sessions derive their device
// label from it.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	m := clientFrom(ctx)
	m.userAgent = userAgent
	return context.WithValue(ctx, clientMetaKey{}, m)
}

func clientIPFromContext(ctx context.Context) string  { return clientFrom(ctx).ip }
func userAgentFromContext(ctx context.Context) string { return clientFrom(ctx).userAgent }
