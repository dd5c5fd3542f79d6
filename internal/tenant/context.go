// Package tenant resolves the tenant a request belongs to and threads it
// through the request context.
package tenant

import "context"

// Source records which input resolved the tenant.
type Source string

const (
	SourceHeader Source = "header"
	SourceCookie Source = "cookie"
	SourceHost   Source = "host"
	SourceNone   Source = "none"
)

// Context is the per-request tenant identity. A nil TenantID is the default
// tenant (no scoping), a legitimate outcome. Values are never mutated after
// resolution; pass by value.
type Context struct {
	TenantID *string
	Source   Source
	// Host is the normalized hostname used for host-based resolution, if any.
	Host string
}

// None is the unscoped tenant context.
func None() Context {
	return Context{Source: SourceNone}
}

// ID returns the tenant id or "" for the default tenant.
func (c Context) ID() string {
	if c.TenantID == nil {
		return ""
	}
	return *c.TenantID
}

// IsScoped reports whether a tenant was resolved.
func (c Context) IsScoped() bool {
	return c.TenantID != nil
}

func newContext(id string, source Source, host string) Context {
	v := id
	return Context{TenantID: &v, Source: source, Host: host}
}

type contextKey struct{}

// WithContext attaches tc to ctx. The first attachment wins; later calls
// return ctx unchanged so the tenant cannot change mid-request.
func WithContext(ctx context.Context, tc Context) context.Context {
	if _, ok := FromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the tenant attached by WithContext.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}
