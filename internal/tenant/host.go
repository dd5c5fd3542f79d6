package tenant

import (
	"net"
	"net/http"
	"strings"
)

// RequestHost returns the normalized hostname of r, preferring the first value
// of X-Forwarded-Host over Host.
func RequestHost(r *http.Request) string {
	raw := ""
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		raw = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if raw == "" {
		raw = r.Host
	}
	return NormalizeHost(raw)
}

// NormalizeHost lowercases raw and strips any port and trailing dot.
// Bracketed and bare IPv6 literals are handled.
func NormalizeHost(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	host := raw
	if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	} else if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		host = raw[1 : len(raw)-1]
	}
	return strings.TrimSuffix(host, ".")
}

// Eligible reports whether host may be mapped to a tenant. localhost, its
// subdomains and IP literals never resolve.
func Eligible(host string) bool {
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	return net.ParseIP(host) == nil
}
