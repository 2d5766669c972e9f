// Package metadata extracts best-effort client identity (IP, browser)
// from incoming requests and attaches it to the request context.
package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"otpgate/pkg/requestcontext"
)

// MaxForwardedHeaderLength is the maximum accepted length for
// X-Forwarded-For / X-Real-IP headers; longer values are ignored.
const MaxForwardedHeaderLength = 500

// Config holds configuration for the metadata middleware.
type Config struct {
	// TrustedProxies is a list of IP prefixes (CIDR notation) that are trusted
	// to set X-Forwarded-For headers. If empty, forwarding headers are never trusted.
	TrustedProxies []netip.Prefix
}

// ParsePrefixes converts CIDR strings into prefixes, skipping invalid entries.
func ParsePrefixes(cidrs []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(strings.TrimSpace(c)); err == nil {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

// Middleware handles client metadata extraction with configurable trusted proxies.
type Middleware struct {
	config *Config
}

// NewMiddleware creates a new metadata middleware with the given config.
func NewMiddleware(cfg *Config) *Middleware {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Middleware{config: cfg}
}

// Handler extracts the client IP and user-agent from the request and
// adds them to the context for the guard services and audit events.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := requestcontext.ClientMetadata{
			IP:        m.extractClientIP(r),
			UserAgent: r.Header.Get("User-Agent"),
		}
		if meta.UserAgent != "" {
			ua := useragent.New(meta.UserAgent)
			meta.Browser, _ = ua.Browser()
			meta.OS = ua.OS()
		}

		ctx := requestcontext.WithClientMetadata(r.Context(), meta)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractClientIP resolves the client IP, preferring the first
// X-Forwarded-For segment, then X-Real-IP, then the connection address.
// Forwarding headers are honored only when the direct peer is a trusted
// proxy. "unknown" is returned when nothing can be determined.
func (m *Middleware) extractClientIP(r *http.Request) string {
	remoteIP := parseRemoteAddr(r.RemoteAddr)
	if remoteIP == "" && r.Header.Get("X-Forwarded-For") == "" && r.Header.Get("X-Real-IP") == "" {
		return "unknown"
	}

	if !m.isTrustedProxy(remoteIP) {
		if remoteIP == "" {
			return "unknown"
		}
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && len(xff) <= MaxForwardedHeaderLength {
		var clientIP string
		if before, _, ok := strings.Cut(xff, ","); ok {
			clientIP = strings.TrimSpace(before)
		} else {
			clientIP = strings.TrimSpace(xff)
		}
		if _, err := netip.ParseAddr(clientIP); err == nil {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" && len(xri) <= MaxForwardedHeaderLength {
		clientIP := strings.TrimSpace(xri)
		if _, err := netip.ParseAddr(clientIP); err == nil {
			return clientIP
		}
	}

	if remoteIP == "" {
		return "unknown"
	}
	return remoteIP
}

// isTrustedProxy checks if the given IP is in the trusted proxy list.
func (m *Middleware) isTrustedProxy(ip string) bool {
	if len(m.config.TrustedProxies) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, prefix := range m.config.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseRemoteAddr extracts the IP from RemoteAddr (strips port).
func parseRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}

	// Handle IPv6 with brackets: [::1]:port
	if strings.HasPrefix(remoteAddr, "[") {
		if idx := strings.LastIndex(remoteAddr, "]:"); idx != -1 {
			return remoteAddr[1:idx]
		}
		return strings.Trim(strings.Split(remoteAddr, "]:")[0], "[]")
	}

	// Handle IPv4: 127.0.0.1:port
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return remoteAddr[:idx]
	}

	return remoteAddr
}
