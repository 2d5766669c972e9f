package metadata

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otpgate/pkg/requestcontext"
)

func extract(t *testing.T, cfg *Config, remoteAddr string, headers map[string]string) requestcontext.ClientMetadata {
	t.Helper()

	var got requestcontext.ClientMetadata
	handler := NewMiddleware(cfg).Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.Metadata(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in/send-otp", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestClientIPWithoutProxies(t *testing.T) {
	cfg := &Config{}

	meta := extract(t, cfg, "203.0.113.9:51234", map[string]string{
		"X-Forwarded-For": "198.51.100.1",
	})
	assert.Equal(t, "203.0.113.9", meta.IP, "XFF ignored when peer is not a trusted proxy")
}

func TestClientIPFromTrustedProxy(t *testing.T) {
	cfg := &Config{TrustedProxies: ParsePrefixes([]string{"10.0.0.0/8"})}

	t.Run("first XFF segment wins", func(t *testing.T) {
		meta := extract(t, cfg, "10.1.2.3:443", map[string]string{
			"X-Forwarded-For": "198.51.100.1, 10.1.2.3",
		})
		assert.Equal(t, "198.51.100.1", meta.IP)
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		meta := extract(t, cfg, "10.1.2.3:443", map[string]string{
			"X-Real-IP": "198.51.100.7",
		})
		assert.Equal(t, "198.51.100.7", meta.IP)
	})

	t.Run("malformed XFF falls back to peer address", func(t *testing.T) {
		meta := extract(t, cfg, "10.1.2.3:443", map[string]string{
			"X-Forwarded-For": "not-an-ip",
		})
		assert.Equal(t, "10.1.2.3", meta.IP)
	})

	t.Run("oversized header ignored", func(t *testing.T) {
		meta := extract(t, cfg, "10.1.2.3:443", map[string]string{
			"X-Forwarded-For": strings.Repeat("1", MaxForwardedHeaderLength+1),
		})
		assert.Equal(t, "10.1.2.3", meta.IP)
	})
}

func TestClientIPv6RemoteAddr(t *testing.T) {
	meta := extract(t, &Config{}, "[2001:db8::1]:8443", nil)
	assert.Equal(t, "2001:db8::1", meta.IP)
}

func TestUserAgentParsed(t *testing.T) {
	meta := extract(t, &Config{}, "203.0.113.9:1234", map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	})
	require.NotEmpty(t, meta.Browser)
	assert.Equal(t, "Chrome", meta.Browser)
}

func TestUnknownWhenNoAddress(t *testing.T) {
	meta := extract(t, &Config{}, "", nil)
	assert.Equal(t, "unknown", meta.IP)
}
