package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"

func signToken(t *testing.T, key, role, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func runRequest(token string) (*httptest.ResponseRecorder, string) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var actor string
	handler := RequireAdminToken(testKey, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = GetAdminActor(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/admin/rate-limits/user@inpe.br", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, actor
}

func TestValidOpsToken(t *testing.T) {
	rec, actor := runRequest(signToken(t, testKey, AdminRole, "ops-alice"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops-alice", actor)
}

func TestMissingToken(t *testing.T) {
	rec, _ := runRequest("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWrongRole(t *testing.T) {
	rec, _ := runRequest(signToken(t, testKey, "viewer", "bob"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWrongKey(t *testing.T) {
	rec, _ := runRequest(signToken(t, "other-key", AdminRole, "mallory"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
