package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-rag/internal/pkg/jwtutil"
)

const testSecret = "test-secret"

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AuthJWT(testSecret), RequireRole("admin"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUsernameKey))
	})
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthJWT(t *testing.T) {
	r := newProtectedRouter()

	adminToken, err := jwtutil.GenerateToken(testSecret, time.Hour, "alice", "admin")
	require.NoError(t, err)
	viewerToken, err := jwtutil.GenerateToken(testSecret, time.Hour, "bob", "viewer")
	require.NoError(t, err)
	otherSecret, err := jwtutil.GenerateToken("other", time.Hour, "alice", "admin")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + otherSecret, http.StatusUnauthorized},
		{"wrong role", "Bearer " + viewerToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.header)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w := serve(r, "Bearer "+adminToken)
	assert.Equal(t, "alice", w.Body.String())
}
