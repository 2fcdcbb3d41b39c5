package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"
	"github.com/haierkeys/page-notes-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "middleware-test-secret"

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		app.NewResponse(c).ToResponse(code.Success.WithData(app.GetUID(c)))
	})
	r.POST("/t", handlers...)
	r.GET("/t", handlers...)
	return r
}

func do(t *testing.T, r http.Handler, req *http.Request) app.Res {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var res app.Res
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestUserAuthAndNonce(t *testing.T) {
	tm := app.NewTokenManager(app.TokenConfig{SecretKey: testSecret})
	token, err := tm.Generate(7, "seven", "127.0.0.1")
	require.NoError(t, err)
	otherToken, err := tm.Generate(8, "eight", "127.0.0.1")
	require.NoError(t, err)
	nonce, _, err := tm.GenerateNonce(7)
	require.NoError(t, err)

	r := newEngine(UserAuthTokenWithConfig(testSecret), RequestNonce(tm))

	tests := []struct {
		name     string
		token    string
		nonce    string
		wantCode int
	}{
		{"no token", "", nonce, code.ErrorNotUserAuthToken.Code()},
		{"bad token", "garbage", nonce, code.ErrorInvalidUserAuthToken.Code()},
		{"missing nonce", "Bearer " + token, "", code.ErrorInvalidRequestNonce.Code()},
		{"forged nonce", token, "forged", code.ErrorInvalidRequestNonce.Code()},
		{"nonce of other user", otherToken, nonce, code.ErrorInvalidRequestNonce.Code()},
		{"token as nonce", token, token, code.ErrorInvalidRequestNonce.Code()},
		{"ok", "Bearer " + token, nonce, code.Success.Code()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/t", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			if tt.nonce != "" {
				req.Header.Set(RequestNonceHeader, tt.nonce)
			}
			res := do(t, r, req)
			assert.Equal(t, tt.wantCode, res.Code)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	tm := app.NewTokenManager(app.TokenConfig{SecretKey: testSecret})
	admin, _ := tm.Generate(1, "admin", "")
	user, _ := tm.Generate(2, "user", "")

	r := newEngine(UserAuthTokenWithConfig(testSecret), AdminOnly(1))

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Token", admin)
	assert.Equal(t, code.Success.Code(), do(t, r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/t?token="+user, nil)
	assert.Equal(t, code.ErrorUserIsNotAdmin.Code(), do(t, r, req).Code)

	disabled := newEngine(UserAuthTokenWithConfig(testSecret), AdminOnly(0))
	req = httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Token", admin)
	assert.Equal(t, code.ErrorUserIsNotAdmin.Code(), do(t, disabled, req).Code)
}

func TestNotesEnabled(t *testing.T) {
	on := true
	r := newEngine(NotesEnabled(func() bool { return on }))

	assert.Equal(t, code.Success.Code(), do(t, r, httptest.NewRequest(http.MethodGet, "/t", nil)).Code)
	on = false
	assert.Equal(t, code.ErrorNotesDisabled.Code(), do(t, r, httptest.NewRequest(http.MethodGet, "/t", nil)).Code)
}

func TestRateLimiter(t *testing.T) {
	l := limiter.NewMethodLimiter().AddBuckets(limiter.BucketRule{Key: "GET /t", FillInterval: time.Hour, Capacity: 1, Quantum: 1})
	r := newEngine(RateLimiter(l))

	assert.Equal(t, code.Success.Code(), do(t, r, httptest.NewRequest(http.MethodGet, "/t", nil)).Code)
	assert.Equal(t, code.ErrorTooManyRequests.Code(), do(t, r, httptest.NewRequest(http.MethodGet, "/t", nil)).Code)
	// POST 没有令牌桶，不受限
	assert.Equal(t, code.Success.Code(), do(t, r, httptest.NewRequest(http.MethodPost, "/t", nil)).Code)
}

func TestTraceMiddleware(t *testing.T) {
	r := newEngine(TraceMiddlewareWithConfig(true, ""), func(c *gin.Context) {
		assert.NotEmpty(t, GetTraceIDFromGin(c))
		assert.Equal(t, GetTraceIDFromGin(c), GetTraceID(c.Request.Context()))
		c.Next()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.NotEmpty(t, w.Header().Get(DefaultTraceIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set(DefaultTraceIDHeader, "given-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given-id", w.Header().Get(DefaultTraceIDHeader))
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryWithLogger(zapNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	res := do(t, r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, code.ErrorServerInternal.Code(), res.Code)
}

func zapNop() *zap.Logger { return zap.NewNop() }

func TestServerHeaderAndNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ServerHeader("Page Notes Service", "1.2.3"))
	r.NoRoute(NotFound())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/missing", nil))

	assert.Equal(t, "Page Notes Service/1.2.3", w.Header().Get(HeaderServerVersion))
	var res app.Res
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, code.ErrorNotFoundAPI.Code(), res.Code)
	assert.Equal(t, "GET /api/missing", res.Details)
}
