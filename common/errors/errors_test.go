package errors_test

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "storefront-service/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.Recovery(zap.NewNop()), apperrors.ErrorMiddleware(zap.NewNop()))
	return r
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestErrorMiddleware(t *testing.T) {
	r := newEngine()
	r.GET("/app", func(c *gin.Context) { _ = c.Error(apperrors.ErrServiceUnavailable) })
	r.GET("/plain", func(c *gin.Context) { _ = c.Error(stderrors.New("boom")) })
	r.GET("/written", func(c *gin.Context) {
		_ = c.Error(stderrors.New("ignored"))
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})

	w := serve(r, "/app")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"Service unavailable"}`, w.Body.String())

	w = serve(r, "/plain")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.Nil(t, apperrors.ErrInternalServer.Err, "shared error must not be mutated")

	w = serve(r, "/written")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRecovery(t *testing.T) {
	r := newEngine()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestError_Wrapping(t *testing.T) {
	cause := stderrors.New("redis down")
	err := apperrors.New(http.StatusServiceUnavailable, "Cache unavailable", cause)

	assert.Equal(t, "Cache unavailable: redis down", err.Error())
	assert.ErrorIs(t, err, cause)
}
