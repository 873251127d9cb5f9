package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestConfigAllowAllWhenEmpty(t *testing.T) {
	cfg := Config(nil)
	assert.True(t, cfg.AllowAllOrigins)
	assert.False(t, cfg.AllowCredentials)
}

func TestConfigTrimsOrigins(t *testing.T) {
	cfg := Config([]string{" https://lms.example.com/ ", ""})
	assert.Equal(t, []string{"https://lms.example.com"}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)
}

func TestNewRejectsUnknownOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(New([]string{"https://lms.example.com"}))
	router.GET("/courses", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set("Origin", "https://lms.example.com")
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://lms.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
