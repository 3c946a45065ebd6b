package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type staticChecker string

func (s staticChecker) AuthenticateControlToken(token string) bool {
	return token != "" && token == string(s)
}

func controlRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cmd", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestControlAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	POST(r, "/cmd", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}, RouteOpt{IsAuth: true, Checker: staticChecker("secret")})

	w := controlRequest(r, "secret")
	assert.Equal(t, http.StatusOK, w.Code)

	w = controlRequest(r, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Unauthorized"}`, w.Body.String())

	w = controlRequest(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestControlAuthTrimsWhitespace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	POST(r, "/cmd", func(c *gin.Context) {
		c.Status(http.StatusOK)
	}, RouteOpt{IsAuth: true, Checker: staticChecker("secret")})

	w := controlRequest(r, "  secret  ")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnauthenticatedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	GET(r, "/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	}, RouteOpt{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
