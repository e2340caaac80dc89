package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/account"
	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	gin.DefaultErrorWriter = io.Discard
}

var secret = []byte("test-secret")

type directory map[int64]account.Account

func (d directory) GetByID(_ context.Context, id int64) (*account.Account, error) {
	if id == 500 {
		return nil, errors.New("directory unavailable")
	}
	a, ok := d[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &a, nil
}

var accounts = directory{
	1: {ID: 1, Role: account.RoleAdmin, Status: actor.StatusActive},
	2: {ID: 2, Role: account.RoleSeller, Status: actor.StatusSuspended},
	4: {ID: 4, Role: account.RoleCustomer, Status: actor.StatusActive},
}

func whoami() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(zap.NewNop()), Authenticate(secret, accounts))
	r.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, ActorFrom(c)) })
	r.GET("/private", RequireAccount(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func call(t *testing.T, r http.Handler, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, id int64, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := SignToken(secret, id, claims)
	require.NoError(t, err)
	return "Bearer " + tok
}

func decodeActor(t *testing.T, w *httptest.ResponseRecorder) actor.Actor {
	t.Helper()
	var a actor.Actor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	return a
}

func TestAuthenticate_GuestWithoutHeader(t *testing.T) {
	w := call(t, whoami(), "/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeActor(t, w).IsGuest())

	w = call(t, whoami(), "/private", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_ResolvesRoleFromDirectory(t *testing.T) {
	w := call(t, whoami(), "/me", bearer(t, 2, jwt.RegisteredClaims{}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, actor.Seller(2, actor.StatusSuspended), decodeActor(t, w))

	w = call(t, whoami(), "/me", bearer(t, 1, jwt.RegisteredClaims{}))
	assert.Equal(t, actor.Admin(1), decodeActor(t, w))

	w = call(t, whoami(), "/private", bearer(t, 4, jwt.RegisteredClaims{}))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthenticate_Rejections(t *testing.T) {
	expired := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}
	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "4"}).SignedString([]byte("other"))
	require.NoError(t, err)

	cases := map[string]string{
		"expired":      bearer(t, 4, expired),
		"unknown user": bearer(t, 77, jwt.RegisteredClaims{}),
		"wrong secret": "Bearer " + other,
		"not bearer":   "Basic dXNlcjpwYXNz",
		"garbage":      "Bearer abc.def.ghi",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := call(t, whoami(), "/me", header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "invalid_token", body.Error)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestAuthenticate_DirectoryFailure(t *testing.T) {
	w := call(t, whoami(), "/me", bearer(t, 500, jwt.RegisteredClaims{}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAbort_HidesUnclassifiedErrors(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { Abort(c, errors.New("pq: relation does not exist")) })
	r.GET("/gone", func(c *gin.Context) { Abort(c, apperr.NotFound("order not found")) })

	w := call(t, r, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation")

	w = call(t, r, "/gone", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "order not found")
}

func TestPage(t *testing.T) {
	r := gin.New()
	r.GET("/p", func(c *gin.Context) {
		limit, offset := Page(c)
		c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset})
	})
	for query, want := range map[string]string{
		"":                   `{"limit":20,"offset":0}`,
		"?limit=5&offset=10": `{"limit":5,"offset":10}`,
		"?limit=500":         `{"limit":20,"offset":0}`,
		"?limit=x&offset=-3": `{"limit":20,"offset":0}`,
	} {
		assert.JSONEq(t, want, call(t, r, "/p"+query, "").Body.String(), query)
	}
}
