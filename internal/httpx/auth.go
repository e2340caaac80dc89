package httpx

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/account"
	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
)

const actorKey = "actor"

var (
	ErrBadToken     = apperr.New(apperr.KindUnauthenticated, "invalid_token", "invalid or expired token")
	ErrSignInNeeded = apperr.New(apperr.KindUnauthenticated, "", "sign in required")
)

type accountLookup interface {
	GetByID(ctx context.Context, id int64) (*account.Account, error)
}

// Authenticate resolves the bearer token into an Actor. Requests without a
// token continue as guests. The subject claim is the account id; role and
// status are read fresh from the account directory so a suspended seller
// loses write access immediately.
func Authenticate(secret []byte, accounts accountLookup) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyfunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Set(actorKey, actor.Guest())
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || len(secret) == 0 {
			Abort(c, ErrBadToken)
			return
		}

		claims := &jwt.RegisteredClaims{}
		if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, keyfunc); err != nil {
			LoggerFrom(c).Debug("token rejected", zap.Error(err))
			Abort(c, ErrBadToken)
			return
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || id <= 0 {
			Abort(c, ErrBadToken)
			return
		}
		acc, err := accounts.GetByID(c.Request.Context(), id)
		if errors.Is(err, account.ErrNotFound) {
			Abort(c, ErrBadToken)
			return
		}
		if err != nil {
			Abort(c, err)
			return
		}
		c.Set(actorKey, acc.Actor())
		c.Next()
	}
}

// RequireAccount rejects guests.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ActorFrom(c).AccountID(); !ok {
			Abort(c, ErrSignInNeeded)
			return
		}
		c.Next()
	}
}

func ActorFrom(c *gin.Context) actor.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(actor.Actor); ok {
			return a
		}
	}
	return actor.Guest()
}

// SignToken issues an HS256 token for accountID. Used by tooling and tests.
func SignToken(secret []byte, accountID int64, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = strconv.FormatInt(accountID, 10)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
