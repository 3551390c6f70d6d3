package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medcontent-subscription/internal/infra/logging"
)

const RoleAdmin = "admin"

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// Claims carry the caller's user id in Subject.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens issued by the account service.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Mint issues a token for userID. Used by tooling and tests.
func (a *Authenticator) Mint(userID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) ParseFromRequest(r *http.Request) (*Claims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errMissingToken
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *Authenticator) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

type userCtxKey struct{}

type caller struct {
	userID int64
	role   string
}

// RequireUser rejects requests without a valid token whose subject is a user id.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error(), Kind: "unauthorized"})
			return
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errInvalidToken.Error(), Kind: "unauthorized"})
			return
		}
		ctx := context.WithValue(r.Context(), userCtxKey{}, caller{userID: id, role: claims.Role})
		ctx = logging.WithUserID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := r.Context().Value(userCtxKey{}).(caller)
		if !ok || c.role != RoleAdmin {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required", Kind: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserID returns the authenticated caller.
func UserID(ctx context.Context) (int64, bool) {
	c, ok := ctx.Value(userCtxKey{}).(caller)
	return c.userID, ok
}
