package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rtlab-dashboard/internal/domain"
)

// SessionLifetime is the fixed lifetime of a signed session token.
const SessionLifetime = 12 * time.Hour

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "rtlab_session"

// SessionClaims are the JWT claims embedded in the session token.
type SessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SessionCodec signs and verifies compact session tokens. Pure, no I/O.
type SessionCodec struct {
	secret []byte
}

// NewSessionCodec creates a codec bound to the server signing secret.
func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret)}
}

// Sign encodes username and role into an HS256-signed token with issue and
// expiry timestamps.
func (sc *SessionCodec) Sign(username, role string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sc.secret)
}

// Verify validates signature and expiry and returns the embedded session, or
// nil on any mismatch, corruption or expiry. It never returns an error;
// callers treat nil as unauthenticated.
func (sc *SessionCodec) Verify(tokenString string) *domain.Session {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return sc.secret, nil
	})
	if err != nil {
		return nil
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil
	}
	if claims.Username == "" || (claims.Role != domain.RoleAdmin && claims.Role != domain.RoleViewer) {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	return &domain.Session{
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

// NewSessionCookie builds the HTTP-only session cookie issued at login.
func NewSessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionLifetime.Seconds()),
	}
}

// ClearSessionCookie builds the cookie that deletes the session client-side,
// used at logout and on verification failure.
func ClearSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}
