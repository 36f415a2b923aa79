package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AuthCookieName = "auth_token"
	TokenTTL       = 24 * time.Hour
)

type userIDKey struct{}

// Claims: JWT-утверждения с идентификатором сотрудника.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint `json:"user_id"`
}

// IssueToken создаёт подписанный HS256 токен для userID.
func IssueToken(userID uint, secret string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		UserID: userID,
	})
	return token.SignedString([]byte(secret))
}

// ParseToken проверяет подпись и срок действия токена.
func ParseToken(tokenString, secret string) (uint, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, errors.New("invalid token")
	}
	return claims.UserID, nil
}

// SetLoginCookie выпускает токен и кладёт его в cookie ответа.
func SetLoginCookie(w http.ResponseWriter, userID uint, secret string) error {
	token, err := IssueToken(userID, secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(TokenTTL),
	})
	return nil
}

// WithAuth кладёт user_id в контекст, если запрос несёт валидный токен
// (Authorization: Bearer или cookie). Анонимные запросы проходят дальше.
func WithAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				if c, err := r.Cookie(AuthCookieName); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			uid, err := ParseToken(raw, secret)
			if err != nil {
				sugar.Debugw("ignoring invalid token", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, uid)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// GetUserIDFromContext возвращает id сотрудника, если запрос аутентифицирован.
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	uid, ok := ctx.Value(userIDKey{}).(uint)
	return uid, ok
}
