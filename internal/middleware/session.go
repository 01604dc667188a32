// internal/middleware/session.go
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"yatube/internal/models"
	"yatube/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// SessionCookieName carries the signed session token.
	SessionCookieName = "sessionid"

	// LoginPath is where anonymous users are sent from protected pages.
	LoginPath = "/auth/login/"

	tokenIssuer = "yatube"
)

// Claims represents the JWT claims of a session
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// UserLoader resolves the user behind a session.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// SessionManager signs session tokens and moves them in and out of cookies.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	Secure bool
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateToken creates a new JWT token for the given user ID
func (sm *SessionManager) GenerateToken(userID int64) (string, error) {
	now := sm.now()

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprint(userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sm.secret)
}

// ValidateToken validates the provided JWT token
func (sm *SessionManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return sm.secret, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidToken, "invalid session token", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, utils.NewAppError(utils.ErrInvalidToken, "invalid session token", errors.New("invalid token"))
}

// Login starts a session for user.
func (sm *SessionManager) Login(w http.ResponseWriter, user *models.User) error {
	token, err := sm.GenerateToken(user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sm.now().Add(sm.ttl),
		MaxAge:   int(sm.ttl / time.Second),
		HttpOnly: true,
		Secure:   sm.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout drops the session cookie.
func (sm *SessionManager) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate resolves the session cookie into a user stored in the request
// context. Requests without a valid session continue anonymously.
func (sm *SessionManager) Authenticate(users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := sm.ValidateToken(cookie.Value)
			if err != nil {
				logger.Debug("dropping invalid session", slog.Any("error", err))
				sm.Logout(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUser(r.Context(), claims.UserID)
			if err != nil {
				if !utils.IsNotFound(err) {
					logger.Error("failed to load session user", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
				}
				sm.Logout(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetUserInContext(r.Context(), user)))
		})
	}
}

// RequireLogin wraps a handler so anonymous users are redirected to the
// login page with the current path as next.
func RequireLogin(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		handler(w, r)
	}
}

// LoginURL builds the login redirect for next, keeping slashes readable.
func LoginURL(next string) string {
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext returns next when it is a local path, "" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}

// Define a custom context key type to avoid collisions
type contextKey string

const (
	userKey      contextKey = "user"
	requestIDKey contextKey = "request_id"
)

// SetUserInContext saves the authenticated user in the request context
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the context
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}
