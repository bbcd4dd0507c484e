package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/services"
	"daycare-backend-go/internal/session"
)

type contextKey string

const (
	ctxSession contextKey = "session"
	ctxTokenID contextKey = "tokenID"
)

// WithSession requires a valid bearer token and stores the session in the
// request context. The account is reloaded on every request, so role changes
// and deletions apply to tokens already issued.
func WithSession(q db.Querier, tokenService services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			sess, jti, err := tokenService.ResolveSession(r.Context(), q, tokenStr)
			if err != nil && !services.IsInvalidToken(err) {
				writeServiceError(w, r, err)
				return
			}
			if err != nil || !sess.Authenticated() {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			ctx := context.WithValue(r.Context(), ctxSession, sess)
			ctx = context.WithValue(ctx, ctxTokenID, jti)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return token, token != ""
}

// RequireScrapeToken guards the metrics endpoint with a static bearer token.
func RequireScrapeToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CurrentSession(r *http.Request) session.Session {
	if value, ok := r.Context().Value(ctxSession).(session.Session); ok {
		return value
	}
	return session.Anonymous()
}

func currentTokenID(r *http.Request) string {
	if value, ok := r.Context().Value(ctxTokenID).(string); ok {
		return value
	}
	return ""
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return RequireAnyRole(role)
}

func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[strings.ToLower(role)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := CurrentSession(r)
			if sess.Authenticated() && allowed[strings.ToLower(sess.Role)] {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, http.StatusForbidden, "Not allowed")
		})
	}
}
