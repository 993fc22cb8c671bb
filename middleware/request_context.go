package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mssp-stack/portal-backend/audit"
)

// contextKey is a private type so context values cannot collide with keys
// set by other packages
type contextKey string

const (
	actorContextKey  contextKey = "actor"
	loggerContextKey contextKey = "auditLogger"
)

// RequestContext extracts the acting user from each request and binds a
// request-scoped audit logger into the context. Authentication is enforced
// upstream at the gateway; this middleware only establishes identity for the
// audit trail, so requests without a usable token still pass through, they
// are just recorded as anonymous.
type RequestContext struct {
	audit     *audit.Service
	jwtSecret []byte
}

// NewRequestContext creates the middleware. The session token secret comes
// from SESSION_JWT_SECRET; when unset, token parsing is disabled and only the
// identity headers are honored.
func NewRequestContext(auditService *audit.Service) *RequestContext {
	var secret []byte
	if s := os.Getenv("SESSION_JWT_SECRET"); s != "" {
		secret = []byte(s)
	} else {
		slog.Warn("SESSION_JWT_SECRET is not set, session tokens will not be parsed")
	}
	return &RequestContext{audit: auditService, jwtSecret: secret}
}

// Middleware wraps a handler with actor extraction and logger injection
func (m *RequestContext) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := m.extractActor(r)
		logger := m.audit.NewLogger(actor)

		ctx := context.WithValue(r.Context(), actorContextKey, actor)
		ctx = context.WithValue(ctx, loggerContextKey, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActor returns the actor extracted for this request. The zero Actor is
// returned for contexts that never passed through the middleware.
func GetActor(ctx context.Context) audit.Actor {
	if actor, ok := ctx.Value(actorContextKey).(audit.Actor); ok {
		return actor
	}
	return audit.Actor{}
}

// GetLogger returns the request-scoped audit logger, or nil when the context
// never passed through the middleware. Services treat a nil logger as
// "do not audit".
func GetLogger(ctx context.Context) *audit.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*audit.Logger); ok {
		return logger
	}
	return nil
}

// extractActor builds the actor record from the session token, falling back
// to the identity headers used by internal service calls
func (m *RequestContext) extractActor(r *http.Request) audit.Actor {
	actor := audit.Actor{}

	if ip := extractIPAddress(r); ip != "" {
		actor.IPAddress = &ip
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		actor.UserAgent = &ua
	}

	if token := bearerToken(r); token != "" && m.jwtSecret != nil {
		if userID, sessionID, err := m.parseSessionToken(token); err != nil {
			slog.Warn("Failed to parse session token", "error", err, "path", r.URL.Path)
		} else {
			actor.UserID = userID
			actor.SessionID = sessionID
			return actor
		}
	}

	// Identity headers are set by internal services calling on a user's behalf
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			actor.UserID = &parsed
		} else {
			slog.Warn("Ignoring malformed X-User-ID header", "value", userID)
		}
	}
	if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
		actor.SessionID = &sessionID
	}
	return actor
}

// parseSessionToken verifies an HS256 session token and pulls the user and
// session identifiers from its claims
func (m *RequestContext) parseSessionToken(tokenString string) (*uuid.UUID, *string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, nil, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, nil, fmt.Errorf("subject (sub) claim is missing")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, nil, fmt.Errorf("subject (sub) claim is not a user ID: %w", err)
	}

	var sessionID *string
	if sid, ok := claims["sid"].(string); ok && sid != "" {
		sessionID = &sid
	}
	return &userID, sessionID, nil
}

// bearerToken pulls the token out of the Authorization header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// extractIPAddress extracts the client IP address from the request
func extractIPAddress(r *http.Request) string {
	// Check forwarded headers first (for load balancers/proxies)
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		if idx := strings.Index(ip, ","); idx != -1 {
			ip = ip[:idx]
		}
		return strings.TrimSpace(ip)
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	// Fall back to RemoteAddr, which is in "IP:port" form
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
