// Package identity answers who the current user is and whether they may
// persist changes.
package identity

import (
	"context"
	"net/http"
	"strings"
)

// HeaderUserID carries the caller's user id on API requests.
const HeaderUserID = "X-User-Id"

// Provider supplies the current user id. ok is false for anonymous callers.
type Provider interface {
	CurrentUserID() (id string, ok bool)
}

// Static is a Provider with a fixed user id.
type Static string

// CurrentUserID returns the fixed id.
func (s Static) CurrentUserID() (string, bool) {
	id := strings.TrimSpace(string(s))
	return id, id != ""
}

// Policy decides who counts as an administrator.
type Policy struct {
	// AdminID is the single user allowed to save and import. An empty
	// AdminID makes every caller, including anonymous ones, an admin.
	AdminID string
}

// IsAdmin reports whether userID is the administrator.
func (p Policy) IsAdmin(userID string) bool {
	admin := strings.TrimSpace(p.AdminID)
	if admin == "" {
		return true
	}
	return strings.TrimSpace(userID) == admin
}

// Check resolves the provider's user and applies the policy.
func (p Policy) Check(provider Provider) (userID string, admin bool) {
	if provider != nil {
		userID, _ = provider.CurrentUserID()
	}
	return userID, p.IsAdmin(userID)
}

type contextKey struct{}

// WithUser stores a user id on ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, strings.TrimSpace(userID))
}

// FromContext is a Provider reading the id stored by WithUser.
type FromContext struct{ Ctx context.Context }

// CurrentUserID returns the id stored on the context.
func (f FromContext) CurrentUserID() (string, bool) {
	if f.Ctx == nil {
		return "", false
	}
	id, _ := f.Ctx.Value(contextKey{}).(string)
	return id, id != ""
}

// Middleware copies the X-User-Id header into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(HeaderUserID); id != "" {
			r = r.WithContext(WithUser(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
