package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/internal/registry"
)

// CookieName is the identity cookie issued at signup and login.
const CookieName = "snapfold_id"

// CookieSigner signs and verifies identity cookie values. The cookie value
// is "<identity>.<hmac>" so a client cannot forge another folder's identity.
type CookieSigner struct {
	secret []byte
	secure bool
}

// NewCookieSigner creates a signer. An empty secret is replaced with a
// random one, which invalidates existing cookies across restarts.
func NewCookieSigner(secret string, secure bool) *CookieSigner {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &CookieSigner{secret: key, secure: secure}
}

// Sign returns the signed cookie value for an identity.
func (s *CookieSigner) Sign(identity string) string {
	return identity + "." + s.mac(identity)
}

// Verify extracts the identity from a signed cookie value.
func (s *CookieSigner) Verify(value string) (string, bool) {
	identity, sig, ok := strings.Cut(value, ".")
	if !ok || !domain.IsValidIdentity(identity) {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(identity))) {
		return "", false
	}
	return identity, true
}

func (s *CookieSigner) mac(identity string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(identity))
	return hex.EncodeToString(h.Sum(nil))
}

// SetCookie issues the identity cookie on a response.
func (s *CookieSigner) SetCookie(w http.ResponseWriter, identity string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Sign(identity),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the identity cookie on a response.
func (s *CookieSigner) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Auth verifies the identity cookie, resolves the live folder, and rejects
// expired or unknown folders. The folder entry is stored on the request
// context for handlers.
func Auth(signer *CookieSigner, reg *registry.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				writeAuthError(w, "SF-AUTH-4010", "authentication required")
				return
			}

			identity, ok := signer.Verify(cookie.Value)
			if !ok {
				signer.ClearCookie(w)
				writeAuthError(w, "SF-AUTH-4010", "invalid identity cookie")
				return
			}

			entry, err := reg.GetOrLoad(r.Context(), identity)
			if err != nil {
				signer.ClearCookie(w)
				writeAuthError(w, "SF-AUTH-4010", "unknown folder")
				return
			}
			if entry.IsExpired() {
				signer.ClearCookie(w)
				writeAuthError(w, "SF-AUTH-4010", "folder expired")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyFolder, entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FolderFromContext retrieves the authenticated folder from context.
func FolderFromContext(ctx context.Context) *registry.Folder {
	if f, ok := ctx.Value(ContextKeyFolder).(*registry.Folder); ok {
		return f
	}
	return nil
}

// writeAuthError writes an authentication error response.
func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(http.StatusUnauthorized)
	writeBody(w, map[string]string{
		"code":    code,
		"message": message,
	})
}
