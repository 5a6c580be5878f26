package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	rejectedKey
)

// Middleware resolves the optional bearer token. A missing or bad token leaves the request
// anonymous; handlers that need a user refuse it themselves.
func Middleware(tokens *Tokens, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			if raw == "" || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := tokens.Parse(raw)
			ctx := r.Context()
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected, continuing anonymously")
				ctx = context.WithValue(ctx, rejectedKey, true)
			} else {
				ctx = WithIdentity(ctx, identity)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func FromContext(ctx context.Context) domain.Identity {
	if identity, ok := ctx.Value(identityKey).(domain.Identity); ok {
		return identity
	}
	return domain.Anonymous()
}

// TokenRejected reports whether the request carried a token that failed verification.
func TokenRejected(ctx context.Context) bool {
	rejected, _ := ctx.Value(rejectedKey).(bool)
	return rejected
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
