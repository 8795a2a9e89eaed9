package authapi

import (
	"context"
	"net/http"
	"strings"

	"vidtube/cmd/identity"
)

type ctxKey int

const accountKey ctxKey = iota

// AccountFromContext returns the account attached by RequireAuth.
func AccountFromContext(ctx context.Context) (identity.AccountView, bool) {
	v, ok := ctx.Value(accountKey).(identity.AccountView)
	return v, ok
}

// WithAccount attaches v to ctx.
func WithAccount(ctx context.Context, v identity.AccountView) context.Context {
	return context.WithValue(ctx, accountKey, v)
}

// RequireAuth rejects requests without a valid access token. The token is
// read from the access cookie, else from "Authorization: Bearer".
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := h.cookieValue(r, h.cfg.AccessCookieName)
		if tok == "" {
			tok = bearerToken(r.Header.Get("Authorization"))
		}

		v, err := h.svc.Authenticate(r.Context(), tok)
		if err != nil {
			h.observe("authenticate", err)
			writeAppError(w, h.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), v)))
	})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
