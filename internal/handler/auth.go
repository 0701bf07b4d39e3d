package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shop-api/internal/domain/apperr"
	"github.com/xenking/shop-api/internal/domain/auth"
)

var errMissingToken = apperr.Unauthorized("missing bearer token")

// authenticate rejects requests without a valid bearer token and stores the
// caller's id in the request context.
func (h *Handler) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, errMissingToken)
			return
		}
		claims, err := h.tokens.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := auth.WithUserID(r.Context(), userID)
		ctx = zctx.With(ctx, zap.Int64("user_id", userID))
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// callerID returns the authenticated user id. Routes behind authenticate
// always have one.
func callerID(r *http.Request) int64 {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
