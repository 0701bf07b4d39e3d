package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindEmptyCartSelection, apperr.KindInsufficientStock:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and a JSON body. Unclassified errors
// are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("error", func(e *jx.Encoder) { e.Str("internal server error") })
			})
		})
		return
	}

	msg := appErr.Msg
	if msg == "" {
		msg = appErr.Kind.String()
	}
	writeJSON(w, statusOf(appErr.Kind), func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
			e.Field("kind", func(e *jx.Encoder) { e.Str(appErr.Kind.String()) })
			if appErr.Field != "" {
				e.Field("field", func(e *jx.Encoder) { e.Str(appErr.Field) })
			}
			if appErr.ProductID != 0 {
				e.Field("product_id", func(e *jx.Encoder) { e.Int64(appErr.ProductID) })
			}
		})
	})
}
