package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/shop-api/internal/domain/user"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterRequest
	err := readObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "username":
			req.Username, err = readString(d, key)
		case "password":
			req.Password, err = readString(d, key)
		case "email":
			req.Email, err = readString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Int64(u.ID) })
			e.Field("message", func(e *jx.Encoder) { e.Str("registered") })
		})
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var username, password string
	err := readObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "username":
			username, err = readString(d, key)
		case "password":
			password, err = readString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.users.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("token", func(e *jx.Encoder) { e.Str(token) })
		})
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Profile(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Int64(u.ID) })
			e.Field("username", func(e *jx.Encoder) { e.Str(u.Username) })
			e.Field("email", func(e *jx.Encoder) { e.Str(u.Email) })
			e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, u.CreatedAt) })
		})
	})
}
