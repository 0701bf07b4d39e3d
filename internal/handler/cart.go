package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

var errProductRequired = apperr.Validation("product_id", "is required")

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID int64
		quantity  = 1
	)
	err := readObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "product_id":
			productID, err = readInt64(d, key)
		case "quantity":
			quantity, err = readInt(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if productID == 0 {
		writeError(w, r, errProductRequired)
		return
	}

	if err := h.carts.Add(r.Context(), callerID(r), productID, quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "added to cart")
}

func (h *Handler) listCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.List(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, l := range lines {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Int64(l.ID) })
					e.Field("product_id", func(e *jx.Encoder) { e.Int64(l.ProductID) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
					e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
					e.Field("price", func(e *jx.Encoder) { encodeMoney(e, l.Price) })
					e.Field("stock", func(e *jx.Encoder) { e.Int(l.Stock) })
					e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, l.CreatedAt) })
				})
			}
		})
	})
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var quantity int
	err = readObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key != "quantity" {
			return d.Skip()
		}
		quantity, err = readInt(d, key)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), callerID(r), id, quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "cart updated")
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.carts.Remove(r.Context(), callerID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "removed from cart")
}
