package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/shop-api/internal/domain/apperr"
	"github.com/xenking/shop-api/internal/domain/order"
)

var (
	errCartItemsRequired = apperr.Validation("cart_items", "must contain at least one cart item id")
	errCartItemsInvalid  = apperr.Validation("cart_items", "must contain positive ids")
	errStatusRequired    = apperr.Validation("status", "is required")
)

// createOrder checks out the selected cart items. The body must be
// {"cart_items": [positive ids...]} with at least one id.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	err := readObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key != "cart_items" {
			return d.Skip()
		}
		ids, err = readIDs(d, key)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(ids) == 0 {
		writeError(w, r, errCartItemsRequired)
		return
	}
	for _, id := range ids {
		if id <= 0 {
			writeError(w, r, errCartItemsInvalid)
			return
		}
	}

	orderID, err := h.orders.CreateOrder(r.Context(), callerID(r), ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order_id", func(e *jx.Encoder) { e.Int64(orderID) })
			e.Field("message", func(e *jx.Encoder) { e.Str("order created") })
		})
	})
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("user_id", func(e *jx.Encoder) { e.Int64(o.UserID) })
		e.Field("total_amount", func(e *jx.Encoder) { encodeMoney(e, o.TotalAmount) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("updated_at", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
						e.Field("order_id", func(e *jx.Encoder) { e.Int64(it.OrderID) })
						e.Field("product_id", func(e *jx.Encoder) { e.Int64(it.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.ProductName) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.Price) })
					})
				}
			})
		})
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, o := range orders {
				encodeOrder(e, o)
			}
		})
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.GetOrder(r.Context(), callerID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var status string
	err = readObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key != "status" {
			return d.Skip()
		}
		status, err = readString(d, key)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if status == "" {
		writeError(w, r, errStatusRequired)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), callerID(r), id, status); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "order status updated")
}
