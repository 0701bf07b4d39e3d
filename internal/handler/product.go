package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/shop-api/internal/domain/apperr"
	"github.com/xenking/shop-api/internal/domain/product"
)

var errPriceRequired = apperr.Validation("price", "is required")

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) {
			if p.Description == nil {
				e.Null()
				return
			}
			e.Str(*p.Description)
		})
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, p.CreatedAt) })
	})
}

// readProductFields decodes a product body into u. Both create and update
// use it; create then requires name and price.
func readProductFields(w http.ResponseWriter, r *http.Request) (product.Update, error) {
	var u product.Update
	err := readObject(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := readString(d, key)
			if err != nil {
				return err
			}
			u.Name = &v
		case "description":
			v, err := readOptString(d, key)
			if err != nil {
				return err
			}
			u.Description = v
			u.ClearDescription = v == nil
		case "price":
			v, err := readDecimal(d, key)
			if err != nil {
				return err
			}
			u.Price = &v
		case "stock":
			v, err := readInt(d, key)
			if err != nil {
				return err
			}
			u.Stock = &v
		default:
			return d.Skip()
		}
		return nil
	})
	return u, err
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	fields, err := readProductFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := product.CreateRequest{Description: fields.Description}
	if fields.Name != nil {
		req.Name = *fields.Name
	}
	if fields.Price == nil {
		writeError(w, r, errPriceRequired)
		return
	}
	req.Price = *fields.Price
	if fields.Stock != nil {
		req.Stock = *fields.Stock
	}

	p, err := h.products.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
			e.Field("message", func(e *jx.Encoder) { e.Str("product created") })
		})
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", product.DefaultLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.products.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				encodeProduct(e, p)
			}
		})
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, *p) })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := readProductFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.products.Update(r.Context(), id, u); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "product updated")
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "product deleted")
}
