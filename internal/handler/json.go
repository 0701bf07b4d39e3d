package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

const maxBodySize = 1 << 20

var errMalformedBody = apperr.Validation("body", "must be a JSON object")

// readObject decodes a JSON object request body, calling fn for every field.
// fn must consume or skip the value.
func readObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 512)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return errMalformedBody
	}
	return nil
}

func readInt(d *jx.Decoder, field string) (int, error) {
	if d.Next() != jx.Number {
		return 0, apperr.Validation(field, "must be an integer")
	}
	v, err := d.Int()
	if err != nil {
		return 0, apperr.Validation(field, "must be an integer")
	}
	return v, nil
}

func readInt64(d *jx.Decoder, field string) (int64, error) {
	if d.Next() != jx.Number {
		return 0, apperr.Validation(field, "must be an integer")
	}
	v, err := d.Int64()
	if err != nil {
		return 0, apperr.Validation(field, "must be an integer")
	}
	return v, nil
}

func readString(d *jx.Decoder, field string) (string, error) {
	if d.Next() != jx.String {
		return "", apperr.Validation(field, "must be a string")
	}
	v, err := d.Str()
	if err != nil {
		return "", apperr.Validation(field, "must be a string")
	}
	return v, nil
}

// readOptString returns nil for a JSON null.
func readOptString(d *jx.Decoder, field string) (*string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := readString(d, field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// readDecimal accepts both 12.5 and "12.50".
func readDecimal(d *jx.Decoder, field string) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, apperr.Validation(field, "must be a decimal number")
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, apperr.Validation(field, "must be a decimal number")
		}
		raw = string(n)
	default:
		return decimal.Decimal{}, apperr.Validation(field, "must be a decimal number")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apperr.Validation(field, "must be a decimal number")
	}
	return v, nil
}

func readIDs(d *jx.Decoder, field string) ([]int64, error) {
	if d.Next() != jx.Array {
		return nil, apperr.Validation(field, "must be an array of integers")
	}
	ids := []int64{}
	err := d.Arr(func(d *jx.Decoder) error {
		id, err := readInt64(d, field)
		if err != nil {
			return apperr.Validation(field, "must be an array of integers")
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name, "must be a positive integer")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter, returning def when it
// is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name, "must be an integer")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Str(v.StringFixed(2))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}
