package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes p as a JSON object. Decimal fields are written as JSON
// numbers.
func (p Product) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(p.ID) })
		e.Field("category", func(e *jx.Encoder) { e.Str(string(p.Category)) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Raw([]byte(p.Price.String())) })
		e.Field("rating", func(e *jx.Encoder) { e.Raw([]byte(p.Rating.StringFixed(1))) })
		e.Field("isNew", func(e *jx.Encoder) { e.Bool(p.IsNew) })
		e.Field("isSummer", func(e *jx.Encoder) { e.Bool(p.IsSummer) })
		e.Field("imageRef", func(e *jx.Encoder) { e.Str(p.ImageRef) })
	})
}

// Decode reads a JSON object produced by Encode and validates the result.
func (p *Product) Decode(d *jx.Decoder) error {
	var out Product
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			out.ID, err = d.Int()
		case "category":
			var s string
			s, err = d.Str()
			out.Category = Category(s)
		case "name":
			out.Name, err = d.Str()
		case "price":
			out.Price, err = decodeDecimal(d)
		case "rating":
			out.Rating, err = decodeDecimal(d)
		case "isNew":
			out.IsNew, err = d.Bool()
		case "isSummer":
			out.IsSummer, err = d.Bool()
		case "imageRef":
			out.ImageRef, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "decode product")
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*p = out
	return nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}
