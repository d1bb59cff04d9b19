// Package feed reads and writes the product catalog wire format: a
// JSON array of product records as produced by the upstream apparel
// feed. Decoding is tolerant by design — unknown fields are skipped and
// malformed optional fields degrade to "absent" instead of failing the
// whole load. Only structurally broken JSON is an error.
package feed

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/stitchline/catalog-api/internal/catalog"
)

// DecodeProducts parses a complete feed document into products.
func DecodeProducts(data []byte) ([]catalog.Product, error) {
	var products []catalog.Product
	err := DecodeStream(jx.DecodeBytes(data), func(p catalog.Product) error {
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// DecodeStream reads products from d one at a time, calling fn for each
// record. It lets the ingest tool walk feeds much larger than memory.
func DecodeStream(d *jx.Decoder, fn func(catalog.Product) error) error {
	err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		return fn(p)
	})
	if err != nil {
		return errors.Wrap(err, "decode product feed")
	}
	return nil
}

func decodeProduct(d *jx.Decoder) (catalog.Product, error) {
	var p catalog.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeNullDecimal(d)
		case "discountedPrice":
			p.DiscountedPrice, err = decodeNullDecimal(d)
		case "category":
			p.Category, err = d.Str()
		case "division":
			p.Division, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "inStock":
			var v bool
			if v, err = d.Bool(); err == nil {
				p.InStock = &v
			}
		case "colors":
			p.Colors, err = decodeStrings(d)
		case "sizes":
			p.Sizes, err = decodeStrings(d)
		case "rating":
			var v float64
			if v, err = d.Float64(); err == nil {
				p.Rating = &v
			}
		case "description":
			p.Description, err = d.Str()
		case "material":
			p.Material, err = d.Str()
		case "careInstructions":
			p.CareInstructions, err = d.Str()
		case "madeFor":
			p.MadeFor, err = decodeStrings(d)
		case "sustainability":
			p.Sustainability, err = decodeStrings(d)
		case "features":
			p.Features, err = decodeStrings(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

// decodeNullDecimal reads a JSON number as an exact decimal. A value
// that is not a usable number degrades to "no price".
func decodeNullDecimal(d *jx.Decoder) (decimal.NullDecimal, error) {
	raw, err := d.Num()
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	// Quoted numbers ("19.99") show up in hand-edited feeds.
	v, err := decimal.NewFromString(strings.Trim(string(raw), `"`))
	if err != nil {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NullDecimal{Decimal: v, Valid: true}, nil
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// EncodeProducts writes the catalog back out in feed order.
func EncodeProducts(e *jx.Encoder, products []catalog.Product) {
	e.ArrStart()
	for _, p := range products {
		EncodeProduct(e, p)
	}
	e.ArrEnd()
}

// EncodeProduct writes one product. Absent optional fields are omitted
// entirely, mirroring the upstream feed.
func EncodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	if p.Price.Valid {
		e.FieldStart("price")
		e.Num(jx.Num(p.Price.Decimal.String()))
	}
	if p.DiscountedPrice.Valid {
		e.FieldStart("discountedPrice")
		e.Num(jx.Num(p.DiscountedPrice.Decimal.String()))
	}
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("division")
	e.Str(p.Division)
	if p.Image != "" {
		e.FieldStart("image")
		e.Str(p.Image)
	}
	if p.InStock != nil {
		e.FieldStart("inStock")
		e.Bool(*p.InStock)
	}
	encodeStrings(e, "colors", p.Colors)
	if p.Rating != nil {
		e.FieldStart("rating")
		e.Float64(*p.Rating)
	}
	if p.Description != "" {
		e.FieldStart("description")
		e.Str(p.Description)
	}
	if p.Material != "" {
		e.FieldStart("material")
		e.Str(p.Material)
	}
	if p.CareInstructions != "" {
		e.FieldStart("careInstructions")
		e.Str(p.CareInstructions)
	}
	e.FieldStart("madeFor")
	e.ArrStart()
	for _, s := range p.MadeFor {
		e.Str(s)
	}
	e.ArrEnd()
	encodeStrings(e, "sizes", p.Sizes)
	encodeStrings(e, "sustainability", p.Sustainability)
	encodeStrings(e, "features", p.Features)
	e.ObjEnd()
}

func encodeStrings(e *jx.Encoder, field string, values []string) {
	if len(values) == 0 {
		return
	}
	e.FieldStart(field)
	e.ArrStart()
	for _, s := range values {
		e.Str(s)
	}
	e.ArrEnd()
}
