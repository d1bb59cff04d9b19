package feed

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchline/catalog-api/internal/catalog"
)

const fullRecord = `[{
	"id": 7,
	"name": "Twill Work Jacket",
	"price": 89.50,
	"discountedPrice": 74.00,
	"category": "Jackets",
	"division": "Workwear",
	"image": "/img/twill-jacket.jpg",
	"inStock": true,
	"colors": ["Olive", "Navy"],
	"sizes": ["M", "L", "XL"],
	"rating": 4.5,
	"description": "Heavy cotton twill with reinforced seams.",
	"material": "Cotton",
	"careInstructions": "Machine wash cold",
	"madeFor": ["Men"],
	"sustainability": ["Organic cotton"],
	"features": ["Double-stitched"]
}]`

func TestDecodeProducts_FullRecord(t *testing.T) {
	products, err := DecodeProducts([]byte(fullRecord))
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, 7, p.ID)
	assert.Equal(t, "Twill Work Jacket", p.Name)
	require.True(t, p.Price.Valid)
	assert.True(t, p.Price.Decimal.Equal(decimal.RequireFromString("89.50")))
	require.True(t, p.DiscountedPrice.Valid)
	assert.True(t, p.DiscountedPrice.Decimal.Equal(decimal.RequireFromString("74.00")))
	assert.Equal(t, "Jackets", p.Category)
	assert.Equal(t, "Workwear", p.Division)
	require.NotNil(t, p.InStock)
	assert.True(t, *p.InStock)
	assert.Equal(t, []string{"Olive", "Navy"}, p.Colors)
	assert.Equal(t, []string{"M", "L", "XL"}, p.Sizes)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 4.5, *p.Rating)
	assert.Equal(t, []string{"Men"}, p.MadeFor)
	assert.Equal(t, []string{"Organic cotton"}, p.Sustainability)
	assert.Equal(t, []string{"Double-stitched"}, p.Features)
}

func TestDecodeProducts_MinimalRecord(t *testing.T) {
	products, err := DecodeProducts([]byte(`[{"id": 1, "name": "Tee"}]`))
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, "Tee", p.Name)
	assert.False(t, p.Price.Valid)
	assert.False(t, p.DiscountedPrice.Valid)
	assert.Nil(t, p.InStock)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.Colors)
}

func TestDecodeProducts_NullFieldsTreatedAsAbsent(t *testing.T) {
	products, err := DecodeProducts([]byte(`[{
		"id": 2, "name": "Tee",
		"price": null, "inStock": null, "rating": null, "colors": null
	}]`))
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.False(t, p.Price.Valid)
	assert.Nil(t, p.InStock)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.Colors)
}

func TestDecodeProducts_UnknownFieldsSkipped(t *testing.T) {
	products, err := DecodeProducts([]byte(`[{
		"id": 3, "name": "Tee",
		"sku": "ST-003", "warehouse": {"zone": "A", "bins": [1, 2]}
	}]`))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 3, products[0].ID)
}

func TestDecodeProducts_QuotedPrice(t *testing.T) {
	products, err := DecodeProducts([]byte(`[{"id": 4, "name": "Tee", "price": "19.99"}]`))
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.True(t, products[0].Price.Valid)
	assert.True(t, products[0].Price.Decimal.Equal(decimal.RequireFromString("19.99")))
}

func TestDecodeProducts_MalformedDocument(t *testing.T) {
	_, err := DecodeProducts([]byte(`[{"id": 1,`))
	assert.Error(t, err)

	_, err = DecodeProducts([]byte(`{"id": 1}`))
	assert.Error(t, err)
}

func TestDecodeStream_CallbackErrorStopsDecoding(t *testing.T) {
	stop := errors.New("enough")
	seen := 0
	err := DecodeStream(jx.DecodeStr(`[{"id": 1}, {"id": 2}, {"id": 3}]`), func(catalog.Product) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	products, err := DecodeProducts([]byte(fullRecord))
	require.NoError(t, err)

	var e jx.Encoder
	EncodeProducts(&e, products)

	again, err := DecodeProducts(e.Bytes())
	require.NoError(t, err)
	require.Len(t, again, len(products))

	for i := range products {
		want, got := products[i], again[i]
		// Decimals compare by value; trailing zeros are not preserved.
		assert.True(t, want.Price.Decimal.Equal(got.Price.Decimal))
		assert.True(t, want.DiscountedPrice.Decimal.Equal(got.DiscountedPrice.Decimal))
		want.Price, got.Price = decimal.NullDecimal{}, decimal.NullDecimal{}
		want.DiscountedPrice, got.DiscountedPrice = decimal.NullDecimal{}, decimal.NullDecimal{}
		assert.Equal(t, want, got)
	}
}

func TestEncodeProduct_OmitsAbsentOptionals(t *testing.T) {
	var e jx.Encoder
	EncodeProduct(&e, catalog.Product{ID: 5, Name: "Tee", Category: "Shirts", Division: "Basics"})

	out := string(e.Bytes())
	assert.NotContains(t, out, `"price"`)
	assert.NotContains(t, out, `"inStock"`)
	assert.NotContains(t, out, `"rating"`)
	assert.NotContains(t, out, `"colors"`)
	// madeFor is always present, as an empty array when unset.
	assert.Contains(t, out, `"madeFor":[]`)
}
