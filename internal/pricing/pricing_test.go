package pricing

import (
	"math"
	"testing"

	"confeitaria/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cake() core.Product {
	return core.Product{
		ID:           1,
		Name:         "Bolo",
		Category:     core.Cake,
		Customizable: true,
		Variants: []core.FlavorVariant{
			{ID: 10, Name: "Chocolate", Price: core.Cents(8000)},
			{ID: 11, Name: "Ninho", Price: core.Cents(9000)},
		},
	}
}

func brigadeiro() core.Product {
	p := core.NewSimpleProduct("Brigadeiro", core.Sweet, core.Cents(250))
	p.ID = 2
	p.Variants[0].ID = 20
	return p
}

func addOn(name string, cents int64) core.Product {
	return core.NewSimpleProduct(name, core.AddOn, core.Cents(cents))
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPriceLineItem(t *testing.T) {
	override := core.Cents(15000)
	zero := core.Cents(0)

	tests := []struct {
		name        string
		line        Line
		wantTotal   int64
		wantUnit    int64
		wantVariant string
		wantErr     error
	}{
		{
			name:        "customizable with chosen flavor",
			line:        Line{Product: cake(), Variant: 11, Quantity: qty("2")},
			wantTotal:   18000,
			wantUnit:    9000,
			wantVariant: "Ninho",
		},
		{
			name:      "simple product ignores variant argument",
			line:      Line{Product: brigadeiro(), Variant: 10, Quantity: qty("30")},
			wantTotal: 7500,
			wantUnit:  250,
		},
		{
			name: "add-ons are counted once per line",
			line: Line{Product: cake(), Variant: 10, Quantity: qty("3"),
				AddOns: []core.Product{addOn("Morango", 1000), addOn("Topo", 1500)}},
			wantTotal:   26500,
			wantUnit:    8000,
			wantVariant: "Chocolate",
		},
		{
			name:        "fractional weight",
			line:        Line{Product: cake(), Variant: 10, Quantity: qty("1.255")},
			wantTotal:   10040,
			wantUnit:    8000,
			wantVariant: "Chocolate",
		},
		{
			name:      "half cent rounds up",
			line:      Line{Product: core.NewSimpleProduct("Bala", core.Sweet, core.Cents(25)), Quantity: qty("0.5")},
			wantTotal: 13,
			wantUnit:  25,
		},
		{
			name:        "non-positive quantity prices one unit",
			line:        Line{Product: cake(), Variant: 10, Quantity: qty("-2")},
			wantTotal:   8000,
			wantUnit:    8000,
			wantVariant: "Chocolate",
		},
		{
			name:        "manual override replaces total",
			line:        Line{Product: cake(), Variant: 10, Quantity: qty("2"), AddOns: []core.Product{addOn("Topo", 1500)}, Override: &override},
			wantTotal:   15000,
			wantUnit:    8000,
			wantVariant: "Chocolate",
		},
		{
			name:      "override of zero is kept",
			line:      Line{Product: brigadeiro(), Quantity: qty("5"), Override: &zero},
			wantTotal: 0,
			wantUnit:  250,
		},
		{
			name:    "customizable without flavors",
			line:    Line{Product: core.Product{Name: "Torta", Category: core.Cake, Customizable: true}, Quantity: qty("1")},
			wantErr: ErrNotPriceable,
		},
		{
			name:    "flavor required",
			line:    Line{Product: cake(), Quantity: qty("1")},
			wantErr: ErrVariantRequired,
		},
		{
			name:    "flavor of another product",
			line:    Line{Product: cake(), Variant: 20, Quantity: qty("1")},
			wantErr: ErrUnknownVariant,
		},
		{
			name:    "add-on must be an add-on",
			line:    Line{Product: cake(), Variant: 10, Quantity: qty("1"), AddOns: []core.Product{brigadeiro()}},
			wantErr: ErrNotAddOn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := PriceLineItem(tt.line)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, core.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, item.Total.Cents)
			assert.Equal(t, tt.wantUnit, item.UnitPrice.Cents)
			assert.Equal(t, tt.wantVariant, item.Variant)
			assert.Equal(t, tt.line.Override != nil, item.Overridden)
			assert.Len(t, item.AddOns, len(tt.line.AddOns))
			assert.True(t, item.Quantity.IsPositive())
		})
	}
}

func TestPriceIsLinearInQuantity(t *testing.T) {
	one, err := PriceLineItem(Line{Product: cake(), Variant: 11, Quantity: qty("1")})
	require.NoError(t, err)
	for _, n := range []int64{1, 2, 5, 12, 40} {
		line, err := PriceLineItem(Line{Product: cake(), Variant: 11, Quantity: decimal.NewFromInt(n)})
		require.NoError(t, err)
		assert.Equal(t, one.Total.Cents*n, line.Total.Cents, "quantity %d", n)
	}
}

func TestQuantityOutOfRange(t *testing.T) {
	ten := core.NewSimpleProduct("Torta", core.Sweet, core.Cents(1000))

	_, err := PriceLineItem(Line{Product: ten, Quantity: qty("1e20")})
	assert.ErrorIs(t, err, core.ErrQuantityTooLarge)

	line, err := PriceLineItem(Line{Product: ten, Quantity: MaxQuantity})
	require.NoError(t, err)
	assert.Equal(t, core.Cents(100_000_000), line.Total)

	_, err = Extend(core.Cents(math.MaxInt64/2), qty("3"))
	assert.ErrorIs(t, err, core.ErrAmountTooLarge)
	assert.True(t, core.IsValidation(err))

	huge := core.NewSimpleProduct("Bolo", core.Cake, core.Cents(math.MaxInt64/2))
	_, err = PriceLineItem(Line{Product: huge, Quantity: qty("2"),
		AddOns: []core.Product{core.NewSimpleProduct("Topo", core.AddOn, core.Cents(math.MaxInt64/2))}})
	assert.ErrorIs(t, err, core.ErrAmountTooLarge)
}

func TestDefaultQuantity(t *testing.T) {
	assert.True(t, DefaultQuantity(decimal.Zero).Equal(decimal.NewFromInt(1)))
	assert.True(t, DefaultQuantity(qty("-0.5")).Equal(decimal.NewFromInt(1)))
	assert.True(t, DefaultQuantity(qty("0.75")).Equal(qty("0.75")))
}

func TestOrderTotal(t *testing.T) {
	lines := []core.LineItem{{Total: core.Cents(100)}, {Total: core.Cents(250)}, {Total: core.Cents(5)}}
	assert.Equal(t, core.Cents(355), OrderTotal(lines))
	assert.Equal(t, core.Money{}, OrderTotal(nil))
}
