// Package pricing turns catalog entries into priced order lines.
//
// A line is priced as round-half-up(unit price × quantity) plus the price of
// each selected add-on, counted once per line. A manual override replaces the
// computed total while quantity and add-ons are still recorded on the line.
package pricing

import (
	"strings"

	"confeitaria/internal/core"

	"github.com/shopspring/decimal"
)

var (
	ErrNotPriceable    = &core.ValidationError{Field: "product", Msg: "product has no flavors with a price yet"}
	ErrVariantRequired = &core.ValidationError{Field: "variant", Msg: "choose a flavor for this product"}
	ErrUnknownVariant  = &core.ValidationError{Field: "variant", Msg: "flavor does not belong to this product"}
	ErrNotAddOn        = &core.ValidationError{Field: "add_ons", Msg: "only add-on products can be added to a line"}
)

// Line is what the order form submits for one product.
type Line struct {
	Product  core.Product
	Variant  int64 // 0 when no flavor was chosen
	Quantity decimal.Decimal
	AddOns   []core.Product
	Override *core.Money
}

// MaxQuantity is the largest quantity accepted on a single line.
var MaxQuantity = decimal.NewFromInt(100_000)

// DefaultQuantity is the quantity used when the form leaves it blank or sends
// a value that is not positive: the line is priced as a single unit.
func DefaultQuantity(q decimal.Decimal) decimal.Decimal {
	if !q.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return q
}

// UnitPrice resolves the base price of one unit of product, excluding add-ons.
// Non-customizable products always price from their implicit variant and
// ignore variantID.
func UnitPrice(p core.Product, variantID int64) (core.FlavorVariant, error) {
	if !p.Customizable {
		v, ok := p.ImplicitVariant()
		if !ok {
			return core.FlavorVariant{}, ErrNotPriceable
		}
		return v, nil
	}
	if len(p.Variants) == 0 {
		return core.FlavorVariant{}, ErrNotPriceable
	}
	if variantID == 0 {
		return core.FlavorVariant{}, ErrVariantRequired
	}
	v, ok := p.Variant(variantID)
	if !ok {
		return core.FlavorVariant{}, ErrUnknownVariant
	}
	return v, nil
}

// AddOnsPrice sums the implicit price of every add-on product.
func AddOnsPrice(addOns []core.Product) (core.Money, error) {
	var total core.Money
	for _, a := range addOns {
		if a.Category != core.AddOn {
			return core.Money{}, ErrNotAddOn
		}
		v, ok := a.ImplicitVariant()
		if !ok {
			return core.Money{}, ErrNotPriceable
		}
		total = total.Add(v.Price)
	}
	return total, nil
}

// PriceLineItem builds the immutable snapshot stored on an order.
func PriceLineItem(l Line) (core.LineItem, error) {
	qty := DefaultQuantity(l.Quantity)
	if qty.GreaterThan(MaxQuantity) {
		return core.LineItem{}, core.ErrQuantityTooLarge
	}

	addOnNames := make([]string, 0, len(l.AddOns))
	for _, a := range l.AddOns {
		addOnNames = append(addOnNames, strings.TrimSpace(a.Name))
	}

	item := core.LineItem{
		Product:  strings.TrimSpace(l.Product.Name),
		Quantity: qty,
		AddOns:   addOnNames,
	}

	if l.Override != nil {
		if l.Override.Cents < 0 {
			return core.LineItem{}, core.ErrNegativeAmount
		}
		// Best effort snapshot of the unit price; an unpriceable product can
		// still be sold at an agreed price.
		if v, err := UnitPrice(l.Product, l.Variant); err == nil {
			item.UnitPrice = v.Price
			if l.Product.Customizable {
				item.Variant = v.Name
			}
		}
		for _, a := range l.AddOns {
			if a.Category != core.AddOn {
				return core.LineItem{}, ErrNotAddOn
			}
		}
		item.Total = *l.Override
		item.Overridden = true
		return item, nil
	}

	v, err := UnitPrice(l.Product, l.Variant)
	if err != nil {
		return core.LineItem{}, err
	}
	addOns, err := AddOnsPrice(l.AddOns)
	if err != nil {
		return core.LineItem{}, err
	}

	item.UnitPrice = v.Price
	if l.Product.Customizable {
		item.Variant = v.Name
	}
	base, err := Extend(v.Price, qty)
	if err != nil {
		return core.LineItem{}, err
	}
	if item.Total, err = core.CheckedMoneyFromDecimal(base.Decimal().Add(addOns.Decimal())); err != nil {
		return core.LineItem{}, err
	}
	return item, nil
}

// Extend multiplies a unit price by a quantity, rounding half-up to the cent.
// It fails with core.ErrAmountTooLarge when the result does not fit in cents.
func Extend(unit core.Money, qty decimal.Decimal) (core.Money, error) {
	return core.CheckedMoneyFromDecimal(unit.Decimal().Mul(qty))
}

// OrderTotal sums line totals.
func OrderTotal(lines []core.LineItem) core.Money {
	var total core.Money
	for _, l := range lines {
		total = total.Add(l.Total)
	}
	return total
}
