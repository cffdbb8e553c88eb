package forms

import (
	"fmt"

	"confeitaria/internal/core"
	"confeitaria/internal/installments"
	"confeitaria/internal/summary"

	"github.com/shopspring/decimal"
)

type VariantForm struct {
	Name  Value `json:"name"`
	Price Value `json:"price"`
}

func (f VariantForm) Variant() (core.FlavorVariant, error) {
	name, err := Text("variant", f.Name)
	if err != nil {
		return core.FlavorVariant{}, err
	}
	price, err := NonNegativeMoney("price", f.Price)
	if err != nil {
		return core.FlavorVariant{}, err
	}
	return core.FlavorVariant{Name: name, Price: price}, nil
}

// ProductForm is the catalog form. Simple products send Price; customizable
// ones send their flavors in Variants.
type ProductForm struct {
	Name         Value         `json:"name"`
	Category     Value         `json:"category"`
	Customizable Value         `json:"customizable"`
	Price        Value         `json:"price"`
	Variants     []VariantForm `json:"variants"`
}

func (f ProductForm) Product() (core.Product, error) {
	name, err := Text("name", f.Name)
	if err != nil {
		return core.Product{}, err
	}
	category, err := Category(f.Category)
	if err != nil {
		return core.Product{}, err
	}
	custom, err := Bool("customizable", f.Customizable)
	if err != nil {
		return core.Product{}, err
	}

	if !custom {
		price, err := NonNegativeMoney("price", f.Price)
		if err != nil {
			return core.Product{}, err
		}
		p := core.NewSimpleProduct(name, category, price)
		return p, p.Validate()
	}

	p := core.Product{Name: name, Category: category, Customizable: true}
	for i, vf := range f.Variants {
		v, err := vf.Variant()
		if err != nil {
			if ve, ok := core.AsValidation(err); ok {
				return core.Product{}, core.NewValidationError(fmt.Sprintf("variants[%d].%s", i, ve.Field), "%s", ve.Msg)
			}
			return core.Product{}, err
		}
		p.Variants = append(p.Variants, v)
	}
	p.Normalize()
	return p, p.Validate()
}

// LineForm is one product row of the order form.
type LineForm struct {
	ProductID Value   `json:"product_id"`
	VariantID Value   `json:"variant_id"`
	Quantity  Value   `json:"quantity"`
	AddOnIDs  []Value `json:"add_on_ids"`
	Override  Value   `json:"override"`
}

type LineDraft struct {
	ProductID int64
	VariantID int64
	Quantity  decimal.Decimal
	AddOnIDs  []int64
	Override  *core.Money
}

func (f LineForm) Draft() (LineDraft, error) {
	var d LineDraft
	var err error
	if d.ProductID, err = ID("product_id", f.ProductID); err != nil {
		return LineDraft{}, err
	}
	if d.ProductID == 0 {
		return LineDraft{}, core.NewValidationError("product_id", "choose a product")
	}
	if d.VariantID, err = ID("variant_id", f.VariantID); err != nil {
		return LineDraft{}, err
	}
	if d.Quantity, err = Quantity("quantity", f.Quantity); err != nil {
		return LineDraft{}, err
	}
	for _, raw := range f.AddOnIDs {
		id, err := ID("add_on_ids", raw)
		if err != nil {
			return LineDraft{}, err
		}
		if id != 0 {
			d.AddOnIDs = append(d.AddOnIDs, id)
		}
	}
	if d.Override, err = OptionalMoney("override", f.Override); err != nil {
		return LineDraft{}, err
	}
	return d, nil
}

type OrderForm struct {
	Client        Value      `json:"client"`
	Phone         Value      `json:"phone"`
	Lines         []LineForm `json:"lines"`
	AmountPaid    Value      `json:"amount_paid"`
	PaymentStatus Value      `json:"payment_status"`
	Status        Value      `json:"status"`
	Note          Value      `json:"note"`
	Date          Value      `json:"date"`
}

type OrderDraft struct {
	Client        string
	Phone         string
	Lines         []LineDraft
	AmountPaid    core.Money
	PaymentStatus core.PaymentStatus
	Status        core.OrderStatus
	Note          string
	Date          core.Date
}

// Draft validates the order form. A new order defaults to in-progress,
// unpaid and dated today.
func (f OrderForm) Draft() (OrderDraft, error) {
	client, err := Text("client", f.Client)
	if err != nil {
		return OrderDraft{}, core.ErrEmptyClient
	}
	if len(f.Lines) == 0 {
		return OrderDraft{}, core.ErrNoLines
	}
	d := OrderDraft{
		Client:        client,
		Phone:         f.Phone.String(),
		Note:          f.Note.String(),
		Status:        core.InProgress,
		PaymentStatus: core.Unpaid,
	}
	for i, lf := range f.Lines {
		line, err := lf.Draft()
		if err != nil {
			if ve, ok := core.AsValidation(err); ok {
				return OrderDraft{}, core.NewValidationError(fmt.Sprintf("lines[%d].%s", i, ve.Field), "%s", ve.Msg)
			}
			return OrderDraft{}, err
		}
		d.Lines = append(d.Lines, line)
	}
	if d.AmountPaid, err = NonNegativeMoney("amount_paid", f.AmountPaid); err != nil {
		return OrderDraft{}, err
	}
	if !f.PaymentStatus.Blank() {
		if d.PaymentStatus, err = PaymentStatus(f.PaymentStatus); err != nil {
			return OrderDraft{}, err
		}
	}
	if !f.Status.Blank() {
		if d.Status, err = OrderStatus(f.Status); err != nil {
			return OrderDraft{}, err
		}
	}
	if d.Date, err = DateOrToday("date", f.Date); err != nil {
		return OrderDraft{}, err
	}
	return d, nil
}

type StatusForm struct {
	Status Value `json:"status"`
}

func (f StatusForm) OrderStatus() (core.OrderStatus, error) {
	return OrderStatus(f.Status)
}

// PaymentUpdateForm moves an order between payment states. AmountPaid is only
// read for partially-paid; blank means zero.
type PaymentUpdateForm struct {
	PaymentStatus Value `json:"payment_status"`
	AmountPaid    Value `json:"amount_paid"`
}

type PaymentUpdate struct {
	Status     core.PaymentStatus
	AmountPaid core.Money
}

func (f PaymentUpdateForm) Update() (PaymentUpdate, error) {
	st, err := PaymentStatus(f.PaymentStatus)
	if err != nil {
		return PaymentUpdate{}, err
	}
	u := PaymentUpdate{Status: st}
	if st == core.PartiallyPaid {
		if u.AmountPaid, err = NonNegativeMoney("amount_paid", f.AmountPaid); err != nil {
			return PaymentUpdate{}, err
		}
	}
	return u, nil
}

// PaymentForm is one payment row of the expense form.
type PaymentForm struct {
	Method       Value `json:"method"`
	Amount       Value `json:"amount"`
	CardName     Value `json:"card_name"`
	CutoffDay    Value `json:"cutoff_day"`
	Installments Value `json:"installments"`
}

func (f PaymentForm) Intent() (installments.Intent, error) {
	var in installments.Intent
	var err error
	if in.Method, err = PaymentMethod(f.Method); err != nil {
		return installments.Intent{}, err
	}
	if in.Amount, err = Money("amount", f.Amount); err != nil {
		return installments.Intent{}, err
	}
	in.CardName = f.CardName.String()
	if in.CutoffDay, err = Int("cutoff_day", f.CutoffDay); err != nil {
		return installments.Intent{}, err
	}
	if in.Installments, err = Int("installments", f.Installments); err != nil {
		return installments.Intent{}, err
	}
	return in, nil
}

type ExpenseForm struct {
	Amount       Value         `json:"amount"`
	Vendor       Value         `json:"vendor"`
	PurchaseDate Value         `json:"purchase_date"`
	NextPurchase Value         `json:"next_purchase"`
	Note         Value         `json:"note"`
	Payments     []PaymentForm `json:"payments"`
}

type ExpenseDraft struct {
	Amount       core.Money
	Vendor       string
	PurchaseDate core.Date
	NextPurchase core.Date
	Note         string
	Payments     []installments.Intent
}

func (f ExpenseForm) Draft() (ExpenseDraft, error) {
	var d ExpenseDraft
	var err error
	if d.Amount, err = Money("amount", f.Amount); err != nil {
		return ExpenseDraft{}, err
	}
	if d.Vendor, err = Text("vendor", f.Vendor); err != nil {
		return ExpenseDraft{}, core.ErrEmptyVendor
	}
	if d.PurchaseDate, err = Date("purchase_date", f.PurchaseDate); err != nil {
		return ExpenseDraft{}, err
	}
	if d.NextPurchase, err = OptionalDate("next_purchase", f.NextPurchase); err != nil {
		return ExpenseDraft{}, err
	}
	d.Note = f.Note.String()
	for i, pf := range f.Payments {
		in, err := pf.Intent()
		if err != nil {
			if ve, ok := core.AsValidation(err); ok {
				return ExpenseDraft{}, core.NewValidationError(fmt.Sprintf("payments[%d].%s", i, ve.Field), "%s", ve.Msg)
			}
			return ExpenseDraft{}, err
		}
		d.Payments = append(d.Payments, in)
	}
	return d, nil
}

// Period parses optional start and end bounds.
func Period(start, end Value) (summary.Period, error) {
	var p summary.Period
	var err error
	if p.Start, err = OptionalDate("start", start); err != nil {
		return summary.Period{}, err
	}
	if p.End, err = OptionalDate("end", end); err != nil {
		return summary.Period{}, err
	}
	return p, p.Validate()
}
