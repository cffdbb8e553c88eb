package forms

import (
	"encoding/json"
	"testing"

	"confeitaria/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAcceptsStringsAndNumbers(t *testing.T) {
	var f struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
		D Value `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12,50","b":12.5,"c":null,"d":true}`), &f))
	assert.Equal(t, "12,50", f.A.String())
	assert.Equal(t, "12.5", f.B.String())
	assert.True(t, f.C.Blank())
	assert.Equal(t, "true", f.D.String())

	assert.Error(t, json.Unmarshal([]byte(`{"a":{"x":1}}`), &f))
}

func TestQuantity(t *testing.T) {
	tests := []struct {
		in      Value
		want    string
		wantErr bool
	}{
		{"", "1", false},
		{"0", "1", false},
		{"-3", "1", false},
		{"2", "2", false},
		{"0,5", "0.5", false},
		{"1.25", "1.25", false},
		{"duas", "", true},
		{"100000", "100000", false},
		{"100000.01", "", true},
		{"1e20", "", true},
	}
	for _, tt := range tests {
		q, err := Quantity("quantity", tt.in)
		if tt.wantErr {
			assert.True(t, core.IsValidation(err), "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.True(t, q.Equal(decimal.RequireFromString(tt.want)), "input %q got %s", tt.in, q)
	}
}

func TestMoneyFieldsNameTheField(t *testing.T) {
	_, err := Money("amount", "abc")
	ve, ok := core.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "amount", ve.Field)

	m, err := NonNegativeMoney("amount_paid", "")
	require.NoError(t, err)
	assert.Equal(t, core.Money{}, m)

	o, err := OptionalMoney("override", "0")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, int64(0), o.Cents)

	o, err = OptionalMoney("override", " ")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestEnumAliases(t *testing.T) {
	c, err := Category("Bolo")
	require.NoError(t, err)
	assert.Equal(t, core.Cake, c)

	s, err := OrderStatus("entregue")
	require.NoError(t, err)
	assert.Equal(t, core.Delivered, s)

	ps, err := PaymentStatus("pago-parcial")
	require.NoError(t, err)
	assert.Equal(t, core.PartiallyPaid, ps)

	m, err := PaymentMethod("cartao")
	require.NoError(t, err)
	assert.Equal(t, core.CreditCard, m)

	m, err = PaymentMethod("instant-transfer")
	require.NoError(t, err)
	assert.Equal(t, core.InstantTransfer, m)

	_, err = PaymentMethod("cheque")
	assert.ErrorIs(t, err, core.ErrInvalidMethod)
}

func TestProductForm(t *testing.T) {
	p, err := ProductForm{Name: "Brigadeiro", Category: "sweet", Price: "2,50"}.Product()
	require.NoError(t, err)
	assert.False(t, p.Customizable)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "Brigadeiro", p.Variants[0].Name)
	assert.Equal(t, core.Cents(250), p.Variants[0].Price)

	p, err = ProductForm{
		Name: "Bolo", Category: "cake", Customizable: "true",
		Variants: []VariantForm{{Name: "Chocolate", Price: "80"}, {Name: "Ninho", Price: "90.00"}},
	}.Product()
	require.NoError(t, err)
	assert.True(t, p.Customizable)
	assert.Len(t, p.Variants, 2)

	_, err = ProductForm{
		Name: "Bolo", Category: "cake", Customizable: "true",
		Variants: []VariantForm{{Name: "Chocolate", Price: "x"}},
	}.Product()
	ve, ok := core.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "variants[0].price", ve.Field)

	_, err = ProductForm{Name: "Bolo", Category: "torta"}.Product()
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
}

func TestOrderFormDefaults(t *testing.T) {
	d, err := OrderForm{
		Client: " Ana ",
		Lines:  []LineForm{{ProductID: "3", Quantity: "", AddOnIDs: []Value{"7", ""}}},
	}.Draft()
	require.NoError(t, err)
	assert.Equal(t, "Ana", d.Client)
	assert.Equal(t, core.InProgress, d.Status)
	assert.Equal(t, core.Unpaid, d.PaymentStatus)
	assert.False(t, d.Date.IsZero())
	require.Len(t, d.Lines, 1)
	assert.True(t, d.Lines[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, []int64{7}, d.Lines[0].AddOnIDs)
	assert.Nil(t, d.Lines[0].Override)
}

func TestOrderFormErrors(t *testing.T) {
	_, err := OrderForm{Lines: []LineForm{{ProductID: "1"}}}.Draft()
	assert.ErrorIs(t, err, core.ErrEmptyClient)

	_, err = OrderForm{Client: "Ana"}.Draft()
	assert.ErrorIs(t, err, core.ErrNoLines)

	_, err = OrderForm{Client: "Ana", Lines: []LineForm{{ProductID: "1", Quantity: "muitos"}}}.Draft()
	ve, ok := core.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "lines[0].quantity", ve.Field)

	_, err = OrderForm{Client: "Ana", Lines: []LineForm{{ProductID: "1"}}, Date: "10/01/2024"}.Draft()
	ve, ok = core.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "date", ve.Field)
}

func TestPaymentUpdateForm(t *testing.T) {
	u, err := PaymentUpdateForm{PaymentStatus: "partially-paid", AmountPaid: "20,00"}.Update()
	require.NoError(t, err)
	assert.Equal(t, core.Cents(2000), u.AmountPaid)

	u, err = PaymentUpdateForm{PaymentStatus: "pago-total", AmountPaid: "999"}.Update()
	require.NoError(t, err)
	assert.Equal(t, core.FullyPaid, u.Status)
	assert.Equal(t, core.Money{}, u.AmountPaid)
}

func TestExpenseForm(t *testing.T) {
	d, err := ExpenseForm{
		Amount:       "300",
		Vendor:       "Atacadão",
		PurchaseDate: "2024-01-15",
		Payments: []PaymentForm{
			{Method: "cartao", Amount: "300", CardName: "Nubank", CutoffDay: "10", Installments: "3"},
		},
	}.Draft()
	require.NoError(t, err)
	assert.Equal(t, core.Cents(30000), d.Amount)
	assert.True(t, d.NextPurchase.IsZero())
	require.Len(t, d.Payments, 1)
	assert.Equal(t, core.CreditCard, d.Payments[0].Method)
	assert.Equal(t, 10, d.Payments[0].CutoffDay)
	assert.Equal(t, 3, d.Payments[0].Installments)

	_, err = ExpenseForm{Amount: "300", Vendor: "X", PurchaseDate: "2024-01-15",
		Payments: []PaymentForm{{Method: "pix", Amount: "0"}}}.Draft()
	ve, ok := core.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "payments[0].amount", ve.Field)

	_, err = ExpenseForm{Amount: "300", Vendor: " ", PurchaseDate: "2024-01-15"}.Draft()
	assert.ErrorIs(t, err, core.ErrEmptyVendor)
}

func TestPeriod(t *testing.T) {
	p, err := Period("2024-01-01", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", p.Start.String())
	assert.True(t, p.End.IsZero())

	_, err = Period("2024-02-01", "2024-01-01")
	assert.True(t, core.IsValidation(err))
}
