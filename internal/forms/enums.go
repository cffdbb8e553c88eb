package forms

import (
	"strings"

	"confeitaria/internal/core"
)

// The codes stored by the first version of the app are still accepted.
var (
	categoryAliases = map[string]core.Category{
		"bolo":       core.Cake,
		"brigadeiro": core.Sweet,
		"doce":       core.Sweet,
		"adicional":  core.AddOn,
	}
	orderStatusAliases = map[string]core.OrderStatus{
		"fazendo":   core.InProgress,
		"entregue":  core.Delivered,
		"cancelada": core.Canceled,
	}
	paymentStatusAliases = map[string]core.PaymentStatus{
		"nao-pago":     core.Unpaid,
		"pago-parcial": core.PartiallyPaid,
		"pago-total":   core.FullyPaid,
	}
	methodAliases = map[string]core.PaymentMethod{
		"dinheiro": core.Cash,
		"cartao":   core.CreditCard,
		"pix":      core.InstantTransfer,
		"boleto":   core.Bill,
	}
)

func Category(v Value) (core.Category, error) {
	s := strings.ToLower(v.String())
	if c, ok := categoryAliases[s]; ok {
		return c, nil
	}
	if c := core.Category(s); c.Valid() {
		return c, nil
	}
	return "", core.ErrInvalidCategory
}

func OrderStatus(v Value) (core.OrderStatus, error) {
	s := strings.ToLower(v.String())
	if st, ok := orderStatusAliases[s]; ok {
		return st, nil
	}
	if st := core.OrderStatus(s); st.Valid() {
		return st, nil
	}
	return "", core.ErrInvalidStatus
}

func PaymentStatus(v Value) (core.PaymentStatus, error) {
	s := strings.ToLower(v.String())
	if st, ok := paymentStatusAliases[s]; ok {
		return st, nil
	}
	if st := core.PaymentStatus(s); st.Valid() {
		return st, nil
	}
	return "", core.ErrInvalidPayStatus
}

func PaymentMethod(v Value) (core.PaymentMethod, error) {
	s := strings.ToLower(v.String())
	if m, ok := methodAliases[s]; ok {
		return m, nil
	}
	if m := core.PaymentMethod(s); m.Valid() {
		return m, nil
	}
	return "", core.ErrInvalidMethod
}
