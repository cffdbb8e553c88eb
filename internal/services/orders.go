package services

import (
	"context"
	"fmt"

	"confeitaria/internal/amqp"
	"confeitaria/internal/core"
	"confeitaria/internal/forms"
	"confeitaria/internal/pricing"
	"confeitaria/internal/store"
)

// QuoteLine prices one draft line against the current catalog without
// storing anything.
func (s *Service) QuoteLine(d forms.LineDraft) (core.LineItem, error) {
	product, err := s.Product(d.ProductID)
	if err != nil {
		return core.LineItem{}, core.NewValidationError("product_id", "product %d does not exist", d.ProductID)
	}
	addOns := make([]core.Product, 0, len(d.AddOnIDs))
	for _, id := range d.AddOnIDs {
		a, err := s.Product(id)
		if err != nil {
			return core.LineItem{}, core.NewValidationError("add_on_ids", "add-on %d does not exist", id)
		}
		addOns = append(addOns, a)
	}
	return pricing.PriceLineItem(pricing.Line{
		Product:  product,
		Variant:  d.VariantID,
		Quantity: d.Quantity,
		AddOns:   addOns,
		Override: d.Override,
	})
}

// CreateOrder prices every line, settles the amount paid against the new
// total and stores the order.
func (s *Service) CreateOrder(ctx context.Context, d forms.OrderDraft) (core.Order, error) {
	o := core.Order{
		Client:        d.Client,
		Phone:         d.Phone,
		PaymentStatus: d.PaymentStatus,
		Status:        d.Status,
		Note:          d.Note,
		Date:          d.Date,
	}
	if o.Status == "" {
		o.Status = core.InProgress
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = core.Unpaid
	}
	if o.Date.IsZero() {
		o.Date = core.Today()
	}
	for i, ld := range d.Lines {
		item, err := s.QuoteLine(ld)
		if err != nil {
			if ve, ok := core.AsValidation(err); ok {
				return core.Order{}, core.NewValidationError(ve.Field, "line %d: %s", i+1, ve.Msg)
			}
			return core.Order{}, err
		}
		o.Lines = append(o.Lines, item)
	}

	paid, err := s.settle(o.Total(), o.PaymentStatus, d.AmountPaid)
	if err != nil {
		return core.Order{}, err
	}
	o.AmountPaid = paid
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}

	var created core.Order
	_, err = s.apply(ctx, store.Orders, amqp.OpCreated, func(ctx context.Context) (int64, error) {
		var err error
		created, err = s.store.InsertOrder(ctx, o)
		return created.ID, err
	})
	if err != nil {
		return core.Order{}, err
	}
	return created, nil
}

// SetOrderStatus moves an order between in-progress, delivered and canceled.
func (s *Service) SetOrderStatus(ctx context.Context, id int64, status core.OrderStatus) (core.Order, error) {
	if !status.Valid() {
		return core.Order{}, core.ErrInvalidStatus
	}
	if _, err := s.Order(id); err != nil {
		return core.Order{}, err
	}
	_, err := s.apply(ctx, store.Orders, amqp.OpUpdated, func(ctx context.Context) (int64, error) {
		return id, s.store.UpdateOrder(ctx, id, store.OrderPatch{Status: &status})
	})
	if err != nil {
		return core.Order{}, err
	}
	return s.Order(id)
}

// SetOrderPayment records a payment transition. Fully paid settles the whole
// total, unpaid clears it and partially paid keeps the amount given.
func (s *Service) SetOrderPayment(ctx context.Context, id int64, u forms.PaymentUpdate) (core.Order, error) {
	if !u.Status.Valid() {
		return core.Order{}, core.ErrInvalidPayStatus
	}
	o, err := s.Order(id)
	if err != nil {
		return core.Order{}, err
	}
	paid, err := s.settle(o.Total(), u.Status, u.AmountPaid)
	if err != nil {
		return core.Order{}, err
	}
	_, err = s.apply(ctx, store.Orders, amqp.OpUpdated, func(ctx context.Context) (int64, error) {
		return id, s.store.UpdateOrder(ctx, id, store.OrderPatch{PaymentStatus: &u.Status, AmountPaid: &paid})
	})
	if err != nil {
		return core.Order{}, err
	}
	return s.Order(id)
}

func (s *Service) settle(total core.Money, status core.PaymentStatus, given core.Money) (core.Money, error) {
	switch status {
	case core.FullyPaid:
		return total, nil
	case core.Unpaid:
		return core.Money{}, nil
	case core.PartiallyPaid:
		if given.Cents < 0 {
			return core.Money{}, core.NewValidationError("amount_paid", "amount paid cannot be negative")
		}
		if given.Cents > total.Cents && s.overpayment == RejectOverpayment {
			return core.Money{}, core.ErrOverpayment
		}
		return given, nil
	}
	return core.Money{}, fmt.Errorf("settle payment: %w", core.ErrInvalidPayStatus)
}
