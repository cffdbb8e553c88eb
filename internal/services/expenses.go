package services

import (
	"context"

	"confeitaria/internal/amqp"
	"confeitaria/internal/core"
	"confeitaria/internal/forms"
	"confeitaria/internal/installments"
	"confeitaria/internal/log"
	"confeitaria/internal/store"
)

// PreviewPayments expands payment intents into the dated payments they would
// produce, without storing anything.
func (s *Service) PreviewPayments(intents []installments.Intent, purchase core.Date) ([]core.Payment, error) {
	if purchase.IsZero() {
		purchase = core.Today()
	}
	return installments.ScheduleAll(intents, purchase)
}

func (s *Service) expenseFromDraft(ctx context.Context, d forms.ExpenseDraft) (core.Expense, error) {
	e := core.Expense{
		Amount:       d.Amount,
		Vendor:       d.Vendor,
		PurchaseDate: d.PurchaseDate,
		NextPurchase: d.NextPurchase,
		Note:         d.Note,
	}
	if e.PurchaseDate.IsZero() {
		e.PurchaseDate = core.Today()
	}
	payments, err := installments.ScheduleAll(d.Payments, e.PurchaseDate)
	if err != nil {
		return core.Expense{}, err
	}
	e.Payments = payments
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if diff := e.PaymentsMismatch(); diff.Cents != 0 {
		s.logger.WarnContext(ctx, "Payments do not add up to the expense amount",
			"vendor", e.Vendor, log.FieldAmount, e.Amount.String(), "difference", diff.String())
	}
	return e, nil
}

// CreateExpense schedules the payments of a purchase and stores it.
func (s *Service) CreateExpense(ctx context.Context, d forms.ExpenseDraft) (core.Expense, error) {
	e, err := s.expenseFromDraft(ctx, d)
	if err != nil {
		return core.Expense{}, err
	}
	var created core.Expense
	_, err = s.apply(ctx, store.Expenses, amqp.OpCreated, func(ctx context.Context) (int64, error) {
		var err error
		created, err = s.store.InsertExpense(ctx, e)
		return created.ID, err
	})
	if err != nil {
		return core.Expense{}, err
	}
	return created, nil
}

// UpdateExpense replaces an expense and reschedules all of its payments.
func (s *Service) UpdateExpense(ctx context.Context, id int64, d forms.ExpenseDraft) (core.Expense, error) {
	if _, err := s.Expense(id); err != nil {
		return core.Expense{}, err
	}
	e, err := s.expenseFromDraft(ctx, d)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	_, err = s.apply(ctx, store.Expenses, amqp.OpUpdated, func(ctx context.Context) (int64, error) {
		return id, s.store.UpdateExpense(ctx, e)
	})
	if err != nil {
		return core.Expense{}, err
	}
	return s.Expense(id)
}

func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	_, err := s.apply(ctx, store.Expenses, amqp.OpDeleted, func(ctx context.Context) (int64, error) {
		return id, s.store.DeleteExpense(ctx, id)
	})
	return err
}
