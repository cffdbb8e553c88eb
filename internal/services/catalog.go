package services

import (
	"context"
	"fmt"

	"confeitaria/internal/amqp"
	"confeitaria/internal/core"
	"confeitaria/internal/store"
)

// CreateProduct stores a new catalog entry and returns it with its ids.
func (s *Service) CreateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	var created core.Product
	_, err := s.apply(ctx, store.Products, amqp.OpCreated, func(ctx context.Context) (int64, error) {
		var err error
		created, err = s.store.InsertProduct(ctx, p)
		return created.ID, err
	})
	if err != nil {
		return core.Product{}, err
	}
	return created, nil
}

// UpdateProduct replaces a product and its whole flavor set. Orders already
// placed keep their own snapshot of names and prices.
func (s *Service) UpdateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	if _, err := s.Product(p.ID); err != nil {
		return core.Product{}, err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	_, err := s.apply(ctx, store.Products, amqp.OpUpdated, func(ctx context.Context) (int64, error) {
		return p.ID, s.store.UpdateProduct(ctx, p)
	})
	if err != nil {
		return core.Product{}, err
	}
	return s.Product(p.ID)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	_, err := s.apply(ctx, store.Products, amqp.OpDeleted, func(ctx context.Context) (int64, error) {
		return id, s.store.DeleteProduct(ctx, id)
	})
	return err
}

// AddVariant adds a flavor to a customizable product.
func (s *Service) AddVariant(ctx context.Context, productID int64, v core.FlavorVariant) (core.FlavorVariant, error) {
	p, err := s.Product(productID)
	if err != nil {
		return core.FlavorVariant{}, err
	}
	if !p.Customizable {
		return core.FlavorVariant{}, core.NewValidationError("product", "%s has a single price and takes no flavors", p.Name)
	}
	p.Variants = append(p.Variants, v)
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.FlavorVariant{}, err
	}
	v = p.Variants[len(p.Variants)-1]

	var created core.FlavorVariant
	_, err = s.apply(ctx, store.Products, amqp.OpUpdated, func(ctx context.Context) (int64, error) {
		var err error
		created, err = s.store.InsertVariant(ctx, productID, v)
		if err != nil {
			return 0, fmt.Errorf("add flavor %q: %w", v.Name, err)
		}
		return productID, nil
	})
	if err != nil {
		return core.FlavorVariant{}, err
	}
	return created, nil
}
