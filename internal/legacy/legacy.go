// Package legacy imports the order export of the first version of the app.
//
// The export is a JSON array of orders with Portuguese keys. Lines only name
// their product, so any name missing from the catalog is created first as a
// simple product priced at the line's unit price. Orders keep the prices they
// were sold at; nothing is repriced.
package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"confeitaria/internal/core"
	"confeitaria/internal/forms"
	"confeitaria/internal/log"
	"confeitaria/internal/store"
)

// Record is one order as exported by the old app.
type Record struct {
	Cliente         forms.Value  `json:"cliente"`
	Telefone        forms.Value  `json:"telefone"`
	Produtos        []RecordLine `json:"produtos"`
	ValorTotal      forms.Value  `json:"valorTotal"`
	ValorPago       forms.Value  `json:"valorPago"`
	PagamentoStatus forms.Value  `json:"pagamentoStatus"`
	Observacao      forms.Value  `json:"observacao"`
	Status          forms.Value  `json:"status"`
	Data            forms.Value  `json:"data"`
}

type RecordLine struct {
	Produto       forms.Value       `json:"produto"`
	Sabor         forms.Value       `json:"sabor"`
	Quantidade    forms.Value       `json:"quantidade"`
	Adicionais    []json.RawMessage `json:"adicionais"`
	ValorUnitario forms.Value       `json:"valorUnitario"`
	ValorTotal    forms.Value       `json:"valorTotal"`
}

// Decode reads a legacy export.
func Decode(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode legacy export: %w", err)
	}
	return records, nil
}

// Skip explains why an order was left out.
type Skip struct {
	Index  int
	Client string
	Reason string
}

type Report struct {
	ProductsCreated int
	OrdersImported  int
	Skipped         []Skip
}

// Options control an import run.
type Options struct {
	// DryRun resolves and validates everything without writing.
	DryRun bool
	// Category is given to created products; it defaults to sweet.
	Category core.Category
}

type Importer struct {
	store  store.Store
	opts   Options
	logger *log.Logger
}

func NewImporter(st store.Store, opts Options) *Importer {
	if opts.Category == "" {
		opts.Category = core.Sweet
	}
	return &Importer{store: st, opts: opts, logger: log.WithComponent(log.ComponentImport)}
}

// Import creates missing products, then inserts every order that resolves.
// A store failure aborts the run; bad records are skipped.
func (im *Importer) Import(ctx context.Context, records []Record) (Report, error) {
	var rep Report

	products, err := im.store.ListProducts(ctx)
	if err != nil {
		return rep, fmt.Errorf("list products: %w", err)
	}
	known := make(map[string]struct{}, len(products))
	for _, p := range products {
		known[key(p.Name)] = struct{}{}
	}

	created, err := im.createMissing(ctx, records, known)
	rep.ProductsCreated = created
	if err != nil {
		return rep, err
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		o, err := im.convert(rec, known)
		if err != nil {
			skip := Skip{Index: i, Client: rec.Cliente.String(), Reason: err.Error()}
			rep.Skipped = append(rep.Skipped, skip)
			im.logger.WarnContext(ctx, "Skipping legacy order", "index", i, "client", skip.Client, "reason", skip.Reason)
			continue
		}
		if declared, err := forms.NonNegativeMoney("valorTotal", rec.ValorTotal); err == nil && !rec.ValorTotal.Blank() && declared != o.Total() {
			im.logger.WarnContext(ctx, "Legacy order total differs from its lines",
				"index", i, "client", o.Client, "declared", declared.String(), "lines", o.Total().String())
		}
		if !im.opts.DryRun {
			if _, err := im.store.InsertOrder(ctx, o); err != nil {
				return rep, fmt.Errorf("insert order %d (%s): %w", i, o.Client, err)
			}
		}
		rep.OrdersImported++
	}

	im.logger.InfoContext(ctx, "Legacy import finished",
		"products_created", rep.ProductsCreated,
		"orders_imported", rep.OrdersImported,
		"orders_skipped", len(rep.Skipped),
		"dry_run", im.opts.DryRun)
	return rep, nil
}

// createMissing adds a simple product for every unknown name, priced at the
// first unit price seen for it.
func (im *Importer) createMissing(ctx context.Context, records []Record, known map[string]struct{}) (int, error) {
	created := 0
	for _, rec := range records {
		for _, line := range rec.Produtos {
			name := line.Produto.String()
			if name == "" {
				continue
			}
			if _, ok := known[key(name)]; ok {
				continue
			}
			price, err := forms.NonNegativeMoney("valorUnitario", line.ValorUnitario)
			if err != nil {
				price = core.Money{}
			}
			p := core.NewSimpleProduct(name, im.opts.Category, price)
			if err := p.Validate(); err != nil {
				im.logger.WarnContext(ctx, "Cannot create legacy product", "product", name, log.FieldError, err)
				continue
			}
			if !im.opts.DryRun {
				if _, err := im.store.InsertProduct(ctx, p); err != nil {
					return created, fmt.Errorf("create product %q: %w", name, err)
				}
			}
			known[key(name)] = struct{}{}
			created++
			im.logger.InfoContext(ctx, "Created product from legacy orders", "product", name, "price", price.String())
		}
	}
	return created, nil
}

func (im *Importer) convert(rec Record, known map[string]struct{}) (core.Order, error) {
	o := core.Order{
		Client: rec.Cliente.String(),
		Phone:  rec.Telefone.String(),
		Note:   rec.Observacao.String(),
	}
	var err error

	for i, line := range rec.Produtos {
		name := line.Produto.String()
		if _, ok := known[key(name)]; !ok {
			return core.Order{}, fmt.Errorf("product %q is not in the catalog", name)
		}
		item, err := convertLine(line)
		if err != nil {
			return core.Order{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		o.Lines = append(o.Lines, item)
	}

	if o.AmountPaid, err = forms.NonNegativeMoney("valorPago", rec.ValorPago); err != nil {
		return core.Order{}, err
	}
	if o.PaymentStatus, err = forms.PaymentStatus(rec.PagamentoStatus); err != nil {
		return core.Order{}, err
	}
	if o.Status, err = forms.OrderStatus(rec.Status); err != nil {
		return core.Order{}, err
	}
	if o.Date, err = forms.Date("data", datePart(rec.Data)); err != nil {
		return core.Order{}, err
	}
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}
	return o, nil
}

func convertLine(line RecordLine) (core.LineItem, error) {
	item := core.LineItem{
		Product: line.Produto.String(),
		Variant: line.Sabor.String(),
	}
	var err error
	if item.Quantity, err = forms.Quantity("quantidade", line.Quantidade); err != nil {
		return core.LineItem{}, err
	}
	if item.UnitPrice, err = forms.NonNegativeMoney("valorUnitario", line.ValorUnitario); err != nil {
		return core.LineItem{}, err
	}
	if item.Total, err = forms.NonNegativeMoney("valorTotal", line.ValorTotal); err != nil {
		return core.LineItem{}, err
	}
	for _, raw := range line.Adicionais {
		if name := addOnName(raw); name != "" {
			item.AddOns = append(item.AddOns, name)
		}
	}
	return item, nil
}

// addOnName accepts add-ons stored either as plain names or as product
// objects.
func addOnName(raw json.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return strings.TrimSpace(name)
	}
	var obj struct {
		Nome    string `json:"nome"`
		Name    string `json:"name"`
		Produto string `json:"produto"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, s := range []string{obj.Nome, obj.Name, obj.Produto} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// datePart drops the time of ISO timestamps.
func datePart(v forms.Value) forms.Value {
	s := v.String()
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	return forms.Value(s)
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
