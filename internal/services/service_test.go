package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"

	"confeitaria/internal/amqp"
	"confeitaria/internal/core"
	"confeitaria/internal/export"
	"confeitaria/internal/forms"
	"confeitaria/internal/installments"
	"confeitaria/internal/store"
	"confeitaria/internal/store/snapshot"
	"confeitaria/internal/summary"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	collection string
	op         amqp.Op
	id         int64
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []change
	err     error
}

func (p *recordingPublisher) PublishChange(_ context.Context, collection string, op amqp.Op, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change{collection, op, id})
	return p.err
}

func (p *recordingPublisher) all() []change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]change(nil), p.changes...)
}

// failingStore lets writes fail on demand while reads keep working.
type failingStore struct {
	*snapshot.Store
	fail bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) InsertProduct(ctx context.Context, p core.Product) (core.Product, error) {
	if f.fail {
		return core.Product{}, errDiskFull
	}
	return f.Store.InsertProduct(ctx, p)
}

func (f *failingStore) InsertOrder(ctx context.Context, o core.Order) (core.Order, error) {
	if f.fail {
		return core.Order{}, errDiskFull
	}
	return f.Store.InsertOrder(ctx, o)
}

func (f *failingStore) UpdateOrder(ctx context.Context, id int64, patch store.OrderPatch) error {
	if f.fail {
		return errDiskFull
	}
	return f.Store.UpdateOrder(ctx, id, patch)
}

type fixture struct {
	svc       *Service
	store     *failingStore
	publisher *recordingPublisher
	changed   []string
	cake      core.Product
	brig      core.Product
	topper    core.Product
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()
	snap, err := snapshot.Open("")
	require.NoError(t, err)

	f := &fixture{store: &failingStore{Store: snap}, publisher: &recordingPublisher{}}
	opts.Publisher = f.publisher
	opts.OnChange = func(collection string) { f.changed = append(f.changed, collection) }
	f.svc, err = New(ctx, f.store, opts)
	require.NoError(t, err)

	f.cake, err = f.svc.CreateProduct(ctx, core.Product{
		Name: "Bolo de pote", Category: core.Cake, Customizable: true,
		Variants: []core.FlavorVariant{{Name: "Chocolate", Price: core.Cents(1200)}, {Name: "Ninho", Price: core.Cents(1500)}},
	})
	require.NoError(t, err)
	f.brig, err = f.svc.CreateProduct(ctx, core.NewSimpleProduct("Brigadeiro", core.Sweet, core.Cents(250)))
	require.NoError(t, err)
	f.topper, err = f.svc.CreateProduct(ctx, core.NewSimpleProduct("Topo", core.AddOn, core.Cents(500)))
	require.NoError(t, err)
	return f
}

func (f *fixture) order(t *testing.T, status core.PaymentStatus, paid int64) core.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), forms.OrderDraft{
		Client: "Ana",
		Lines: []forms.LineDraft{
			{ProductID: f.cake.ID, VariantID: f.cake.Variants[0].ID, Quantity: decimal.NewFromInt(2), AddOnIDs: []int64{f.topper.ID}},
			{ProductID: f.brig.ID, Quantity: decimal.NewFromInt(10)},
		},
		PaymentStatus: status,
		AmountPaid:    core.Cents(paid),
		Date:          core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)
	return o
}

func TestNewLoadsExistingRecords(t *testing.T) {
	ctx := context.Background()
	snap, err := snapshot.Open("")
	require.NoError(t, err)
	_, err = snap.InsertProduct(ctx, core.NewSimpleProduct("Beijinho", core.Sweet, core.Cents(250)))
	require.NoError(t, err)
	_, err = snap.InsertExpense(ctx, core.Expense{Amount: core.Cents(900), Vendor: "Feira", PurchaseDate: core.NewDate(2024, 1, 2)})
	require.NoError(t, err)

	svc, err := New(ctx, snap, Options{})
	require.NoError(t, err)
	assert.Len(t, svc.Products(), 1)
	assert.Len(t, svc.Expenses(), 1)
	assert.Empty(t, svc.Orders())
	assert.Equal(t, summary.CanceledAllTime, svc.CanceledScope())
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	names := make([]string, 0, 3)
	for _, p := range f.svc.Products() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Bolo de pote", "Brigadeiro", "Topo"}, names)

	t.Run("invalid product is not stored", func(t *testing.T) {
		_, err := f.svc.CreateProduct(ctx, core.Product{Name: "  ", Category: core.Sweet})
		assert.ErrorIs(t, err, core.ErrEmptyName)
		assert.Len(t, f.svc.Products(), 3)
	})

	t.Run("add flavor", func(t *testing.T) {
		v, err := f.svc.AddVariant(ctx, f.cake.ID, core.FlavorVariant{Name: " Morango ", Price: core.Cents(1600)})
		require.NoError(t, err)
		assert.NotZero(t, v.ID)
		assert.Equal(t, "Morango", v.Name)

		p, err := f.svc.Product(f.cake.ID)
		require.NoError(t, err)
		assert.Len(t, p.Variants, 3)
	})

	t.Run("duplicate flavor", func(t *testing.T) {
		_, err := f.svc.AddVariant(ctx, f.cake.ID, core.FlavorVariant{Name: "ninho", Price: core.Cents(1)})
		assert.True(t, core.IsValidation(err))
	})

	t.Run("simple products take no flavors", func(t *testing.T) {
		_, err := f.svc.AddVariant(ctx, f.brig.ID, core.FlavorVariant{Name: "Branco", Price: core.Cents(1)})
		ve, ok := core.AsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "product", ve.Field)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.svc.AddVariant(ctx, 999, core.FlavorVariant{Name: "X"})
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, f.svc.DeleteProduct(ctx, 999), store.ErrNotFound)
	})

	t.Run("update keeps simple product price in sync", func(t *testing.T) {
		p := f.brig
		p.Name = "Brigadeiro Gourmet"
		p.Variants[0].Price = core.Cents(350)
		got, err := f.svc.UpdateProduct(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "Brigadeiro Gourmet", got.Variants[0].Name)
		assert.Equal(t, core.Cents(350), got.Variants[0].Price)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteProduct(ctx, f.topper.ID))
		_, err := f.svc.Product(f.topper.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestQuoteLine(t *testing.T) {
	f := newFixture(t, Options{})

	item, err := f.svc.QuoteLine(forms.LineDraft{
		ProductID: f.cake.ID, VariantID: f.cake.Variants[1].ID,
		Quantity: decimal.RequireFromString("1.5"), AddOnIDs: []int64{f.topper.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ninho", item.Variant)
	assert.Equal(t, core.Cents(1500*3/2+500), item.Total)

	// a simple product prices from its implicit variant
	item, err = f.svc.QuoteLine(forms.LineDraft{ProductID: f.brig.ID, Quantity: decimal.NewFromInt(4)})
	require.NoError(t, err)
	assert.Equal(t, core.Cents(1000), item.Total)
	assert.Empty(t, item.Variant)

	_, err = f.svc.QuoteLine(forms.LineDraft{ProductID: 404, Quantity: decimal.NewFromInt(1)})
	ve, ok := core.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "product_id", ve.Field)

	_, err = f.svc.QuoteLine(forms.LineDraft{ProductID: f.brig.ID, AddOnIDs: []int64{404}})
	ve, ok = core.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "add_on_ids", ve.Field)
}

func TestCreateOrderSettlesPayment(t *testing.T) {
	// 2 x 1200 + 500 topper, plus 10 x 250
	const total = 5400

	tests := []struct {
		name   string
		status core.PaymentStatus
		given  int64
		want   int64
	}{
		{"fully paid takes the total", core.FullyPaid, 0, total},
		{"unpaid clears the amount", core.Unpaid, 1000, 0},
		{"partial keeps the amount", core.PartiallyPaid, 2000, 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			o := f.order(t, tt.status, tt.given)
			assert.Equal(t, core.Cents(total), o.Total())
			assert.Equal(t, core.Cents(tt.want), o.AmountPaid)
			assert.Equal(t, core.InProgress, o.Status)
			require.Len(t, f.svc.Orders(), 1)
		})
	}
}

func TestCreateOrderErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.CreateOrder(ctx, forms.OrderDraft{Client: "Ana"})
	assert.ErrorIs(t, err, core.ErrNoLines)

	_, err = f.svc.CreateOrder(ctx, forms.OrderDraft{
		Client: "Ana",
		Lines:  []forms.LineDraft{{ProductID: f.cake.ID, Quantity: decimal.NewFromInt(1)}},
	})
	ve, ok := core.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "variant", ve.Field)
	assert.Contains(t, ve.Msg, "line 1")

	_, err = f.svc.CreateOrder(ctx, forms.OrderDraft{
		Client:        "Ana",
		Lines:         []forms.LineDraft{{ProductID: f.brig.ID, Quantity: decimal.NewFromInt(1)}},
		PaymentStatus: core.PartiallyPaid,
		AmountPaid:    core.Cents(300),
	})
	assert.ErrorIs(t, err, core.ErrOverpayment)
	assert.Empty(t, f.svc.Orders())
}

func TestOverpaymentAllowed(t *testing.T) {
	f := newFixture(t, Options{Overpayment: AllowOverpayment})
	o := f.order(t, core.PartiallyPaid, 9000)
	assert.Equal(t, core.Cents(9000), o.AmountPaid)
	assert.Equal(t, core.Cents(-3600), o.Outstanding())
}

func TestSetOrderStatusAndPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	o := f.order(t, core.Unpaid, 0)

	got, err := f.svc.SetOrderStatus(ctx, o.ID, core.Delivered)
	require.NoError(t, err)
	assert.Equal(t, core.Delivered, got.Status)

	got, err = f.svc.SetOrderPayment(ctx, o.ID, forms.PaymentUpdate{Status: core.PartiallyPaid, AmountPaid: core.Cents(1000)})
	require.NoError(t, err)
	assert.Equal(t, core.Cents(1000), got.AmountPaid)

	got, err = f.svc.SetOrderPayment(ctx, o.ID, forms.PaymentUpdate{Status: core.FullyPaid})
	require.NoError(t, err)
	assert.Equal(t, got.Total(), got.AmountPaid)
	assert.True(t, got.Outstanding().Cents == 0)

	_, err = f.svc.SetOrderPayment(ctx, o.ID, forms.PaymentUpdate{Status: core.PartiallyPaid, AmountPaid: core.Cents(999999)})
	assert.ErrorIs(t, err, core.ErrOverpayment)

	_, err = f.svc.SetOrderStatus(ctx, o.ID, core.OrderStatus("lost"))
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
	_, err = f.svc.SetOrderStatus(ctx, 999, core.Canceled)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPersistenceFailureLeavesReadModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	o := f.order(t, core.Unpaid, 0)
	published := len(f.publisher.all())
	changed := len(f.changed)

	f.store.fail = true
	_, err := f.svc.CreateProduct(ctx, core.NewSimpleProduct("Beijinho", core.Sweet, core.Cents(250)))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, store.Products, pe.Collection)
	assert.ErrorIs(t, err, errDiskFull)
	assert.True(t, IsPersistence(err))

	_, err = f.svc.SetOrderStatus(ctx, o.ID, core.Canceled)
	require.True(t, IsPersistence(err))

	assert.Len(t, f.svc.Products(), 3)
	got, err := f.svc.Order(o.ID)
	require.NoError(t, err)
	assert.Equal(t, core.InProgress, got.Status)
	assert.Len(t, f.publisher.all(), published, "nothing is announced for a failed write")
	assert.Len(t, f.changed, changed)
}

func TestMutationsAreAnnounced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	o := f.order(t, core.Unpaid, 0)
	_, err := f.svc.SetOrderStatus(ctx, o.ID, core.Delivered)
	require.NoError(t, err)

	changes := f.publisher.all()
	require.Len(t, changes, 5)
	assert.Equal(t, change{store.Products, amqp.OpCreated, f.cake.ID}, changes[0])
	assert.Equal(t, change{store.Orders, amqp.OpCreated, o.ID}, changes[3])
	assert.Equal(t, change{store.Orders, amqp.OpUpdated, o.ID}, changes[4])
	assert.Equal(t, []string{store.Products, store.Products, store.Products, store.Orders, store.Orders}, f.changed)
}

func TestPublishFailureKeepsTheWrite(t *testing.T) {
	f := newFixture(t, Options{})
	f.publisher.err = amqp.ErrCircuitOpen

	o := f.order(t, core.FullyPaid, 0)
	got, err := f.svc.Order(o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestCommittedWriteSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	// cancel from inside the store call: the write is committed, so the
	// refresh and announcement must still happen
	cancelling := &cancelOnInsert{failingStore: f.store, cancel: cancel}
	f.svc.store = cancelling

	p, err := f.svc.CreateProduct(ctx, core.NewSimpleProduct("Beijinho", core.Sweet, core.Cents(250)))
	require.NoError(t, err)
	_, err = f.svc.Product(p.ID)
	assert.NoError(t, err)
}

type cancelOnInsert struct {
	*failingStore
	cancel context.CancelFunc
}

func (c *cancelOnInsert) InsertProduct(ctx context.Context, p core.Product) (core.Product, error) {
	created, err := c.failingStore.InsertProduct(ctx, p)
	c.cancel()
	return created, err
}

func TestExpenses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	draft := forms.ExpenseDraft{
		Amount:       core.Cents(30000),
		Vendor:       "Atacadão",
		PurchaseDate: core.NewDate(2024, 1, 15),
		Payments: []installments.Intent{
			{Method: core.CreditCard, Amount: core.Cents(20000), CardName: "Nubank", CutoffDay: 10, Installments: 3},
			{Method: core.InstantTransfer, Amount: core.Cents(10000)},
		},
	}

	preview, err := f.svc.PreviewPayments(draft.Payments, draft.PurchaseDate)
	require.NoError(t, err)
	require.Len(t, preview, 4)
	assert.Equal(t, "2024-02-10", preview[0].DueDate.String())
	assert.Equal(t, core.Cents(6668), preview[2].Amount, "last installment absorbs the remainder")
	assert.Empty(t, f.svc.Expenses(), "preview stores nothing")

	tiny := []installments.Intent{{Method: core.CreditCard, Amount: core.Cents(2), CardName: "Nubank", CutoffDay: 10, Installments: 3}}
	_, err = f.svc.PreviewPayments(tiny, draft.PurchaseDate)
	assert.ErrorIs(t, err, core.ErrInvalidInstall)
	_, err = f.svc.CreateExpense(ctx, forms.ExpenseDraft{Amount: core.Cents(2), Vendor: "Feira", PurchaseDate: draft.PurchaseDate, Payments: tiny})
	assert.ErrorIs(t, err, core.ErrInvalidInstall, "preview and save agree")

	e, err := f.svc.CreateExpense(ctx, draft)
	require.NoError(t, err)
	require.Len(t, e.Payments, 4)
	assert.Equal(t, core.Cents(30000), e.PaymentsTotal())

	draft.Vendor = "Assaí"
	draft.Payments = []installments.Intent{{Method: core.Cash, Amount: core.Cents(25000)}}
	updated, err := f.svc.UpdateExpense(ctx, e.ID, draft)
	require.NoError(t, err, "a payment mismatch is only a warning")
	assert.Equal(t, "Assaí", updated.Vendor)
	assert.Len(t, updated.Payments, 1)

	_, err = f.svc.UpdateExpense(ctx, 999, draft)
	assert.ErrorIs(t, err, store.ErrNotFound)

	draft.Vendor = ""
	_, err = f.svc.CreateExpense(ctx, draft)
	assert.ErrorIs(t, err, core.ErrEmptyVendor)

	require.NoError(t, f.svc.DeleteExpense(ctx, e.ID))
	assert.Empty(t, f.svc.Expenses())
	assert.ErrorIs(t, f.svc.DeleteExpense(ctx, e.ID), store.ErrNotFound)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	paid := f.order(t, core.FullyPaid, 0)
	open := f.order(t, core.PartiallyPaid, 1000)
	canceled := f.order(t, core.Unpaid, 0)
	_, err := f.svc.SetOrderStatus(ctx, canceled.ID, core.Canceled)
	require.NoError(t, err)

	march := summary.Period{Start: core.NewDate(2024, 3, 1), End: core.NewDate(2024, 3, 31)}
	s := f.svc.OrderSummary(march)
	assert.Equal(t, paid.Total().Add(open.Total()), s.Sold)
	assert.Equal(t, paid.Total().Add(core.Cents(1000)), s.Received)
	assert.Equal(t, s.Sold.Sub(s.Received), s.Outstanding)
	assert.Equal(t, 1, s.Canceled)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportOrders(&buf, march, export.CSV))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(records), 4)

	_, err = f.svc.CreateExpense(ctx, forms.ExpenseDraft{
		Amount: core.Cents(5000), Vendor: "Feira", PurchaseDate: core.NewDate(2024, 3, 2),
		Payments: []installments.Intent{{Method: core.Cash, Amount: core.Cents(5000)}},
	})
	require.NoError(t, err)
	es := f.svc.ExpenseSummary(march)
	assert.Equal(t, core.Cents(5000), es.ByExpense)
	assert.Equal(t, core.Cents(5000), es.ByPayment)

	buf.Reset()
	require.NoError(t, f.svc.ExportExpenses(&buf, march, export.XLSX))
	assert.NotZero(t, buf.Len())
}

func TestParseOverpaymentPolicy(t *testing.T) {
	p, err := ParseOverpaymentPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RejectOverpayment, p)
	p, err = ParseOverpaymentPolicy("allow")
	require.NoError(t, err)
	assert.Equal(t, AllowOverpayment, p)
	_, err = ParseOverpaymentPolicy("maybe")
	assert.Error(t, err)
}
