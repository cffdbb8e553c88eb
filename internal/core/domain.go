package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

const (
	Cake  Category = "cake"
	Sweet Category = "sweet"
	AddOn Category = "add-on"
)

const (
	InProgress OrderStatus = "in-progress"
	Delivered  OrderStatus = "delivered"
	Canceled   OrderStatus = "canceled"
)

const (
	Unpaid        PaymentStatus = "unpaid"
	PartiallyPaid PaymentStatus = "partially-paid"
	FullyPaid     PaymentStatus = "fully-paid"
)

const (
	Cash            PaymentMethod = "cash"
	CreditCard      PaymentMethod = "credit-card"
	InstantTransfer PaymentMethod = "instant-transfer"
	Bill            PaymentMethod = "bill"
)

type (
	Category      string
	OrderStatus   string
	PaymentStatus string
	PaymentMethod string

	Date struct {
		time.Time
	}

	FlavorVariant struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Price Money  `json:"price"`
	}

	Product struct {
		ID           int64           `json:"id"`
		Name         string          `json:"name"`
		Category     Category        `json:"category"`
		Customizable bool            `json:"customizable"`
		Variants     []FlavorVariant `json:"variants"`
	}

	// LineItem is a priced snapshot of one product within an order. It copies
	// names and prices so later catalog edits leave history untouched.
	LineItem struct {
		ID         int64           `json:"id"`
		Product    string          `json:"product"`
		Variant    string          `json:"variant,omitempty"`
		Quantity   decimal.Decimal `json:"quantity"`
		AddOns     []string        `json:"add_ons"`
		UnitPrice  Money           `json:"unit_price"`
		Total      Money           `json:"total"`
		Overridden bool            `json:"overridden,omitempty"`
	}

	Order struct {
		ID            int64         `json:"id"`
		Client        string        `json:"client"`
		Phone         string        `json:"phone,omitempty"`
		Lines         []LineItem    `json:"lines"`
		AmountPaid    Money         `json:"amount_paid"`
		PaymentStatus PaymentStatus `json:"payment_status"`
		Note          string        `json:"note,omitempty"`
		Status        OrderStatus   `json:"status"`
		Date          Date          `json:"date"`
	}

	// Installment places a payment inside a card installment plan (1-based).
	Installment struct {
		Index int `json:"index"`
		Count int `json:"count"`
	}

	Payment struct {
		ID          int64         `json:"id"`
		Method      PaymentMethod `json:"method"`
		Amount      Money         `json:"amount"`
		CardName    string        `json:"card_name,omitempty"`
		DueDate     Date          `json:"due_date"`
		Installment *Installment  `json:"installment,omitempty"`
	}

	Expense struct {
		ID           int64     `json:"id"`
		Amount       Money     `json:"amount"`
		Vendor       string    `json:"vendor"`
		PurchaseDate Date      `json:"purchase_date"`
		NextPurchase Date      `json:"next_purchase"`
		Note         string    `json:"note,omitempty"`
		Payments     []Payment `json:"payments"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before reports whether d falls on an earlier calendar day than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d falls on a later calendar day than o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Category) Valid() bool {
	switch c {
	case Cake, Sweet, AddOn:
		return true
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case InProgress, Delivered, Canceled:
		return true
	}
	return false
}

// Label is the name shown to the bakery staff.
func (s OrderStatus) Label() string {
	switch s {
	case InProgress:
		return "Fazendo"
	case Delivered:
		return "Entregue"
	case Canceled:
		return "Cancelada"
	}
	return string(s)
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case Unpaid, PartiallyPaid, FullyPaid:
		return true
	}
	return false
}

func (s PaymentStatus) Label() string {
	switch s {
	case Unpaid:
		return "Ainda não pagou"
	case PartiallyPaid:
		return "Pago parcial"
	case FullyPaid:
		return "Pago total"
	}
	return string(s)
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case Cash, CreditCard, InstantTransfer, Bill:
		return true
	}
	return false
}

func (m PaymentMethod) Label() string {
	switch m {
	case Cash:
		return "Dinheiro"
	case CreditCard:
		return "Cartão"
	case InstantTransfer:
		return "Pix"
	case Bill:
		return "Boleto"
	}
	return string(m)
}

// NewSimpleProduct builds a non-customizable product whose single implicit
// variant carries the product's own name and price.
func NewSimpleProduct(name string, category Category, price Money) Product {
	p := Product{Name: strings.TrimSpace(name), Category: category}
	p.Variants = []FlavorVariant{{Name: p.Name, Price: price}}
	return p
}

// Normalize trims names and, for non-customizable products, keeps exactly one
// variant mirroring the product name.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	for i := range p.Variants {
		p.Variants[i].Name = strings.TrimSpace(p.Variants[i].Name)
	}
	if p.Customizable {
		return
	}
	if len(p.Variants) == 0 {
		return
	}
	v := p.Variants[0]
	v.Name = p.Name
	p.Variants = []FlavorVariant{v}
}

// ImplicitVariant is the single variant of a non-customizable product.
func (p Product) ImplicitVariant() (FlavorVariant, bool) {
	if len(p.Variants) == 0 {
		return FlavorVariant{}, false
	}
	return p.Variants[0], true
}

// Variant looks up a variant owned by p.
func (p Product) Variant(id int64) (FlavorVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return FlavorVariant{}, false
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 100 {
		return NewValidationError("name", "name too long (max 100 characters)")
	}
	if !p.Category.Valid() {
		return ErrInvalidCategory
	}
	if !p.Customizable {
		if len(p.Variants) != 1 {
			return NewValidationError("variants", "a simple product has exactly one price")
		}
		if p.Variants[0].Name != p.Name {
			return NewValidationError("variants", "the price of a simple product must carry the product name")
		}
	}
	seen := make(map[string]struct{}, len(p.Variants))
	for _, v := range p.Variants {
		if err := v.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(v.Name)
		if _, dup := seen[key]; dup {
			return NewValidationError("variants", "duplicate flavor %q", v.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (v FlavorVariant) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return NewValidationError("variant", "flavor name cannot be empty")
	}
	if v.Price.Cents < 0 {
		return NewValidationError("price", "price cannot be negative")
	}
	return nil
}

// Total is recomputed from the lines every time; orders never carry a cached
// total of their own.
func (o Order) Total() Money {
	var t Money
	for _, l := range o.Lines {
		t = t.Add(l.Total)
	}
	return t
}

// Outstanding is what the client still owes.
func (o Order) Outstanding() Money {
	return o.Total().Sub(o.AmountPaid)
}

func (o Order) Validate() error {
	if strings.TrimSpace(o.Client) == "" {
		return ErrEmptyClient
	}
	if len(o.Lines) == 0 {
		return ErrNoLines
	}
	for _, l := range o.Lines {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	if o.AmountPaid.Cents < 0 {
		return NewValidationError("amount_paid", "amount paid cannot be negative")
	}
	if !o.PaymentStatus.Valid() {
		return ErrInvalidPayStatus
	}
	if !o.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := o.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (l LineItem) Validate() error {
	if strings.TrimSpace(l.Product) == "" {
		return NewValidationError("product", "line has no product")
	}
	if !l.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if l.Total.Cents < 0 || l.UnitPrice.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (p Payment) Validate() error {
	if !p.Method.Valid() {
		return ErrInvalidMethod
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.Method == CreditCard && strings.TrimSpace(p.CardName) == "" {
		return ErrMissingCardName
	}
	if err := p.DueDate.Validate(); err != nil {
		return NewValidationError("due_date", "%s", err.Error())
	}
	if p.Installment != nil {
		if p.Method != CreditCard {
			return NewValidationError("installments", "only credit-card payments can be split")
		}
		if p.Installment.Count < 1 || p.Installment.Index < 1 || p.Installment.Index > p.Installment.Count {
			return ErrInvalidInstall
		}
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Vendor) == "" {
		return ErrEmptyVendor
	}
	if len(e.Vendor) > 200 {
		return NewValidationError("vendor", "vendor too long (max 200 characters)")
	}
	if err := e.PurchaseDate.Validate(); err != nil {
		return NewValidationError("purchase_date", "%s", err.Error())
	}
	for _, p := range e.Payments {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PaymentsTotal sums the amounts of every payment of the expense.
func (e Expense) PaymentsTotal() Money {
	var t Money
	for _, p := range e.Payments {
		t = t.Add(p.Amount)
	}
	return t
}

// PaymentsMismatch is the difference between the recorded payments and the
// expense total. A non-zero value is only worth a warning.
func (e Expense) PaymentsMismatch() Money {
	if len(e.Payments) == 0 {
		return Money{}
	}
	return e.PaymentsTotal().Sub(e.Amount)
}
