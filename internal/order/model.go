package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
)

type Status string

const (
	StatusInitialized Status = "INITIALIZED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusOnTheWay    Status = "ON_THE_WAY"
	StatusDelivered   Status = "DELIVERED"
	StatusCancelled   Status = "CANCELLED"
	StatusFailed      Status = "FAILED"
)

// Forward rank of the fulfilment states.
var rank = map[Status]int{
	StatusInitialized: 0,
	StatusConfirmed:   1,
	StatusOnTheWay:    2,
	StatusDelivered:   3,
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	switch s {
	case StatusInitialized, StatusConfirmed, StatusOnTheWay, StatusDelivered, StatusCancelled, StatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("unknown order status %q", v)
}

// Absorbing states accept no further transition.
func (s Status) Absorbing() bool { return s == StatusCancelled || s == StatusFailed }

// CanTransition allows forward moves along the fulfilment path and a move
// into CANCELLED or FAILED from any state that is not final.
func CanTransition(from, to Status) bool {
	if from == to || from.Absorbing() || from == StatusDelivered {
		return false
	}
	if to.Absorbing() {
		return true
	}
	fr, ok1 := rank[from]
	tr, ok2 := rank[to]
	return ok1 && ok2 && tr > fr
}

// PaymentStatus is independent of Status. The empty value means no payment
// attempt has started.
type PaymentStatus string

const (
	PaymentUnset       PaymentStatus = ""
	PaymentInitialized PaymentStatus = "INITIALIZED"
	PaymentPending     PaymentStatus = "PENDING"
	PaymentCompleted   PaymentStatus = "COMPLETED"
	PaymentFailed      PaymentStatus = "FAILED"
)

// Started reports whether an online payment attempt has begun.
func (p PaymentStatus) Started() bool {
	return p != PaymentUnset && p != PaymentInitialized
}

type Item struct {
	ID           int64           `json:"id"`
	Menu         cart.Menu       `json:"menu"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Subtotal     decimal.Decimal `json:"subtotal"`

	HasReview      bool `json:"hasReview"`
	ReviewEligible bool `json:"reviewEligible"`
}

type Order struct {
	ID            int64           `json:"id"`
	Items         []Item          `json:"orderItems"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	OrderDate     Timestamp       `json:"orderDate"`
	Status        Status          `json:"orderStatus"`
	PaymentStatus PaymentStatus   `json:"paymentStatus,omitempty"`
}

// AnnotateReviews marks the items a customer may still review: the order has
// been delivered and the item has no review yet.
func (o *Order) AnnotateReviews() {
	for i := range o.Items {
		o.Items[i].ReviewEligible = o.Status == StatusDelivered && !o.Items[i].HasReview
	}
}

func (o Order) Item(menuID int64) (Item, bool) {
	for _, it := range o.Items {
		if it.Menu.ID == menuID {
			return it, true
		}
	}
	return Item{}, false
}

type Filter struct {
	Status Status
	Page   int
	Size   int
}

type Page struct {
	Content       []Order `json:"content"`
	TotalPages    int     `json:"totalPages"`
	TotalElements int64   `json:"totalElements"`
	Number        int     `json:"number"`
	Size          int     `json:"size"`
}

// Timestamp accepts RFC 3339 and zone-less ISO local date-times.
type Timestamp struct{ time.Time }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	v := strings.Trim(string(b), `"`)
	if v == "" || v == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, v); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", v)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}
