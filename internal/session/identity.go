package session

import "strings"

// Identity is one of Anonymous, Customer, Admin or DeliveryAgent.
type Identity interface {
	Subject() string
	identity()
}

type Anonymous struct{}

type Customer struct{ ID string }

type Admin struct{ ID string }

type DeliveryAgent struct{ ID string }

func (Anonymous) Subject() string       { return "" }
func (c Customer) Subject() string      { return c.ID }
func (a Admin) Subject() string         { return a.ID }
func (d DeliveryAgent) Subject() string { return d.ID }

func (Anonymous) identity()     {}
func (Customer) identity()      {}
func (Admin) identity()         {}
func (DeliveryAgent) identity() {}

type Capability string

const (
	BrowseMenu     Capability = "menu:browse"
	ManageCart     Capability = "cart:manage"
	PlaceOrder     Capability = "order:checkout"
	Pay            Capability = "payment:pay"
	ViewOwnOrders  Capability = "order:view-own"
	WriteReview    Capability = "review:write"
	ManageOrders   Capability = "order:manage"
	ViewPayments   Capability = "payment:view-all"
	ViewDeliveries Capability = "delivery:view"
)

var customerCapabilities = map[Capability]bool{
	BrowseMenu:    true,
	ManageCart:    true,
	PlaceOrder:    true,
	Pay:           true,
	ViewOwnOrders: true,
	WriteReview:   true,
}

// CanAccess is the single authorization decision for the storefront.
func CanAccess(id Identity, c Capability) bool {
	switch id.(type) {
	case Admin:
		return true
	case Customer:
		return customerCapabilities[c]
	case DeliveryAgent:
		return c == BrowseMenu || c == ViewDeliveries || c == ViewOwnOrders
	default:
		return c == BrowseMenu
	}
}

// Role names as issued by the auth backend.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
	RoleDelivery = "DELIVERY"
)

// IdentityFor picks the strongest role. An authenticated subject without a
// recognised role is a Customer.
func IdentityFor(subject string, roles []string) Identity {
	if subject == "" {
		return Anonymous{}
	}
	has := make(map[string]bool, len(roles))
	for _, r := range roles {
		r = strings.ToUpper(strings.TrimSpace(r))
		has[strings.TrimPrefix(r, "ROLE_")] = true
	}
	switch {
	case has[RoleAdmin]:
		return Admin{ID: subject}
	case has[RoleDelivery]:
		return DeliveryAgent{ID: subject}
	default:
		return Customer{ID: subject}
	}
}
