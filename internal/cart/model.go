package cart

import "github.com/shopspring/decimal"

type Menu struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name,omitempty"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

// Item prices are captured when the menu entry is first added and do not
// follow later menu price changes.
type Item struct {
	ID           int64           `json:"id"`
	Menu         Menu            `json:"menu"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	ID          int64           `json:"id,omitempty"`
	Owner       string          `json:"owner,omitempty"`
	Items       []Item          `json:"cartItems"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (c Cart) Empty() bool { return len(c.Items) == 0 }

func (c Cart) Find(menuID int64) (Item, bool) {
	for _, it := range c.Items {
		if it.Menu.ID == menuID {
			return it, true
		}
	}
	return Item{}, false
}

// Recalculate derives every subtotal and the total from pricePerUnit and
// quantity. It reports whether any stored figure disagreed.
func (c *Cart) Recalculate() bool {
	changed := false
	total := decimal.Zero
	for i := range c.Items {
		it := &c.Items[i]
		sub := it.PricePerUnit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if !sub.Equal(it.Subtotal) {
			it.Subtotal = sub
			changed = true
		}
		total = total.Add(sub)
	}
	if !total.Equal(c.TotalAmount) {
		c.TotalAmount = total
		changed = true
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return changed
}
