package orders

import (
	"time"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/inventory"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	Items         []Line          `json:"items"`
	Status        Status          `json:"status"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Timestamp     time.Time       `json:"timestamp"`
	StatusHistory []HistoryEntry  `json:"statusHistory"`
}

// Line is the cart line as it was priced at checkout, not a live item.
type Line struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

type CartLine = inventory.Line

type StatusUpdate struct {
	AdminCode string
	Status    Status
	Note      string
}

func (o Order) clone() Order {
	o.Items = append([]Line(nil), o.Items...)
	o.StatusHistory = append([]HistoryEntry(nil), o.StatusHistory...)
	return o
}

// StockLines is what the order holds in the catalog.
func (o Order) StockLines() []inventory.Line {
	out := make([]inventory.Line, 0, len(o.Items))
	for _, l := range o.Items {
		out = append(out, inventory.Line{ID: l.ID, Quantity: l.Quantity})
	}
	return out
}
