// Package notify delivers order status changes to the browser that placed
// the order, either in-process or through Kafka and a separate worker.
package notify

import (
	"context"
	"fmt"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
)

// Deliverer performs one delivery attempt for an order's status change.
type Deliverer interface {
	Deliver(ctx context.Context, orderID string, status orders.Status, note string) error
}

// Message is the JSON body shown by the service worker.
type Message struct {
	Title   string        `json:"title"`
	Body    string        `json:"body"`
	OrderID string        `json:"orderId"`
	Status  orders.Status `json:"status"`
	Note    string        `json:"note,omitempty"`
}

func NewMessage(orderID string, status orders.Status, note string) Message {
	m := Message{OrderID: orderID, Status: status, Note: note}
	switch status {
	case orders.StatusApproved:
		m.Title = "Order approved"
		m.Body = "Your hardware order is approved. Come pick it up at the desk."
	case orders.StatusDenied:
		m.Title = "Order denied"
		m.Body = "Your hardware order was denied."
	case orders.StatusCancelled:
		m.Title = "Order cancelled"
		m.Body = "Your hardware order was cancelled."
	default:
		m.Title = "Order update"
		m.Body = fmt.Sprintf("Your hardware order is now %s.", status)
	}
	if note != "" {
		m.Body += " " + note
	}
	return m
}
