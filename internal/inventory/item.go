package inventory

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Prices go over the wire as JSON numbers.
func init() { decimal.MarshalJSONWithoutQuotes = true }

type Item struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	Datasheet    string          `json:"datasheet,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Category     string          `json:"category,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
}

// Line is a requested quantity of one item.
type Line struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type Shortfall struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type Availability struct {
	OK         bool        `json:"ok"`
	Shortfalls []Shortfall `json:"shortfalls,omitempty"`
}

// ShortfallError is returned by Reserve when stock does not cover the request.
type ShortfallError struct {
	Shortfalls []Shortfall
}

func (e *ShortfallError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s requested=%d available=%d", s.ID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (it Item) clone() Item {
	if it.Tags != nil {
		it.Tags = append([]string(nil), it.Tags...)
	}
	return it
}

// merge sums quantities per id, keeping first-seen order. A sum that would
// overflow is pinned at math.MaxInt, which no stock level can cover.
func merge(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := pos[l.ID]; ok {
			if l.Quantity > math.MaxInt-out[i].Quantity {
				out[i].Quantity = math.MaxInt
			} else {
				out[i].Quantity += l.Quantity
			}
			continue
		}
		pos[l.ID] = len(out)
		out = append(out, l)
	}
	return out
}
