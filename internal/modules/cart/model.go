package cart

import (
	"sync"

	"github.com/google/uuid"
)

// Line is a pending, unconfirmed quantity of one product. Name, price, and
// cost are snapshotted from the catalog mirror when the line is created.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	Qty       int       `json:"qty"`
}

// Cart maps product ids to lines. It exists only in process memory and is
// discarded on successful checkout or restart. mu guards all fields and is
// taken by Store.With.
type Cart struct {
	mu    sync.Mutex
	lines map[uuid.UUID]*Line
	order []uuid.UUID
}

func newCart() *Cart {
	return &Cart{lines: map[uuid.UUID]*Line{}}
}

func (c *Cart) line(id uuid.UUID) (*Line, bool) {
	l, ok := c.lines[id]
	return l, ok
}

func (c *Cart) add(l Line) {
	if existing, ok := c.lines[l.ProductID]; ok {
		existing.Qty++
		return
	}
	l.Qty = 1
	c.lines[l.ProductID] = &l
	c.order = append(c.order, l.ProductID)
}

// decrement lowers the line's qty by 1, floored at 0. A line reaching 0 is
// removed entirely; the cart never holds a zero-qty line.
func (c *Cart) decrement(id uuid.UUID) {
	l, ok := c.lines[id]
	if !ok {
		return
	}
	l.Qty--
	if l.Qty <= 0 {
		delete(c.lines, id)
		for i, oid := range c.order {
			if oid == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
}

func (c *Cart) isEmpty() bool { return len(c.lines) == 0 }

func (c *Cart) clear() {
	c.lines = map[uuid.UUID]*Line{}
	c.order = nil
}

// snapshot copies the lines out in insertion order.
func (c *Cart) snapshot() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

// View is the cart as presented to clients.
type View struct {
	Lines []Line  `json:"lines"`
	Total float64 `json:"total"`
}

func viewOf(c *Cart) *View {
	v := &View{Lines: c.snapshot()}
	for _, l := range v.Lines {
		v.Total += l.Price * float64(l.Qty)
	}
	return v
}
