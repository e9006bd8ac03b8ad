package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Cart maps package id to quantity. Entries are always positive.
type Cart map[string]int

// NewCart builds a cart from loosely typed client input.
func NewCart(raw map[string]any) Cart {
	c := Cart{}
	for id, v := range raw {
		c.Set(id, NormalizeQty(v))
	}
	return c
}

// NormalizeQty floors numeric input. Anything non-numeric, non-finite or
// negative becomes zero.
func NormalizeQty(v any) int {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = p
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(f))
}

func (c Cart) Set(id string, qty int) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if qty <= 0 {
		delete(c, id)
		return
	}
	c[id] = qty
}

func (c Cart) Clear() {
	for k := range c {
		delete(c, k)
	}
}

func (c Cart) IDs() []string {
	ids := make([]string, 0, len(c))
	for id, q := range c {
		if q > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (c Cart) Qty(id string) int {
	return c[id]
}

func (c Cart) Empty() bool {
	return len(c.IDs()) == 0
}
