// Package cart holds the session-scoped selection of outfits a customer
// intends to rent, and the stores that persist it between requests.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidQuantity is returned when a quantity is out of range.
var ErrInvalidQuantity = errors.New("invalid quantity")

// Entry is one outfit in the cart.
type Entry struct {
	OutfitID string `json:"outfit_id"`
	Quantity int    `json:"quantity"`
}

// Cart is an ordered set of entries keyed by outfit id. The zero value is an
// empty cart ready to use.
type Cart struct {
	entries []Entry
}

// New builds a cart from entries, merging duplicates.
func New(entries ...Entry) (*Cart, error) {
	c := &Cart{}
	for _, e := range entries {
		if err := c.Add(e.OutfitID, e.Quantity); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cart) index(outfitID string) int {
	for i, e := range c.entries {
		if e.OutfitID == outfitID {
			return i
		}
	}
	return -1
}

// Add increases the quantity for outfitID, creating the entry when needed.
func (c *Cart) Add(outfitID string, quantity int) error {
	if outfitID == "" {
		return fmt.Errorf("%w: outfit id is required", ErrInvalidQuantity)
	}
	if quantity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if i := c.index(outfitID); i >= 0 {
		c.entries[i].Quantity += quantity
		return nil
	}
	c.entries = append(c.entries, Entry{OutfitID: outfitID, Quantity: quantity})
	return nil
}

// Set replaces the quantity for outfitID. A quantity of zero removes it.
func (c *Cart) Set(outfitID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		c.Remove(outfitID)
		return nil
	}
	if i := c.index(outfitID); i >= 0 {
		c.entries[i].Quantity = quantity
		return nil
	}
	c.entries = append(c.entries, Entry{OutfitID: outfitID, Quantity: quantity})
	return nil
}

// Remove deletes the entry for outfitID and reports whether it existed.
func (c *Cart) Remove(outfitID string) bool {
	i := c.index(outfitID)
	if i < 0 {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

// Quantity returns the quantity held for outfitID.
func (c *Cart) Quantity(outfitID string) int {
	if i := c.index(outfitID); i >= 0 {
		return c.entries[i].Quantity
	}
	return 0
}

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// IDs returns the outfit ids in insertion order.
func (c *Cart) IDs() []string {
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.OutfitID
	}
	return ids
}

func (c *Cart) Len() int { return len(c.entries) }

func (c *Cart) IsEmpty() bool { return len(c.entries) == 0 }

// Clone returns an independent copy.
func (c *Cart) Clone() *Cart {
	return &Cart{entries: c.Entries()}
}

// Retain keeps only the entries whose outfit id satisfies keep and returns
// the ids that were removed.
func (c *Cart) Retain(keep func(outfitID string) bool) []string {
	var removed []string
	kept := c.entries[:0]
	for _, e := range c.entries {
		if keep(e.OutfitID) {
			kept = append(kept, e)
			continue
		}
		removed = append(removed, e.OutfitID)
	}
	c.entries = kept
	return removed
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Entries())
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	fresh, err := New(entries...)
	if err != nil {
		return err
	}
	c.entries = fresh.entries
	return nil
}
