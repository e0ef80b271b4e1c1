// Package models defines data structures for the catalog exporter.
package models

import "time"

// Price holds prices in minor currency units.
type Price struct {
	RegularPrice int `json:"regular_price"`
	PromoPrice   int `json:"promo_price"`
}

// Product is a catalog entry. A product with variants is a parent.
type Product struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	Brand     string     `json:"brand"`
	Available bool       `json:"available"`
	Price     *Price     `json:"price,omitempty"`
	Variants  []*Product `json:"variants,omitempty"`
}

// SetPrice assigns the product price. A later assignment overwrites an earlier one.
func (p *Product) SetPrice(price Price) {
	p.Price = &price
}

// HasVariant reports whether a product with id is already nested under p.
func (p *Product) HasVariant(id int) bool {
	for _, v := range p.Variants {
		if v.ID == id {
			return true
		}
	}
	return false
}

// ProductMap indexes products by ID and remembers insertion order.
type ProductMap struct {
	index map[int]*Product
	order []int
}

// NewProductMap returns an empty map.
func NewProductMap() *ProductMap {
	return &ProductMap{index: make(map[int]*Product)}
}

// Put stores p under p.ID. Replacing an existing key keeps its position.
func (m *ProductMap) Put(p *Product) {
	if _, ok := m.index[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.index[p.ID] = p
}

// Get returns the product stored under id.
func (m *ProductMap) Get(id int) (*Product, bool) {
	p, ok := m.index[id]
	return p, ok
}

// Has reports whether id is a key.
func (m *ProductMap) Has(id int) bool {
	_, ok := m.index[id]
	return ok
}

// Delete removes id from the map.
func (m *ProductMap) Delete(id int) {
	if _, ok := m.index[id]; !ok {
		return
	}
	delete(m.index, id)
	for i, key := range m.order {
		if key == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (m *ProductMap) Len() int {
	return len(m.order)
}

// IDs returns the keys in insertion order.
func (m *ProductMap) IDs() []int {
	out := make([]int, len(m.order))
	copy(out, m.order)
	return out
}

// Values returns the products in insertion order.
func (m *ProductMap) Values() []*Product {
	out := make([]*Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.index[id])
	}
	return out
}

// Record is one flattened export row.
type Record struct {
	ID           int    `json:"id"`
	ParentID     int    `json:"parent_id,omitempty"`
	Title        string `json:"title"`
	Link         string `json:"link"`
	Brand        string `json:"brand"`
	Available    bool   `json:"available"`
	RegularPrice *int   `json:"regular_price,omitempty"`
	PromoPrice   *int   `json:"promo_price,omitempty"`
}

// NewRecord builds the export row for p. parentID is zero for top-level products.
func NewRecord(p *Product, parentID int) *Record {
	r := &Record{
		ID:        p.ID,
		ParentID:  parentID,
		Title:     p.Title,
		Link:      p.Link,
		Brand:     p.Brand,
		Available: p.Available,
	}
	if p.Price != nil {
		regular, promo := p.Price.RegularPrice, p.Price.PromoPrice
		r.RegularPrice = &regular
		r.PromoPrice = &promo
	}
	return r
}

// Flatten emits every top-level product followed by its variants.
func Flatten(products []*Product) []*Record {
	records := make([]*Record, 0, len(products))
	for _, p := range products {
		records = append(records, NewRecord(p, 0))
		for _, v := range p.Variants {
			records = append(records, NewRecord(v, p.ID))
		}
	}
	return records
}

// ScrapeResult holds the overall result of a catalog run.
type ScrapeResult struct {
	Products     []*Product
	StartTime    time.Time
	EndTime      time.Time
	TotalItems   int
	CatalogSize  int
	ChunkCount   int
	FailedChunks int
	ErrorCount   int
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
}
