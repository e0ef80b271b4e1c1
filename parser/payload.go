package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// Envelope is the outer shape shared by every API response.
type Envelope struct {
	Error json.RawMessage `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// Failed reports whether the API flagged the response as an error.
func (e *Envelope) Failed() bool {
	return Truthy(e.Error)
}

// DecodeEnvelope parses a raw response body.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Truthy reports whether a JSON value counts as set: null, false, zero, empty
// strings and empty collections do not.
func Truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case float64:
		return value != 0
	case string:
		return value != ""
	case []interface{}:
		return len(value) > 0
	case map[string]interface{}:
		return len(value) > 0
	default:
		return true
	}
}

// Int decodes integers sent either as JSON numbers or numeric strings.
type Int int

// UnmarshalJSON implements json.Unmarshaler.
func (i *Int) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*i = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*i = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*i = Int(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse integer %q: %w", s, err)
	}
	*i = Int(math.Round(f))
	return nil
}

// Session is the payload of the start endpoint.
type Session struct {
	Token string `json:"token"`
}

// ParseSession decodes the start payload.
func ParseSession(data json.RawMessage) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if strings.TrimSpace(s.Token) == "" {
		return nil, fmt.Errorf("session token is empty")
	}
	return &s, nil
}

// Good is one catalog listing entry. Entries with packing variants bundle
// several purchasable products under one logical good.
type Good struct {
	ID              Int    `json:"id"`
	Title           string `json:"title"`
	Webpage         string `json:"webpage"`
	BrandName       string `json:"brand_name"`
	IsAvailable     bool   `json:"isAvailable"`
	PackingVariants []Good `json:"packingVariants"`
}

// Product converts the entry into a standalone product.
func (g Good) Product() *models.Product {
	return &models.Product{
		ID:        int(g.ID),
		Title:     NormalizeText(g.Title),
		Link:      NormalizeText(g.Webpage),
		Brand:     NormalizeText(g.BrandName),
		Available: g.IsAvailable,
	}
}

// CatalogPage is the payload of the listing endpoint.
type CatalogPage struct {
	TotalItems Int    `json:"total_items"`
	Goods      []Good `json:"goods"`
	GoodsIDs   []Int  `json:"goods_ids"`
}

// ParseCatalog decodes the listing payload.
func ParseCatalog(data json.RawMessage) (*CatalogPage, error) {
	var page CatalogPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &page, nil
}

// IDs returns the ordered product ID list.
func (c *CatalogPage) IDs() []int {
	out := make([]int, len(c.GoodsIDs))
	for i, id := range c.GoodsIDs {
		out[i] = int(id)
	}
	return out
}

// Products expands the goods into standalone products. Packing variants are
// keyed by their own ID, never the group's.
func (c *CatalogPage) Products() []*models.Product {
	out := make([]*models.Product, 0, len(c.Goods))
	for _, good := range c.Goods {
		if len(good.PackingVariants) == 0 {
			out = append(out, good.Product())
			continue
		}
		for _, variant := range good.PackingVariants {
			out = append(out, variant.Product())
		}
	}
	return out
}

// PricePayload is the price block attached to a variant.
type PricePayload struct {
	Actual                      Int `json:"actual"`
	SingleItemPackDiscountPrice Int `json:"singleItemPackDiscountPrice"`
}

// Price converts the payload into model prices.
func (p PricePayload) Price() models.Price {
	return models.Price{
		RegularPrice: int(p.Actual),
		PromoPrice:   int(p.SingleItemPackDiscountPrice),
	}
}

// VariantPrice is one priced variant inside a price entry.
type VariantPrice struct {
	ID    Int          `json:"id"`
	Price PricePayload `json:"price"`
}

// PriceInfo groups variants under their representative offer.
type PriceInfo struct {
	ActiveOfferID Int            `json:"active_offer_id"`
	Variants      []VariantPrice `json:"variants"`
}

// PriceList is the payload of the info-list endpoint.
type PriceList struct {
	Products []PriceInfo `json:"products"`
}

// ParsePriceList decodes the info-list payload.
func ParsePriceList(data json.RawMessage) (*PriceList, error) {
	var list PriceList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode price list: %w", err)
	}
	return &list, nil
}
