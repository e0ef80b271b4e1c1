package parser

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

func intPtr(v int) *int { return &v }

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *models.Record
		wantErr bool
	}{
		{
			name:    "valid record",
			record:  &models.Record{ID: 1, Title: "Корм", RegularPrice: intPtr(100), PromoPrice: intPtr(90)},
			wantErr: false,
		},
		{
			name:    "valid record without price",
			record:  &models.Record{ID: 2, Title: "Корм"},
			wantErr: false,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: true,
		},
		{
			name:    "zero id",
			record:  &models.Record{ID: 0, Title: "Корм"},
			wantErr: true,
		},
		{
			name:    "blank title is exported",
			record:  &models.Record{ID: 3, Title: "   "},
			wantErr: false,
		},
		{
			name:    "negative price",
			record:  &models.Record{ID: 4, Title: "Корм", RegularPrice: intPtr(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "  Royal   Canin ", expected: "Royal Canin"},
		{input: "\tкорм\nдля кошек", expected: "корм для кошек"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.input); got != tt.expected {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{raw: ``, expected: false},
		{raw: `null`, expected: false},
		{raw: `false`, expected: false},
		{raw: `0`, expected: false},
		{raw: `""`, expected: false},
		{raw: `[]`, expected: false},
		{raw: `{}`, expected: false},
		{raw: `true`, expected: true},
		{raw: `1`, expected: true},
		{raw: `"token expired"`, expected: true},
		{raw: `[{"code":"x"}]`, expected: true},
		{raw: `{"code":"x"}`, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Truthy(json.RawMessage(tt.raw)); got != tt.expected {
				t.Fatalf("Truthy(%q) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"error":[],"data":{"token":"abc"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Failed() {
		t.Fatalf("empty error list must not fail")
	}
	session, err := ParseSession(env.Data)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if session.Token != "abc" {
		t.Fatalf("token = %q", session.Token)
	}

	if _, err := DecodeEnvelope([]byte(`<html>`)); err == nil {
		t.Fatalf("expected error for non-json body")
	}
	if _, err := ParseSession(json.RawMessage(`{"token":""}`)); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestIntAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A Int `json:"a"`
		B Int `json:"b"`
		C Int `json:"c"`
		D Int `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a":12,"b":"34","c":56.0,"d":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != 12 || payload.B != 34 || payload.C != 56 || payload.D != 0 {
		t.Fatalf("decoded %+v", payload)
	}

	var bad Int
	if err := json.Unmarshal([]byte(`"abc"`), &bad); err == nil {
		t.Fatalf("expected error for non-numeric string")
	}
}

func TestParseCatalogExpandsPackingVariants(t *testing.T) {
	data := json.RawMessage(`{
		"total_items": 3,
		"goods_ids": [10, 21, 22],
		"goods": [
			{"id": 10, "title": " Корм  A ", "webpage": "/a", "brand_name": "Brand", "isAvailable": true},
			{"id": 20, "title": "Group", "packingVariants": [
				{"id": 21, "title": "Group 1kg", "webpage": "/g1", "brand_name": "Brand", "isAvailable": true},
				{"id": 22, "title": "Group 2kg", "webpage": "/g2", "brand_name": "Brand", "isAvailable": false}
			]}
		]
	}`)

	page, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if page.TotalItems != 3 {
		t.Fatalf("total = %d", page.TotalItems)
	}
	if got := page.IDs(); !reflect.DeepEqual(got, []int{10, 21, 22}) {
		t.Fatalf("ids = %v", got)
	}

	products := page.Products()
	if len(products) != 3 {
		t.Fatalf("products = %d, want 3", len(products))
	}
	ids := []int{products[0].ID, products[1].ID, products[2].ID}
	if !reflect.DeepEqual(ids, []int{10, 21, 22}) {
		t.Fatalf("product ids = %v, group id must not appear", ids)
	}
	if products[0].Title != "Корм A" || products[0].Link != "/a" || !products[0].Available {
		t.Fatalf("product 10 = %+v", products[0])
	}
	if products[2].Available {
		t.Fatalf("product 22 should be unavailable")
	}
}

func TestParsePriceList(t *testing.T) {
	data := json.RawMessage(`{"products":[
		{"active_offer_id": 1, "variants": [
			{"id": 1, "price": {"actual": 1000, "singleItemPackDiscountPrice": 900}},
			{"id": "2", "price": {"actual": "500", "singleItemPackDiscountPrice": 450.0}}
		]}
	]}`)

	list, err := ParsePriceList(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(list.Products) != 1 || len(list.Products[0].Variants) != 2 {
		t.Fatalf("unexpected shape: %+v", list)
	}
	second := list.Products[0].Variants[1]
	if second.ID != 2 {
		t.Fatalf("variant id = %d", second.ID)
	}
	if got := second.Price.Price(); got != (models.Price{RegularPrice: 500, PromoPrice: 450}) {
		t.Fatalf("price = %+v", got)
	}
}
