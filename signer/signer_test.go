package signer

import (
	"testing"
)

func TestSignGoldenValue(t *testing.T) {
	var params Params
	params.Set("count", "1")
	params.SetInt("category_id", 2)
	params.Set("page", "1")
	params.Set("sort", "popular")
	params.Set("token", "abc")

	signed := New("").Sign(params)

	got, ok := signed.Get(SignKey)
	if !ok {
		t.Fatalf("signed params missing %q", SignKey)
	}
	if want := "5adde7441ffab07def1a53a20ed91a6b"; got != want {
		t.Fatalf("sign = %q, want %q", got, want)
	}
}

func TestSignIgnoresKeyOrder(t *testing.T) {
	var forward Params
	forward.Set("count", "1")
	forward.Set("token", "abc")
	forward.SetInt("category_id", 2)

	var reversed Params
	reversed.SetInt("category_id", 2)
	reversed.Set("token", "abc")
	reversed.Set("count", "1")

	s := New(DefaultPrefix)
	a, _ := s.Sign(forward).Get(SignKey)
	b, _ := s.Sign(reversed).Get(SignKey)
	if a != b {
		t.Fatalf("sign differs by insertion order: %q vs %q", a, b)
	}

	again, _ := s.Sign(forward).Get(SignKey)
	if again != a {
		t.Fatalf("sign not deterministic: %q vs %q", again, a)
	}
}

func TestSignSensitiveToValues(t *testing.T) {
	s := New("")
	base := Params{{Key: "count", Value: "1"}, {Key: "token", Value: "abc"}}
	changed := Params{{Key: "count", Value: "1"}, {Key: "token", Value: "abd"}}

	a, _ := s.Sign(base).Get(SignKey)
	b, _ := s.Sign(changed).Get(SignKey)
	if a == b {
		t.Fatalf("changing a value must change the signature")
	}
}

func TestSignPrefixChangesSignature(t *testing.T) {
	params := Params{{Key: "token", Value: "abc"}}
	a, _ := New("ABCDEF00G").Sign(params).Get(SignKey)
	b, _ := New("other").Sign(params).Get(SignKey)
	if a == b {
		t.Fatalf("prefix must take part in the signature")
	}
}

func TestSignAppendsLastAndKeepsOrder(t *testing.T) {
	params := Params{
		{Key: "offers[0]", Value: "101"},
		{Key: "offers[1]", Value: "102"},
		{Key: "token", Value: "abc"},
	}
	signed := New("").Sign(params)

	if len(signed) != 4 {
		t.Fatalf("len = %d, want 4", len(signed))
	}
	for i, param := range params {
		if signed[i] != param {
			t.Fatalf("entry %d = %+v, want %+v", i, signed[i], param)
		}
	}
	if signed[3].Key != SignKey || signed[3].Value != "34dfae71598a425256fc03050167739e" {
		t.Fatalf("last entry = %+v", signed[3])
	}
	if len(params) != 3 {
		t.Fatalf("input must not be modified")
	}
}

func TestSignReplacesStaleSignature(t *testing.T) {
	s := New("")
	params := Params{{Key: "token", Value: "abc"}}
	once := s.Sign(params)
	twice := s.Sign(once)

	if len(twice) != 2 {
		t.Fatalf("len = %d, want 2", len(twice))
	}
	if once[1] != twice[1] {
		t.Fatalf("re-signing changed signature: %+v vs %+v", once[1], twice[1])
	}
}

func TestParamsSetReplacesInPlace(t *testing.T) {
	var params Params
	params.Set("count", "1")
	params.Set("token", "abc")
	params.SetInt("count", 250)

	if len(params) != 2 {
		t.Fatalf("len = %d, want 2", len(params))
	}
	if params[0].Key != "count" || params[0].Value != "250" {
		t.Fatalf("first entry = %+v", params[0])
	}
}

func TestParamsEncode(t *testing.T) {
	params := Params{
		{Key: "offers[0]", Value: "7"},
		{Key: "sort", Value: "popular"},
		{Key: "token", Value: "a b"},
	}
	want := "offers%5B0%5D=7&sort=popular&token=a+b"
	if got := params.Encode(); got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}
