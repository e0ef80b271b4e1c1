// Package signer computes the request signature the catalog API expects on
// every outbound parameter set.
package signer

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SignKey is the parameter name carrying the signature.
const SignKey = "sign"

// DefaultPrefix is the literal the vendor algorithm prepends to the sorted hashes.
const DefaultPrefix = "ABCDEF00G"

// Param is a single request parameter in its wire (string) form.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered parameter set. Insertion order is kept on the wire.
type Params []Param

// Set stores value under key, replacing an existing entry in place.
func (p *Params) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// SetInt stores the decimal form of value under key.
func (p *Params) SetInt(key string, value int) {
	p.Set(key, strconv.Itoa(value))
}

// Get returns the value stored under key.
func (p Params) Get(key string) (string, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Encode renders the parameters as form-urlencoded text in insertion order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, param := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(param.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(param.Value))
	}
	return b.String()
}

// Signer appends the vendor signature to parameter sets.
type Signer struct {
	prefix string
}

// New returns a Signer using prefix, or DefaultPrefix when prefix is empty.
func New(prefix string) *Signer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Signer{prefix: prefix}
}

// Sign returns a copy of params with the signature appended as the last entry.
// Only the values take part, so key order never changes the result.
func (s *Signer) Sign(params Params) Params {
	out := make(Params, 0, len(params)+1)
	hashes := make([]string, 0, len(params))
	for _, param := range params {
		if param.Key == SignKey {
			continue
		}
		out = append(out, param)
		hashes = append(hashes, digest(param.Value))
	}
	sort.Strings(hashes)

	var b strings.Builder
	b.WriteString(s.prefix)
	for _, h := range hashes {
		b.WriteString(h)
	}
	return append(out, Param{Key: SignKey, Value: digest(b.String())})
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
