package model

import (
	"net/http"
	"slices"
	"strings"
)

// HeaderField is one name/value entry of a Header.
type HeaderField struct {
	Name  string
	Value string
}

// Header is an ordered multi-map of header fields whose names compare
// case-insensitively. Names keep the spelling they were added with.
type Header struct {
	fields []HeaderField
}

// NewHeader returns a Header holding the given fields in order.
func NewHeader(fields ...HeaderField) Header {
	h := Header{}
	for _, f := range fields {
		h.Add(f.Name, f.Value)
	}
	return h
}

// HeaderFromHTTP converts a net/http header map. http.Header has no order
// across names, so names are emitted sorted; the order of values within a
// name is kept.
func HeaderFromHTTP(src http.Header) Header {
	h := Header{fields: make([]HeaderField, 0, len(src))}
	for _, name := range sortedKeys(src) {
		for _, v := range src[name] {
			h.Add(name, v)
		}
	}
	return h
}

// Add appends a field.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, HeaderField{Name: name, Value: value})
}

// Get returns the first value for name, or "".
func (h Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for name in insertion order.
func (h Header) Values(name string) []string {
	var vals []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			vals = append(vals, f.Value)
		}
	}
	return vals
}

// Fields returns a copy of the fields in order.
func (h Header) Fields() []HeaderField {
	out := make([]HeaderField, len(h.fields))
	copy(out, h.fields)
	return out
}

// Len returns the number of fields.
func (h Header) Len() int {
	return len(h.fields)
}

// Keep returns the fields whose lowercased name is in allowed, in their
// original order. Values are not touched.
func (h Header) Keep(allowed AllowList) Header {
	out := Header{}
	for _, f := range h.fields {
		if allowed.Has(f.Name) {
			out.fields = append(out.fields, f)
		}
	}
	return out
}

// HTTP converts the header to a net/http map for an outbound request.
func (h Header) HTTP() http.Header {
	dst := make(http.Header, len(h.fields))
	for _, f := range h.fields {
		dst.Add(f.Name, f.Value)
	}
	return dst
}

// AllowList is a set of lowercase header names.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from names of any case.
func NewAllowList(names ...string) AllowList {
	a := make(AllowList, len(names))
	for _, n := range names {
		a[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return a
}

// Has reports whether name, lowercased, is allowed.
func (a AllowList) Has(name string) bool {
	_, ok := a[strings.ToLower(name)]
	return ok
}

func sortedKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
