package model

import (
	"net/http"
	"reflect"
	"testing"
)

func TestHeader_CaseInsensitiveLookup(t *testing.T) {
	h := NewHeader(
		HeaderField{"Content-Type", "text/plain"},
		HeaderField{"ACCEPT", "a"},
		HeaderField{"accept", "b"},
	)

	if got := h.Get("content-type"); got != "text/plain" {
		t.Errorf("Get(content-type) = %q, want %q", got, "text/plain")
	}
	if got := h.Values("Accept"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Values(Accept) = %v, want [a b]", got)
	}
	if got := h.Get("X-Missing"); got != "" {
		t.Errorf("Get(X-Missing) = %q, want empty", got)
	}
}

func TestHeader_KeepPreservesOrderAndValues(t *testing.T) {
	h := NewHeader(
		HeaderField{"X-Secret", "abc"},
		HeaderField{"accept", "application/json"},
		HeaderField{"Host", "example.com"},
		HeaderField{"Content-Type", "text/plain; charset=\"utf-8\""},
		HeaderField{"Accept", "*/*"},
	)

	got := h.Keep(NewAllowList("content-type", "accept")).Fields()
	want := []HeaderField{
		{"accept", "application/json"},
		{"Content-Type", "text/plain; charset=\"utf-8\""},
		{"Accept", "*/*"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keep() = %v, want %v", got, want)
	}
}

func TestHeader_KeepEmpty(t *testing.T) {
	if n := (Header{}).Keep(NewAllowList("accept")).Len(); n != 0 {
		t.Errorf("Keep() on empty header has %d fields, want 0", n)
	}
}

func TestHeaderFromHTTP(t *testing.T) {
	src := http.Header{
		"X-B":    {"2", "3"},
		"Accept": {"1"},
	}

	got := HeaderFromHTTP(src).Fields()
	want := []HeaderField{
		{"Accept", "1"},
		{"X-B", "2"},
		{"X-B", "3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("HeaderFromHTTP() = %v, want %v", got, want)
	}
}

func TestHeader_HTTP(t *testing.T) {
	h := NewHeader(HeaderField{"content-type", "text/plain"}, HeaderField{"accept", "a"}, HeaderField{"ACCEPT", "b"})

	dst := h.HTTP()
	if got := dst.Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want %q", got, "text/plain")
	}
	if got := dst.Values("Accept"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Accept = %v, want [a b]", got)
	}
}

func TestAllowList_Has(t *testing.T) {
	a := NewAllowList("Content-Type", " accept ")

	tests := []struct {
		name string
		want bool
	}{
		{"content-type", true},
		{"CONTENT-TYPE", true},
		{"Accept", true},
		{"accept-encoding", false},
		{"cookie", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Has(tt.name); got != tt.want {
				t.Errorf("Has(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
