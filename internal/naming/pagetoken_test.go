package naming

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/deskpilot/deskpilot/internal/errdefs"
)

func TestPageToken_RoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 100, 99999} {
		token := EncodePageToken(offset)
		got, err := DecodePageToken(token)
		if err != nil {
			t.Errorf("DecodePageToken(%q) error: %v", token, err)
			continue
		}
		if got != offset {
			t.Errorf("round trip %d = %d", offset, got)
		}
	}
}

func TestPageToken_EmptyIsZero(t *testing.T) {
	got, err := DecodePageToken("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("offset = %d, want 0", got)
	}
}

func TestPageToken_TamperedFailsClosed(t *testing.T) {
	cases := []struct {
		desc  string
		token string
	}{
		{"wrong prefix", "xpt:" + base64.RawURLEncoding.EncodeToString([]byte("o=5"))},
		{"no prefix", base64.RawURLEncoding.EncodeToString([]byte("o=5"))},
		{"invalid base64", "dpt:%%%%"},
		{"non-numeric offset", "dpt:" + base64.RawURLEncoding.EncodeToString([]byte("o=five"))},
		{"negative offset", "dpt:" + base64.RawURLEncoding.EncodeToString([]byte("o=-5"))},
		{"missing key", "dpt:" + base64.RawURLEncoding.EncodeToString([]byte("5"))},
		{"empty payload", "dpt:"},
	}
	for _, tc := range cases {
		if _, err := DecodePageToken(tc.token); !errors.Is(err, errdefs.ErrValidation) {
			t.Errorf("%s: error = %v, want validation error", tc.desc, err)
		}
	}
}

func TestPage_Slicing(t *testing.T) {
	items := make([]int, 7)
	for i := range items {
		items[i] = i
	}

	page, next, err := Page(items, 3, "")
	if err != nil {
		t.Fatalf("first page error: %v", err)
	}
	if len(page) != 3 || page[0] != 0 || next == "" {
		t.Fatalf("first page = %v next=%q", page, next)
	}

	page, next, err = Page(items, 3, next)
	if err != nil {
		t.Fatalf("second page error: %v", err)
	}
	if len(page) != 3 || page[0] != 3 || next == "" {
		t.Fatalf("second page = %v next=%q", page, next)
	}

	page, next, err = Page(items, 3, next)
	if err != nil {
		t.Fatalf("last page error: %v", err)
	}
	if len(page) != 1 || page[0] != 6 {
		t.Fatalf("last page = %v", page)
	}
	if next != "" {
		t.Errorf("exhausted listing returned token %q", next)
	}
}

func TestPage_OffsetPastEnd(t *testing.T) {
	page, next, err := Page([]int{1, 2}, 10, EncodePageToken(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 0 || next != "" {
		t.Errorf("page = %v next = %q, want empty", page, next)
	}
}

func TestPage_BadTokenRejected(t *testing.T) {
	if _, _, err := Page([]int{1}, 10, "dpt:!!"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("error = %v, want validation error", err)
	}
}
