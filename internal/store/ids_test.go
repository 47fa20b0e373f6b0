package store

import (
	"regexp"
	"testing"
	"time"
)

func TestFormatOrderNumber(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := FormatOrderNumber(now, "ab12cd"); got != "SJ1700000000123-AB12CD" {
		t.Errorf("Expected SJ1700000000123-AB12CD, got %s", got)
	}

	pattern := regexp.MustCompile(`^SJ\d+-[0-9A-Z]{6}$`)
	if got := newOrderNumber(); !pattern.MatchString(got) {
		t.Errorf("Order number %q does not match %s", got, pattern)
	}
}

func TestNewTransactionID(t *testing.T) {
	pattern := regexp.MustCompile(`^TXN_\d+_[0-9a-z]{9}$`)
	a, b := NewTransactionID(), NewTransactionID()
	if !pattern.MatchString(a) {
		t.Errorf("Transaction id %q does not match %s", a, pattern)
	}
	if a == b {
		t.Errorf("Expected distinct transaction ids, got %s twice", a)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC), ID: 42}
	got, err := DecodeCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("Decode cursor: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if _, err := DecodeCursor("not base64!"); err == nil {
		t.Error("Expected error for malformed cursor")
	}

	first, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("Decode empty cursor: %v", err)
	}
	if !first.CreatedAt.After(time.Now()) {
		t.Error("Empty cursor should start after the newest row")
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, DefaultPageSize},
		{3, 500, 3, MaxPageSize},
		{2, 10, 2, 10},
	}
	for _, tt := range tests {
		page, size := NormalizePage(tt.page, tt.size)
		if page != tt.wantPage || size != tt.wantSize {
			t.Errorf("NormalizePage(%d, %d) = (%d, %d), want (%d, %d)",
				tt.page, tt.size, page, size, tt.wantPage, tt.wantSize)
		}
	}
}
