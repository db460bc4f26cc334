package pagination

import (
	"testing"
	"time"
)

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		in, out int
	}{
		{in: 0, out: DefaultLimit},
		{in: -5, out: DefaultLimit},
		{in: 10, out: 10},
		{in: MaxLimit, out: MaxLimit},
		{in: MaxLimit + 50, out: MaxLimit},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.out {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.out)
		}
	}

	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("LimitWithBuffer(10) = %d, want 11", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 3, 10, 12, 0, 0, 123456789, time.UTC),
		ID:        42,
	}

	encoded := EncodeCursor(cursor)
	decoded, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !decoded.CreatedAt.Equal(cursor.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", decoded.CreatedAt, cursor.CreatedAt)
	}
	if decoded.ID != cursor.ID {
		t.Fatalf("id mismatch: %d vs %d", decoded.ID, cursor.ID)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	decoded, err := ParseCursor("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil cursor, got %+v", decoded)
	}
}

func TestParseCursorInvalid(t *testing.T) {
	for _, raw := range []string{"not-base64!", "aGVsbG8=", "MjAyNnwxfDI="} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
