package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -4: DefaultLimit, 10: 10, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 1, 5, 9, 0, 1, 500, time.UTC), ID: uuid.New()}
	token := EncodeCursor(want)
	for _, c := range token {
		if c == '+' || c == '/' || c == '=' {
			t.Fatalf("cursor %q is not url safe", token)
		}
	}
	got, err := ParseCursor(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", c, err)
	}
	for _, raw := range []string{"%%%", "bm8tc2VwYXJhdG9y"} {
		if _, err := ParseCursor(raw); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("expected %q to be rejected with ErrInvalidCursor, got %v", raw, err)
		}
	}
}

func TestWindow(t *testing.T) {
	w, err := Params{}.Window()
	if err != nil || w.Fetch != 0 || w.After != nil {
		t.Fatalf("unpaged params should give a zero window, got %+v %v", w, err)
	}

	w, err = Params{Limit: 10}.Window()
	if err != nil || w.Limit != 10 || w.Fetch != 11 {
		t.Fatalf("unexpected window %+v %v", w, err)
	}

	c := Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	w, err = Params{Cursor: EncodeCursor(c)}.Window()
	if err != nil || w.Limit != DefaultLimit || w.After == nil || w.After.ID != c.ID {
		t.Fatalf("cursor-only params should page with the default limit, got %+v %v", w, err)
	}

	if _, err := (Params{Cursor: "%%%"}).Window(); err == nil {
		t.Fatal("expected bad cursor to fail")
	}
}

func TestTrim(t *testing.T) {
	rows := []int{5, 4, 3}
	position := func(n int) Cursor {
		return Cursor{CreatedAt: time.Unix(int64(n), 0).UTC(), ID: uuid.Nil}
	}

	page, next := Trim(rows, Window{Limit: 2, Fetch: 3}, position)
	if len(page) != 2 || next == "" {
		t.Fatalf("expected 2 rows and a next cursor, got %v %q", page, next)
	}
	c, err := ParseCursor(next)
	if err != nil || c.CreatedAt.Unix() != 4 {
		t.Fatalf("next cursor should point at the last row, got %+v %v", c, err)
	}

	page, next = Trim(rows[:2], Window{Limit: 2, Fetch: 3}, position)
	if len(page) != 2 || next != "" {
		t.Fatalf("last page should not carry a cursor, got %v %q", page, next)
	}

	page, next = Trim(rows, Window{}, position)
	if len(page) != 3 || next != "" {
		t.Fatalf("unpaged trim should be a no-op, got %v %q", page, next)
	}
}
