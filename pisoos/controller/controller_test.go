package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"piso/hal"
)

type chanKeyboard chan hal.KeyEvent

func (k chanKeyboard) Events() <-chan hal.KeyEvent { return k }

func TestNextSkipsReleasesAndUnmapped(t *testing.T) {
	kbd := make(chanKeyboard, 8)
	kbd <- hal.KeyEvent{Code: hal.KeyUp, Press: false}
	kbd <- hal.KeyEvent{Code: hal.KeyEscape, Press: true}
	kbd <- hal.KeyEvent{Code: hal.KeyDown, Press: true}
	kbd <- hal.KeyEvent{Code: hal.KeyEnter, Press: true}
	close(kbd)

	c, err := New(kbd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	for _, want := range []Event{Down, Select} {
		got, err := c.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
	if _, err := c.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNextHonorsContext(t *testing.T) {
	c, err := New(make(chanKeyboard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		code hal.KeyCode
		want Event
		ok   bool
	}{
		{hal.KeyEnter, Select, true},
		{hal.KeyRight, Select, true},
		{hal.KeyUp, Up, true},
		{hal.KeyDown, Down, true},
		{hal.KeyLeft, 0, false},
	}
	for _, tc := range cases {
		got, ok := Translate(hal.KeyEvent{Code: tc.code, Press: true})
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Translate(%d) = %v,%v; want %v,%v", tc.code, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNewRejectsNil(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil keyboard")
	}
}
