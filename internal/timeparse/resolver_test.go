package timeparse

import (
	"testing"
	"time"
)

func TestResolve_RelativeOffsets(t *testing.T) {
	r := New()
	ref := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)

	t.Run("in N hours", func(t *testing.T) {
		got, ok := r.Resolve("in 2 hours", ref)
		if !ok {
			t.Fatal("expected a result")
		}
		if want := ref.Add(2 * time.Hour); !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("in N minutes", func(t *testing.T) {
		got, ok := r.Resolve("in 30 minutes", ref)
		if !ok {
			t.Fatal("expected a result")
		}
		if want := ref.Add(30 * time.Minute); !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		if _, ok := r.Resolve("in 0 hours", ref); ok {
			t.Error("expected no result for zero offset")
		}
	})
}

func TestResolve_TimeOnly(t *testing.T) {
	r := New()
	ref := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)

	t.Run("earlier than now rolls to tomorrow", func(t *testing.T) {
		got, ok := r.Resolve("14:30", ref)
		if !ok {
			t.Fatal("expected a result")
		}
		want := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("later than now stays today", func(t *testing.T) {
		got, ok := r.Resolve("18:00", ref)
		if !ok {
			t.Fatal("expected a result")
		}
		want := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestResolve_DateAndTime(t *testing.T) {
	r := New()

	t.Run("this year when still ahead", func(t *testing.T) {
		ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		got, ok := r.Resolve("12.15 14:30", ref)
		if !ok {
			t.Fatal("expected a result")
		}
		want := time.Date(2024, 12, 15, 14, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("rolls to next year when past", func(t *testing.T) {
		ref := time.Date(2024, 12, 20, 12, 0, 0, 0, time.UTC)
		got, ok := r.Resolve("12.15 14:30", ref)
		if !ok {
			t.Fatal("expected a result")
		}
		want := time.Date(2025, 12, 15, 14, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestResolve_Unparseable(t *testing.T) {
	r := New()
	ref := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)

	for _, input := range []string{"", "   ", "gibberish"} {
		if _, ok := r.Resolve(input, ref); ok {
			t.Errorf("Resolve(%q) unexpectedly produced a result", input)
		}
	}
}
