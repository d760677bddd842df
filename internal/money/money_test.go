package money

import (
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in  string
		out Money
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0", 0, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("Parse(%q) = %d, %v; want %d", tc.in, got, err, tc.out)
			}
		} else if err == nil {
			t.Fatalf("Parse(%q) expected error, got %d", tc.in, got)
		}
	}
}

func TestSplitSumsExactly(t *testing.T) {
	amounts := []Money{0, 1, 2, 99, 100, 1000, 1001, 333333, 1<<40 + 7}
	for _, m := range amounts {
		for n := 1; n <= 12; n++ {
			parts, err := m.Split(n)
			if err != nil {
				t.Fatalf("Split(%d, %d): %v", m, n, err)
			}
			if len(parts) != n {
				t.Fatalf("Split(%d, %d): got %d parts", m, n, len(parts))
			}
			var sum Money
			for _, p := range parts {
				sum += p
			}
			if sum != m {
				t.Fatalf("Split(%d, %d): parts sum to %d", m, n, sum)
			}
		}
	}
}

func TestSplitRemainderOrder(t *testing.T) {
	// 10.00 into thirds: the extra cent goes to the first part.
	parts, err := MustParse("10.00").Split(3)
	if err != nil {
		t.Fatal(err)
	}
	want := []Money{334, 333, 333}
	for i, p := range parts {
		if p != want[i] {
			t.Fatalf("parts = %v, want %v", parts, want)
		}
	}
}

func TestSplitInvalid(t *testing.T) {
	if _, err := Money(100).Split(0); err == nil {
		t.Fatal("Split(0) expected error")
	}
	if _, err := Money(100).Split(-1); err == nil {
		t.Fatal("Split(-1) expected error")
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   Money
		want string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{1234, "12.34"},
		{-5, "-0.05"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Money(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got, err := MustParse("30.00").Percent(3333); err != nil || got != 999 {
		t.Errorf("30.00 at 33.33%% = %d, %v; want 999", got, err)
	}
	if got, err := MustParse("10.00").Percent(10000); err != nil || got != 1000 {
		t.Errorf("10.00 at 100%% = %d, %v; want 1000", got, err)
	}
}

func TestPercentOverflow(t *testing.T) {
	huge := Money(math.MaxInt64 / 100)
	if got, err := huge.Percent(10000); err == nil {
		t.Fatalf("Percent(10000) on %d = %d, want error", huge, got)
	}
	// Only products that would actually wrap are rejected.
	if got, err := Money(math.MaxInt64).Percent(1); err != nil || got != math.MaxInt64/10000 {
		t.Errorf("Percent(1) = %d, %v; want %d", got, err, int64(math.MaxInt64/10000))
	}
	if got, err := huge.Percent(0); err != nil || got != 0 {
		t.Errorf("Percent(0) = %d, %v; want 0", got, err)
	}
}
