package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Dollars(10)
	b := Money{Cents: 250}

	if got := a.Add(b).Cents; got != 1250 {
		t.Fatalf("Add: expected 1250, got %d", got)
	}
	if got := a.Sub(b).Cents; got != 750 {
		t.Fatalf("Sub: expected 750, got %d", got)
	}
	if got := b.Mul(4).Cents; got != 1000 {
		t.Fatalf("Mul: expected 1000, got %d", got)
	}
	if !b.LessThan(a) || a.LessThan(b) {
		t.Fatal("LessThan comparison wrong")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("positive amount should validate: %v", err)
	}
	if err := (Money{}).Validate(); err == nil {
		t.Fatal("zero amount should not validate")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatal("negative amount should not validate")
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		in   Money
		want string
	}{
		{Money{Cents: 1234}, "$12.34"},
		{Money{Cents: 5}, "$0.05"},
		{Money{Cents: -50}, "-$0.50"},
		{Money{}, "$0.00"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Fatalf("%d cents: expected %q, got %q", tc.in.Cents, tc.want, got)
		}
	}
}
