package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
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
		{"1.005", 101, true}, // half away from zero
		{" 2.50 ", 250, true},
		{"-1", -100, true},
		{"-12.345", -1235, true},
		{"0", 0, true},
		{"1,234.50", 123450, true},
		{"1,500", 150000, true},
		{"1,23,456", 12345600, true},
		{"12,34,567.5", 123456750, true},
		{"-2,000", -200000, true},
		{"1,2345", 0, false},
		{"12,3,4", 0, false},
		{",50", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"   ", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoney_Percent(t *testing.T) {
	cases := []struct {
		in   Money
		p    int64
		want Money
	}{
		{Units(50000), 15, Units(7500)},
		{Units(1000), 15, Units(150)},
		{Money{Cents: 10010}, 15, Units(15)}, // 15.015 rounds to 15
		{Units(3), 15, Units(0)},             // 0.45 rounds to 0
		{Units(10), 15, Units(2)},            // 1.5 rounds to 2
		{Money{}, 15, Money{}},
	}
	for _, tc := range cases {
		if got := tc.in.Percent(tc.p); got != tc.want {
			t.Errorf("%s * %d%% = %s, want %s", tc.in, tc.p, got, tc.want)
		}
	}
}

func TestMoney_JSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 123450})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "1234.5" {
		t.Fatalf("marshal = %s, want 1234.5", b)
	}

	for _, in := range []string{`12.34`, `"12.34"`, `"12,34"`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 1234 {
			t.Fatalf("unmarshal %s = %d, want 1234", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"twelve"`), &m); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := Units(10)
	b := Money{Cents: -250}
	if got := a.Add(b); got.Cents != 750 {
		t.Errorf("Add = %d", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 1250 {
		t.Errorf("Sub = %d", got.Cents)
	}
	if got := b.Abs(); got.Cents != 250 {
		t.Errorf("Abs = %d", got.Cents)
	}
	if !b.IsNegative() || b.IsPositive() || b.IsZero() {
		t.Errorf("sign helpers wrong for %s", b)
	}
	if b.String() != "-2.50" {
		t.Errorf("String = %s", b.String())
	}
}
