package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"food", Food, false},
		{" Transport ", Transport, false},
		{"SUBSCRIPTIONS", Subscriptions, false},
		{"others", Others, false},
		{"groceries", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCategory) {
					t.Fatalf("expected ErrInvalidCategory, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseCategory(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestTransactionType_ApplySign(t *testing.T) {
	m := Units(40)
	if got := Credit.ApplySign(m); got.Cents != -4000 {
		t.Errorf("credit: got %d", got.Cents)
	}
	if got := Debit.ApplySign(m.Neg()); got.Cents != 4000 {
		t.Errorf("debit: got %d", got.Cents)
	}
	if got := TransactionType("").ApplySign(m.Neg()); got.Cents != -4000 {
		t.Errorf("no type: got %d", got.Cents)
	}
	if _, err := ParseTransactionType("refund"); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}

func TestTransaction_Kind(t *testing.T) {
	if k := (Transaction{Amount: Units(0)}).Kind(); k != Debit {
		t.Errorf("zero amount kind = %s, want debit", k)
	}
	if k := (Transaction{Amount: Units(-5)}).Kind(); k != Credit {
		t.Errorf("negative amount kind = %s, want credit", k)
	}
}

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		Date:        NewDate(2024, 3, 1),
		Description: "Zomato order",
		Amount:      Units(500),
		Category:    Food,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction: %v", err)
	}

	cases := map[string]struct {
		mutate func(*Transaction)
		want   error
	}{
		"zero date":        {func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		"blank desc":       {func(tx *Transaction) { tx.Description = "   " }, ErrEmptyDescription},
		"long desc":        {func(tx *Transaction) { tx.Description = strings.Repeat("x", MaxDescriptionLength+1) }, ErrDescriptionTooLong},
		"unknown category": {func(tx *Transaction) { tx.Category = "fun" }, ErrInvalidCategory},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tx := valid
			tc.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestBudget_Validate(t *testing.T) {
	total := Units(2000)
	zero := Money{}
	tests := []struct {
		name    string
		budget  Budget
		wantErr error
	}{
		{"valid", Budget{Month: 3, Year: 2024, Total: &total, PerCategory: CategoryLimits{Food: Units(1800)}}, nil},
		{"no total", Budget{Month: 3, Year: 2024}, nil},
		{"bad month", Budget{Month: 13, Year: 2024}, ErrInvalidMonth},
		{"bad year", Budget{Month: 1, Year: 12}, ErrInvalidYear},
		{"zero total", Budget{Month: 3, Year: 2024, Total: &zero}, ErrInvalidLimit},
		{"unknown category", Budget{Month: 3, Year: 2024, PerCategory: CategoryLimits{"pets": Units(10)}}, ErrInvalidCategory},
		{"negative limit", Budget{Month: 3, Year: 2024, PerCategory: CategoryLimits{Food: Units(-1)}}, ErrInvalidLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budget.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryLimits_Compact(t *testing.T) {
	l := CategoryLimits{Food: Units(100), Rent: Money{}}
	got := l.Compact()
	if len(got) != 1 || got[Food] != Units(100) {
		t.Fatalf("Compact = %v", got)
	}
}

func TestParseDate(t *testing.T) {
	want := NewDate(2024, 3, 15)
	for _, in := range []string{"2024-03-15", "2024/03/15", "2024-03-15T18:30:00Z", "2024-03-15T10:00:00", " 2024-03-15 "} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if !got.Equal(want.Time) {
			t.Fatalf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "yesterday", "2024-13-01"} {
		if _, err := ParseDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q) expected ErrInvalidDate, got %v", in, err)
		}
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		year, month int
		lastDay     int
	}{
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 3, 31},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, tt := range tests {
		first, last := MonthRange(tt.year, tt.month)
		if first.Day() != 1 || first.Month() != tt.month || first.Year() != tt.year {
			t.Errorf("%d-%d first = %s", tt.year, tt.month, first)
		}
		if last.Day() != tt.lastDay || last.Month() != tt.month {
			t.Errorf("%d-%d last = %s", tt.year, tt.month, last)
		}
		if last.Location() != time.UTC {
			t.Errorf("expected UTC dates")
		}
	}
}

func TestDate_Between(t *testing.T) {
	from, to := MonthRange(2024, 3)
	if !NewDate(2024, 3, 1).Between(from, to) || !NewDate(2024, 3, 31).Between(from, to) {
		t.Fatal("bounds must be inclusive")
	}
	if NewDate(2024, 4, 1).Between(from, to) || NewDate(2024, 2, 29).Between(from, to) {
		t.Fatal("outside dates must be excluded")
	}
	if !NewDate(1999, 1, 1).Between(Date{}, Date{}) {
		t.Fatal("zero bounds must be open")
	}
}

func TestDate_JSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 3, 5))
	if err != nil || string(b) != `"2024-03-05"` {
		t.Fatalf("marshal = %s, %v", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-05T23:00:00Z"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-03-05" {
		t.Fatalf("unmarshal = %s", d)
	}
}
