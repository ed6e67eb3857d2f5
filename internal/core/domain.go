package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Food          Category = "food"
	Rent          Category = "rent"
	Transport     Category = "transport"
	Shopping      Category = "shopping"
	Subscriptions Category = "subscriptions"
	Others        Category = "others"
)

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
)

// MaxDescriptionLength bounds the free-text description of a transaction.
const MaxDescriptionLength = 500

type (
	Category string

	TransactionType string

	Transaction struct {
		ID          string
		Owner       string
		Date        Date
		Description string
		Amount      Money // non-negative is spend, negative is inflow
		Category    Category
		CreatedAt   time.Time
	}

	// CategoryLimits maps a category to its monthly spending limit.
	CategoryLimits map[Category]Money

	Budget struct {
		Owner       string
		Month       int
		Year        int
		Total       *Money // nil means no overall budget
		PerCategory CategoryLimits
		UpdatedAt   time.Time
	}

	MonthlySummary struct {
		Owner          string
		Month          int
		Year           int
		SummaryText    string
		TopCategories  []Category
		CutSuggestions string
		SavingGoal     Money
		GoalSetByUser  bool
		Source         string
		UpdatedAt      time.Time
	}

	// Analysis is the narrative produced for a list of transactions.
	Analysis struct {
		SummaryText    string
		TopCategories  []Category
		CutSuggestions string
		SavingGoal     Money
	}

	BudgetStatus struct {
		Month             int
		Year              int
		Budget            *Budget
		TotalSpent        Money
		ByCategory        map[Category]Money
		TotalStatus       Status
		PerCategoryStatus map[Category]Status
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidLimit       = errors.New("budget limit must be greater than zero")
	ErrNotFound           = errors.New("not found")
)

var allCategories = []Category{Food, Rent, Transport, Shopping, Subscriptions, Others}

// Categories returns the closed category set in display order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory normalizes s and checks it against the closed set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) IsValid() bool {
	for _, v := range allCategories {
		if c == v {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseTransactionType accepts "debit" or "credit"; an empty string yields "".
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", Debit, Credit:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// ApplySign folds an explicit type into the amount sign.
func (t TransactionType) ApplySign(m Money) Money {
	switch t {
	case Credit:
		return m.Abs().Neg()
	case Debit:
		return m.Abs()
	default:
		return m
	}
}

// Kind derives the transaction type from the amount sign.
func (t Transaction) Kind() TransactionType {
	if t.Amount.IsNegative() {
		return Credit
	}
	return Debit
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len(desc) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !t.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

// ValidatePeriod checks a month/year pair.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	if year < 1970 || year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

// Validate checks limits against the category enum and drops empty entries.
func (l CategoryLimits) Validate() error {
	for c, v := range l {
		if !c.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
		}
		if v.IsNegative() {
			return fmt.Errorf("%w: %s=%s", ErrInvalidLimit, c, v)
		}
	}
	return nil
}

// Compact returns a copy without zero limits.
func (l CategoryLimits) Compact() CategoryLimits {
	out := make(CategoryLimits, len(l))
	for c, v := range l {
		if !v.IsZero() {
			out[c] = v
		}
	}
	return out
}

func (b Budget) Validate() error {
	if err := ValidatePeriod(b.Month, b.Year); err != nil {
		return err
	}
	if b.Total != nil && !b.Total.IsPositive() {
		return fmt.Errorf("%w: total=%s", ErrInvalidLimit, b.Total)
	}
	return b.PerCategory.Validate()
}
