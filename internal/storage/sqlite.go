package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// Fixed-width so stored timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before opening the pool so every connection sees the schema.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, owner, date, description, amount_cents, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Owner, t.Date.String(), strings.TrimSpace(t.Description), t.Amount.Cents, string(t.Category),
		t.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"owner", t.Owner,
		"amount_cents", t.Amount.Cents,
		"category", t.Category)
	return nil
}

func (r *SQLiteRepository) FindDuplicate(ctx context.Context, owner string, key DuplicateKey) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, date, description, amount_cents, category, created_at
		FROM transactions
		WHERE owner = ? AND date = ? AND description = ? AND amount_cents = ?
		ORDER BY created_at
		LIMIT 1`,
		owner, key.Date.String(), strings.TrimSpace(key.Description), key.Amount.Cents)

	t, err := scanSQLiteTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, owner string, filter TransactionFilter) ([]core.Transaction, error) {
	var (
		where = []string{"owner = ?"}
		args  = []any{owner}
	)
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, filter.To.String())
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}

	query := `SELECT id, owner, date, description, amount_cents, category, created_at
		FROM transactions WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanSQLiteTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, owner string, month, year int) (*core.Budget, error) {
	var (
		total     sql.NullInt64
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT total_cents, updated_at FROM budgets WHERE owner = ? AND year = ? AND month = ?`,
		owner, year, month).Scan(&total, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}

	b := &core.Budget{
		Owner:       owner,
		Month:       month,
		Year:        year,
		PerCategory: core.CategoryLimits{},
		UpdatedAt:   parseSQLiteTime(updatedAt),
	}
	if total.Valid {
		b.Total = &core.Money{Cents: total.Int64}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT category, limit_cents FROM budget_category_limits WHERE owner = ? AND year = ? AND month = ?`,
		owner, year, month)
	if err != nil {
		return nil, fmt.Errorf("get budget limits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cat   string
			cents int64
		)
		if err := rows.Scan(&cat, &cents); err != nil {
			return nil, fmt.Errorf("scan budget limit: %w", err)
		}
		b.PerCategory[core.Category(cat)] = core.Money{Cents: cents}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget limits: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin budget upsert: %w", err)
	}
	defer tx.Rollback()

	var total sql.NullInt64
	if b.Total != nil {
		total = sql.NullInt64{Int64: b.Total.Cents, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budgets (owner, year, month, total_cents, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner, year, month) DO UPDATE SET
			total_cents = excluded.total_cents,
			updated_at = excluded.updated_at`,
		b.Owner, b.Year, b.Month, total, b.UpdatedAt.UTC().Format(sqliteTimeLayout)); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM budget_category_limits WHERE owner = ? AND year = ? AND month = ?`,
		b.Owner, b.Year, b.Month); err != nil {
		return fmt.Errorf("clear budget limits: %w", err)
	}
	for cat, limit := range b.PerCategory {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO budget_category_limits (owner, year, month, category, limit_cents)
			VALUES (?, ?, ?, ?, ?)`,
			b.Owner, b.Year, b.Month, string(cat), limit.Cents); err != nil {
			return fmt.Errorf("insert budget limit %s: %w", cat, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget upsert: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSummary(ctx context.Context, owner string, month, year int) (*core.MonthlySummary, error) {
	var (
		s         = core.MonthlySummary{Owner: owner, Month: month, Year: year}
		top       string
		goalCents int64
		byUser    int
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT summary_text, top_categories, cut_suggestions, saving_goal_cents, goal_set_by_user, source, updated_at
		FROM monthly_summaries WHERE owner = ? AND year = ? AND month = ?`,
		owner, year, month).Scan(&s.SummaryText, &top, &s.CutSuggestions, &goalCents, &byUser, &s.Source, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	if err := json.Unmarshal([]byte(top), &s.TopCategories); err != nil {
		return nil, fmt.Errorf("decode top categories: %w", err)
	}
	s.SavingGoal = core.Money{Cents: goalCents}
	s.GoalSetByUser = byUser != 0
	s.UpdatedAt = parseSQLiteTime(updatedAt)
	return &s, nil
}

func (r *SQLiteRepository) UpsertSummary(ctx context.Context, s core.MonthlySummary) error {
	top := s.TopCategories
	if top == nil {
		top = []core.Category{}
	}
	topJSON, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("encode top categories: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO monthly_summaries
			(owner, year, month, summary_text, top_categories, cut_suggestions, saving_goal_cents, goal_set_by_user, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner, year, month) DO UPDATE SET
			summary_text = excluded.summary_text,
			top_categories = excluded.top_categories,
			cut_suggestions = excluded.cut_suggestions,
			saving_goal_cents = CASE WHEN monthly_summaries.goal_set_by_user = 1
				THEN monthly_summaries.saving_goal_cents ELSE excluded.saving_goal_cents END,
			goal_set_by_user = MAX(monthly_summaries.goal_set_by_user, excluded.goal_set_by_user),
			source = excluded.source,
			updated_at = excluded.updated_at`,
		s.Owner, s.Year, s.Month, s.SummaryText, string(topJSON), s.CutSuggestions,
		s.SavingGoal.Cents, boolToInt(s.GoalSetByUser), s.Source, s.UpdatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetSavingGoal(ctx context.Context, owner string, month, year int, goal core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_summaries (owner, year, month, saving_goal_cents, goal_set_by_user, updated_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (owner, year, month) DO UPDATE SET
			saving_goal_cents = excluded.saving_goal_cents,
			goal_set_by_user = 1,
			updated_at = excluded.updated_at`,
		owner, year, month, goal.Cents, time.Now().UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("set saving goal: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		date      string
		cents     int64
		category  string
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.Owner, &date, &t.Description, &cents, &category, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	t.Date = d
	t.Amount = core.Money{Cents: cents}
	t.Category = core.Category(category)
	t.CreatedAt = parseSQLiteTime(createdAt)
	return t, nil
}

func parseSQLiteTime(s string) time.Time {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
