package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/core"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository migrates the schema and opens a connection pool.
func NewPostgresRepository(ctx context.Context, url string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(url); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transactions (id, owner, date, description, amount_cents, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Owner, t.Date.Time, strings.TrimSpace(t.Description), t.Amount.Cents, string(t.Category), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindDuplicate(ctx context.Context, owner string, key DuplicateKey) (*core.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, owner, date, description, amount_cents, category, created_at
		FROM transactions
		WHERE owner = $1 AND date = $2 AND description = $3 AND amount_cents = $4
		ORDER BY created_at
		LIMIT 1`,
		owner, key.Date.Time, strings.TrimSpace(key.Description), key.Amount.Cents)

	t, err := scanPgTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, owner string, filter TransactionFilter) ([]core.Transaction, error) {
	var (
		where = []string{"owner = $1"}
		args  = []any{owner}
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		where = append(where, "date >= "+next(filter.From.Time))
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= "+next(filter.To.Time))
	}
	if filter.Category != "" {
		where = append(where, "category = "+next(string(filter.Category)))
	}

	query := `SELECT id::text, owner, date, description, amount_cents, category, created_at
		FROM transactions WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += " LIMIT " + next(filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanPgTransaction(rows)
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

func (r *PostgresRepository) GetBudget(ctx context.Context, owner string, month, year int) (*core.Budget, error) {
	var total *int64
	b := &core.Budget{Owner: owner, Month: month, Year: year, PerCategory: core.CategoryLimits{}}
	err := r.pool.QueryRow(ctx, `
		SELECT total_cents, updated_at FROM budgets WHERE owner = $1 AND year = $2 AND month = $3`,
		owner, year, month).Scan(&total, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if total != nil {
		b.Total = &core.Money{Cents: *total}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT category, limit_cents FROM budget_category_limits WHERE owner = $1 AND year = $2 AND month = $3`,
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

func (r *PostgresRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var total *int64
		if b.Total != nil {
			total = &b.Total.Cents
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO budgets (owner, year, month, total_cents, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (owner, year, month) DO UPDATE SET
				total_cents = EXCLUDED.total_cents,
				updated_at = EXCLUDED.updated_at`,
			b.Owner, b.Year, b.Month, total, b.UpdatedAt); err != nil {
			return fmt.Errorf("upsert budget: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM budget_category_limits WHERE owner = $1 AND year = $2 AND month = $3`,
			b.Owner, b.Year, b.Month); err != nil {
			return fmt.Errorf("clear budget limits: %w", err)
		}

		batch := &pgx.Batch{}
		for cat, limit := range b.PerCategory {
			batch.Queue(`
				INSERT INTO budget_category_limits (owner, year, month, category, limit_cents)
				VALUES ($1, $2, $3, $4, $5)`,
				b.Owner, b.Year, b.Month, string(cat), limit.Cents)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert budget limits: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) GetSummary(ctx context.Context, owner string, month, year int) (*core.MonthlySummary, error) {
	var (
		s         = core.MonthlySummary{Owner: owner, Month: month, Year: year}
		top       []string
		goalCents int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT summary_text, top_categories, cut_suggestions, saving_goal_cents, goal_set_by_user, source, updated_at
		FROM monthly_summaries WHERE owner = $1 AND year = $2 AND month = $3`,
		owner, year, month).Scan(&s.SummaryText, &top, &s.CutSuggestions, &goalCents, &s.GoalSetByUser, &s.Source, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	s.TopCategories = make([]core.Category, len(top))
	for i, c := range top {
		s.TopCategories[i] = core.Category(c)
	}
	s.SavingGoal = core.Money{Cents: goalCents}
	return &s, nil
}

func (r *PostgresRepository) UpsertSummary(ctx context.Context, s core.MonthlySummary) error {
	top := make([]string, len(s.TopCategories))
	for i, c := range s.TopCategories {
		top[i] = string(c)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO monthly_summaries
			(owner, year, month, summary_text, top_categories, cut_suggestions, saving_goal_cents, goal_set_by_user, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (owner, year, month) DO UPDATE SET
			summary_text = EXCLUDED.summary_text,
			top_categories = EXCLUDED.top_categories,
			cut_suggestions = EXCLUDED.cut_suggestions,
			saving_goal_cents = CASE WHEN monthly_summaries.goal_set_by_user
				THEN monthly_summaries.saving_goal_cents ELSE EXCLUDED.saving_goal_cents END,
			goal_set_by_user = monthly_summaries.goal_set_by_user OR EXCLUDED.goal_set_by_user,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`,
		s.Owner, s.Year, s.Month, s.SummaryText, top, s.CutSuggestions,
		s.SavingGoal.Cents, s.GoalSetByUser, s.Source, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetSavingGoal(ctx context.Context, owner string, month, year int, goal core.Money) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO monthly_summaries (owner, year, month, saving_goal_cents, goal_set_by_user, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (owner, year, month) DO UPDATE SET
			saving_goal_cents = EXCLUDED.saving_goal_cents,
			goal_set_by_user = TRUE,
			updated_at = EXCLUDED.updated_at`,
		owner, year, month, goal.Cents, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set saving goal: %w", err)
	}
	return nil
}

func scanPgTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t        core.Transaction
		date     time.Time
		cents    int64
		category string
	)
	if err := row.Scan(&t.ID, &t.Owner, &date, &t.Description, &cents, &category, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Date = core.DateOf(date)
	t.Amount = core.Money{Cents: cents}
	t.Category = core.Category(category)
	return t, nil
}
