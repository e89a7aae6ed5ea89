package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"privatize-quote/internal/config"
	"privatize-quote/internal/quote"
	"privatize-quote/pkg/redis"
)

const (
	statsCacheKey = "quote_stats"
	statsCacheTTL = time.Hour

	// unique_violation
	pqUniqueViolation = "23505"
	referenceAttempts = 3
)

var ErrQuoteNotFound = errors.New("quote not found")

// Quote statuses an admin moves a submitted quote through.
const (
	StatusSubmitted = "submitted"
	StatusContacted = "contacted"
	StatusConfirmed = "confirmed"
	StatusDeclined  = "declined"
)

// ValidStatus reports whether s is a known quote status.
func ValidStatus(s string) bool {
	switch s {
	case StatusSubmitted, StatusContacted, StatusConfirmed, StatusDeclined:
		return true
	}
	return false
}

type PostgresStorage struct {
	db     *sqlx.DB
	redis  *redis.Client
	logger *zap.Logger
}

// QuoteRecord is one row of the quotes table.
type QuoteRecord struct {
	ID         int64          `db:"id" json:"-"`
	Reference  string         `db:"reference" json:"reference"`
	Variant    string         `db:"variant" json:"variant"`
	EventDate  time.Time      `db:"event_date" json:"event_date"`
	GuestCount int            `db:"guest_count" json:"guest_count"`
	Email      string         `db:"email" json:"email"`
	GrandTotal quote.Money    `db:"grand_total" json:"grand_total"`
	Selection  types.JSONText `db:"selection" json:"selection"`
	Breakdown  types.JSONText `db:"breakdown" json:"breakdown"`
	Status     string         `db:"status" json:"status"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

type QuoteStatistics struct {
	TotalQuotes  int            `json:"total_quotes"`
	TotalAmount  quote.Money    `json:"total_amount"`
	MonthQuotes  int            `json:"month_quotes"`
	MonthAmount  quote.Money    `json:"month_amount"`
	StatusCounts map[string]int `json:"status_counts"`
}

func NewPostgresStorage(ctx context.Context, cfg config.Database, redisClient *redis.Client, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...", zap.String("host", cfg.Host), zap.String("db", cfg.Name))

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// DB exposes the pool for migrations.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStorage) ListProducts(ctx context.Context, category quote.Category) ([]quote.Product, error) {
	const operation = "storage.ListProducts"
	const query = `
        SELECT id, category, name, COALESCE(family, '') AS family, price, active
        FROM products
        WHERE category = $1
        ORDER BY position, id
    `

	var products []quote.Product
	if err := s.db.SelectContext(ctx, &products, query, string(category)); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", operation, category, err)
	}
	return products, nil
}

type optionRow struct {
	ID        int64          `db:"id"`
	ProductID int64          `db:"product_id"`
	ParentID  sql.NullInt64  `db:"parent_id"`
	Name      string         `db:"name"`
	Price     quote.Money    `db:"price"`
	Aliases   pq.StringArray `db:"aliases"`
}

func (s *PostgresStorage) GetOptionTree(ctx context.Context, productID int64) ([]quote.Option, error) {
	const operation = "storage.GetOptionTree"
	const query = `
        SELECT id, product_id, parent_id, name, price, aliases
        FROM product_options
        WHERE product_id = $1
        ORDER BY position, id
    `

	var rows []optionRow
	if err := s.db.SelectContext(ctx, &rows, query, productID); err != nil {
		return nil, fmt.Errorf("%s: product %d: %w", operation, productID, err)
	}

	tree, orphans := buildOptionTree(rows)
	for _, o := range orphans {
		s.logger.Warn("Suboption without a parent option",
			zap.Int64("product_id", productID),
			zap.Int64("option_id", o.ID),
			zap.Int64("parent_id", o.ParentID.Int64))
	}
	return tree, nil
}

// buildOptionTree nests suboption rows under their parent option. Rows whose
// parent is missing are returned separately.
func buildOptionTree(rows []optionRow) ([]quote.Option, []optionRow) {
	var tree []quote.Option
	index := map[int64]int{}
	for _, r := range rows {
		if r.ParentID.Valid {
			continue
		}
		index[r.ID] = len(tree)
		tree = append(tree, quote.Option{
			ID:      r.ID,
			Name:    r.Name,
			Price:   r.Price,
			Aliases: []string(r.Aliases),
		})
	}

	var orphans []optionRow
	for _, r := range rows {
		if !r.ParentID.Valid {
			continue
		}
		i, ok := index[r.ParentID.Int64]
		if !ok {
			orphans = append(orphans, r)
			continue
		}
		tree[i].SubOptions = append(tree[i].SubOptions, quote.SubOption{
			ID:      r.ID,
			Name:    r.Name,
			Price:   r.Price,
			Aliases: []string(r.Aliases),
		})
	}
	return tree, orphans
}

func (s *PostgresStorage) GetBeverageSizes(ctx context.Context, productID int64) ([]quote.BeverageSize, error) {
	const operation = "storage.GetBeverageSizes"
	const query = `
        SELECT id, product_id, COALESCE(size_cl, 0) AS size_cl, COALESCE(size_liters, 0) AS size_liters, price
        FROM beverage_sizes
        WHERE product_id = $1
        ORDER BY size_cl, size_liters, id
    `

	var sizes []quote.BeverageSize
	if err := s.db.SelectContext(ctx, &sizes, query, productID); err != nil {
		return nil, fmt.Errorf("%s: product %d: %w", operation, productID, err)
	}
	return sizes, nil
}

// SaveQuote stores a submitted quote and returns its public reference.
func (s *PostgresStorage) SaveQuote(ctx context.Context, selection *quote.SelectionModel, breakdown *quote.PriceBreakdown) (string, error) {
	const operation = "storage.SaveQuote"
	const query = `
        INSERT INTO quotes (
            reference, variant, event_date, guest_count, email,
            grand_total, selection, breakdown, status
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	selJSON, err := json.Marshal(selection)
	if err != nil {
		return "", fmt.Errorf("%s: marshal selection: %w", operation, err)
	}
	bdJSON, err := json.Marshal(breakdown)
	if err != nil {
		return "", fmt.Errorf("%s: marshal breakdown: %w", operation, err)
	}

	for attempt := 1; ; attempt++ {
		ref := NewReference()
		_, err = s.db.ExecContext(ctx, query,
			ref,
			string(selection.Variant),
			selection.EventDate,
			selection.GuestCount,
			selection.Contact.Email,
			breakdown.GrandTotal,
			string(selJSON),
			string(bdJSON),
			StatusSubmitted,
		)
		if err == nil {
			s.invalidateStats(ctx)
			return ref, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && attempt < referenceAttempts {
			s.logger.Warn("Quote reference collision, retrying", zap.String("reference", ref))
			continue
		}
		return "", fmt.Errorf("%s: %w", operation, err)
	}
}

func (s *PostgresStorage) GetQuote(ctx context.Context, reference string) (*QuoteRecord, error) {
	const operation = "storage.GetQuote"
	const query = `
        SELECT id, reference, variant, event_date, guest_count, email,
               grand_total, selection, breakdown, status, created_at
        FROM quotes
        WHERE reference = $1
    `

	var rec QuoteRecord
	if err := s.db.GetContext(ctx, &rec, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %s: %w", operation, reference, ErrQuoteNotFound)
		}
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &rec, nil
}

func (s *PostgresStorage) UpdateQuoteStatus(ctx context.Context, reference, status string) error {
	const operation = "storage.UpdateQuoteStatus"
	const query = `UPDATE quotes SET status = $1 WHERE reference = $2`

	if !ValidStatus(status) {
		return fmt.Errorf("%s: unknown status %q", operation, status)
	}

	res, err := s.db.ExecContext(ctx, query, status, reference)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %s: %w", operation, reference, ErrQuoteNotFound)
	}

	s.invalidateStats(ctx)
	return nil
}

func (s *PostgresStorage) GetQuoteStatistics(ctx context.Context) (*QuoteStatistics, error) {
	const operation = "storage.GetQuoteStatistics"

	if s.redis != nil {
		var cached QuoteStatistics
		if err := s.redis.GetJSON(ctx, statsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	type countAmount struct {
		Count  int         `db:"count"`
		Amount quote.Money `db:"amount"`
	}

	stats := &QuoteStatistics{StatusCounts: make(map[string]int)}

	var total countAmount
	if err := s.db.GetContext(ctx, &total, `
        SELECT COUNT(*) AS count, COALESCE(SUM(grand_total), 0) AS amount
        FROM quotes
    `); err != nil {
		return nil, fmt.Errorf("%s: totals: %w", operation, err)
	}
	stats.TotalQuotes, stats.TotalAmount = total.Count, total.Amount

	var month countAmount
	if err := s.db.GetContext(ctx, &month, `
        SELECT COUNT(*) AS count, COALESCE(SUM(grand_total), 0) AS amount
        FROM quotes
        WHERE created_at >= CURRENT_DATE - INTERVAL '30 days'
    `); err != nil {
		return nil, fmt.Errorf("%s: month: %w", operation, err)
	}
	stats.MonthQuotes, stats.MonthAmount = month.Count, month.Amount

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM quotes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%s: status counts: %w", operation, err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("%s: scan status count: %w", operation, err)
		}
		stats.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	if s.redis != nil {
		if err := s.redis.SetJSON(ctx, statsCacheKey, stats, statsCacheTTL); err != nil {
			s.logger.Warn("Failed to cache quote statistics", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *PostgresStorage) invalidateStats(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, statsCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate quote statistics", zap.Error(err))
	}
}

// NewReference returns an opaque public quote reference such as "Q-3F9A1C2B".
func NewReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "Q-" + strings.ToUpper(id[:8])
}
