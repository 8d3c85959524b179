package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shoeshop-bot/pkg/redis"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	CacheTTL        time.Duration
}

type PostgresStorage struct {
	db       *sqlx.DB
	redis    *redis.Client
	logger   *zap.Logger
	cacheTTL time.Duration
}

func NewPostgresStorage(ctx context.Context, cfg Config, redisClient *redis.Client, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
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

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:       db,
		redis:    redisClient,
		logger:   logger,
		cacheTTL: cacheTTL,
	}, nil
}

func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// --- Catalog ---

// Brands returns all brands in insertion order. The brand list is immutable
// reference data, so it is cached in Redis with a TTL.
func (s *PostgresStorage) Brands(ctx context.Context) ([]Brand, error) {
	const cacheKey = "catalog:brands"

	if cached, err := s.redis.Get(ctx, cacheKey); err == nil {
		var brands []Brand
		if err := json.Unmarshal(cached, &brands); err == nil {
			return brands, nil
		}
	}

	const query = `SELECT id, name, image FROM brands ORDER BY id`

	var brands []Brand
	if err := s.db.SelectContext(ctx, &brands, query); err != nil {
		return nil, fmt.Errorf("failed to get brands: %w", err)
	}

	if data, err := json.Marshal(brands); err == nil {
		if err := s.redis.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache brands", zap.Error(err))
		}
	}

	return brands, nil
}

func (s *PostgresStorage) BrandByID(ctx context.Context, brandID int64) (*Brand, error) {
	const query = `SELECT id, name, image FROM brands WHERE id = $1`

	var brand Brand
	err := s.db.GetContext(ctx, &brand, query, brandID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("brand %d: %w", brandID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get brand: %w", err)
	}
	return &brand, nil
}

func (s *PostgresStorage) ShoesOfBrand(ctx context.Context, brandID int64) ([]Shoe, error) {
	const query = `
        SELECT id, brand_id, name, description, image, price
        FROM shoes
        WHERE brand_id = $1
        ORDER BY id
    `

	var shoes []Shoe
	if err := s.db.SelectContext(ctx, &shoes, query, brandID); err != nil {
		return nil, fmt.Errorf("failed to get shoes of brand %d: %w", brandID, err)
	}
	return shoes, nil
}

// ShoeByID looks up a single model, cache-aside through Redis.
func (s *PostgresStorage) ShoeByID(ctx context.Context, shoeID int64) (*Shoe, error) {
	cacheKey := fmt.Sprintf("catalog:shoe:%d", shoeID)

	if cached, err := s.redis.Get(ctx, cacheKey); err == nil {
		var shoe Shoe
		if err := json.Unmarshal(cached, &shoe); err == nil {
			return &shoe, nil
		}
	}

	const query = `
        SELECT id, brand_id, name, description, image, price
        FROM shoes
        WHERE id = $1
    `

	var shoe Shoe
	err := s.db.GetContext(ctx, &shoe, query, shoeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shoe %d: %w", shoeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get shoe: %w", err)
	}

	if data, err := json.Marshal(shoe); err == nil {
		if err := s.redis.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache shoe", zap.Int64("shoe_id", shoeID), zap.Error(err))
		}
	}

	return &shoe, nil
}

func (s *PostgresStorage) SizeByID(ctx context.Context, sizeID int64) (*Size, error) {
	const query = `SELECT id, value FROM sizes WHERE id = $1`

	var size Size
	err := s.db.GetContext(ctx, &size, query, sizeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("size %d: %w", sizeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get size: %w", err)
	}
	return &size, nil
}

func (s *PostgresStorage) ColorByID(ctx context.Context, colorID int64) (*Color, error) {
	const query = `SELECT id, name, code FROM colors WHERE id = $1`

	var color Color
	err := s.db.GetContext(ctx, &color, query, colorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("color %d: %w", colorID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get color: %w", err)
	}
	return &color, nil
}

// SizesOfShoe returns the sizes a model is orderable in, in insertion order.
func (s *PostgresStorage) SizesOfShoe(ctx context.Context, shoeID int64) ([]Size, error) {
	const query = `
        SELECT s.id, s.value
        FROM sizes s
        JOIN shoe_sizes ss ON ss.size_id = s.id
        WHERE ss.shoe_id = $1
        ORDER BY s.id
    `

	var sizes []Size
	if err := s.db.SelectContext(ctx, &sizes, query, shoeID); err != nil {
		return nil, fmt.Errorf("failed to get sizes of shoe %d: %w", shoeID, err)
	}
	return sizes, nil
}

// ColorsOfShoe returns the colors a model is orderable in, in insertion order.
func (s *PostgresStorage) ColorsOfShoe(ctx context.Context, shoeID int64) ([]Color, error) {
	const query = `
        SELECT c.id, c.name, c.code
        FROM colors c
        JOIN shoe_colors sc ON sc.color_id = c.id
        WHERE sc.shoe_id = $1
        ORDER BY c.id
    `

	var colors []Color
	if err := s.db.SelectContext(ctx, &colors, query, shoeID); err != nil {
		return nil, fmt.Errorf("failed to get colors of shoe %d: %w", shoeID, err)
	}
	return colors, nil
}

// --- Conversation state ---

// GetOrCreateUser returns the conversation state for a chat, creating a fresh
// one on the first inbound event from an unseen chat.
func (s *PostgresStorage) GetOrCreateUser(ctx context.Context, chatID int64, username, firstName, lastName string) (*TelegramUser, error) {
	const insert = `
        INSERT INTO telegram_users (chat_id, username, first_name, last_name, current_state)
        VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), 'start')
        ON CONFLICT (chat_id) DO NOTHING
    `

	if _, err := s.db.ExecContext(ctx, insert, chatID, username, firstName, lastName); err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", chatID, err)
	}

	const query = `
        SELECT chat_id, username, first_name, last_name, current_state, temp_data, created_at, updated_at
        FROM telegram_users
        WHERE chat_id = $1
    `

	var user TelegramUser
	if err := s.db.GetContext(ctx, &user, query, chatID); err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", chatID, err)
	}
	return &user, nil
}

// SaveUser persists the chat's state tag and draft.
func (s *PostgresStorage) SaveUser(ctx context.Context, user *TelegramUser) error {
	const query = `
        UPDATE telegram_users
        SET current_state = $2, temp_data = $3, updated_at = NOW()
        WHERE chat_id = $1
    `

	res, err := s.db.ExecContext(ctx, query, user.ChatID, user.CurrentState, user.Draft)
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", user.ChatID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d: %w", user.ChatID, ErrNotFound)
	}
	return nil
}

// --- Orders ---

// CreateOrderAndReset finalizes a conversation: it inserts the order and
// resets the user's conversation state in a single transaction, so an order
// can never exist alongside a stale draft and a failed insert leaves the
// draft intact for a retry.
func (s *PostgresStorage) CreateOrderAndReset(ctx context.Context, order Order) (*Order, error) {
	const operation = "storage.CreateOrderAndReset"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", operation, err)
	}
	defer tx.Rollback()

	const insert = `
        INSERT INTO orders (
            chat_id, shoe_id, color_id, size_id,
            address, entrance, apartment, payment_method, status
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at
    `

	err = tx.QueryRowContext(ctx, insert,
		order.ChatID,
		order.ShoeID,
		order.ColorID,
		order.SizeID,
		order.Address,
		order.Entrance,
		order.Apartment,
		order.PaymentMethod,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: insert order: %w", operation, err)
	}

	const reset = `
        UPDATE telegram_users
        SET current_state = 'start', temp_data = NULL, updated_at = NOW()
        WHERE chat_id = $1
    `

	if _, err := tx.ExecContext(ctx, reset, order.ChatID); err != nil {
		return nil, fmt.Errorf("%s: reset state: %w", operation, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", operation, err)
	}

	if err := s.redis.Del(ctx, "order_stats"); err != nil {
		s.logger.Warn("Failed to invalidate order stats cache", zap.Error(err))
	}

	return &order, nil
}

func (s *PostgresStorage) OrderByID(ctx context.Context, orderID int64) (*Order, error) {
	const query = `
        SELECT id, chat_id, shoe_id, color_id, size_id,
               address, entrance, apartment, payment_method, status, created_at
        FROM orders
        WHERE id = $1
    `

	var order Order
	err := s.db.GetContext(ctx, &order, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// UpdateOrderStatus moves an order along the fulfilment pipeline. This is an
// administrative operation; the conversation engine never touches a created
// order.
func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	const query = `UPDATE orders SET status = $1 WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}

	if err := s.redis.Del(ctx, "order_stats"); err != nil {
		s.logger.Warn("Failed to invalidate order stats cache", zap.Error(err))
	}
	return nil
}

type OrderStatistics struct {
	TotalOrders  int            `json:"total_orders"`
	TotalRevenue int64          `json:"total_revenue"`
	TodayOrders  int            `json:"today_orders"`
	WeekOrders   int            `json:"week_orders"`
	MonthOrders  int            `json:"month_orders"`
	StatusCounts map[string]int `json:"status_counts"`
}

// GetOrderStatistics aggregates order counts and revenue. Revenue is the sum
// of catalog prices of the ordered models. Cached in Redis for an hour and
// invalidated on every new order or status change.
func (s *PostgresStorage) GetOrderStatistics(ctx context.Context) (*OrderStatistics, error) {
	const cacheKey = "order_stats"

	if cached, err := s.redis.Get(ctx, cacheKey); err == nil {
		var stats OrderStatistics
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
	}

	stats := &OrderStatistics{
		StatusCounts: make(map[string]int),
	}

	type totals struct {
		Count   int   `db:"count"`
		Revenue int64 `db:"revenue"`
	}

	var all totals
	err := s.db.GetContext(ctx, &all, `
        SELECT COUNT(*) AS count, COALESCE(SUM(s.price), 0) AS revenue
        FROM orders o
        JOIN shoes s ON s.id = o.shoe_id
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get order totals: %w", err)
	}
	stats.TotalOrders = all.Count
	stats.TotalRevenue = all.Revenue

	periods := []struct {
		interval string
		dest     *int
	}{
		{"CURRENT_DATE", &stats.TodayOrders},
		{"CURRENT_DATE - INTERVAL '7 days'", &stats.WeekOrders},
		{"CURRENT_DATE - INTERVAL '30 days'", &stats.MonthOrders},
	}
	for _, p := range periods {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM orders WHERE created_at >= %s`, p.interval)
		if err := s.db.GetContext(ctx, p.dest, query); err != nil {
			return nil, fmt.Errorf("failed to get period order count: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT status, COUNT(*) AS count
        FROM orders
        GROUP BY status
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := s.redis.Set(ctx, cacheKey, data, time.Hour); err != nil {
			s.logger.Warn("Failed to cache order stats", zap.Error(err))
		}
	}

	return stats, nil
}

// CheckRateLimit counts events per user inside a sliding window backed by
// Redis. Returns true when the user is over the limit.
func (s *PostgresStorage) CheckRateLimit(ctx context.Context, chatID int64, action string, limit int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:%d:%s", chatID, action)

	count, err := s.redis.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if _, err := s.redis.Expire(ctx, key, window); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count > limit, nil
}
