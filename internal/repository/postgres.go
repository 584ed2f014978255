// Package repository содержит доступ к справочным данным каталога и склада в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/floristika/insumos-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrProductNotFound возвращается, если продукт отсутствует в каталоге.
var ErrProductNotFound = errors.New("product not found")

// PostgresRepository предоставляет доступ к каталогу продуктов и счётчикам склада.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных ошибках: откат сериализации,
// дедлок, обрыв соединения. Остальные ошибки возвращаются сразу.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetProductConfiguration возвращает рецепт продукта: слоты в порядке рецепта
// и допустимые цветы с текущими счётчиками склада. Счётчики читаются один раз
// и служат снимком на всю сессию редактирования.
func (r *PostgresRepository) GetProductConfiguration(ctx context.Context, productID int64) (*model.ProductConfiguration, error) {
	var cfg *model.ProductConfiguration

	err := r.withRetry(ctx, func() error {
		var err error
		cfg, err = r.getProductConfiguration(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (r *PostgresRepository) getProductConfiguration(ctx context.Context, productID int64) (*model.ProductConfiguration, error) {
	cfg := &model.ProductConfiguration{ProductID: productID}

	err := r.pool.QueryRow(ctx,
		`SELECT name, container_required, container_kind_filter
		 FROM products
		 WHERE id = $1`,
		productID,
	).Scan(&cfg.Name, &cfg.HasContainer, &cfg.ContainerKindFilter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, color_name, suggested_qty
		 FROM color_slots
		 WHERE product_id = $1
		 ORDER BY position`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("select slots: %w", err)
	}
	defer rows.Close()

	slotIndex := make(map[int64]int)
	for rows.Next() {
		var slot model.ColorSlot
		if err := rows.Scan(&slot.ID, &slot.ColorName, &slot.SuggestedQty); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slotIndex[slot.ID] = len(cfg.ColorSlots)
		cfg.ColorSlots = append(cfg.ColorSlots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT so.slot_id, f.sku, f.display_name, f.unit_cost_cents, f.stock_total, f.stock_in_use, so.is_default
		 FROM slot_options so
		 JOIN flower_skus f ON f.sku = so.sku
		 JOIN color_slots cs ON cs.id = so.slot_id
		 WHERE cs.product_id = $1
		 ORDER BY so.slot_id, so.position`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("select slot options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var (
			slotID    int64
			opt       model.FlowerOption
			costCents int64
		)
		if err := optRows.Scan(&slotID, &opt.SKU, &opt.DisplayName, &costCents, &opt.StockTotal, &opt.StockInUse, &opt.IsDefault); err != nil {
			return nil, fmt.Errorf("scan slot option: %w", err)
		}
		opt.UnitCost = decimal.New(costCents, -2)

		idx, ok := slotIndex[slotID]
		if !ok {
			continue
		}
		cfg.ColorSlots[idx].Options = append(cfg.ColorSlots[idx].Options, opt)
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cfg, nil
}

// GetContainerOptions возвращает все ёмкости каталога с доступными остатками.
func (r *PostgresRepository) GetContainerOptions(ctx context.Context) ([]model.ContainerOption, error) {
	var containers []model.ContainerOption

	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT sku, kind, material, unit_cost_cents, stock_available
			 FROM containers
			 ORDER BY kind, sku`,
		)
		if err != nil {
			return fmt.Errorf("select containers: %w", err)
		}
		defer rows.Close()

		containers = containers[:0]
		for rows.Next() {
			var (
				c         model.ContainerOption
				costCents int64
			)
			if err := rows.Scan(&c.SKU, &c.Kind, &c.Material, &costCents, &c.StockAvailable); err != nil {
				return fmt.Errorf("scan container: %w", err)
			}
			c.UnitCost = decimal.New(costCents, -2)
			containers = append(containers, c)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return containers, nil
}
