// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/raffle-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRaffleNotFound возвращается, если розыгрыш не найден.
var (
	ErrRaffleNotFound = errors.New("raffle not found")
	// ErrHoldNotFound возвращается, если резервация не найдена.
	ErrHoldNotFound = errors.New("hold not found")
	// ErrHoldExpired возвращается при попытке подтвердить просроченную резервацию.
	ErrHoldExpired = errors.New("hold expired")
	// ErrCouponNotFound возвращается, если купон с указанным кодом не существует.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrReferenceCodeTaken возвращается при коллизии короткого кода резервации.
	ErrReferenceCodeTaken = errors.New("reference code already taken")
	// ErrIdempotencyConflict возвращается, если ключ идемпотентности уже занят конкурентной резервацией.
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	// ErrRaffleExists возвращается при попытке создать розыгрыш с уже существующим идентификатором.
	ErrRaffleExists = errors.New("raffle already exists")
)

// TicketsUnavailableError возвращается, когда часть запрошенных индексов
// уже удержана или продана. Резервация откатывается целиком.
type TicketsUnavailableError struct {
	Conflicting []int64
}

func (e *TicketsUnavailableError) Error() string {
	return fmt.Sprintf("tickets unavailable: %d conflicting indices", len(e.Conflicting))
}

// PostgresRepository предоставляет доступ к хранилищу инвентаря в PostgreSQL.
// Хранилище — единственная точка взаимной блокировки движка: все переходы
// состояний билетов выполняются условными обновлениями внутри транзакций.
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

// withRetry повторяет транзакцию при deadlock и serialization failure.
// Конкурентные резервации с пересекающимися наборами индексов блокируют
// строки в недетерминированном порядке, поэтому deadlock — ожидаемый
// транзиентный исход, а не ошибка логики.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) &&
			(pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected) {
			return retry.RetryableError(err)
		}

		return err
	})
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateRaffle создаёт розыгрыш, его пакеты, счётчики и все билеты.
// Билеты создаются одним INSERT из generate_series, чтобы инвентарь
// корпоративного размера не требовал миллионов отдельных команд.
func (r *PostgresRepository) CreateRaffle(ctx context.Context, raffle model.Raffle, packages []model.Package) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO raffles
		 (id, name, total_tickets, ticket_price_minor, number_start, number_step,
		  reservation_window_seconds, min_per_purchase, max_per_purchase, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		raffle.ID, raffle.Name, raffle.TotalTickets, raffle.TicketPriceMinor,
		raffle.NumberStart, raffle.NumberStep, int64(raffle.ReservationWindow.Seconds()),
		raffle.MinPerPurchase, raffle.MaxPerPurchase, string(raffle.Status), raffle.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrRaffleExists
		}
		return fmt.Errorf("insert raffle: %w", err)
	}

	for _, p := range packages {
		_, err = tx.Exec(ctx,
			`INSERT INTO raffle_packages (raffle_id, quantity, price_minor, label) VALUES ($1, $2, $3, $4)`,
			raffle.ID, p.Quantity, p.PriceMinor, p.Label,
		)
		if err != nil {
			return fmt.Errorf("insert package: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO tickets (raffle_id, idx)
		 SELECT $1, gs FROM generate_series(0, $2::bigint - 1) AS gs`,
		raffle.ID, raffle.TotalTickets,
	)
	if err != nil {
		return fmt.Errorf("insert tickets: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO raffle_counters (raffle_id, available) VALUES ($1, $2)`,
		raffle.ID, raffle.TotalTickets,
	)
	if err != nil {
		return fmt.Errorf("insert counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetRaffle возвращает розыгрыш по идентификатору.
func (r *PostgresRepository) GetRaffle(ctx context.Context, raffleID string) (*model.Raffle, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, total_tickets, ticket_price_minor, number_start, number_step,
		        reservation_window_seconds, min_per_purchase, max_per_purchase, status, created_at
		 FROM raffles WHERE id = $1`,
		raffleID,
	)

	var (
		raffle        model.Raffle
		windowSeconds int64
		status        string
	)
	err := row.Scan(&raffle.ID, &raffle.Name, &raffle.TotalTickets, &raffle.TicketPriceMinor,
		&raffle.NumberStart, &raffle.NumberStep, &windowSeconds,
		&raffle.MinPerPurchase, &raffle.MaxPerPurchase, &status, &raffle.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, fmt.Errorf("get raffle: %w", err)
	}

	raffle.ReservationWindow = time.Duration(windowSeconds) * time.Second
	raffle.Status = model.RaffleStatus(status)

	return &raffle, nil
}

// GetPackages возвращает пакетные тарифы розыгрыша в порядке возрастания количества.
func (r *PostgresRepository) GetPackages(ctx context.Context, raffleID string) ([]model.Package, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT quantity, price_minor, label FROM raffle_packages WHERE raffle_id = $1 ORDER BY quantity`,
		raffleID,
	)
	if err != nil {
		return nil, fmt.Errorf("select packages: %w", err)
	}
	defer rows.Close()

	var packages []model.Package
	for rows.Next() {
		var p model.Package
		if err := rows.Scan(&p.Quantity, &p.PriceMinor, &p.Label); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		packages = append(packages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return packages, nil
}

// UpdateRaffleStatus переводит розыгрыш в указанный статус.
func (r *PostgresRepository) UpdateRaffleStatus(ctx context.Context, raffleID string, status model.RaffleStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE raffles SET status = $2 WHERE id = $1`,
		raffleID, string(status),
	)
	if err != nil {
		if isInvalidUUID(err) {
			return ErrRaffleNotFound
		}
		return fmt.Errorf("update raffle status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrRaffleNotFound
	}
	return nil
}

// GetAvailability возвращает сводку по инвентарю из строки счётчиков,
// не сканируя таблицу билетов.
func (r *PostgresRepository) GetAvailability(ctx context.Context, raffleID string) (*model.Availability, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT c.available, c.held, c.sold, r.total_tickets
		 FROM raffle_counters c
		 JOIN raffles r ON r.id = c.raffle_id
		 WHERE c.raffle_id = $1`,
		raffleID,
	)

	var a model.Availability
	if err := row.Scan(&a.Available, &a.Held, &a.Sold, &a.Total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}

	return &a, nil
}

// GetCoupon возвращает купон по коду.
func (r *PostgresRepository) GetCoupon(ctx context.Context, code string) (*model.Coupon, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT code, discount_type, discount_value, valid_from, valid_until,
		        usage_limit, usage_count, min_purchase_minor
		 FROM coupons WHERE code = $1`,
		code,
	)

	var (
		c          model.Coupon
		validFrom  *time.Time
		validUntil *time.Time
	)
	err := row.Scan(&c.Code, &c.DiscountType, &c.DiscountValue, &validFrom, &validUntil,
		&c.UsageLimit, &c.UsageCount, &c.MinPurchaseMinor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	if validFrom != nil {
		c.ValidFrom = *validFrom
	}
	if validUntil != nil {
		c.ValidUntil = *validUntil
	}

	return &c, nil
}

// FilterAvailable возвращает подмножество индексов-кандидатов, доступных в данный момент.
// Результат — снимок без блокировок: окончательное решение принимает CreateHold.
func (r *PostgresRepository) FilterAvailable(ctx context.Context, raffleID string, indices []int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT idx FROM tickets WHERE raffle_id = $1 AND idx = ANY($2) AND state = 'available'`,
		raffleID, indices,
	)
	if err != nil {
		return nil, fmt.Errorf("filter available: %w", err)
	}
	defer rows.Close()

	var available []int64
	for rows.Next() {
		var idx int64
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		available = append(available, idx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return available, nil
}

// ListAvailable возвращает до limit доступных индексов по частичному индексу.
// Используется сэмплером как запасной путь при разреженной доступности,
// когда случайные пробы почти не попадают в свободные билеты.
func (r *PostgresRepository) ListAvailable(ctx context.Context, raffleID string, fromIdx int64, limit int) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT idx FROM tickets WHERE raffle_id = $1 AND state = 'available' AND idx >= $2 ORDER BY idx LIMIT $3`,
		raffleID, fromIdx, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list available: %w", err)
	}
	defer rows.Close()

	var available []int64
	for rows.Next() {
		var idx int64
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		available = append(available, idx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return available, nil
}

// CreateHold атомарно переводит запрошенные индексы available→held и сохраняет резервацию.
// При частичном конфликте транзакция откатывается целиком и возвращается
// TicketsUnavailableError со списком недоступных индексов.
func (r *PostgresRepository) CreateHold(ctx context.Context, hold model.Hold) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		cmdTag, err := tx.Exec(ctx,
			`UPDATE tickets
			 SET state = 'held', hold_id = $3, held_until = $4
			 WHERE raffle_id = $1 AND idx = ANY($2) AND state = 'available'`,
			hold.RaffleID, hold.TicketIndices, hold.ID, hold.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("hold tickets: %w", err)
		}

		if cmdTag.RowsAffected() != int64(len(hold.TicketIndices)) {
			conflicting, err := conflictingIndices(ctx, tx, hold.RaffleID, hold.ID, hold.TicketIndices)
			if err != nil {
				return err
			}
			return &TicketsUnavailableError{Conflicting: conflicting}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO holds
			 (id, raffle_id, ticket_indices, buyer_name, buyer_email, buyer_phone, buyer_city,
			  status, reference_code, idempotency_key, coupon_code,
			  subtotal_minor, discount_minor, total_minor, created_at, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			hold.ID, hold.RaffleID, hold.TicketIndices,
			hold.Buyer.Name, hold.Buyer.Email, hold.Buyer.Phone, hold.Buyer.City,
			string(hold.Status), hold.ReferenceCode, hold.IdempotencyKey, nullString(hold.CouponCode),
			hold.SubtotalMinor, hold.DiscountMinor, hold.TotalMinor, hold.CreatedAt, hold.ExpiresAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				switch pgErr.ConstraintName {
				case "holds_reference_code_uniq":
					return ErrReferenceCodeTaken
				case "holds_idempotency_key_uniq":
					return ErrIdempotencyConflict
				}
			}
			return fmt.Errorf("insert hold: %w", err)
		}

		n := int64(len(hold.TicketIndices))
		_, err = tx.Exec(ctx,
			`UPDATE raffle_counters SET available = available - $2, held = held + $2 WHERE raffle_id = $1`,
			hold.RaffleID, n,
		)
		if err != nil {
			return fmt.Errorf("update counters: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

func conflictingIndices(ctx context.Context, tx pgx.Tx, raffleID, holdID string, indices []int64) ([]int64, error) {
	// Конфликтны индексы, не находящиеся в состоянии available и не захваченные
	// текущей транзакцией, а также индексы вне диапазона инвентаря.
	rows, err := tx.Query(ctx,
		`SELECT req.idx
		 FROM unnest($2::bigint[]) AS req(idx)
		 LEFT JOIN tickets t ON t.raffle_id = $1 AND t.idx = req.idx
		 WHERE t.idx IS NULL OR NOT (t.state = 'held' AND t.hold_id = $3)
		 ORDER BY req.idx`,
		raffleID, indices, holdID,
	)
	if err != nil {
		return nil, fmt.Errorf("select conflicting: %w", err)
	}
	defer rows.Close()

	var conflicting []int64
	for rows.Next() {
		var idx int64
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan conflicting: %w", err)
		}
		conflicting = append(conflicting, idx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return conflicting, nil
}

// GetHold возвращает резервацию по идентификатору.
func (r *PostgresRepository) GetHold(ctx context.Context, holdID string) (*model.Hold, error) {
	return r.scanHold(r.pool.QueryRow(ctx, holdQuery+` WHERE id = $1`, holdID))
}

// FindHoldByIdempotencyKey возвращает резервацию по ключу идемпотентности или nil.
func (r *PostgresRepository) FindHoldByIdempotencyKey(ctx context.Context, raffleID, key string) (*model.Hold, error) {
	hold, err := r.scanHold(r.pool.QueryRow(ctx,
		holdQuery+` WHERE raffle_id = $1 AND idempotency_key = $2`, raffleID, key))
	if errors.Is(err, ErrHoldNotFound) {
		return nil, nil
	}
	return hold, err
}

const holdQuery = `
SELECT id, raffle_id, ticket_indices, buyer_name, buyer_email, buyer_phone, buyer_city,
       status, reference_code, idempotency_key, COALESCE(coupon_code, ''),
       subtotal_minor, discount_minor, total_minor, created_at, expires_at
FROM holds`

func (r *PostgresRepository) scanHold(row pgx.Row) (*model.Hold, error) {
	var (
		h      model.Hold
		status string
	)
	err := row.Scan(&h.ID, &h.RaffleID, &h.TicketIndices,
		&h.Buyer.Name, &h.Buyer.Email, &h.Buyer.Phone, &h.Buyer.City,
		&status, &h.ReferenceCode, &h.IdempotencyKey, &h.CouponCode,
		&h.SubtotalMinor, &h.DiscountMinor, &h.TotalMinor, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, ErrHoldNotFound
		}
		return nil, fmt.Errorf("scan hold: %w", err)
	}

	h.Status = model.HoldStatus(status)

	return &h, nil
}

// ConfirmHold атомарно переводит все билеты резервации held→sold и помечает её подтверждённой.
// Повторное подтверждение — безопасный no-op. Просроченная или освобождённая
// резервация даёт ErrHoldExpired: победителя гонки со свипером определяет
// блокировка строки резервации.
func (r *PostgresRepository) ConfirmHold(ctx context.Context, holdID string, now time.Time) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			raffleID string
			indices  []int64
			status   string
			expires  time.Time
		)
		err = tx.QueryRow(ctx,
			`SELECT raffle_id, ticket_indices, status, expires_at FROM holds WHERE id = $1 FOR UPDATE`,
			holdID,
		).Scan(&raffleID, &indices, &status, &expires)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
				return ErrHoldNotFound
			}
			return fmt.Errorf("lock hold: %w", err)
		}

		switch model.HoldStatus(status) {
		case model.HoldStatusConfirmed:
			return nil
		case model.HoldStatusExpired, model.HoldStatusCanceled:
			return ErrHoldExpired
		}

		if !expires.After(now) {
			return ErrHoldExpired
		}

		cmdTag, err := tx.Exec(ctx,
			`UPDATE tickets
			 SET state = 'sold', held_until = NULL
			 WHERE raffle_id = $1 AND idx = ANY($2) AND state = 'held' AND hold_id = $3`,
			raffleID, indices, holdID,
		)
		if err != nil {
			return fmt.Errorf("sell tickets: %w", err)
		}
		if cmdTag.RowsAffected() != int64(len(indices)) {
			return fmt.Errorf("sell tickets: expected %d rows, got %d", len(indices), cmdTag.RowsAffected())
		}

		_, err = tx.Exec(ctx,
			`UPDATE holds SET status = 'confirmed' WHERE id = $1`,
			holdID,
		)
		if err != nil {
			return fmt.Errorf("update hold status: %w", err)
		}

		n := int64(len(indices))
		_, err = tx.Exec(ctx,
			`UPDATE raffle_counters SET held = held - $2, sold = sold + $2 WHERE raffle_id = $1`,
			raffleID, n,
		)
		if err != nil {
			return fmt.Errorf("update counters: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// ReleaseHold переводит активную резервацию в указанный конечный статус
// (expired или canceled) и возвращает её билеты в пул. Возвращает false,
// если резервация уже была обработана кем-то другим: условное обновление
// статуса гарантирует, что освобождение выполняется ровно один раз.
func (r *PostgresRepository) ReleaseHold(ctx context.Context, holdID string, to model.HoldStatus) (bool, error) {
	var released bool

	err := r.withRetry(ctx, func(ctx context.Context) error {
		released = false

		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			raffleID string
			indices  []int64
		)
		err = tx.QueryRow(ctx,
			`UPDATE holds SET status = $2 WHERE id = $1 AND status = 'active'
			 RETURNING raffle_id, ticket_indices`,
			holdID, string(to),
		).Scan(&raffleID, &indices)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
				return nil
			}
			return fmt.Errorf("claim hold: %w", err)
		}

		cmdTag, err := tx.Exec(ctx,
			`UPDATE tickets
			 SET state = 'available', hold_id = NULL, held_until = NULL
			 WHERE raffle_id = $1 AND idx = ANY($2) AND state = 'held' AND hold_id = $3`,
			raffleID, indices, holdID,
		)
		if err != nil {
			return fmt.Errorf("release tickets: %w", err)
		}
		if cmdTag.RowsAffected() != int64(len(indices)) {
			return fmt.Errorf("release tickets: expected %d rows, got %d", len(indices), cmdTag.RowsAffected())
		}

		n := int64(len(indices))
		_, err = tx.Exec(ctx,
			`UPDATE raffle_counters SET held = held - $2, available = available + $2 WHERE raffle_id = $1`,
			raffleID, n,
		)
		if err != nil {
			return fmt.Errorf("update counters: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		released = true
		return nil
	})

	return released, err
}

// ListExpiredHolds возвращает идентификаторы активных резерваций с истёкшим сроком.
// Свипер восстанавливает свою работу только из сохранённых expires_at,
// поэтому просроченные резервации корректно освобождаются и после рестарта.
func (r *PostgresRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM holds WHERE status = 'active' AND expires_at <= $1 ORDER BY expires_at LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select expired holds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan hold id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}
