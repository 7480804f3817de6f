// Package service реализует бизнес-логику движка резервации билетов.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/raffle-system/internal/ledger"
	"github.com/mmeshcher/raffle-system/internal/model"
	"github.com/mmeshcher/raffle-system/internal/pricing"
	"github.com/mmeshcher/raffle-system/internal/repository"
	"github.com/mmeshcher/raffle-system/internal/validation"
)

// ErrValidation возвращается при некорректном запросе; автоматически не ретраится.
var (
	ErrValidation = errors.New("validation error")
	// ErrInsufficientInventory возвращается, когда доступных билетов меньше запрошенного количества.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrBusy возвращается, когда бюджет повторов исчерпан из-за конкуренции за инвентарь.
	ErrBusy = errors.New("busy, retry later")
)

const (
	defaultHoldTTL = 15 * time.Minute

	// refCodeAttempts ограничивает перегенерацию короткого кода при коллизии.
	refCodeAttempts = 5
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateRaffle(ctx context.Context, raffle model.Raffle, packages []model.Package) error
	GetRaffle(ctx context.Context, raffleID string) (*model.Raffle, error)
	GetPackages(ctx context.Context, raffleID string) ([]model.Package, error)
	UpdateRaffleStatus(ctx context.Context, raffleID string, status model.RaffleStatus) error
	GetAvailability(ctx context.Context, raffleID string) (*model.Availability, error)
	GetCoupon(ctx context.Context, code string) (*model.Coupon, error)
	FilterAvailable(ctx context.Context, raffleID string, indices []int64) ([]int64, error)
	ListAvailable(ctx context.Context, raffleID string, fromIdx int64, limit int) ([]int64, error)
	CreateHold(ctx context.Context, hold model.Hold) error
	GetHold(ctx context.Context, holdID string) (*model.Hold, error)
	FindHoldByIdempotencyKey(ctx context.Context, raffleID, key string) (*model.Hold, error)
	ConfirmHold(ctx context.Context, holdID string, now time.Time) error
	ReleaseHold(ctx context.Context, holdID string, to model.HoldStatus) (bool, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// LedgerNotifier описывает контракт внешнего реестра использования купонов.
type LedgerNotifier interface {
	ReportUsage(ctx context.Context, usage ledger.Usage) error
}

// Service содержит бизнес-логику движка резервации билетов.
type Service struct {
	repo          Repository
	ledgerClient  LedgerNotifier
	logger        *zap.Logger
	holdTTL       time.Duration
	sweepInterval time.Duration
	maxPerHold    int
	now           func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием.
// ledgerClient может быть nil, если внешний реестр купонов не настроен.
func NewService(repo Repository, ledgerClient LedgerNotifier, logger *zap.Logger, holdTTL, sweepInterval time.Duration, maxPerHold int) *Service {
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Second
	}
	if maxPerHold <= 0 {
		maxPerHold = 1000
	}

	return &Service{
		repo:          repo,
		ledgerClient:  ledgerClient,
		logger:        logger,
		holdTTL:       holdTTL,
		sweepInterval: sweepInterval,
		maxPerHold:    maxPerHold,
		now:           time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// ReserveInput — запрос на резервацию явно выбранных индексов билетов.
type ReserveInput struct {
	RaffleID       string
	TicketIndices  []int64
	Buyer          model.Buyer
	CouponCode     string
	IdempotencyKey string
}

// Reserve атомарно удерживает запрошенные индексы для покупателя.
// Все билеты переходят available→held единым блоком либо не переходят вовсе:
// при конфликте возвращается repository.TicketsUnavailableError с проигравшими
// индексами, и вызывающая сторона предлагает покупателю другие номера.
// Повторный вызов с тем же ключом идемпотентности возвращает ту же резервацию.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*model.Hold, error) {
	if in.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", ErrValidation)
	}
	if len(in.TicketIndices) == 0 {
		return nil, fmt.Errorf("%w: ticket indices are required", ErrValidation)
	}
	if !validation.IsValidBuyer(in.Buyer) {
		return nil, fmt.Errorf("%w: invalid buyer", ErrValidation)
	}

	indices := normalizeIndices(in.TicketIndices)
	if len(indices) != len(in.TicketIndices) {
		return nil, fmt.Errorf("%w: duplicate ticket indices", ErrValidation)
	}

	if existing, err := s.replayByIdempotencyKey(ctx, in.RaffleID, in.IdempotencyKey, indices); existing != nil || err != nil {
		return existing, err
	}

	raffle, err := s.repo.GetRaffle(ctx, in.RaffleID)
	if err != nil {
		return nil, err
	}

	if err := s.validatePurchase(*raffle, len(indices)); err != nil {
		return nil, err
	}
	for _, idx := range indices {
		if idx < 0 || idx >= raffle.TotalTickets {
			return nil, fmt.Errorf("%w: ticket index %d out of range", ErrValidation, idx)
		}
	}

	return s.createHold(ctx, *raffle, indices, in.Buyer, in.CouponCode, in.IdempotencyKey)
}

// createHold рассчитывает цену и сохраняет резервацию.
// Цена вычисляется до перехода инвентаря, поэтому отклонённый купон
// никогда не оставляет билеты застрявшими в состоянии held.
func (s *Service) createHold(ctx context.Context, raffle model.Raffle, indices []int64, buyer model.Buyer, couponCode, idempotencyKey string) (*model.Hold, error) {
	quote, err := s.resolvePrice(ctx, raffle, len(indices), couponCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	window := raffle.ReservationWindow
	if window <= 0 {
		window = s.holdTTL
	}

	hold := model.Hold{
		ID:             uuid.NewString(),
		RaffleID:       raffle.ID,
		TicketIndices:  indices,
		Buyer:          buyer,
		Status:         model.HoldStatusActive,
		IdempotencyKey: idempotencyKey,
		CouponCode:     couponCode,
		SubtotalMinor:  quote.SubtotalMinor,
		DiscountMinor:  quote.DiscountMinor,
		TotalMinor:     quote.TotalMinor,
		CreatedAt:      now,
		ExpiresAt:      now.Add(window),
	}

	for attempt := 0; attempt < refCodeAttempts; attempt++ {
		hold.ReferenceCode, err = newReferenceCode()
		if err != nil {
			return nil, fmt.Errorf("generate reference code: %w", err)
		}

		err = s.repo.CreateHold(ctx, hold)
		if err == nil {
			return &hold, nil
		}

		if errors.Is(err, repository.ErrReferenceCodeTaken) {
			continue
		}

		// Конкурентный запрос с тем же ключом успел первым: возвращаем его результат.
		if errors.Is(err, repository.ErrIdempotencyConflict) {
			existing, replayErr := s.replayByIdempotencyKey(ctx, raffle.ID, idempotencyKey, indices)
			if replayErr != nil {
				return nil, replayErr
			}
			if existing != nil {
				return existing, nil
			}
		}

		return nil, err
	}

	return nil, fmt.Errorf("reference code generation: %w", ErrBusy)
}

// replayByIdempotencyKey возвращает существующую резервацию по ключу идемпотентности.
// Тот же ключ с другим набором индексов — ошибка, а не вторая резервация.
// Пустой wantIndices означает, что набор не сверяется (случайная выборка фунгибельна).
func (s *Service) replayByIdempotencyKey(ctx context.Context, raffleID, key string, wantIndices []int64) (*model.Hold, error) {
	existing, err := s.repo.FindHoldByIdempotencyKey(ctx, raffleID, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if wantIndices != nil && !slices.Equal(existing.TicketIndices, wantIndices) {
		return nil, fmt.Errorf("%w: different ticket set for same idempotency key", ErrValidation)
	}

	return existing, nil
}

func (s *Service) resolvePrice(ctx context.Context, raffle model.Raffle, count int, couponCode string) (pricing.Quote, error) {
	packages, err := s.repo.GetPackages(ctx, raffle.ID)
	if err != nil {
		return pricing.Quote{}, err
	}

	var coupon *model.Coupon
	if couponCode != "" {
		coupon, err = s.repo.GetCoupon(ctx, couponCode)
		if err != nil {
			if errors.Is(err, repository.ErrCouponNotFound) {
				return pricing.Quote{}, pricing.ErrInvalidCoupon
			}
			return pricing.Quote{}, err
		}
	}

	return pricing.Price(raffle, packages, count, coupon, s.now())
}

func (s *Service) validatePurchase(raffle model.Raffle, count int) error {
	if raffle.Status != model.RaffleStatusActive {
		return fmt.Errorf("%w: raffle is not active", ErrValidation)
	}

	minPer := raffle.MinPerPurchase
	if minPer < 1 {
		minPer = 1
	}
	maxPer := raffle.MaxPerPurchase
	if maxPer < 1 || maxPer > s.maxPerHold {
		maxPer = s.maxPerHold
	}

	if count < minPer || count > maxPer {
		return fmt.Errorf("%w: ticket count %d outside allowed range [%d, %d]", ErrValidation, count, minPer, maxPer)
	}

	return nil
}

// Confirm переводит все билеты резервации held→sold после внешнего подтверждения оплаты.
// Повторное подтверждение — безопасный no-op; просроченная резервация даёт
// repository.ErrHoldExpired, и вызывающая сторона должна резервировать заново.
func (s *Service) Confirm(ctx context.Context, holdID string) error {
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return err
	}

	if err := s.repo.ConfirmHold(ctx, holdID, s.now()); err != nil {
		return err
	}

	if hold.CouponCode != "" && hold.Status == model.HoldStatusActive {
		s.reportCouponUsage(ctx, *hold)
	}

	return nil
}

// reportCouponUsage сообщает внешнему реестру о применении купона.
// Сбой доставки не откатывает подтверждение: реестр дедуплицирует по holdID,
// а клиент повторяет запрос сам.
func (s *Service) reportCouponUsage(ctx context.Context, hold model.Hold) {
	if s.ledgerClient == nil {
		return
	}

	usage := ledger.Usage{
		HoldID:        hold.ID,
		RaffleID:      hold.RaffleID,
		CouponCode:    hold.CouponCode,
		DiscountMinor: hold.DiscountMinor,
	}

	if err := s.ledgerClient.ReportUsage(ctx, usage); err != nil && s.logger != nil {
		s.logger.Error("report coupon usage",
			zap.Error(err),
			zap.String("holdID", hold.ID),
			zap.String("coupon", hold.CouponCode),
		)
	}
}

// Cancel идемпотентно освобождает билеты резервации обратно в пул.
// Уже обработанная или неизвестная резервация — no-op без ошибки.
func (s *Service) Cancel(ctx context.Context, holdID string) error {
	_, err := s.repo.ReleaseHold(ctx, holdID, model.HoldStatusCanceled)
	return err
}

// GetHold возвращает резервацию по идентификатору.
func (s *Service) GetHold(ctx context.Context, holdID string) (*model.Hold, error) {
	return s.repo.GetHold(ctx, holdID)
}

// GetRaffle возвращает розыгрыш по идентификатору.
func (s *Service) GetRaffle(ctx context.Context, raffleID string) (*model.Raffle, error) {
	return s.repo.GetRaffle(ctx, raffleID)
}

// Availability возвращает сводку по инвентарю розыгрыша.
func (s *Service) Availability(ctx context.Context, raffleID string) (*model.Availability, error) {
	return s.repo.GetAvailability(ctx, raffleID)
}

// CreateRaffleInput — запрос на создание розыгрыша.
type CreateRaffleInput struct {
	Name              string
	TotalTickets      int64
	TicketPriceMinor  int64
	NumberStart       int64
	NumberStep        int64
	ReservationWindow time.Duration
	MinPerPurchase    int
	MaxPerPurchase    int
	Packages          []model.Package
}

// CreateRaffle создаёт розыгрыш вместе со всем его инвентарём билетов.
func (s *Service) CreateRaffle(ctx context.Context, in CreateRaffleInput) (*model.Raffle, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.TotalTickets < 1 || in.TotalTickets > model.MaxTotalTickets {
		return nil, fmt.Errorf("%w: total tickets must be in [1, %d]", ErrValidation, model.MaxTotalTickets)
	}
	if in.TicketPriceMinor < 0 {
		return nil, fmt.Errorf("%w: ticket price must not be negative", ErrValidation)
	}
	if in.NumberStep < 0 {
		return nil, fmt.Errorf("%w: number step must not be negative", ErrValidation)
	}

	seen := make(map[int]struct{}, len(in.Packages))
	for _, p := range in.Packages {
		if p.Quantity < 1 || p.PriceMinor < 0 {
			return nil, fmt.Errorf("%w: invalid package", ErrValidation)
		}
		if _, ok := seen[p.Quantity]; ok {
			return nil, fmt.Errorf("%w: duplicate package quantity %d", ErrValidation, p.Quantity)
		}
		seen[p.Quantity] = struct{}{}
	}

	raffle := model.Raffle{
		ID:                uuid.NewString(),
		Name:              in.Name,
		TotalTickets:      in.TotalTickets,
		TicketPriceMinor:  in.TicketPriceMinor,
		NumberStart:       in.NumberStart,
		NumberStep:        in.NumberStep,
		ReservationWindow: in.ReservationWindow,
		MinPerPurchase:    in.MinPerPurchase,
		MaxPerPurchase:    in.MaxPerPurchase,
		Status:            model.RaffleStatusActive,
		CreatedAt:         s.now(),
	}

	if raffle.NumberStep == 0 {
		raffle.NumberStep = 1
	}
	if raffle.ReservationWindow <= 0 {
		raffle.ReservationWindow = s.holdTTL
	}
	if raffle.MinPerPurchase < 1 {
		raffle.MinPerPurchase = 1
	}
	if raffle.MaxPerPurchase < 1 {
		raffle.MaxPerPurchase = s.maxPerHold
	}

	if err := s.repo.CreateRaffle(ctx, raffle, in.Packages); err != nil {
		return nil, err
	}

	return &raffle, nil
}

// UpdateRaffleStatus переводит розыгрыш в один из статусов draft/active/paused/closed.
func (s *Service) UpdateRaffleStatus(ctx context.Context, raffleID string, status model.RaffleStatus) error {
	switch status {
	case model.RaffleStatusDraft, model.RaffleStatusActive, model.RaffleStatusPaused, model.RaffleStatusClosed:
	default:
		return fmt.Errorf("%w: unknown raffle status %q", ErrValidation, status)
	}

	return s.repo.UpdateRaffleStatus(ctx, raffleID, status)
}

func normalizeIndices(indices []int64) []int64 {
	sorted := slices.Clone(indices)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
