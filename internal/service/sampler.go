package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/mmeshcher/raffle-system/internal/model"
	"github.com/mmeshcher/raffle-system/internal/repository"
	"github.com/mmeshcher/raffle-system/internal/validation"
)

const (
	// maxProbeRounds ограничивает число раундов случайных проб за один запрос.
	maxProbeRounds = 8

	// probeOversample — во сколько раз больше кандидатов проверяется за раунд,
	// чем осталось найти.
	probeOversample = 4

	// sparseHitRate: если доля свободных билетов ниже 1/sparseHitRate,
	// пробы почти не попадают и выгоднее читать частичный индекс доступных.
	sparseHitRate = 20

	// fallbackScanLimit ограничивает чтение доступных индексов при разреженной
	// доступности, чтобы запасной путь не превращался в полный скан.
	fallbackScanLimit = 65536

	// maxReserveAttempts ограничивает повторные попытки резервации,
	// когда выбранные индексы проигрывают гонку конкурентным запросам.
	maxReserveAttempts = 5
)

// SampleInput — запрос на резервацию случайных билетов.
type SampleInput struct {
	RaffleID       string
	Quantity       int
	ExcludeIndices []int64
	Buyer          model.Buyer
	CouponCode     string
	IdempotencyKey string
}

// SampleAndReserve выбирает Quantity случайных доступных индексов и резервирует их.
// В отличие от Reserve, проигранные гонки здесь не фатальны: случайные номера
// фунгибельны, поэтому потерянные слоты пересэмплируются в пределах бюджета
// повторов. Выбор равномерен по текущему множеству доступных индексов и не
// требует полного скана инвентаря.
func (s *Service) SampleAndReserve(ctx context.Context, in SampleInput) (*model.Hold, error) {
	if in.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", ErrValidation)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if !validation.IsValidBuyer(in.Buyer) {
		return nil, fmt.Errorf("%w: invalid buyer", ErrValidation)
	}

	// Для случайной выборки набор индексов не сверяется при повторе:
	// тот же ключ возвращает ту же резервацию, какими бы ни были номера.
	if existing, err := s.replayByIdempotencyKey(ctx, in.RaffleID, in.IdempotencyKey, nil); existing != nil || err != nil {
		return existing, err
	}

	raffle, err := s.repo.GetRaffle(ctx, in.RaffleID)
	if err != nil {
		return nil, err
	}

	if err := s.validatePurchase(*raffle, in.Quantity); err != nil {
		return nil, err
	}

	exclude := make(map[int64]struct{}, len(in.ExcludeIndices)+in.Quantity)
	for _, idx := range in.ExcludeIndices {
		exclude[idx] = struct{}{}
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		avail, err := s.repo.GetAvailability(ctx, in.RaffleID)
		if err != nil {
			return nil, err
		}
		if avail.Available < int64(in.Quantity) {
			return nil, ErrInsufficientInventory
		}

		indices, err := s.sampleAvailable(ctx, *raffle, *avail, in.Quantity, exclude)
		if err != nil {
			return nil, err
		}
		if len(indices) < in.Quantity {
			// Доступных достаточно по счётчикам, но они заняты исключениями
			// либо расхватаны конкурентами между пробами.
			continue
		}

		hold, err := s.createHold(ctx, *raffle, indices, in.Buyer, in.CouponCode, in.IdempotencyKey)
		if err == nil {
			return hold, nil
		}

		var unavailable *repository.TicketsUnavailableError
		if errors.As(err, &unavailable) {
			// Проигравшие индексы больше не предлагаем в этом запросе.
			for _, idx := range unavailable.Conflicting {
				exclude[idx] = struct{}{}
			}
			continue
		}

		return nil, err
	}

	return nil, ErrBusy
}

// sampleAvailable равномерно выбирает до quantity свободных индексов.
// Плотная доступность: случайные пробы по всему диапазону [0, totalTickets)
// пакетами с одной проверкой в хранилище на раунд. Разреженная доступность:
// ограниченное чтение частичного индекса доступных билетов со случайного
// смещения и выборка из прочитанного.
func (s *Service) sampleAvailable(ctx context.Context, raffle model.Raffle, avail model.Availability, quantity int, exclude map[int64]struct{}) ([]int64, error) {
	if avail.Available*sparseHitRate < raffle.TotalTickets {
		return s.sampleSparse(ctx, raffle, quantity, exclude)
	}

	chosen := make([]int64, 0, quantity)
	taken := make(map[int64]struct{}, quantity)

	for round := 0; round < maxProbeRounds && len(chosen) < quantity; round++ {
		need := quantity - len(chosen)

		batch := need * probeOversample
		if batch < 32 {
			batch = 32
		}

		candidates := make([]int64, 0, batch)
		seen := make(map[int64]struct{}, batch)
		// Число попыток ограничено: исключения могут покрывать почти весь
		// диапазон, и полного пакета кандидатов тогда не набрать.
		for attempts := 0; len(candidates) < batch && attempts < batch*probeOversample; attempts++ {
			idx := rand.Int64N(raffle.TotalTickets)
			if _, ok := exclude[idx]; ok {
				continue
			}
			if _, ok := taken[idx]; ok {
				continue
			}
			if _, ok := seen[idx]; ok {
				continue
			}
			seen[idx] = struct{}{}
			candidates = append(candidates, idx)
		}

		hits, err := s.repo.FilterAvailable(ctx, raffle.ID, candidates)
		if err != nil {
			return nil, err
		}

		rand.Shuffle(len(hits), func(i, j int) {
			hits[i], hits[j] = hits[j], hits[i]
		})
		for _, idx := range hits {
			if len(chosen) == quantity {
				break
			}
			taken[idx] = struct{}{}
			chosen = append(chosen, idx)
		}
	}

	if len(chosen) < quantity {
		// Пробы не добрали: доступность упала ниже ожидаемой, дочитываем индекс.
		rest, err := s.sampleSparse(ctx, raffle, quantity-len(chosen), mergeExclude(exclude, taken))
		if err != nil {
			return nil, err
		}
		chosen = append(chosen, rest...)
	}

	slices.Sort(chosen)
	return chosen, nil
}

// sampleSparse читает доступные индексы из частичного индекса со случайного
// смещения (с переходом через ноль) и равномерно выбирает из прочитанного.
func (s *Service) sampleSparse(ctx context.Context, raffle model.Raffle, quantity int, exclude map[int64]struct{}) ([]int64, error) {
	from := rand.Int64N(raffle.TotalTickets)

	available, err := s.repo.ListAvailable(ctx, raffle.ID, from, fallbackScanLimit)
	if err != nil {
		return nil, err
	}
	if len(available) < fallbackScanLimit {
		wrapped, err := s.repo.ListAvailable(ctx, raffle.ID, 0, fallbackScanLimit-len(available))
		if err != nil {
			return nil, err
		}
		available = append(available, wrapped...)
	}

	candidates := available[:0]
	for _, idx := range available {
		if _, ok := exclude[idx]; !ok {
			candidates = append(candidates, idx)
		}
	}

	// Чтение с переходом через ноль может вернуть индекс дважды.
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if len(candidates) > quantity {
		candidates = candidates[:quantity]
	}

	chosen := slices.Clone(candidates)
	slices.Sort(chosen)
	return chosen, nil
}

func mergeExclude(a, b map[int64]struct{}) map[int64]struct{} {
	merged := make(map[int64]struct{}, len(a)+len(b))
	for idx := range a {
		merged[idx] = struct{}{}
	}
	for idx := range b {
		merged[idx] = struct{}{}
	}
	return merged
}
