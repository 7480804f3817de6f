package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/raffle-system/internal/model"
)

// sweepBatchSize ограничивает число резерваций, обрабатываемых за один цикл.
const sweepBatchSize = 500

// StartSweeper запускает фоновый процесс освобождения просроченных резерваций.
// Свипер — единственный механизм таймаута: ранняя отмена покупателем лишь
// оптимизация, возврат билетов в пул гарантируется именно здесь.
func (s *Service) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep освобождает просроченные активные резервации и возвращает число обработанных.
// Каждая резервация обрабатывается независимо: сбой одной логируется и не
// прерывает обработку остальных, повтор произойдёт в следующем цикле.
// Условное обновление статуса в ReleaseHold делает свипер безопасным при
// конкуренции с самим собой и с подтверждением оплаты.
func (s *Service) Sweep(ctx context.Context) int {
	ids, err := s.repo.ListExpiredHolds(ctx, s.now(), sweepBatchSize)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("list expired holds", zap.Error(err))
		}
		return 0
	}

	released := 0
	for _, id := range ids {
		ok, err := s.repo.ReleaseHold(ctx, id, model.HoldStatusExpired)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("release expired hold", zap.Error(err), zap.String("holdID", id))
			}
			continue
		}
		if ok {
			released++
		}
	}

	return released
}
