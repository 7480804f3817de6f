// Package pricing реализует чистый расчёт стоимости резервации по пакетным тарифам и купонам.
package pricing

import (
	"errors"
	"time"

	"github.com/mmeshcher/raffle-system/internal/model"
)

// ErrInvalidCoupon возвращается, если купон просрочен, исчерпан
// или сумма покупки меньше минимальной для его применения.
var ErrInvalidCoupon = errors.New("invalid coupon")

// Quote содержит результат расчёта стоимости в минорных единицах валюты.
type Quote struct {
	SubtotalMinor int64
	DiscountMinor int64
	TotalMinor    int64
}

// Price вычисляет стоимость покупки ticketCount билетов розыгрыша.
// Если количество точно совпадает с настроенным пакетом, берётся цена пакета,
// иначе — поштучная цена. Купон может быть nil. Функция не имеет побочных
// эффектов: учёт использования купона выполняет внешний реестр.
func Price(raffle model.Raffle, packages []model.Package, ticketCount int, coupon *model.Coupon, now time.Time) (Quote, error) {
	subtotal := int64(ticketCount) * raffle.TicketPriceMinor
	for _, p := range packages {
		if p.Quantity == ticketCount {
			subtotal = p.PriceMinor
			break
		}
	}

	q := Quote{
		SubtotalMinor: subtotal,
		TotalMinor:    subtotal,
	}

	if coupon == nil {
		return q, nil
	}

	if err := validateCoupon(*coupon, subtotal, now); err != nil {
		return Quote{}, err
	}

	discount := couponDiscount(*coupon, subtotal)
	if discount > subtotal {
		discount = subtotal
	}

	q.DiscountMinor = discount
	q.TotalMinor = subtotal - discount

	return q, nil
}

func validateCoupon(c model.Coupon, subtotalMinor int64, now time.Time) error {
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return ErrInvalidCoupon
	}
	if !c.ValidUntil.IsZero() && now.After(c.ValidUntil) {
		return ErrInvalidCoupon
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return ErrInvalidCoupon
	}
	if subtotalMinor < c.MinPurchaseMinor {
		return ErrInvalidCoupon
	}
	return nil
}

func couponDiscount(c model.Coupon, subtotalMinor int64) int64 {
	switch c.DiscountType {
	case model.DiscountTypePercent:
		return subtotalMinor * c.DiscountValue / 100
	case model.DiscountTypeFixed:
		return c.DiscountValue
	default:
		return 0
	}
}
