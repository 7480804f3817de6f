// Package model содержит доменные сущности движка лотерейных билетов.
package model

import "time"

// RaffleStatus описывает жизненный цикл розыгрыша.
type RaffleStatus string

const (
	RaffleStatusDraft  RaffleStatus = "draft"
	RaffleStatusActive RaffleStatus = "active"
	RaffleStatusPaused RaffleStatus = "paused"
	RaffleStatusClosed RaffleStatus = "closed"
)

// MaxTotalTickets — верхняя граница размера инвентаря одного розыгрыша.
const MaxTotalTickets = 10_000_000

// Raffle описывает розыгрыш и его схему нумерации билетов.
// Отображаемый номер билета с индексом i равен NumberStart + i*NumberStep.
type Raffle struct {
	ID                string
	Name              string
	TotalTickets      int64
	TicketPriceMinor  int64
	NumberStart       int64
	NumberStep        int64
	ReservationWindow time.Duration
	MinPerPurchase    int
	MaxPerPurchase    int
	Status            RaffleStatus
	CreatedAt         time.Time
}

// TicketNumber возвращает отображаемый номер билета по его плотному индексу.
func (r Raffle) TicketNumber(index int64) int64 {
	return r.NumberStart + index*r.NumberStep
}

// Package описывает пакетную цену за покупку точного количества билетов.
type Package struct {
	Quantity   int
	PriceMinor int64
	Label      string
}

// TicketState описывает состояние отдельного билета.
type TicketState string

const (
	TicketStateAvailable TicketState = "available"
	TicketStateHeld      TicketState = "held"
	TicketStateSold      TicketState = "sold"
)

// HoldStatus описывает статус резервации.
type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusCanceled  HoldStatus = "canceled"
)

// Buyer — данные покупателя, непрозрачные для движка.
// Валидируются на границе до обращения к инвентарю.
type Buyer struct {
	Name  string
	Email string
	Phone string
	City  string
}

// Hold представляет ограниченную по времени резервацию набора индексов билетов.
type Hold struct {
	ID             string
	RaffleID       string
	TicketIndices  []int64
	Buyer          Buyer
	Status         HoldStatus
	ReferenceCode  string
	IdempotencyKey string
	CouponCode     string
	SubtotalMinor  int64
	DiscountMinor  int64
	TotalMinor     int64
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// DiscountType описывает тип скидки купона.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

// Coupon — входные данные для расчёта цены; движок использует купоны только на чтение.
type Coupon struct {
	Code             string
	DiscountType     DiscountType
	DiscountValue    int64
	ValidFrom        time.Time
	ValidUntil       time.Time
	UsageLimit       int
	UsageCount       int
	MinPurchaseMinor int64
}

// Availability — сводка по инвентарю розыгрыша для индикаторов прогресса.
type Availability struct {
	Available int64 `json:"available"`
	Held      int64 `json:"held"`
	Sold      int64 `json:"sold"`
	Total     int64 `json:"total"`
}
