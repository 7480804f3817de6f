// Package handler содержит HTTP-обработчики API движка резервации билетов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/raffle-system/internal/model"
	"github.com/mmeshcher/raffle-system/internal/pricing"
	"github.com/mmeshcher/raffle-system/internal/repository"
	"github.com/mmeshcher/raffle-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateRaffle(ctx context.Context, in service.CreateRaffleInput) (*model.Raffle, error)
	UpdateRaffleStatus(ctx context.Context, raffleID string, status model.RaffleStatus) error
	Reserve(ctx context.Context, in service.ReserveInput) (*model.Hold, error)
	SampleAndReserve(ctx context.Context, in service.SampleInput) (*model.Hold, error)
	Confirm(ctx context.Context, holdID string) error
	Cancel(ctx context.Context, holdID string) error
	Availability(ctx context.Context, raffleID string) (*model.Availability, error)
	GetRaffle(ctx context.Context, raffleID string) (*model.Raffle, error)
}

// Handler реализует HTTP-обработчики API движка резервации билетов.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

type errorResponse struct {
	Error       string  `json:"error"`
	Conflicting []int64 `json:"conflicting,omitempty"`
}

// writeError сериализует ошибку движка в типизированный JSON-ответ.
// UI ветвится по полю error, поэтому коды стабильны.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var unavailable *repository.TicketsUnavailableError

	switch {
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:       "tickets_unavailable",
			Conflicting: unavailable.Conflicting,
		})
	case errors.Is(err, service.ErrInsufficientInventory):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "insufficient_inventory"})
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error"})
	case errors.Is(err, pricing.ErrInvalidCoupon):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid_coupon"})
	case errors.Is(err, repository.ErrHoldExpired):
		writeJSON(w, http.StatusGone, errorResponse{Error: "hold_expired"})
	case errors.Is(err, repository.ErrHoldNotFound), errors.Is(err, repository.ErrRaffleNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found"})
	case errors.Is(err, service.ErrBusy):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "busy"})
	default:
		h.logger.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type packageRequest struct {
	Quantity   int    `json:"quantity"`
	PriceMinor int64  `json:"priceMinor"`
	Label      string `json:"label"`
}

type createRaffleRequest struct {
	Name              string           `json:"name"`
	TotalTickets      int64            `json:"totalTickets"`
	TicketPriceMinor  int64            `json:"ticketPriceMinor"`
	NumberStart       int64            `json:"numberStart"`
	NumberStep        int64            `json:"numberStep"`
	ReservationWindow string           `json:"reservationWindow"`
	MinPerPurchase    int              `json:"minPerPurchase"`
	MaxPerPurchase    int              `json:"maxPerPurchase"`
	Packages          []packageRequest `json:"packages"`
}

type createRaffleResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateRaffle создаёт розыгрыш и весь его инвентарь билетов.
func (h *Handler) CreateRaffle(w http.ResponseWriter, r *http.Request) {
	var req createRaffleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error"})
		return
	}

	var window time.Duration
	if req.ReservationWindow != "" {
		var err error
		window, err = time.ParseDuration(req.ReservationWindow)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error"})
			return
		}
	}

	in := service.CreateRaffleInput{
		Name:              req.Name,
		TotalTickets:      req.TotalTickets,
		TicketPriceMinor:  req.TicketPriceMinor,
		NumberStart:       req.NumberStart,
		NumberStep:        req.NumberStep,
		ReservationWindow: window,
		MinPerPurchase:    req.MinPerPurchase,
		MaxPerPurchase:    req.MaxPerPurchase,
	}
	for _, p := range req.Packages {
		in.Packages = append(in.Packages, model.Package{
			Quantity:   p.Quantity,
			PriceMinor: p.PriceMinor,
			Label:      p.Label,
		})
	}

	raffle, err := h.service.CreateRaffle(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createRaffleResponse{
		ID:     raffle.ID,
		Status: string(raffle.Status),
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateRaffleStatus переводит розыгрыш в указанный статус.
func (h *Handler) UpdateRaffleStatus(w http.ResponseWriter, r *http.Request) {
	raffleID := chi.URLParam(r, "raffleID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error"})
		return
	}

	if err := h.service.UpdateRaffleStatus(r.Context(), raffleID, model.RaffleStatus(req.Status)); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type buyerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	City  string `json:"city"`
}

type reserveRequest struct {
	TicketIndices  []int64      `json:"ticketIndices,omitempty"`
	Quantity       int          `json:"quantity,omitempty"`
	ExcludeIndices []int64      `json:"excludeIndices,omitempty"`
	Buyer          buyerRequest `json:"buyer"`
	CouponCode     string       `json:"couponCode,omitempty"`
	IdempotencyKey string       `json:"idempotencyKey"`
}

type ticketResponse struct {
	Index  int64 `json:"index"`
	Number int64 `json:"number"`
}

type holdResponse struct {
	HoldID        string           `json:"holdId"`
	ReferenceCode string           `json:"referenceCode"`
	ExpiresAt     string           `json:"expiresAt"`
	Tickets       []ticketResponse `json:"tickets"`
	SubtotalMinor int64            `json:"subtotalMinor"`
	DiscountMinor int64            `json:"discountMinor"`
	TotalMinor    int64            `json:"totalAmountMinor"`
}

// Reserve создаёт резервацию: либо на явно выбранные индексы, либо на
// случайную выборку указанного количества.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	raffleID := chi.URLParam(r, "raffleID")

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error"})
		return
	}

	if len(req.TicketIndices) > 0 && req.Quantity > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error"})
		return
	}

	buyer := model.Buyer{
		Name:  req.Buyer.Name,
		Email: req.Buyer.Email,
		Phone: req.Buyer.Phone,
		City:  req.Buyer.City,
	}

	var (
		hold *model.Hold
		err  error
	)
	if len(req.TicketIndices) > 0 {
		hold, err = h.service.Reserve(r.Context(), service.ReserveInput{
			RaffleID:       raffleID,
			TicketIndices:  req.TicketIndices,
			Buyer:          buyer,
			CouponCode:     req.CouponCode,
			IdempotencyKey: req.IdempotencyKey,
		})
	} else {
		hold, err = h.service.SampleAndReserve(r.Context(), service.SampleInput{
			RaffleID:       raffleID,
			Quantity:       req.Quantity,
			ExcludeIndices: req.ExcludeIndices,
			Buyer:          buyer,
			CouponCode:     req.CouponCode,
			IdempotencyKey: req.IdempotencyKey,
		})
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	raffle, err := h.service.GetRaffle(r.Context(), hold.RaffleID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := holdResponse{
		HoldID:        hold.ID,
		ReferenceCode: hold.ReferenceCode,
		ExpiresAt:     hold.ExpiresAt.Format(time.RFC3339),
		SubtotalMinor: hold.SubtotalMinor,
		DiscountMinor: hold.DiscountMinor,
		TotalMinor:    hold.TotalMinor,
	}
	for _, idx := range hold.TicketIndices {
		resp.Tickets = append(resp.Tickets, ticketResponse{
			Index:  idx,
			Number: raffle.TicketNumber(idx),
		})
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Confirm переводит билеты резервации в состояние sold после подтверждения оплаты.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")

	if err := h.service.Confirm(r.Context(), holdID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Cancel идемпотентно освобождает резервацию; всегда отвечает успехом.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")

	if err := h.service.Cancel(r.Context(), holdID); err != nil {
		h.logger.Error("cancel hold error", zap.Error(err), zap.String("holdID", holdID))
	}

	w.WriteHeader(http.StatusOK)
}

// Availability возвращает сводку по инвентарю розыгрыша.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	raffleID := chi.URLParam(r, "raffleID")

	availability, err := h.service.Availability(r.Context(), raffleID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, availability)
}
