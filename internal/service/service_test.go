package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/raffle-system/internal/ledger"
	"github.com/mmeshcher/raffle-system/internal/model"
	"github.com/mmeshcher/raffle-system/internal/pricing"
	"github.com/mmeshcher/raffle-system/internal/repository"
)

// fakeRepo — потокобезопасная реализация Repository в памяти с той же
// семантикой условных переходов, что и у PostgreSQL-хранилища.
type fakeRepo struct {
	mu       sync.Mutex
	raffles  map[string]model.Raffle
	packages map[string][]model.Package
	coupons  map[string]model.Coupon
	tickets  map[string][]fakeTicket
	holds    map[string]model.Hold
}

type fakeTicket struct {
	state  model.TicketState
	holdID string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		raffles:  make(map[string]model.Raffle),
		packages: make(map[string][]model.Package),
		coupons:  make(map[string]model.Coupon),
		tickets:  make(map[string][]fakeTicket),
		holds:    make(map[string]model.Hold),
	}
}

func (f *fakeRepo) Close() error { return nil }

func (f *fakeRepo) CreateRaffle(ctx context.Context, raffle model.Raffle, packages []model.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.raffles[raffle.ID]; ok {
		return repository.ErrRaffleExists
	}

	f.raffles[raffle.ID] = raffle
	f.packages[raffle.ID] = slices.Clone(packages)
	f.tickets[raffle.ID] = make([]fakeTicket, raffle.TotalTickets)
	for i := range f.tickets[raffle.ID] {
		f.tickets[raffle.ID][i] = fakeTicket{state: model.TicketStateAvailable}
	}

	return nil
}

func (f *fakeRepo) GetRaffle(ctx context.Context, raffleID string) (*model.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raffle, ok := f.raffles[raffleID]
	if !ok {
		return nil, repository.ErrRaffleNotFound
	}
	return &raffle, nil
}

func (f *fakeRepo) GetPackages(ctx context.Context, raffleID string) ([]model.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.packages[raffleID]), nil
}

func (f *fakeRepo) UpdateRaffleStatus(ctx context.Context, raffleID string, status model.RaffleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raffle, ok := f.raffles[raffleID]
	if !ok {
		return repository.ErrRaffleNotFound
	}
	raffle.Status = status
	f.raffles[raffleID] = raffle
	return nil
}

func (f *fakeRepo) GetAvailability(ctx context.Context, raffleID string) (*model.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tickets, ok := f.tickets[raffleID]
	if !ok {
		return nil, repository.ErrRaffleNotFound
	}

	a := model.Availability{Total: int64(len(tickets))}
	for _, t := range tickets {
		switch t.state {
		case model.TicketStateAvailable:
			a.Available++
		case model.TicketStateHeld:
			a.Held++
		case model.TicketStateSold:
			a.Sold++
		}
	}
	return &a, nil
}

func (f *fakeRepo) GetCoupon(ctx context.Context, code string) (*model.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	coupon, ok := f.coupons[code]
	if !ok {
		return nil, repository.ErrCouponNotFound
	}
	return &coupon, nil
}

func (f *fakeRepo) FilterAvailable(ctx context.Context, raffleID string, indices []int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tickets := f.tickets[raffleID]
	var available []int64
	for _, idx := range indices {
		if idx >= 0 && idx < int64(len(tickets)) && tickets[idx].state == model.TicketStateAvailable {
			available = append(available, idx)
		}
	}
	return available, nil
}

func (f *fakeRepo) ListAvailable(ctx context.Context, raffleID string, fromIdx int64, limit int) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tickets := f.tickets[raffleID]
	var available []int64
	for idx := fromIdx; idx < int64(len(tickets)) && len(available) < limit; idx++ {
		if tickets[idx].state == model.TicketStateAvailable {
			available = append(available, idx)
		}
	}
	return available, nil
}

func (f *fakeRepo) CreateHold(ctx context.Context, hold model.Hold) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, h := range f.holds {
		if h.RaffleID == hold.RaffleID && h.IdempotencyKey == hold.IdempotencyKey {
			return repository.ErrIdempotencyConflict
		}
	}
	for _, h := range f.holds {
		if h.RaffleID == hold.RaffleID && h.ReferenceCode == hold.ReferenceCode {
			return repository.ErrReferenceCodeTaken
		}
	}

	tickets := f.tickets[hold.RaffleID]

	var conflicting []int64
	for _, idx := range hold.TicketIndices {
		if idx < 0 || idx >= int64(len(tickets)) || tickets[idx].state != model.TicketStateAvailable {
			conflicting = append(conflicting, idx)
		}
	}
	if len(conflicting) > 0 {
		return &repository.TicketsUnavailableError{Conflicting: conflicting}
	}

	for _, idx := range hold.TicketIndices {
		tickets[idx] = fakeTicket{state: model.TicketStateHeld, holdID: hold.ID}
	}
	f.holds[hold.ID] = hold

	return nil
}

func (f *fakeRepo) GetHold(ctx context.Context, holdID string) (*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hold, ok := f.holds[holdID]
	if !ok {
		return nil, repository.ErrHoldNotFound
	}
	return &hold, nil
}

func (f *fakeRepo) FindHoldByIdempotencyKey(ctx context.Context, raffleID, key string) (*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, h := range f.holds {
		if h.RaffleID == raffleID && h.IdempotencyKey == key {
			hold := h
			return &hold, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ConfirmHold(ctx context.Context, holdID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	hold, ok := f.holds[holdID]
	if !ok {
		return repository.ErrHoldNotFound
	}

	switch hold.Status {
	case model.HoldStatusConfirmed:
		return nil
	case model.HoldStatusExpired, model.HoldStatusCanceled:
		return repository.ErrHoldExpired
	}

	if !hold.ExpiresAt.After(now) {
		return repository.ErrHoldExpired
	}

	tickets := f.tickets[hold.RaffleID]
	for _, idx := range hold.TicketIndices {
		tickets[idx] = fakeTicket{state: model.TicketStateSold}
	}

	hold.Status = model.HoldStatusConfirmed
	f.holds[holdID] = hold

	return nil
}

func (f *fakeRepo) ReleaseHold(ctx context.Context, holdID string, to model.HoldStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hold, ok := f.holds[holdID]
	if !ok || hold.Status != model.HoldStatusActive {
		return false, nil
	}

	tickets := f.tickets[hold.RaffleID]
	for _, idx := range hold.TicketIndices {
		tickets[idx] = fakeTicket{state: model.TicketStateAvailable}
	}

	hold.Status = to
	f.holds[holdID] = hold

	return true, nil
}

func (f *fakeRepo) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, h := range f.holds {
		if h.Status == model.HoldStatusActive && !h.ExpiresAt.After(now) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type stubLedger struct {
	mu     sync.Mutex
	usages []ledger.Usage
	err    error
}

func (s *stubLedger) ReportUsage(ctx context.Context, usage ledger.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.usages = append(s.usages, usage)
	return nil
}

var testBuyer = model.Buyer{
	Name:  "Maria Lopez",
	Email: "maria@example.com",
	Phone: "+34600123456",
	City:  "Madrid",
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	return NewService(repo, nil, nil, 15*time.Minute, time.Second, 1000)
}

// seedRaffle создаёт розыгрыш на 100 билетов по 5000 с пакетом 10 за 45000.
func seedRaffle(t *testing.T, repo *fakeRepo, status model.RaffleStatus) model.Raffle {
	t.Helper()

	raffle := model.Raffle{
		ID:                uuid.NewString(),
		Name:              "Test raffle",
		TotalTickets:      100,
		TicketPriceMinor:  5000,
		NumberStart:       1,
		NumberStep:        1,
		ReservationWindow: 15 * time.Minute,
		MinPerPurchase:    1,
		MaxPerPurchase:    50,
		Status:            status,
		CreatedAt:         time.Now(),
	}

	if err := repo.CreateRaffle(context.Background(), raffle, []model.Package{
		{Quantity: 10, PriceMinor: 45000, Label: "10 tickets"},
	}); err != nil {
		t.Fatalf("seed raffle: %v", err)
	}

	return raffle
}

func TestReserve_PackagePrice(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	hold, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		Buyer:          testBuyer,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	if hold.TotalMinor != 45000 {
		t.Fatalf("TotalMinor = %d, want 45000", hold.TotalMinor)
	}
	if hold.ReferenceCode == "" {
		t.Fatalf("empty reference code")
	}
	if hold.Status != model.HoldStatusActive {
		t.Fatalf("Status = %q, want active", hold.Status)
	}
	if want := hold.CreatedAt.Add(15 * time.Minute); !hold.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", hold.ExpiresAt, want)
	}

	avail, err := svc.Availability(context.Background(), raffle.ID)
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if avail.Held != 10 || avail.Available != 90 {
		t.Fatalf("unexpected availability: %+v", avail)
	}
}

func TestReserve_PerTicketPrice(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	hold, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{10, 20, 30},
		Buyer:          testBuyer,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if hold.TotalMinor != 15000 {
		t.Fatalf("TotalMinor = %d, want 15000", hold.TotalMinor)
	}
}

func TestReserve_Validation(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	tests := []struct {
		name string
		in   ReserveInput
	}{
		{
			name: "missing idempotency key",
			in:   ReserveInput{RaffleID: raffle.ID, TicketIndices: []int64{1}, Buyer: testBuyer},
		},
		{
			name: "no indices",
			in:   ReserveInput{RaffleID: raffle.ID, Buyer: testBuyer, IdempotencyKey: "k"},
		},
		{
			name: "duplicate indices",
			in:   ReserveInput{RaffleID: raffle.ID, TicketIndices: []int64{1, 1}, Buyer: testBuyer, IdempotencyKey: "k"},
		},
		{
			name: "invalid buyer",
			in:   ReserveInput{RaffleID: raffle.ID, TicketIndices: []int64{1}, IdempotencyKey: "k"},
		},
		{
			name: "index out of range",
			in:   ReserveInput{RaffleID: raffle.ID, TicketIndices: []int64{100}, Buyer: testBuyer, IdempotencyKey: "k"},
		},
		{
			name: "negative index",
			in:   ReserveInput{RaffleID: raffle.ID, TicketIndices: []int64{-1}, Buyer: testBuyer, IdempotencyKey: "k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Reserve(context.Background(), tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestReserve_RaffleNotActive(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusPaused)
	svc := newTestService(t, repo)

	_, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{1},
		Buyer:          testBuyer,
		IdempotencyKey: "k",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestReserve_ConflictIsAllOrNothing(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	_, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{5},
		Buyer:          testBuyer,
		IdempotencyKey: "first",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	_, err = svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{3, 5, 7},
		Buyer:          testBuyer,
		IdempotencyKey: "second",
	})

	var unavailable *repository.TicketsUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected TicketsUnavailableError, got %v", err)
	}
	if !slices.Equal(unavailable.Conflicting, []int64{5}) {
		t.Fatalf("Conflicting = %v, want [5]", unavailable.Conflicting)
	}

	// Проигравший запрос не должен удержать ни одного билета.
	avail, err := svc.Availability(context.Background(), raffle.ID)
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if avail.Held != 1 || avail.Available != 99 {
		t.Fatalf("partial hold observed: %+v", avail)
	}
}

func TestReserve_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	in := ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{1, 2, 3},
		Buyer:          testBuyer,
		IdempotencyKey: "checkout-1",
	}

	first, err := svc.Reserve(context.Background(), in)
	if err != nil {
		t.Fatalf("first Reserve error: %v", err)
	}

	second, err := svc.Reserve(context.Background(), in)
	if err != nil {
		t.Fatalf("second Reserve error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("repeated call created a new hold: %s != %s", first.ID, second.ID)
	}

	avail, _ := svc.Availability(context.Background(), raffle.ID)
	if avail.Held != 3 {
		t.Fatalf("Held = %d, want 3", avail.Held)
	}
}

func TestReserve_IdempotencyKeyWithDifferentTickets(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	_, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{1, 2},
		Buyer:          testBuyer,
		IdempotencyKey: "checkout-1",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	_, err = svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{8, 9},
		Buyer:          testBuyer,
		IdempotencyKey: "checkout-1",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for reused key, got %v", err)
	}
}

func TestReserve_InvalidCouponLeavesNoHold(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	_, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{1, 2},
		Buyer:          testBuyer,
		CouponCode:     "UNKNOWN",
		IdempotencyKey: "k",
	})
	if !errors.Is(err, pricing.ErrInvalidCoupon) {
		t.Fatalf("expected ErrInvalidCoupon, got %v", err)
	}

	// Отклонённый купон не должен оставить билеты в состоянии held.
	avail, _ := svc.Availability(context.Background(), raffle.ID)
	if avail.Held != 0 || avail.Available != 100 {
		t.Fatalf("stranded hold after coupon failure: %+v", avail)
	}
}

func TestReserve_CouponApplied(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	repo.coupons["TEN"] = model.Coupon{
		Code:          "TEN",
		DiscountType:  model.DiscountTypePercent,
		DiscountValue: 10,
	}
	svc := newTestService(t, repo)

	hold, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		Buyer:          testBuyer,
		CouponCode:     "TEN",
		IdempotencyKey: "k",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if hold.DiscountMinor != 4500 || hold.TotalMinor != 40500 {
		t.Fatalf("unexpected pricing: discount=%d total=%d", hold.DiscountMinor, hold.TotalMinor)
	}
}

func TestConfirm_SellsTickets(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	hold, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{1, 2},
		Buyer:          testBuyer,
		IdempotencyKey: "k",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	if err := svc.Confirm(context.Background(), hold.ID); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	avail, _ := svc.Availability(context.Background(), raffle.ID)
	if avail.Sold != 2 || avail.Held != 0 {
		t.Fatalf("unexpected availability after confirm: %+v", avail)
	}

	// Повторное подтверждение — безопасный no-op.
	if err := svc.Confirm(context.Background(), hold.ID); err != nil {
		t.Fatalf("second Confirm error: %v", err)
	}
}

func TestConfirm_ExpiredHold(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	hold, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{1},
		Buyer:          testBuyer,
		IdempotencyKey: "k",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	svc.now = func() time.Time { return hold.ExpiresAt.Add(time.Minute) }

	if err := svc.Confirm(context.Background(), hold.ID); !errors.Is(err, repository.ErrHoldExpired) {
		t.Fatalf("expected ErrHoldExpired, got %v", err)
	}
}

func TestConfirm_UnknownHold(t *testing.T) {
	repo := newFakeRepo()
	seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	err := svc.Confirm(context.Background(), uuid.NewString())
	if !errors.Is(err, repository.ErrHoldNotFound) {
		t.Fatalf("expected ErrHoldNotFound, got %v", err)
	}
}

func TestConfirm_ReportsCouponUsageOnce(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	repo.coupons["TEN"] = model.Coupon{
		Code:          "TEN",
		DiscountType:  model.DiscountTypePercent,
		DiscountValue: 10,
	}

	notifier := &stubLedger{}
	svc := NewService(repo, notifier, nil, 15*time.Minute, time.Second, 1000)

	hold, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		Buyer:          testBuyer,
		CouponCode:     "TEN",
		IdempotencyKey: "k",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	if err := svc.Confirm(context.Background(), hold.ID); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if err := svc.Confirm(context.Background(), hold.ID); err != nil {
		t.Fatalf("second Confirm error: %v", err)
	}

	if len(notifier.usages) != 1 {
		t.Fatalf("usages reported = %d, want 1", len(notifier.usages))
	}
	if notifier.usages[0].HoldID != hold.ID || notifier.usages[0].DiscountMinor != 4500 {
		t.Fatalf("unexpected usage: %+v", notifier.usages[0])
	}
}

func TestCancel_ReleasesAndIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	hold, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{1, 2, 3},
		Buyer:          testBuyer,
		IdempotencyKey: "k",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	if err := svc.Cancel(context.Background(), hold.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}

	avail, _ := svc.Availability(context.Background(), raffle.ID)
	if avail.Available != 100 {
		t.Fatalf("Available = %d, want 100", avail.Available)
	}

	if err := svc.Cancel(context.Background(), hold.ID); err != nil {
		t.Fatalf("second Cancel error: %v", err)
	}
	if err := svc.Cancel(context.Background(), uuid.NewString()); err != nil {
		t.Fatalf("Cancel of unknown hold error: %v", err)
	}
}

func TestCancelThenConfirm(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	hold, err := svc.Reserve(context.Background(), ReserveInput{
		RaffleID:       raffle.ID,
		TicketIndices:  []int64{1},
		Buyer:          testBuyer,
		IdempotencyKey: "k",
	})
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	if err := svc.Cancel(context.Background(), hold.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}

	if err := svc.Confirm(context.Background(), hold.ID); !errors.Is(err, repository.ErrHoldExpired) {
		t.Fatalf("expected ErrHoldExpired after cancel, got %v", err)
	}
}

func TestCreateRaffle_Validation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	tests := []struct {
		name string
		in   CreateRaffleInput
	}{
		{name: "empty name", in: CreateRaffleInput{TotalTickets: 10, TicketPriceMinor: 100}},
		{name: "zero tickets", in: CreateRaffleInput{Name: "r", TicketPriceMinor: 100}},
		{name: "too many tickets", in: CreateRaffleInput{Name: "r", TotalTickets: model.MaxTotalTickets + 1}},
		{name: "negative price", in: CreateRaffleInput{Name: "r", TotalTickets: 10, TicketPriceMinor: -1}},
		{
			name: "duplicate package quantity",
			in: CreateRaffleInput{
				Name: "r", TotalTickets: 10, TicketPriceMinor: 100,
				Packages: []model.Package{{Quantity: 5, PriceMinor: 400}, {Quantity: 5, PriceMinor: 300}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRaffle(context.Background(), tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateRaffle_Defaults(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	raffle, err := svc.CreateRaffle(context.Background(), CreateRaffleInput{
		Name:             "Summer raffle",
		TotalTickets:     1000,
		TicketPriceMinor: 2500,
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}

	if raffle.Status != model.RaffleStatusActive {
		t.Fatalf("Status = %q, want active", raffle.Status)
	}
	if raffle.NumberStep != 1 {
		t.Fatalf("NumberStep = %d, want 1", raffle.NumberStep)
	}
	if raffle.ReservationWindow != 15*time.Minute {
		t.Fatalf("ReservationWindow = %v, want 15m", raffle.ReservationWindow)
	}
	if raffle.MinPerPurchase != 1 || raffle.MaxPerPurchase != 1000 {
		t.Fatalf("purchase limits = [%d, %d]", raffle.MinPerPurchase, raffle.MaxPerPurchase)
	}
}

func TestUpdateRaffleStatus_UnknownStatus(t *testing.T) {
	repo := newFakeRepo()
	raffle := seedRaffle(t, repo, model.RaffleStatusActive)
	svc := newTestService(t, repo)

	err := svc.UpdateRaffleStatus(context.Background(), raffle.ID, model.RaffleStatus("bogus"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
