package settlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ledgerRepo "homely/database/repository/ledger"
	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// 2025-06-10 is a Tuesday; the fixtures configure Tuesday and Friday runs.
var (
	settlementDay    = time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)
	nonSettlementDay = time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC)
)

// memLedger is an in-memory stand-in for the Mongo-backed ledger, mirroring
// its conditional-update and eligibility semantics.
type memLedger struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	payouts  map[string]*models.Payout
	runs     map[string]*models.SettlementRun
	idem     map[string]*models.IdempotencyRecord
	locks    map[string]lockRow
	pros     map[string]*models.Professional
}

type lockRow struct {
	holder  string
	expires time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{
		bookings: make(map[string]*models.Booking),
		payouts:  make(map[string]*models.Payout),
		runs:     make(map[string]*models.SettlementRun),
		idem:     make(map[string]*models.IdempotencyRecord),
		locks:    make(map[string]lockRow),
		pros:     make(map[string]*models.Professional),
	}
}

func (m *memLedger) CreateBooking(b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memLedger) GetBookingByID(id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ledgerRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memLedger) UpdateBookingCAS(id string, expected, newStatus models.BookingStatus, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != expected || b.Settled {
		return ledgerRepo.ErrNoMatch
	}
	b.Status = newStatus
	return nil
}

func (m *memLedger) EligibleBookings() ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	excluded := make(map[string]bool)
	for _, p := range m.payouts {
		switch p.Status {
		case models.PayoutPending, models.PayoutInTransit, models.PayoutPaid:
			for _, id := range p.BookingIDs {
				excluded[id] = true
			}
		}
	}

	var out []models.Booking
	for _, b := range m.bookings {
		if b.Status == models.BookingCompleted && b.AmountCaptured > 0 && !excluded[b.ID] {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memLedger) SetBookingsSettled(ids []string, settled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if b, ok := m.bookings[id]; ok {
			b.Settled = settled
		}
	}
	return nil
}

func (m *memLedger) CreatePayout(p *models.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payouts[p.ID] = &cp
	return nil
}

func (m *memLedger) GetPayoutByID(id string) (*models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok {
		return nil, ledgerRepo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memLedger) UpdatePayoutCAS(id string, expected, newStatus models.PayoutStatus, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok || p.Status != expected {
		return ledgerRepo.ErrNoMatch
	}
	p.Status = newStatus
	for k, v := range fields {
		switch k {
		case "transfer_ref":
			p.TransferRef = v.(string)
		case "failure_reason":
			p.FailureReason = v.(string)
		}
	}
	return nil
}

func (m *memLedger) ListPayoutsByProfessional(professionalID string) ([]models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payout
	for _, p := range m.payouts {
		if p.ProfessionalID == professionalID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memLedger) ListPayoutsByStatus(status models.PayoutStatus) ([]models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payout
	for _, p := range m.payouts {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memLedger) CreateRun(r *models.SettlementRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *memLedger) UpdateRun(id string, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return ledgerRepo.ErrNotFound
	}
	if state, ok := fields["state"].(string); ok {
		r.State = state
	}
	return nil
}

func (m *memLedger) GetRunByID(id string) (*models.SettlementRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ledgerRepo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memLedger) InsertIdempotencyRecord(rec *models.IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.idem[rec.Key]; ok {
		return ledgerRepo.ErrDuplicate
	}
	cp := *rec
	m.idem[rec.Key] = &cp
	return nil
}

func (m *memLedger) GetIdempotencyRecord(key string) (*models.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.idem[key]
	if !ok {
		return nil, ledgerRepo.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memLedger) FinalizeIdempotencyRecord(key, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.idem[key]
	if !ok {
		return ledgerRepo.ErrNotFound
	}
	rec.Status = models.IdempotencyCompleted
	rec.Outcome = outcome
	return nil
}

func (m *memLedger) ListIdempotencyByOutcome(outcome string) ([]models.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.IdempotencyRecord
	for _, rec := range m.idem {
		if rec.Outcome == outcome {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memLedger) TryAcquireLock(name, holder string, maxHold time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if row, ok := m.locks[name]; ok && row.expires.After(now) {
		return false, nil
	}
	m.locks[name] = lockRow{holder: holder, expires: now.Add(maxHold)}
	return true, nil
}

func (m *memLedger) ReleaseLock(name, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.locks[name]; ok && row.holder == holder {
		delete(m.locks, name)
	}
	return nil
}

func (m *memLedger) GetProfessionalByID(id string) (*models.Professional, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pros[id]
	if !ok {
		return nil, ledgerRepo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// fakeGateway scripts transfer outcomes per destination account.
type fakeGateway struct {
	mu        sync.Mutex
	transfers []transferCall
	failFor   map[string]error  // keyed by destination account
	states    map[string]string // keyed by transfer ref
	delay     time.Duration
	seq       int
}

type transferCall struct {
	destination string
	amount      int64
	currency    string
	key         string
	ref         string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		failFor: make(map[string]error),
		states:  make(map[string]string),
	}
}

func (g *fakeGateway) CreateRefund(ctx context.Context, paymentRef string, amount int64, idempotencyKey string) (string, error) {
	return "re_fake", nil
}

func (g *fakeGateway) CreateTransfer(ctx context.Context, destination string, amount int64, currency, idempotencyKey string) (string, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failFor[destination]; ok {
		return "", err
	}
	g.seq++
	ref := fmt.Sprintf("tr_fake_%d", g.seq)
	g.transfers = append(g.transfers, transferCall{destination, amount, currency, idempotencyKey, ref})
	return ref, nil
}

func (g *fakeGateway) TransferState(ctx context.Context, transferRef string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.states[transferRef]
	if !ok {
		return "", fmt.Errorf("unknown transfer %s", transferRef)
	}
	return state, nil
}

type recordingNotifier struct {
	mu          sync.Mutex
	escalations []string
	runReports  int
}

func (n *recordingNotifier) NotifyBookingStatus(ctx context.Context, b *models.Booking, event string) {}
func (n *recordingNotifier) NotifyPayoutStatus(ctx context.Context, p *models.Payout)                {}

func (n *recordingNotifier) NotifySettlementRun(ctx context.Context, run *models.SettlementRun) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runReports++
}

func (n *recordingNotifier) EscalateDiscrepancy(ctx context.Context, kind, subjectID, detail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.escalations = append(n.escalations, kind)
}

func newFixture() (*SettlementService, *memLedger, *fakeGateway, *recordingNotifier) {
	ledger := newMemLedger()
	gw := newFakeGateway()
	notifier := &recordingNotifier{}
	svc := &SettlementService{
		Repo:     ledger,
		Locks:    &LockManager{Repo: ledger, Logger: zap.NewNop()},
		Gateway:  gw,
		Notifier: notifier,
		Logger:   zap.NewNop(),
		FeeBps:   1500,
		Weekdays: []time.Weekday{time.Tuesday, time.Friday},
		MaxHold:  time.Minute,
		HolderID: "worker-test",
	}
	ledger.pros["pro-1"] = &models.Professional{ID: "pro-1", DisplayName: "Ada", StripeAccountID: "acct_1"}
	ledger.pros["pro-2"] = &models.Professional{ID: "pro-2", DisplayName: "Bo", StripeAccountID: "acct_2"}
	ledger.pros["pro-3"] = &models.Professional{ID: "pro-3", DisplayName: "Cy"} // no payout account
	return svc, ledger, gw, notifier
}

func completedBooking(id, professionalID, currency string, captured, tip int64) *models.Booking {
	return &models.Booking{
		ID:             id,
		CustomerID:     "cust-1",
		ProfessionalID: professionalID,
		Currency:       currency,
		Status:         models.BookingCompleted,
		AmountCaptured: captured,
		AmountTip:      tip,
	}
}

func TestRun_FeeAndNet(t *testing.T) {
	ctx := context.Background()
	svc, ledger, gw, _ := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 100_000, 0))
	ledger.CreateBooking(completedBooking("b2", "pro-1", "usd", 40_000, 10_000))

	run, err := svc.Run(ctx, settlementDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.State != models.RunDone {
		t.Fatalf("expected done, got %s (%s)", run.State, run.Note)
	}
	if run.PayoutCount != 1 || run.BookingCount != 2 {
		t.Fatalf("expected one payout over two bookings, got %+v", run)
	}
	if run.GrossTotal != 150_000 || run.NetTotal != 127_500 {
		t.Errorf("expected gross 150000 net 127500, got gross %d net %d", run.GrossTotal, run.NetTotal)
	}

	payouts, _ := ledger.ListPayoutsByStatus(models.PayoutInTransit)
	if len(payouts) != 1 {
		t.Fatalf("expected one in-transit payout, got %d", len(payouts))
	}
	p := payouts[0]
	if p.GrossAmount != 150_000 || p.FeeAmount != 22_500 || p.NetAmount != 127_500 {
		t.Errorf("fee math wrong: %+v", p)
	}
	if len(gw.transfers) != 1 {
		t.Fatalf("expected one transfer, got %d", len(gw.transfers))
	}
	tc := gw.transfers[0]
	if tc.destination != "acct_1" || tc.amount != 127_500 || tc.currency != "usd" {
		t.Errorf("unexpected transfer: %+v", tc)
	}
	if tc.key != p.ID {
		t.Error("the payout id must be used as the transfer idempotency key")
	}
	for _, id := range []string{"b1", "b2"} {
		b, _ := ledger.GetBookingByID(id)
		if !b.Settled {
			t.Errorf("booking %s must be flagged settled", id)
		}
	}
}

func TestRun_GroupsPerProfessionalAndCurrency(t *testing.T) {
	ctx := context.Background()
	svc, ledger, gw, _ := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 50_000, 0))
	ledger.CreateBooking(completedBooking("b2", "pro-2", "usd", 30_000, 0))
	ledger.CreateBooking(completedBooking("b3", "pro-2", "eur", 20_000, 0))

	run, err := svc.Run(ctx, settlementDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.PayoutCount != 3 {
		t.Fatalf("expected three payouts (one per professional and currency), got %d", run.PayoutCount)
	}
	if len(gw.transfers) != 3 {
		t.Fatalf("expected three transfers, got %d", len(gw.transfers))
	}

	byPro, _ := ledger.ListPayoutsByProfessional("pro-2")
	currencies := map[string]bool{}
	for _, p := range byPro {
		currencies[p.Currency] = true
	}
	if !currencies["usd"] || !currencies["eur"] {
		t.Errorf("pro-2 earnings must split by currency, got %+v", byPro)
	}
}

func TestRun_NoDoublePay(t *testing.T) {
	ctx := context.Background()
	svc, ledger, gw, _ := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 100_000, 0))

	if run, err := svc.Run(ctx, settlementDay); err != nil || run.PayoutCount != 1 {
		t.Fatalf("first run: err=%v run=%+v", err, run)
	}

	// The same booking must never be grouped again while its payout lives.
	second, err := svc.Run(ctx, settlementDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.State != models.RunDone || second.PayoutCount != 0 {
		t.Errorf("expected an empty done run, got %+v", second)
	}
	if len(gw.transfers) != 1 {
		t.Errorf("expected no additional transfer, got %d", len(gw.transfers))
	}
}

func TestRun_PendingPayoutFromCrashedRunExcludesBookings(t *testing.T) {
	ctx := context.Background()
	svc, ledger, gw, _ := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 100_000, 0))
	// A crashed earlier run created the pending payout but never disbursed.
	ledger.CreatePayout(&models.Payout{
		ID:             "po_crashed",
		ProfessionalID: "pro-1",
		BookingIDs:     []string{"b1"},
		Status:         models.PayoutPending,
	})

	run, err := svc.Run(ctx, settlementDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.PayoutCount != 0 {
		t.Errorf("booking held by a pending payout must not be regrouped, got %+v", run)
	}
	if len(gw.transfers) != 0 {
		t.Errorf("no transfer expected, got %d", len(gw.transfers))
	}
}

func TestRun_SkipsOffDays(t *testing.T) {
	ctx := context.Background()
	svc, ledger, gw, _ := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 100_000, 0))

	run, err := svc.Run(ctx, nonSettlementDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.State != models.RunSkipped {
		t.Errorf("expected skipped, got %s", run.State)
	}
	if len(gw.transfers) != 0 {
		t.Error("no disbursement on an off day")
	}
	if ledger.locks[LockName] != (lockRow{}) {
		t.Error("the lock must not be taken on an off day")
	}
}

func TestRun_SkipsWhenLockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	svc, ledger, gw, _ := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 100_000, 0))

	if ok, err := ledger.TryAcquireLock(LockName, "another-worker", time.Minute); !ok || err != nil {
		t.Fatalf("seeding lock: ok=%v err=%v", ok, err)
	}

	run, err := svc.Run(ctx, settlementDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.State != models.RunSkipped {
		t.Errorf("expected skipped, got %s", run.State)
	}
	if len(gw.transfers) != 0 {
		t.Error("a contender must not disburse")
	}
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	svc, ledger, gw, notifier := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 100_000, 0))
	ledger.CreateBooking(completedBooking("b2", "pro-2", "usd", 60_000, 0))
	gw.failFor["acct_2"] = fmt.Errorf("account temporarily restricted")

	run, err := svc.Run(ctx, settlementDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.State != models.RunPartialFailure {
		t.Fatalf("expected partial_failure, got %s", run.State)
	}
	if run.PayoutCount != 2 || run.FailedPayouts != 1 {
		t.Errorf("expected 1 of 2 payouts failed, got %+v", run)
	}

	failed, _ := ledger.ListPayoutsByStatus(models.PayoutFailed)
	if len(failed) != 1 || failed[0].ProfessionalID != "pro-2" {
		t.Fatalf("expected pro-2's payout failed, got %+v", failed)
	}
	if failed[0].FailureReason == "" {
		t.Error("the failure reason must be recorded")
	}

	// The healthy payout is unaffected.
	inTransit, _ := ledger.ListPayoutsByStatus(models.PayoutInTransit)
	if len(inTransit) != 1 || inTransit[0].ProfessionalID != "pro-1" {
		t.Fatalf("expected pro-1's payout in transit, got %+v", inTransit)
	}

	found := false
	for _, kind := range notifier.escalations {
		if kind == "settlement_partial_failure" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a settlement_partial_failure escalation, got %v", notifier.escalations)
	}

	// The failed payout releases its booking for the next run.
	eligible, _ := ledger.EligibleBookings()
	if len(eligible) != 1 || eligible[0].ID != "b2" {
		t.Errorf("expected b2 eligible again, got %+v", eligible)
	}
}

func TestRun_MissingPayoutAccountFailsPayout(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _, _ := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-3", "usd", 100_000, 0))

	run, err := svc.Run(ctx, settlementDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.State != models.RunPartialFailure || run.FailedPayouts != 1 {
		t.Errorf("expected one failed payout, got %+v", run)
	}
}

func TestWithLock_MutualExclusion(t *testing.T) {
	ledger := newMemLedger()
	lm := &LockManager{Repo: ledger, Logger: zap.NewNop()}

	var executed, acquired int32
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ok, err := lm.WithLock(LockName, fmt.Sprintf("worker-%d", i), time.Minute, func() error {
				atomic.AddInt32(&executed, 1)
				time.Sleep(500 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if ok {
				atomic.AddInt32(&acquired, 1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if executed != 1 || acquired != 1 {
		t.Errorf("expected exactly one holder to run, got executed=%d acquired=%d", executed, acquired)
	}
	if _, held := ledger.locks[LockName]; held {
		t.Error("the lock must be released after the run")
	}
}

func TestWithLock_ReclaimsAbandonedLock(t *testing.T) {
	ledger := newMemLedger()
	lm := &LockManager{Repo: ledger, Logger: zap.NewNop()}

	// A crashed holder never releases; its max hold expires instead.
	if ok, _ := ledger.TryAcquireLock(LockName, "crashed-worker", time.Millisecond); !ok {
		t.Fatal("seeding lock failed")
	}
	time.Sleep(10 * time.Millisecond)

	ran := false
	ok, err := lm.WithLock(LockName, "recovery-worker", time.Minute, func() error {
		ran = true
		return nil
	})
	if err != nil || !ok || !ran {
		t.Fatalf("expected the expired lock to be reclaimed: ok=%v ran=%v err=%v", ok, ran, err)
	}
}

func TestReconcilePayouts(t *testing.T) {
	ctx := context.Background()
	svc, ledger, gw, notifier := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 100_000, 0))
	ledger.CreateBooking(completedBooking("b2", "pro-2", "usd", 60_000, 0))

	if run, err := svc.Run(ctx, settlementDay); err != nil || run.PayoutCount != 2 {
		t.Fatalf("seeding run: err=%v run=%+v", err, run)
	}

	inTransit, _ := ledger.ListPayoutsByStatus(models.PayoutInTransit)
	if len(inTransit) != 2 {
		t.Fatalf("expected two in-transit payouts, got %d", len(inTransit))
	}
	// One transfer lands, the other is reversed.
	gw.states[inTransit[0].TransferRef] = "paid"
	gw.states[inTransit[1].TransferRef] = "failed"

	if err := svc.ReconcilePayouts(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paid, _ := ledger.ListPayoutsByStatus(models.PayoutPaid)
	failed, _ := ledger.ListPayoutsByStatus(models.PayoutFailed)
	if len(paid) != 1 || len(failed) != 1 {
		t.Fatalf("expected one paid and one failed payout, got paid=%d failed=%d", len(paid), len(failed))
	}
	if failed[0].ID != inTransit[1].ID {
		t.Errorf("the reversed transfer's payout must fail, got %+v", failed[0])
	}

	// The reversed payout's bookings become eligible again.
	for _, id := range failed[0].BookingIDs {
		b, _ := ledger.GetBookingByID(id)
		if b.Settled {
			t.Errorf("booking %s must be unflagged after the reversal", id)
		}
	}
	eligible, _ := ledger.EligibleBookings()
	if len(eligible) != 1 {
		t.Errorf("expected one booking eligible again, got %d", len(eligible))
	}

	found := false
	for _, kind := range notifier.escalations {
		if kind == "payout_reversed" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a payout_reversed escalation, got %v", notifier.escalations)
	}
}

func TestReconcilePayouts_TransientLookupFailure(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _, _ := newFixture()
	ledger.CreateBooking(completedBooking("b1", "pro-1", "usd", 100_000, 0))
	if _, err := svc.Run(ctx, settlementDay); err != nil {
		t.Fatalf("seeding run: %v", err)
	}
	// The fake gateway knows no states, so every lookup fails.
	if err := svc.ReconcilePayouts(ctx); err != nil {
		t.Fatalf("lookup failures must not abort the pass: %v", err)
	}
	inTransit, _ := ledger.ListPayoutsByStatus(models.PayoutInTransit)
	if len(inTransit) != 1 {
		t.Errorf("payout must stay in transit for the next pass, got %d in transit", len(inTransit))
	}
}

func TestFeeAmount(t *testing.T) {
	cases := []struct {
		gross int64
		bps   int
		want  int64
	}{
		{150_000, 1500, 22_500},
		{100, 1500, 15},
		{1, 1500, 0},   // 0.15 rounds down
		{5, 1500, 1},   // 0.75 rounds up
		{3, 1666, 0},   // 0.4998 rounds down
		{0, 1500, 0},
		{100_000, 0, 0},
	}
	for _, tc := range cases {
		if got := FeeAmount(tc.gross, tc.bps); got != tc.want {
			t.Errorf("FeeAmount(%d, %d) = %d, want %d", tc.gross, tc.bps, got, tc.want)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	got := ParseWeekdays([]string{"Tuesday", "Friday", "Blursday"})
	if len(got) != 2 || got[0] != time.Tuesday || got[1] != time.Friday {
		t.Errorf("unexpected weekdays: %v", got)
	}
}
