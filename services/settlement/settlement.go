package settlement

import (
	"context"
	"fmt"
	"sort"
	"time"

	ledgerRepo "homely/database/repository/ledger"
	"homely/models"
	"homely/services/gateway"
	"homely/services/notification"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// LockName scopes all settlement runs to a single mutual-exclusion token.
const LockName = "settlement_run"

// SettlementService runs the payout settlement batch: under the distributed
// lock it selects eligible earnings, groups them per professional, and issues
// disbursement instructions in two phases (create pending, then disburse).
type SettlementService struct {
	Repo     ledgerRepo.LedgerRepository
	Locks    *LockManager
	Gateway  gateway.Client
	Notifier notification.NotificationService
	Logger   *zap.Logger

	FeeBps   int
	Weekdays []time.Weekday
	MaxHold  time.Duration
	HolderID string
}

// payoutGroup is one professional's earnings for one run, in one currency.
type payoutGroup struct {
	professionalID string
	currency       string
	bookingIDs     []string
	gross          int64
}

// Run executes one settlement run. Extra invocations are absorbed by the
// settlement-day gate and the lock; contenders report skipped, never an error.
func (s *SettlementService) Run(ctx context.Context, now time.Time) (*models.SettlementRun, error) {
	run := &models.SettlementRun{
		ID:        uuid.New().String(),
		State:     models.RunScheduled,
		HolderID:  s.HolderID,
		StartedAt: now,
	}
	if err := s.Repo.CreateRun(run); err != nil {
		return nil, fmt.Errorf("failed to record settlement run: %w", err)
	}

	if !s.isSettlementDay(now) {
		s.finish(run, models.RunSkipped, "not a settlement day")
		return run, nil
	}

	acquired, err := s.Locks.WithLock(LockName, s.HolderID, s.MaxHold, func() error {
		return s.execute(ctx, run)
	})
	if err != nil {
		s.finish(run, run.State, fmt.Sprintf("aborted: %v", err))
		return run, err
	}
	if !acquired {
		s.finish(run, models.RunSkipped, "skipped, already running")
		return run, nil
	}

	s.Notifier.NotifySettlementRun(ctx, run)
	if run.State == models.RunPartialFailure {
		s.Notifier.EscalateDiscrepancy(ctx, "settlement_partial_failure", run.ID,
			fmt.Sprintf("%d of %d payouts failed in run %s", run.FailedPayouts, run.PayoutCount, run.ID))
	}
	return run, nil
}

// execute is the under-lock body of one run.
func (s *SettlementService) execute(ctx context.Context, run *models.SettlementRun) error {
	s.setState(run, models.RunLocked)
	s.setState(run, models.RunComputing)

	bookings, err := s.Repo.EligibleBookings()
	if err != nil {
		return fmt.Errorf("failed to select eligible bookings: %w", err)
	}
	run.BookingCount = len(bookings)
	if len(bookings) == 0 {
		s.finish(run, models.RunDone, "no eligible earnings")
		return nil
	}

	groups := groupByProfessional(bookings)
	s.setState(run, models.RunDisbursing)

	for _, g := range groups {
		fee := FeeAmount(g.gross, s.FeeBps)
		net := g.gross - fee

		payout := &models.Payout{
			ID:             uuid.New().String(),
			ProfessionalID: g.professionalID,
			RunID:          run.ID,
			BookingIDs:     g.bookingIDs,
			GrossAmount:    g.gross,
			FeeAmount:      fee,
			NetAmount:      net,
			Currency:       g.currency,
			Status:         models.PayoutPending,
		}
		// Phase one: the pending payout tags its booking ids. A crash after
		// this point leaves the bookings excluded from re-grouping.
		if err := s.Repo.CreatePayout(payout); err != nil {
			s.Logger.Error("Failed to create payout record",
				zap.String("professionalId", g.professionalID),
				zap.Error(err),
			)
			run.FailedPayouts++
			continue
		}
		run.PayoutCount++
		run.GrossTotal += g.gross

		// Phase two: disburse. A failure is isolated to this payout; its
		// bookings become eligible again once the payout is marked failed.
		if err := s.disburse(ctx, payout); err != nil {
			s.Logger.Error("Disbursement failed",
				zap.String("payoutId", payout.ID),
				zap.String("professionalId", g.professionalID),
				zap.Error(err),
			)
			s.markPayoutFailed(ctx, payout, err.Error())
			run.FailedPayouts++
			continue
		}
		run.NetTotal += net
	}

	final := models.RunDone
	if run.FailedPayouts > 0 {
		final = models.RunPartialFailure
	}
	s.finish(run, final, "")
	return nil
}

// disburse issues one transfer with the payout id as idempotency key and
// moves the payout to in_transit.
func (s *SettlementService) disburse(ctx context.Context, payout *models.Payout) error {
	prof, err := s.Repo.GetProfessionalByID(payout.ProfessionalID)
	if err != nil {
		return fmt.Errorf("professional lookup failed: %w", err)
	}
	if prof.StripeAccountID == "" {
		return fmt.Errorf("professional %s has no payout account", payout.ProfessionalID)
	}

	ref, err := s.Gateway.CreateTransfer(ctx, prof.StripeAccountID, payout.NetAmount, payout.Currency, payout.ID)
	if err != nil {
		return err
	}

	if err := s.Repo.UpdatePayoutCAS(payout.ID, models.PayoutPending, models.PayoutInTransit, bson.M{
		"transfer_ref": ref,
	}); err != nil {
		return fmt.Errorf("failed to mark payout in transit: %w", err)
	}
	payout.Status = models.PayoutInTransit
	payout.TransferRef = ref

	if err := s.Repo.SetBookingsSettled(payout.BookingIDs, true); err != nil {
		s.Logger.Warn("Failed to flag bookings settled",
			zap.String("payoutId", payout.ID),
			zap.Error(err),
		)
	}

	s.Logger.Info("Payout disbursed",
		zap.String("payoutId", payout.ID),
		zap.String("professionalId", payout.ProfessionalID),
		zap.Int64("net", payout.NetAmount),
		zap.String("transferRef", ref),
	)
	s.Notifier.NotifyPayoutStatus(ctx, payout)
	return nil
}

func (s *SettlementService) markPayoutFailed(ctx context.Context, payout *models.Payout, reason string) {
	if err := s.Repo.UpdatePayoutCAS(payout.ID, models.PayoutPending, models.PayoutFailed, bson.M{
		"failure_reason": reason,
	}); err != nil {
		s.Logger.Error("Failed to mark payout failed",
			zap.String("payoutId", payout.ID),
			zap.Error(err),
		)
		return
	}
	payout.Status = models.PayoutFailed
	payout.FailureReason = reason
	s.Notifier.NotifyPayoutStatus(ctx, payout)
}

func (s *SettlementService) isSettlementDay(now time.Time) bool {
	for _, d := range s.Weekdays {
		if now.Weekday() == d {
			return true
		}
	}
	return false
}

func (s *SettlementService) setState(run *models.SettlementRun, state string) {
	run.State = state
	if err := s.Repo.UpdateRun(run.ID, bson.M{"state": state}); err != nil {
		s.Logger.Warn("Failed to update run state",
			zap.String("runId", run.ID),
			zap.String("state", state),
			zap.Error(err),
		)
	}
}

func (s *SettlementService) finish(run *models.SettlementRun, state, note string) {
	now := time.Now()
	run.State = state
	run.Note = note
	run.FinishedAt = &now
	if err := s.Repo.UpdateRun(run.ID, bson.M{
		"state":          state,
		"note":           note,
		"finished_at":    now,
		"booking_count":  run.BookingCount,
		"payout_count":   run.PayoutCount,
		"failed_payouts": run.FailedPayouts,
		"gross_total":    run.GrossTotal,
		"net_total":      run.NetTotal,
	}); err != nil {
		s.Logger.Warn("Failed to finalize run record",
			zap.String("runId", run.ID),
			zap.Error(err),
		)
	}
	s.Logger.Info("Settlement run finished",
		zap.String("runId", run.ID),
		zap.String("state", state),
		zap.Int("payouts", run.PayoutCount),
		zap.Int("failed", run.FailedPayouts),
	)
}

// groupByProfessional buckets eligible bookings per professional and
// currency, in deterministic order.
func groupByProfessional(bookings []models.Booking) []payoutGroup {
	byKey := make(map[string]*payoutGroup)
	for _, b := range bookings {
		key := b.ProfessionalID + "/" + b.Currency
		g, ok := byKey[key]
		if !ok {
			g = &payoutGroup{professionalID: b.ProfessionalID, currency: b.Currency}
			byKey[key] = g
		}
		g.bookingIDs = append(g.bookingIDs, b.ID)
		g.gross += b.AmountCaptured + b.AmountTip
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]payoutGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, *byKey[k])
	}
	return groups
}

// FeeAmount computes the platform fee in minor units from basis points,
// rounding half up.
func FeeAmount(gross int64, feeBps int) int64 {
	if gross <= 0 || feeBps <= 0 {
		return 0
	}
	return (gross*int64(feeBps) + 5000) / 10000
}

// ParseWeekdays maps configured weekday names onto time.Weekday values,
// ignoring names it does not recognize.
func ParseWeekdays(names []string) []time.Weekday {
	var out []time.Weekday
	for _, name := range names {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if d.String() == name {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
