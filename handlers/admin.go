package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ledgerRepo "homely/database/repository/ledger"
	"homely/services/settlement"
	"homely/utils"
)

// AdminHandler exposes the operator surface: manual settlement triggers and
// payout/run inspection.
type AdminHandler struct {
	Settlement *settlement.SettlementService
	Payouts    ledgerRepo.PayoutRepository
	Runs       ledgerRepo.RunRepository
	Guard      ledgerRepo.IdempotencyRepository
	Logger     *zap.Logger
}

func NewAdminHandler(svc *settlement.SettlementService, payouts ledgerRepo.PayoutRepository, runs ledgerRepo.RunRepository, guard ledgerRepo.IdempotencyRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{Settlement: svc, Payouts: payouts, Runs: runs, Guard: guard, Logger: logger}
}

// TriggerSettlementHandler starts a settlement run out of schedule. The
// settlement-day gate and the lock still apply; a concurrent run reports
// skipped rather than failing.
func (h *AdminHandler) TriggerSettlementHandler(c *gin.Context) {
	run, err := h.Settlement.Run(c.Request.Context(), time.Now())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "settlement run failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRunHandler returns one settlement run record.
func (h *AdminHandler) GetRunHandler(c *gin.Context) {
	run, err := h.Runs.GetRunByID(c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "run not found", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListPayoutsHandler returns payouts filtered by professional.
func (h *AdminHandler) ListPayoutsHandler(c *gin.Context) {
	professionalID := c.Query("professionalId")
	if professionalID == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing professionalId", "")
		return
	}
	payouts, err := h.Payouts.ListPayoutsByProfessional(professionalID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list payouts", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}

// ListEscalationsHandler returns gateway events that were escalated for
// manual review (amount mismatches and the like).
func (h *AdminHandler) ListEscalationsHandler(c *gin.Context) {
	recs, err := h.Guard.ListIdempotencyByOutcome("escalated")
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list escalations", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"escalations": recs})
}
