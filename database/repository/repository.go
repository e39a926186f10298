package repository

import (
	ledgerRepo "homely/database/repository/ledger"
)

// Re-export the ledger repository interfaces and constructor.
type LedgerRepository = ledgerRepo.LedgerRepository

type BookingRepository = ledgerRepo.BookingRepository

type PayoutRepository = ledgerRepo.PayoutRepository

type IdempotencyRepository = ledgerRepo.IdempotencyRepository

type LockRepository = ledgerRepo.LockRepository

var NewMongoLedgerRepo = ledgerRepo.NewMongoLedgerRepo
