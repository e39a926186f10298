package settlement

import (
	"time"

	ledgerRepo "homely/database/repository/ledger"

	"go.uber.org/zap"
)

// LockManager wraps the store-backed settlement lock in a scoped acquisition
// pattern: the lock is released on every exit path, including panics. A lock
// held past its max hold duration counts as abandoned and is reclaimed by the
// next acquirer, which is the recovery path for a crashed run.
type LockManager struct {
	Repo   ledgerRepo.LockRepository
	Logger *zap.Logger
}

// WithLock runs fn while holding the named lock. It returns false without
// running fn when the lock is held elsewhere; contenders exit immediately
// rather than waiting.
func (m *LockManager) WithLock(name, holder string, maxHold time.Duration, fn func() error) (bool, error) {
	acquired, err := m.Repo.TryAcquireLock(name, holder, maxHold)
	if err != nil {
		return false, err
	}
	if !acquired {
		m.Logger.Info("Lock held elsewhere, skipping",
			zap.String("lock", name),
			zap.String("holder", holder),
		)
		return false, nil
	}

	defer func() {
		if releaseErr := m.Repo.ReleaseLock(name, holder); releaseErr != nil {
			m.Logger.Warn("Failed to release lock",
				zap.String("lock", name),
				zap.String("holder", holder),
				zap.Error(releaseErr),
			)
		}
	}()

	return true, fn()
}
