package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/gateway"
)

// Reconciler settles pending payments whose callback never arrived.
type Reconciler struct {
	payments *PaymentService
	minAge   time.Duration
	logger   *zap.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
}

func NewReconciler(payments *PaymentService, minAge time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		payments: payments,
		minAge:   minAge,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules RunOnce with a standard cron spec or an @every descriptor.
func (r *Reconciler) Start(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reconciler already running")
	}

	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("reconcile payments", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reconciler: %w", err)
	}

	r.logger.Info("Starting payment reconciler", zap.String("schedule", spec))
	r.cron.Start()
	r.running = true
	return nil
}

func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	r.logger.Info("Stopping payment reconciler")
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.running = false
}

// RunOnce checks every pending payment older than the minimum age and
// returns how many were settled.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-r.minAge)
	db := r.payments.DB.WithContext(ctx)

	// claimed for dispatch but never given a correlation id
	orphaned := db.Model(&models.Payment{}).
		Where("status = ? AND correlation_id IS NULL AND updated_at < ?", models.PaymentPending, cutoff).
		Updates(map[string]interface{}{"status": models.PaymentFailed, "customer_message": "dispatch did not complete"})
	if orphaned.Error != nil {
		return 0, orphaned.Error
	}
	settled := int(orphaned.RowsAffected)

	var stale []models.Payment
	if err := db.
		Where("status = ? AND correlation_id IS NOT NULL AND updated_at < ?", models.PaymentPending, cutoff).
		Order("updated_at ASC").
		Limit(100).
		Find(&stale).Error; err != nil {
		return settled, err
	}

	for _, p := range stale {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}

		res, err := r.payments.Gateway.Verify(ctx, *p.CorrelationID)
		if err != nil {
			r.logger.Warn("verify pending payment", zap.Stringer("payment_id", p.ID), zap.Error(err))
			continue
		}
		if res.Outcome == gateway.OutcomePending {
			continue
		}
		if err := r.payments.Settle(ctx, *p.CorrelationID, res.Outcome); err != nil {
			r.logger.Error("settle pending payment", zap.Stringer("payment_id", p.ID), zap.Error(err))
			continue
		}
		settled++
	}

	if settled > 0 {
		r.logger.Info("reconciled payments", zap.Int("settled", settled))
	}
	return settled, nil
}
