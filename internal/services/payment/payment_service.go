package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/gateway"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/wallet"
)

var (
	dispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundiconnect_payments_dispatched_total",
		Help: "Payments handed to the gateway, by kind and result",
	}, []string{"kind", "result"})

	settledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundiconnect_payments_settled_total",
		Help: "Payments moved out of pending, by kind and final status",
	}, []string{"kind", "status"})
)

type PaymentService struct {
	DB      *gorm.DB
	Gateway gateway.Gateway
	Wallet  *wallet.WalletService
	Notify  notify.Notifier
	Log     *zap.Logger
}

func NewPaymentService(db *gorm.DB, gw gateway.Gateway, w *wallet.WalletService, n notify.Notifier, log *zap.Logger) *PaymentService {
	return &PaymentService{DB: db, Gateway: gw, Wallet: w, Notify: n, Log: log}
}

// CreateFeePayment freezes the fee for an accepted (job, fundi) pair. It runs
// inside the acceptance transaction and creates nothing when the fee is zero.
func CreateFeePayment(tx *gorm.DB, job *models.Job, fundiID uuid.UUID) (*models.Payment, error) {
	fee := Fee(job.BudgetMin, job.BudgetMax)
	if fee.IsZero() {
		return nil, nil
	}

	jobID := job.ID
	p := &models.Payment{
		Kind:        models.PaymentKindFee,
		Amount:      fee,
		Commission:  decimal.Zero,
		FundiAmount: decimal.Zero,
		Status:      models.PaymentInitiated,
		CustomerID:  job.CustomerID,
		FundiID:     &fundiID,
		JobID:       &jobID,
	}
	if err := tx.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// LatestFee returns the most recent fee payment for (job, fundi), or nil.
func LatestFee(db *gorm.DB, jobID, fundiID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := db.Where("job_id = ? AND fundi_id = ? AND kind = ?", jobID, fundiID, models.PaymentKindFee).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PaymentService) loadJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job not found")
		}
		return nil, err
	}
	return &job, nil
}

func resolvePhone(phone string, actor *models.User) (string, error) {
	if strings.TrimSpace(phone) == "" {
		phone = actor.Phone
	}
	p, err := gateway.NormalizePhone(phone)
	if err != nil {
		return "", apperr.Validation("a valid M-Pesa phone number is required")
	}
	return p, nil
}

// PayFee dispatches the job's fee payment. Either party of the job may pay.
// A failed attempt is retried with a fresh payment row.
func (s *PaymentService) PayFee(ctx context.Context, jobID uuid.UUID, actor *models.User, phone string) (*models.Payment, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.FundiID == nil {
		return nil, apperr.Forbidden("no fundi has been assigned to this job")
	}

	switch actor.ID {
	case job.CustomerID:
		err = identity.Authorize(actor, models.RoleCustomer)
	case *job.FundiID:
		err = identity.Authorize(actor, models.RoleFundi)
	default:
		err = apperr.Forbidden("you are not a party to this job")
	}
	if err != nil {
		return nil, err
	}

	phone, err = resolvePhone(phone, actor)
	if err != nil {
		return nil, err
	}

	latest, err := LatestFee(s.DB.WithContext(ctx), job.ID, *job.FundiID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, apperr.NotFound("this job has no fee to pay")
	}

	var p *models.Payment
	switch latest.Status {
	case models.PaymentInitiated:
		p = latest
	case models.PaymentFailed:
		p = &models.Payment{
			Kind:        models.PaymentKindFee,
			Amount:      latest.Amount,
			Commission:  latest.Commission,
			FundiAmount: latest.FundiAmount,
			Status:      models.PaymentInitiated,
			CustomerID:  latest.CustomerID,
			FundiID:     latest.FundiID,
			JobID:       latest.JobID,
		}
		if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
			return nil, err
		}
	default:
		return nil, apperr.AlreadyProcessed("the fee payment is already " + string(latest.Status))
	}

	p.Phone = phone
	if err := s.dispatch(ctx, p, "FundiConnect fee"); err != nil {
		return p, err
	}
	return p, nil
}

// InitiatePayment charges the job customer for the work itself. The fundi's
// share is credited to their wallet on settlement.
func (s *PaymentService) InitiatePayment(ctx context.Context, jobID uuid.UUID, actor *models.User, amount decimal.Decimal, phone string) (*models.Payment, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if actor.ID != job.CustomerID {
		return nil, apperr.Forbidden("only the job owner can pay for this job")
	}
	if err := identity.Authorize(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	if job.FundiID == nil || job.Status == models.JobStatusCancelled {
		return nil, apperr.Forbidden("this job has no assigned fundi")
	}
	if !amount.IsPositive() {
		return nil, apperr.Validation("amount must be greater than zero")
	}
	phone, err = resolvePhone(phone, actor)
	if err != nil {
		return nil, err
	}

	commission, fundiAmount := Split(amount)
	jid := job.ID
	p := &models.Payment{
		Kind:        models.PaymentKindService,
		Amount:      amount,
		Commission:  commission,
		FundiAmount: fundiAmount,
		Status:      models.PaymentInitiated,
		CustomerID:  job.CustomerID,
		FundiID:     job.FundiID,
		JobID:       &jid,
		Phone:       phone,
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}

	if err := s.dispatch(ctx, p, "FundiConnect job"); err != nil {
		return p, err
	}
	return p, nil
}

// dispatch claims an initiated payment, hands it to the gateway and records
// the result. Only one dispatcher can claim a payment.
func (s *PaymentService) dispatch(ctx context.Context, p *models.Payment, desc string) error {
	db := s.DB.WithContext(ctx)

	res := db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", p.ID, models.PaymentInitiated).
		Updates(map[string]interface{}{"status": models.PaymentPending, "phone": p.Phone})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.AlreadyProcessed("payment is already being processed")
	}
	p.Status = models.PaymentPending

	out, err := s.Gateway.Initiate(ctx, gateway.InitiateRequest{
		Reference:   p.ID.String(),
		Amount:      p.Amount,
		Phone:       p.Phone,
		Description: desc,
	})
	if err != nil || !out.Accepted {
		reason := "rejected by gateway"
		if err != nil {
			reason = err.Error()
		} else if out.Description != "" {
			reason = out.Description
		}
		if uerr := db.Model(&models.Payment{}).
			Where("id = ? AND status = ?", p.ID, models.PaymentPending).
			Updates(map[string]interface{}{"status": models.PaymentFailed, "customer_message": reason}).Error; uerr != nil {
			s.Log.Error("mark payment failed", zap.Stringer("payment_id", p.ID), zap.Error(uerr))
		}
		p.Status = models.PaymentFailed
		p.CustomerMessage = reason
		dispatchedTotal.WithLabelValues(string(p.Kind), "failed").Inc()
		s.Log.Warn("payment dispatch failed", zap.Stringer("payment_id", p.ID), zap.String("reason", reason))
		return apperr.Wrap(apperr.KindGatewayError, "payment could not be initiated", err)
	}

	cid := out.CorrelationID
	if err := db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", p.ID, models.PaymentPending).
		Updates(map[string]interface{}{"correlation_id": cid, "customer_message": out.CustomerMessage}).Error; err != nil {
		return err
	}
	p.CorrelationID = &cid
	p.CustomerMessage = out.CustomerMessage
	dispatchedTotal.WithLabelValues(string(p.Kind), "accepted").Inc()

	s.Log.Info("payment dispatched",
		zap.Stringer("payment_id", p.ID),
		zap.String("kind", string(p.Kind)),
		zap.String("correlation_id", cid),
		zap.String("amount", p.Amount.StringFixed(2)),
	)
	return nil
}

// Settle applies a gateway outcome to the pending payment with the given
// correlation id. Duplicate and late deliveries are no-ops; unknown ids are
// logged and ignored.
func (s *PaymentService) Settle(ctx context.Context, correlationID string, outcome gateway.Outcome) error {
	if outcome == gateway.OutcomePending {
		return nil
	}
	status := models.PaymentFailed
	if outcome == gateway.OutcomeSuccess {
		status = models.PaymentCompleted
	}

	var (
		p       models.Payment
		unknown bool
		applied bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("correlation_id = ?", correlationID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				unknown = true
				return nil
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", p.ID, models.PaymentPending).
			Updates(map[string]interface{}{"status": status, "settled_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		p.Status = status
		p.SettledAt = &now

		if status == models.PaymentCompleted && p.FundiID != nil && p.FundiAmount.IsPositive() {
			return s.Wallet.CreditFundi(tx, *p.FundiID, p.FundiAmount, p.ID, "Payment for job")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("settle %s: %w", correlationID, err)
	}

	if unknown {
		s.Log.Warn("settlement for unknown payment", zap.String("correlation_id", correlationID), zap.String("outcome", string(outcome)))
		return nil
	}
	if !applied {
		s.Log.Debug("settlement ignored", zap.Stringer("payment_id", p.ID), zap.String("status", string(p.Status)))
		return nil
	}

	settledTotal.WithLabelValues(string(p.Kind), string(status)).Inc()
	s.Log.Info("payment settled", zap.Stringer("payment_id", p.ID), zap.String("status", string(status)))
	s.notifySettled(ctx, &p)
	return nil
}

func (s *PaymentService) notifySettled(ctx context.Context, p *models.Payment) {
	link := "/payments/" + p.ID.String()
	amount := "KES " + p.Amount.StringFixed(2)

	if p.Status == models.PaymentFailed {
		s.Notify.Send(ctx, p.CustomerID, "Payment of "+amount+" failed. Please try again.", link)
		return
	}

	s.Notify.Send(ctx, p.CustomerID, "Payment of "+amount+" received.", link)
	if p.FundiID == nil {
		return
	}
	switch p.Kind {
	case models.PaymentKindFee:
		if !s.stillAssigned(ctx, p) {
			s.Log.Warn("fee settled for a job the fundi no longer holds", zap.Stringer("payment_id", p.ID))
			return
		}
		s.Notify.Send(ctx, *p.FundiID, "The connection fee has been paid. You can now chat with the customer.", link)
	case models.PaymentKindService:
		s.Notify.Send(ctx, *p.FundiID, "KES "+p.FundiAmount.StringFixed(2)+" has been credited to your wallet.", link)
	}
}

// stillAssigned reports whether p's job is live and held by p's fundi.
func (s *PaymentService) stillAssigned(ctx context.Context, p *models.Payment) bool {
	if p.JobID == nil || p.FundiID == nil {
		return false
	}
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND fundi_id = ? AND status <> ?", *p.JobID, *p.FundiID, models.JobStatusCancelled).
		Count(&n).Error
	if err != nil {
		s.Log.Error("load job for settled fee", zap.Stringer("payment_id", p.ID), zap.Error(err))
		return false
	}
	return n > 0
}

// Get returns a payment visible to actor as payer or payee.
func (s *PaymentService) Get(ctx context.Context, paymentID uuid.UUID, actor *models.User) (*models.Payment, error) {
	var p models.Payment
	err := s.DB.WithContext(ctx).
		Where("id = ? AND (customer_id = ? OR fundi_id = ?)", paymentID, actor.ID, actor.ID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("payment not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Refresh asks the gateway about a pending payment and settles it when the
// outcome is known.
func (s *PaymentService) Refresh(ctx context.Context, paymentID uuid.UUID, actor *models.User) (*models.Payment, error) {
	p, err := s.Get(ctx, paymentID, actor)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentPending || p.CorrelationID == nil {
		return p, nil
	}

	res, err := s.Gateway.Verify(ctx, *p.CorrelationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGatewayError, "could not check payment status", err)
	}
	if err := s.Settle(ctx, *p.CorrelationID, res.Outcome); err != nil {
		return nil, err
	}
	return s.Get(ctx, paymentID, actor)
}

func (s *PaymentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	err := s.DB.WithContext(ctx).
		Where("customer_id = ? OR fundi_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
