// Package gateway talks to the mobile-money payment provider.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

type InitiateRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Phone       string
	Description string
}

type InitiateResult struct {
	Accepted        bool
	CorrelationID   string
	CustomerMessage string
	Description     string
}

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

type VerifyResult struct {
	Outcome    Outcome
	ResultCode string
	ResultDesc string
}

// Gateway initiates charges and reports their outcome. Both calls are
// synchronous; asynchronous outcomes arrive through the callback endpoint.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, correlationID string) (*VerifyResult, error)
}
