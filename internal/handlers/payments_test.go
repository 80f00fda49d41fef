package handlers

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/gateway"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/testutil"
)

func assignedJob(t *testing.T, s *server) (*models.User, *models.User, *models.Job) {
	t.Helper()
	customer := testutil.CreateCustomer(t, s.db, "customer@example.com")
	fundi := testutil.CreateFundi(t, s.db, "fundi@example.com", true)
	job := testutil.CreateJob(t, s.db, customer, nil, nil)
	require.NoError(t, s.db.Model(job).Update("fundi_id", fundi.ID).Error)
	return customer, fundi, job
}

func TestServicePaymentCreditsWallet(t *testing.T) {
	s := newServer(t)
	customer, fundi, job := assignedJob(t, s)

	res := s.do(t, http.MethodPost, "/api/jobs/"+job.ID.String()+"/payments", obj{"amount": 1000, "phone": "+254712345678"}, customer)
	require.Equal(t, http.StatusAccepted, res.Status, res.Body)
	assert.Equal(t, "pending", res.data()["status"])
	paymentID := res.data()["id"].(string)

	// still pending at the gateway
	pending := s.do(t, http.MethodPost, "/api/payments/"+paymentID+"/refresh", nil, customer)
	require.Equal(t, http.StatusOK, pending.Status)
	assert.Equal(t, "pending", pending.data()["status"])

	s.gw.outcomes["ws_CO_1"] = gateway.OutcomeSuccess
	done := s.do(t, http.MethodPost, "/api/payments/"+paymentID+"/refresh", nil, customer)
	require.Equal(t, http.StatusOK, done.Status, done.Body)
	assert.Equal(t, "completed", done.data()["status"])

	wallet := s.do(t, http.MethodGet, "/api/fundi/wallet", nil, fundi)
	require.Equal(t, http.StatusOK, wallet.Status, wallet.Body)
	assert.True(t, decimalOf(t, wallet.data()["balance"]).Equal(decimal.NewFromInt(900)))
	assert.Len(t, wallet.data()["transactions"], 1)

	// a late callback for the same charge changes nothing
	late := s.callback(t, callbackBody("ws_CO_1", 0), testCallbackSecret)
	assert.Equal(t, http.StatusOK, late.Status)
	wallet = s.do(t, http.MethodGet, "/api/fundi/wallet", nil, fundi)
	assert.True(t, decimalOf(t, wallet.data()["balance"]).Equal(decimal.NewFromInt(900)))

	mine := s.do(t, http.MethodGet, "/api/payments", nil, fundi)
	require.Equal(t, http.StatusOK, mine.Status)
	assert.Len(t, mine.list(), 1)
}

func TestServicePaymentRules(t *testing.T) {
	s := newServer(t)
	customer, fundi, job := assignedJob(t, s)
	path := "/api/jobs/" + job.ID.String() + "/payments"

	res := s.do(t, http.MethodPost, path, obj{"amount": 0}, customer)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = s.do(t, http.MethodPost, path, obj{"amount": 500, "phone": "12345"}, customer)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	res = s.do(t, http.MethodPost, path, obj{"amount": 500}, fundi)
	assert.Equal(t, http.StatusForbidden, res.Status)

	s.gw.reject = true
	res = s.do(t, http.MethodPost, path, obj{"amount": 500, "phone": "0712345678"}, customer)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Equal(t, "gateway_error", res.Body["code"])

	var failed models.Payment
	require.NoError(t, s.db.First(&failed, "job_id = ?", job.ID).Error)
	assert.Equal(t, models.PaymentFailed, failed.Status)
}

func TestCallbackFailureLeavesChatClosed(t *testing.T) {
	s := newServer(t)
	customer := testutil.CreateCustomer(t, s.db, "customer@example.com")
	fundi := testutil.CreateFundi(t, s.db, "fundi@example.com", true)
	job := testutil.CreateJob(t, s.db, customer, testutil.Int64(800), nil)
	base := "/api/jobs/" + job.ID.String()

	applied := s.do(t, http.MethodPost, base+"/applications", obj{}, fundi)
	require.Equal(t, http.StatusCreated, applied.Status)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/applications/"+applied.data()["id"].(string)+"/accept", nil, customer).Status)

	paid := s.do(t, http.MethodPost, base+"/fee", obj{"phone": "0712345678"}, fundi)
	require.Equal(t, http.StatusAccepted, paid.Status, paid.Body)

	cancelled := s.callback(t, callbackBody("ws_CO_1", 1032), testCallbackSecret)
	require.Equal(t, http.StatusOK, cancelled.Status)

	access := s.do(t, http.MethodGet, base+"/messages/access", nil, fundi)
	assert.Equal(t, false, access.data()["can_chat"])

	// a failed fee can be paid again with a fresh charge
	retry := s.do(t, http.MethodPost, base+"/fee", obj{"phone": "0712345678"}, fundi)
	require.Equal(t, http.StatusAccepted, retry.Status, retry.Body)
	assert.Equal(t, "ws_CO_2", retry.data()["correlation_id"])
	assert.NotEqual(t, paid.data()["id"], retry.data()["id"])

	garbage := s.raw(t, http.MethodPost, "/api/payments/callback", []byte("not json"), nil, map[string]string{
		"X-Callback-Signature": gateway.Sign(testCallbackSecret, []byte("not json")),
	})
	assert.Equal(t, http.StatusBadRequest, garbage.Status)
}
