package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/gateway"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/testutil"
)

func decimalOf(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(v))
	require.NoError(t, err, "not a decimal: %v", v)
	return d
}

func callbackBody(correlationID string, resultCode int) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":%q,"ResultCode":%d,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":100},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"}]}}}}`, correlationID, resultCode))
}

func (s *server) callback(t *testing.T, body []byte, secret string) response {
	t.Helper()
	return s.raw(t, http.MethodPost, "/api/payments/callback", body, nil, map[string]string{
		"X-Callback-Signature": gateway.Sign(secret, body),
	})
}

func TestJobMarketplaceFlow(t *testing.T) {
	s := newServer(t)
	customer := testutil.CreateCustomer(t, s.db, "customer@example.com")
	fundi := testutil.CreateFundi(t, s.db, "fundi@example.com", true, "Plumbing")
	outsider := testutil.CreateCustomer(t, s.db, "outsider@example.com")

	created := s.do(t, http.MethodPost, "/api/jobs", obj{
		"title":       "Fix kitchen sink",
		"description": "Leaking pipe",
		"location":    "Nairobi Westlands",
		"urgency":     "high",
		"budget_min":  1000,
		"budget_max":  2000,
	}, customer)
	require.Equal(t, http.StatusCreated, created.Status, created.Body)
	assert.Equal(t, "open", created.data()["state"])
	jobID := created.data()["job"].(map[string]interface{})["id"].(string)
	base := "/api/jobs/" + jobID

	listed := s.do(t, http.MethodGet, "/api/jobs?q=sink", nil, nil)
	require.Equal(t, http.StatusOK, listed.Status)
	assert.Len(t, listed.list(), 1)
	assert.EqualValues(t, 1, listed.Body["meta"].(map[string]interface{})["total"])

	applied := s.do(t, http.MethodPost, base+"/applications", obj{"message": "I can do it today", "proposed_rate": 1500}, fundi)
	require.Equal(t, http.StatusCreated, applied.Status, applied.Body)
	appID := applied.data()["id"].(string)

	dup := s.do(t, http.MethodPost, base+"/applications", obj{"message": "again"}, fundi)
	require.Equal(t, http.StatusConflict, dup.Status)
	assert.Equal(t, "duplicate_application", dup.Body["code"])
	assert.Equal(t, true, dup.Body["info"])
	assert.Equal(t, appID, dup.data()["id"])

	stolen := s.do(t, http.MethodPost, base+"/applications/"+appID+"/accept", nil, outsider)
	assert.Equal(t, http.StatusForbidden, stolen.Status)
	assert.Equal(t, "forbidden", stolen.Body["code"])

	accepted := s.do(t, http.MethodPost, base+"/applications/"+appID+"/accept", nil, customer)
	require.Equal(t, http.StatusOK, accepted.Status, accepted.Body)
	assert.Equal(t, "assigned", accepted.data()["job"].(map[string]interface{})["state"])
	fee := accepted.data()["fee"].(map[string]interface{})
	assert.True(t, decimalOf(t, fee["amount"]).Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "initiated", fee["status"])

	again := s.do(t, http.MethodPost, base+"/applications/"+appID+"/accept", nil, customer)
	assert.Equal(t, http.StatusConflict, again.Status)
	assert.Equal(t, true, again.Body["info"])

	// the fundi side of the thread stays closed until the fee settles
	access := s.do(t, http.MethodGet, base+"/messages/access", nil, fundi)
	require.Equal(t, http.StatusOK, access.Status)
	assert.Equal(t, false, access.data()["can_chat"])
	blocked := s.do(t, http.MethodPost, base+"/messages", obj{"content": "Hello"}, fundi)
	assert.Equal(t, http.StatusForbidden, blocked.Status)

	fromCustomer := s.do(t, http.MethodPost, base+"/messages", obj{"content": "When can you come?"}, customer)
	assert.Equal(t, http.StatusCreated, fromCustomer.Status)

	paid := s.do(t, http.MethodPost, base+"/fee", obj{"phone": "0712345678"}, customer)
	require.Equal(t, http.StatusAccepted, paid.Status, paid.Body)
	assert.Equal(t, "pending", paid.data()["status"])
	assert.Equal(t, "ws_CO_1", paid.data()["correlation_id"])
	assert.Equal(t, "254712345678", paid.data()["phone"])

	twice := s.do(t, http.MethodPost, base+"/fee", obj{"phone": "0712345678"}, fundi)
	assert.Equal(t, http.StatusConflict, twice.Status)

	forged := s.callback(t, callbackBody("ws_CO_1", 0), "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, forged.Status)

	settled := s.callback(t, callbackBody("ws_CO_1", 0), testCallbackSecret)
	require.Equal(t, http.StatusOK, settled.Status)
	assert.EqualValues(t, 0, settled.Body["ResultCode"])

	// duplicate delivery is acknowledged and ignored
	redelivered := s.callback(t, callbackBody("ws_CO_1", 0), testCallbackSecret)
	assert.Equal(t, http.StatusOK, redelivered.Status)

	paymentID := paid.data()["id"].(string)
	status := s.do(t, http.MethodGet, "/api/payments/"+paymentID, nil, fundi)
	require.Equal(t, http.StatusOK, status.Status)
	assert.Equal(t, "completed", status.data()["status"])

	fromFundi := s.do(t, http.MethodPost, base+"/messages", obj{"content": "Tomorrow at 9"}, fundi)
	require.Equal(t, http.StatusCreated, fromFundi.Status, fromFundi.Body)

	thread := s.do(t, http.MethodGet, base+"/messages", nil, customer)
	require.Equal(t, http.StatusOK, thread.Status)
	require.Len(t, thread.list(), 2)
	assert.Equal(t, "When can you come?", thread.list()[0].(map[string]interface{})["content"])

	step := func(path string, as *models.User, want string) {
		t.Helper()
		res := s.do(t, http.MethodPost, base+path, nil, as)
		require.Equal(t, http.StatusOK, res.Status, res.Body)
		assert.Equal(t, want, res.data()["state"])
	}

	early := s.do(t, http.MethodPost, base+"/complete", nil, customer)
	assert.Equal(t, http.StatusForbidden, early.Status)

	step("/start", fundi, "in_progress")
	step("/request-completion", fundi, "completion_requested")
	step("/complete", customer, "completed")

	review := s.do(t, http.MethodPost, base+"/review", obj{"rating": 5, "comment": "Quick and tidy"}, customer)
	require.Equal(t, http.StatusCreated, review.Status, review.Body)
	second := s.do(t, http.MethodPost, base+"/review", obj{"rating": 4}, customer)
	assert.Equal(t, http.StatusConflict, second.Status)

	profile := s.do(t, http.MethodGet, "/api/fundis/"+fundi.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, profile.Status)
	assert.Len(t, profile.data()["reviews"], 1)
	p := profile.data()["profile"].(map[string]interface{})
	assert.True(t, decimalOf(t, p["rating"]).Equal(decimal.NewFromInt(5)))
	assert.EqualValues(t, 1, p["total_jobs_completed"])

	notes := s.do(t, http.MethodGet, "/api/notifications", nil, fundi)
	require.Equal(t, http.StatusOK, notes.Status)
	assert.NotEmpty(t, notes.list())
	readAll := s.do(t, http.MethodPost, "/api/notifications/read-all", nil, fundi)
	require.Equal(t, http.StatusOK, readAll.Status)
	notes = s.do(t, http.MethodGet, "/api/notifications?unread=true", nil, fundi)
	assert.Empty(t, notes.list())
	assert.EqualValues(t, 0, notes.Body["meta"].(map[string]interface{})["unread"])
}

func TestRoleGateRedirects(t *testing.T) {
	s := newServer(t)
	customer := testutil.CreateCustomer(t, s.db, "customer@example.com")
	newbie := testutil.CreateFundi(t, s.db, "newbie@example.com", false)
	job := testutil.CreateJob(t, s.db, customer, nil, nil)

	res := s.do(t, http.MethodPost, "/api/jobs/"+job.ID.String()+"/applications", obj{"message": "hi"}, newbie)
	require.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "onboarding_incomplete", res.Body["code"])
	assert.Equal(t, "/fundi/onboarding", res.Body["redirect"])

	res = s.do(t, http.MethodPost, "/api/jobs", obj{"title": "x", "description": "y", "location": "z"}, newbie)
	require.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "role_error", res.Body["code"])
	assert.Equal(t, "/dashboard", res.Body["redirect"])

	res = s.do(t, http.MethodGet, "/api/fundi/jobs", nil, customer)
	assert.Equal(t, "role_error", res.Body["code"])
}

func TestJobValidation(t *testing.T) {
	s := newServer(t)
	customer := testutil.CreateCustomer(t, s.db, "customer@example.com")

	res := s.do(t, http.MethodPost, "/api/jobs", obj{"description": "y", "location": "z", "urgency": "yesterday"}, customer)
	require.Equal(t, http.StatusUnprocessableEntity, res.Status)
	errs := res.Body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "urgency")

	res = s.do(t, http.MethodPost, "/api/jobs", obj{
		"title": "x", "description": "y", "location": "z", "budget_min": 900, "budget_max": 100,
	}, customer)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "validation", res.Body["code"])

	res = s.do(t, http.MethodGet, "/api/jobs/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = s.do(t, http.MethodGet, "/api/jobs/8f14e45f-ceea-467f-a0e6-0a1b2c3d4e5f", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "not_found", res.Body["code"])
}

func TestCancelAssignedJob(t *testing.T) {
	s := newServer(t)
	customer := testutil.CreateCustomer(t, s.db, "customer@example.com")
	fundi := testutil.CreateFundi(t, s.db, "fundi@example.com", true)
	job := testutil.CreateJob(t, s.db, customer, nil, testutil.Int64(400))
	base := "/api/jobs/" + job.ID.String()

	applied := s.do(t, http.MethodPost, base+"/applications", obj{}, fundi)
	require.Equal(t, http.StatusCreated, applied.Status, applied.Body)
	accepted := s.do(t, http.MethodPost, base+"/applications/"+applied.data()["id"].(string)+"/accept", nil, customer)
	require.Equal(t, http.StatusOK, accepted.Status)
	assert.True(t, decimalOf(t, accepted.data()["fee"].(map[string]interface{})["amount"]).Equal(decimal.NewFromInt(50)))

	again := s.do(t, http.MethodPost, base+"/applications", obj{}, fundi)
	require.Equal(t, http.StatusConflict, again.Status)
	assert.Equal(t, applied.data()["id"], again.data()["id"])
	assert.Equal(t, "accepted", again.data()["status"])

	cancelled := s.do(t, http.MethodPost, base+"/cancel", nil, customer)
	require.Equal(t, http.StatusOK, cancelled.Status)
	assert.Equal(t, "cancelled", cancelled.data()["state"])

	var reloaded models.Job
	require.NoError(t, s.db.First(&reloaded, "id = ?", job.ID).Error)
	assert.Nil(t, reloaded.FundiID)

	var fee models.Payment
	require.NoError(t, s.db.First(&fee, "job_id = ?", job.ID).Error)
	assert.Equal(t, models.PaymentFailed, fee.Status)

	start := s.do(t, http.MethodPost, base+"/start", nil, fundi)
	assert.Equal(t, http.StatusForbidden, start.Status)
}
