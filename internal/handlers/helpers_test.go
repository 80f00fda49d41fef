package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/discovery"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/gateway"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/identity"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/messaging"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/payment"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/services/wallet"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/testutil"
	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/utils"
)

const (
	testSecret         = "test-secret"
	testCallbackSecret = "callback-secret"
)

// stubGateway accepts every charge and hands out sequential correlation ids.
type stubGateway struct {
	mu       sync.Mutex
	next     int
	reject   bool
	outcomes map[string]gateway.Outcome
}

func (g *stubGateway) Initiate(_ context.Context, req gateway.InitiateRequest) (*gateway.InitiateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reject {
		return &gateway.InitiateResult{Accepted: false, Description: "insufficient funds"}, nil
	}
	g.next++
	return &gateway.InitiateResult{
		Accepted:        true,
		CorrelationID:   fmt.Sprintf("ws_CO_%d", g.next),
		CustomerMessage: "Success. Request accepted for processing",
	}, nil
}

func (g *stubGateway) Verify(_ context.Context, correlationID string) (*gateway.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out, ok := g.outcomes[correlationID]
	if !ok {
		out = gateway.OutcomePending
	}
	return &gateway.VerifyResult{Outcome: out}, nil
}

type server struct {
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
	gw  *stubGateway
}

func newServer(t *testing.T) *server {
	t.Helper()

	gdb := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	log := testutil.Logger()
	gw := &stubGateway{outcomes: map[string]gateway.Outcome{}}

	notifier := notify.NewNotifyService(gdb, nil, rdb, log)
	idSvc := identity.NewIdentityService(gdb, rdb, notifier, mailer.LogMailer{Log: log}, log, time.Minute, 10*time.Minute)
	jobSvc := jobs.NewJobService(gdb, notifier, log)
	walletSvc := wallet.NewWalletService(gdb)
	paySvc := payment.NewPaymentService(gdb, gw, walletSvc, notifier, log)

	session := Session{JWTSecret: testSecret, Expires: 60}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	Handlers{
		Auth:          NewAuthHandler(idSvc, session),
		Fundi:         NewFundiHandler(idSvc, jobSvc, walletSvc),
		Jobs:          NewJobHandler(jobSvc),
		Applications:  NewApplicationHandler(jobSvc),
		Payments:      NewPaymentHandler(paySvc, testCallbackSecret, log),
		Messages:      NewMessageHandler(messaging.NewMessagingService(gdb, nil, rdb, notifier, log)),
		Notifications: NewNotificationHandler(notifier),
		Discovery:     NewDiscoveryHandler(discovery.NewDiscoveryService(gdb)),
	}.Mount(app.Group("/api"), NewGuards(testSecret, gdb))

	return &server{app: app, db: gdb, mr: mr, gw: gw}
}

type response struct {
	Status int
	Header http.Header
	Body   map[string]interface{}
}

func (r response) data() map[string]interface{} {
	d, _ := r.Body["data"].(map[string]interface{})
	return d
}

func (r response) list() []interface{} {
	d, _ := r.Body["data"].([]interface{})
	return d
}

func (s *server) raw(t *testing.T, method, path string, body []byte, as *models.User, header map[string]string) response {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if as != nil {
		token, err := utils.SignJWT(testSecret, as.ID.String(), string(as.ActiveRole), 60)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: utils.CookieName, Value: token})
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{Status: resp.StatusCode, Header: resp.Header}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func (s *server) do(t *testing.T, method, path string, body interface{}, as *models.User) response {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return s.raw(t, method, path, payload, as, nil)
}

func (s *server) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	var out models.User
	require.NoError(t, s.db.First(&out, "id = ?", u.ID).Error)
	return &out
}

func sessionCookie(r response) string {
	for _, c := range (&http.Response{Header: r.Header}).Cookies() {
		if c.Name == utils.CookieName {
			return c.Value
		}
	}
	return ""
}
