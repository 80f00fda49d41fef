package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/config"
)

// MpesaClient implements Gateway on top of the STK push API.
type MpesaClient struct {
	Client      *http.Client
	BaseURL     string
	ShortCode   string
	Passkey     string
	CallbackURL string
	now         func() time.Time
}

func NewMpesaClient(cfg config.GatewayConfig) *MpesaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = timeout

	return &MpesaClient{
		Client:      client,
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		ShortCode:   cfg.ShortCode,
		Passkey:     cfg.Passkey,
		CallbackURL: cfg.CallbackURL,
		now:         time.Now,
	}
}

func (s *MpesaClient) password(ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(s.ShortCode + s.Passkey + ts))
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

func (s *MpesaClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	ts := s.now().Format("20060102150405")
	body := stkPushRequest{
		BusinessShortCode: s.ShortCode,
		Password:          s.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.Ceil().IntPart(),
		PartyA:            phone,
		PartyB:            s.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       s.CallbackURL,
		AccountReference:  truncate(req.Reference, 12),
		TransactionDesc:   truncate(req.Description, 13),
	}

	var out stkPushResponse
	status, err := s.post(ctx, "/mpesa/stkpush/v1/processrequest", body, &out)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK || out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		desc := out.ResponseDescription
		if desc == "" {
			desc = out.ErrorMessage
		}
		return &InitiateResult{Accepted: false, Description: desc}, nil
	}

	return &InitiateResult{
		Accepted:        true,
		CorrelationID:   out.CheckoutRequestID,
		CustomerMessage: out.CustomerMessage,
		Description:     out.ResponseDescription,
	}, nil
}

type queryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type queryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// errorCode returned while the customer has not yet answered the prompt
const stillProcessing = "500.001.1001"

func (s *MpesaClient) Verify(ctx context.Context, correlationID string) (*VerifyResult, error) {
	ts := s.now().Format("20060102150405")
	body := queryRequest{
		BusinessShortCode: s.ShortCode,
		Password:          s.password(ts),
		Timestamp:         ts,
		CheckoutRequestID: correlationID,
	}

	var out queryResponse
	status, err := s.post(ctx, "/mpesa/stkpushquery/v1/query", body, &out)
	if err != nil {
		return nil, err
	}

	if out.ErrorCode == stillProcessing {
		return &VerifyResult{Outcome: OutcomePending, ResultDesc: out.ErrorMessage}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("query %s: status %d: %s", correlationID, status, out.ErrorMessage)
	}

	res := &VerifyResult{ResultCode: out.ResultCode, ResultDesc: out.ResultDesc}
	switch out.ResultCode {
	case "":
		res.Outcome = OutcomePending
	case "0":
		res.Outcome = OutcomeSuccess
	default:
		res.Outcome = OutcomeFailed
	}
	return res, nil
}

func (s *MpesaClient) post(ctx context.Context, path string, in, out interface{}) (int, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode gateway response (status %d): %w", resp.StatusCode, err)
		}
	}
	return resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// NormalizePhone converts 07XXXXXXXX, 01XXXXXXXX, +254... and 254... forms to
// the 2547XXXXXXXX form the API expects.
func NormalizePhone(raw string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "", "+", "").Replace(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(p, "0") && len(p) == 10:
		p = "254" + p[1:]
	case (strings.HasPrefix(p, "7") || strings.HasPrefix(p, "1")) && len(p) == 9:
		p = "254" + p
	}
	if !strings.HasPrefix(p, "254") || len(p) != 12 {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid phone number %q", raw)
		}
	}
	return p, nil
}

// ValidateSignature checks the hex HMAC-SHA256 of body against signature.
func ValidateSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
