package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

type callbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        *int   `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []callbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type Callback struct {
	CorrelationID string
	Success       bool
	ResultCode    int
	ResultDesc    string
	Receipt       string
}

func (c *Callback) Outcome() Outcome {
	if c.Success {
		return OutcomeSuccess
	}
	return OutcomeFailed
}

// ParseCallback decodes the provider's asynchronous result notification.
func ParseCallback(body []byte) (*Callback, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, errors.New("callback without CheckoutRequestID")
	}
	if cb.ResultCode == nil {
		return nil, errors.New("callback without ResultCode")
	}

	out := &Callback{
		CorrelationID: cb.CheckoutRequestID,
		ResultCode:    *cb.ResultCode,
		ResultDesc:    cb.ResultDesc,
		Success:       *cb.ResultCode == 0,
	}
	for _, it := range cb.CallbackMetadata.Item {
		if it.Name == "MpesaReceiptNumber" {
			_ = json.Unmarshal(it.Value, &out.Receipt)
		}
	}
	return out, nil
}
