package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com/v1"

var httpClient = &http.Client{Timeout: 15 * time.Second}

// GatewayOrder is the remote payment intent created before checkout.
type GatewayOrder struct {
	ID       string          `json:"id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Status   string          `json:"status"`
	Raw      json.RawMessage `json:"-"`
}

// GatewayPayment is the gateway's view of a payment attempt.
type GatewayPayment struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	OrderID  string          `json:"order_id"`
	Raw      json.RawMessage `json:"-"`
}

// GatewayRefund is the result of a refund call.
type GatewayRefund struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    int64           `json:"amount"`
	Status    string          `json:"status"`
	Raw       json.RawMessage `json:"-"`
}

// PaymentGateway abstracts the remote payment service so handlers can be
// exercised against a mock.
type PaymentGateway interface {
	CreateOrder(amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error)
	FetchPayment(paymentID string) (*GatewayPayment, error)
	RefundPayment(paymentID string, amountMinor int64, notes map[string]string) (*GatewayRefund, error)
}

// RazorpayService talks to the Razorpay REST API using basic auth.
type RazorpayService struct {
	keyID     string
	keySecret string
	baseURL   string
}

// NewRazorpayService constructs a RazorpayService.
func NewRazorpayService(keyID, keySecret string) *RazorpayService {
	return &RazorpayService{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   defaultRazorpayBaseURL,
	}
}

// CreateOrder creates a remote payment intent. Amount is in minor units
// (paise).
func (s *RazorpayService) CreateOrder(amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error) {
	payload := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	raw, err := s.request(http.MethodPost, "/orders", payload)
	if err != nil {
		return nil, err
	}

	var order GatewayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("unmarshal gateway order: %w", err)
	}
	order.Raw = raw
	return &order, nil
}

// FetchPayment reads the current state of a payment directly from the
// gateway; callbacks are never trusted on their own.
func (s *RazorpayService) FetchPayment(paymentID string) (*GatewayPayment, error) {
	raw, err := s.request(http.MethodGet, "/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var payment GatewayPayment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, fmt.Errorf("unmarshal gateway payment: %w", err)
	}
	payment.Raw = raw
	return &payment, nil
}

// RefundPayment refunds a captured payment. amountMinor of zero requests a
// full refund.
func (s *RazorpayService) RefundPayment(paymentID string, amountMinor int64, notes map[string]string) (*GatewayRefund, error) {
	payload := map[string]any{}
	if amountMinor > 0 {
		payload["amount"] = amountMinor
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	raw, err := s.request(http.MethodPost, "/payments/"+paymentID+"/refund", payload)
	if err != nil {
		return nil, err
	}

	var refund GatewayRefund
	if err := json.Unmarshal(raw, &refund); err != nil {
		return nil, fmt.Errorf("unmarshal gateway refund: %w", err)
	}
	refund.Raw = raw
	return &refund, nil
}

func (s *RazorpayService) request(method, path string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal gateway payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}
	req.SetBasicAuth(s.keyID, s.keySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute gateway request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// VerifyPaymentSignature recomputes the expected callback signature as
// HMAC-SHA256 over "orderID|paymentID" keyed by the shared secret and
// compares it in constant time.
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
