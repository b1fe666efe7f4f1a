package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPaymentSignature(t *testing.T) {
	secret := "shhh"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("order_1|pay_1"))
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyPaymentSignature(secret, "order_1", "pay_1", signature))
	assert.False(t, VerifyPaymentSignature(secret, "order_1", "pay_2", signature))
	assert.False(t, VerifyPaymentSignature("wrong", "order_1", "pay_1", signature))
	assert.False(t, VerifyPaymentSignature(secret, "order_1", "pay_1", "garbage"))
}

func TestRazorpayServiceCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(15000), payload["amount"])
		assert.Equal(t, "INR", payload["currency"])
		assert.Equal(t, "FLX-123", payload["receipt"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_gw_1","amount":15000,"currency":"INR","status":"created"}`))
	}))
	defer srv.Close()

	svc := &RazorpayService{keyID: "key_id", keySecret: "key_secret", baseURL: srv.URL}

	order, err := svc.CreateOrder(15000, "INR", "FLX-123", nil)
	require.NoError(t, err)
	assert.Equal(t, "order_gw_1", order.ID)
	assert.EqualValues(t, 15000, order.Amount)
	assert.NotEmpty(t, order.Raw)
}

func TestRazorpayServiceSurfacesGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	}))
	defer srv.Close()

	svc := &RazorpayService{keyID: "key_id", keySecret: "key_secret", baseURL: srv.URL}

	_, err := svc.FetchPayment("pay_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
