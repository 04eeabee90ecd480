package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCheckoutParams() *CheckoutSessionParams {
	return &CheckoutSessionParams{
		LineItems: []GatewayLineItem{
			{Amount: 1500000, Currency: "PHP", Name: "Room", Quantity: 1},
			{Amount: 255000, Currency: "PHP", Name: "Taxes", Quantity: 1},
		},
		PaymentMethodTypes: []string{"card", "gcash"},
		Billing:            GatewayBilling{Name: "Maria Santos", Email: "maria.santos@example.com"},
		Description:        "Reservation RES-TEST",
		ReferenceNumber:    "RES-TEST",
		Metadata:           map[string]string{"reservation_id": "res_1"},
		SuccessURL:         "https://hotel.example.com/booking/confirmation?reservation=res_1",
		CancelURL:          "https://hotel.example.com/booking/payment-cancelled?reservation=res_1",
		IdempotencyKey:     "res_1:1",
	}
}

func TestCreateCheckoutSession_Request(t *testing.T) {
	var (
		gotPath string
		gotKey  string
		gotUser string
		gotBody map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		gotUser, _, _ = r.BasicAuth()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"cs_live_1","type":"checkout_session","attributes":{
			"checkout_url":"https://checkout.paymongo.com/cs_live_1",
			"payment_intent":{"id":"pi_live_1","type":"payment_intent"}}}}`))
	}))
	defer server.Close()

	cfg := testPaymentConfig()
	cfg.APIURL = server.URL + "/v1/"
	svc := NewPayMongoService(cfg, testLogger())

	result, err := svc.CreateCheckoutSession(context.Background(), testCheckoutParams())
	require.NoError(t, err)
	assert.Equal(t, "cs_live_1", result.SessionID)
	assert.Equal(t, "pi_live_1", result.PaymentIntentID)
	assert.Equal(t, "https://checkout.paymongo.com/cs_live_1", result.CheckoutURL)

	assert.Equal(t, "/v1/checkout_sessions", gotPath)
	assert.Equal(t, "res_1:1", gotKey)
	assert.Equal(t, "sk_test_key", gotUser)

	attrs := gotBody["data"].(map[string]interface{})["attributes"].(map[string]interface{})
	assert.Equal(t, "RES-TEST", attrs["reference_number"])
	assert.Equal(t, true, attrs["show_line_items"])
	assert.Len(t, attrs["line_items"], 2)
	assert.Equal(t, "res_1", attrs["metadata"].(map[string]interface{})["reservation_id"])
}

func TestCreateCheckoutSession_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"code":"parameter_invalid","detail":"line_items.amount is invalid"}]}`))
	}))
	defer server.Close()

	cfg := testPaymentConfig()
	cfg.APIURL = server.URL
	svc := NewPayMongoService(cfg, testLogger())

	_, err := svc.CreateCheckoutSession(context.Background(), testCheckoutParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "parameter_invalid: line_items.amount is invalid")
}

func TestCreateCheckoutSession_NotConfigured(t *testing.T) {
	cfg := testPaymentConfig()
	cfg.SecretKey = ""
	svc := NewPayMongoService(cfg, testLogger())

	assert.False(t, svc.IsConfigured())
	_, err := svc.CreateCheckoutSession(context.Background(), testCheckoutParams())
	assert.Error(t, err)
}

func TestCreateCheckoutSession_MockMode(t *testing.T) {
	cfg := testPaymentConfig()
	cfg.SecretKey = ""
	cfg.Mock = true
	svc := NewPayMongoService(cfg, testLogger())

	assert.True(t, svc.IsConfigured())
	result, err := svc.CreateCheckoutSession(context.Background(), testCheckoutParams())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.SessionID, "cs_mock_"))
	assert.True(t, strings.HasPrefix(result.CheckoutURL, "https://hotel.example.com/booking/mock-checkout?session="))
	assert.Contains(t, result.CheckoutURL, "ref=RES-TEST")
}

func TestParseSignatureHeader(t *testing.T) {
	h, err := ParseSignatureHeader("t=1700000000,te=abc123,li=")
	require.NoError(t, err)
	assert.Equal(t, "1700000000", h.Timestamp)
	assert.Equal(t, "abc123", h.Signature())

	h, err = ParseSignatureHeader("t=1700000000, te=abc123, li=def456")
	require.NoError(t, err)
	assert.Equal(t, "def456", h.Signature())

	_, err = ParseSignatureHeader("te=abc123")
	assert.Error(t, err)
	_, err = ParseSignatureHeader("t=1700000000,te=,li=")
	assert.Error(t, err)
	_, err = ParseSignatureHeader("garbage")
	assert.Error(t, err)
}

func TestVerifySignature_Tolerance(t *testing.T) {
	cfg := testPaymentConfig()
	cfg.SignatureTolerance = 5 * time.Minute
	svc := NewPayMongoService(cfg, testLogger())
	body := []byte(`{"data":{}}`)

	fresh := signatureHeader(testSecret, body, false)
	assert.NoError(t, svc.VerifySignature(fresh, body))

	svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	assert.Error(t, svc.VerifySignature(fresh, body))

	// Without a tolerance old timestamps are accepted
	svc.config = testPaymentConfig()
	assert.NoError(t, svc.VerifySignature(fresh, body))
}

func TestComputeSignature_Deterministic(t *testing.T) {
	sig := ComputeSignature("secret", "1700000000", []byte("{}"))
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, ComputeSignature("secret", "1700000000", []byte("{}")))
	assert.NotEqual(t, sig, ComputeSignature("secret", "1700000001", []byte("{}")))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1755000), ToMinorUnits(17550))
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, int64(10), ToMinorUnits(0.1))
	assert.Equal(t, 17550.0, FromMinorUnits(1755000))
}

func TestBalanceMinorUnits(t *testing.T) {
	items := []GatewayLineItem{
		{Amount: ToMinorUnits(33.33), Quantity: 1},
		{Amount: ToMinorUnits(33.33), Quantity: 1},
		{Amount: ToMinorUnits(33.33), Quantity: 1},
	}
	balanceMinorUnits(items, ToMinorUnits(100))
	assert.Equal(t, int64(10000), sumGatewayItems(items))
	assert.Equal(t, int64(3334), items[0].Amount)
}
