package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/config"
)

// SignatureHeaderName is the header carrying the webhook signature
const SignatureHeaderName = "Paymongo-Signature"

// PaymentGateway creates hosted checkout sessions
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSessionResult, error)
}

// GatewayLineItem is one line of the hosted checkout page. Amount is in minor units.
type GatewayLineItem struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
}

// GatewayBilling is the guest billing detail passed to the gateway
type GatewayBilling struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// CheckoutSessionParams contains all parameters needed to create a checkout session
type CheckoutSessionParams struct {
	LineItems          []GatewayLineItem
	PaymentMethodTypes []string
	Billing            GatewayBilling
	Description        string
	ReferenceNumber    string
	Metadata           map[string]string
	SuccessURL         string
	CancelURL          string
	IdempotencyKey     string
}

// CheckoutSessionResult is what the booking flow needs from the gateway response
type CheckoutSessionResult struct {
	SessionID       string
	CheckoutURL     string
	PaymentIntentID string
}

// payMongoCheckoutRequest is the request body of POST /checkout_sessions
type payMongoCheckoutRequest struct {
	Data struct {
		Attributes payMongoCheckoutAttributes `json:"attributes"`
	} `json:"data"`
}

type payMongoCheckoutAttributes struct {
	Billing            GatewayBilling    `json:"billing"`
	LineItems          []GatewayLineItem `json:"line_items"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	Description        string            `json:"description"`
	ReferenceNumber    string            `json:"reference_number"`
	Metadata           map[string]string `json:"metadata"`
	SuccessURL         string            `json:"success_url"`
	CancelURL          string            `json:"cancel_url"`
	SendEmailReceipt   bool              `json:"send_email_receipt"`
	ShowDescription    bool              `json:"show_description"`
	ShowLineItems      bool              `json:"show_line_items"`
}

// payMongoCheckoutResponse is the subset of the checkout session resource we read
type payMongoCheckoutResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CheckoutURL   string `json:"checkout_url"`
			PaymentIntent *struct {
				ID string `json:"id"`
			} `json:"payment_intent"`
		} `json:"attributes"`
	} `json:"data"`
}

type payMongoErrorResponse struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// PayMongoService handles checkout creation and webhook signatures for PayMongo
type PayMongoService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
	now    func() time.Time
}

// NewPayMongoService creates a new PayMongo payment service
func NewPayMongoService(cfg *config.PaymentConfig, logger *logrus.Logger) *PayMongoService {
	return &PayMongoService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// IsConfigured returns true if checkouts can be created
func (s *PayMongoService) IsConfigured() bool {
	return s.config.Mock || s.config.SecretKey != ""
}

// HasWebhookSecret reports whether webhook signatures can be verified
func (s *PayMongoService) HasWebhookSecret() bool {
	return s.config.WebhookSecret != ""
}

// CreateCheckoutSession creates a hosted checkout session and returns its URL
func (s *PayMongoService) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSessionResult, error) {
	if s.config.Mock {
		return s.mockCheckoutSession(params), nil
	}

	if s.config.SecretKey == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing secret key")
	}

	request := payMongoCheckoutRequest{}
	request.Data.Attributes = payMongoCheckoutAttributes{
		Billing:            params.Billing,
		LineItems:          params.LineItems,
		PaymentMethodTypes: params.PaymentMethodTypes,
		Description:        params.Description,
		ReferenceNumber:    params.ReferenceNumber,
		Metadata:           params.Metadata,
		SuccessURL:         params.SuccessURL,
		CancelURL:          params.CancelURL,
		SendEmailReceipt:   true,
		ShowDescription:    true,
		ShowLineItems:      true,
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpointURL := strings.TrimRight(s.config.APIURL, "/") + "/checkout_sessions"

	s.logger.WithFields(logrus.Fields{
		"reference_number": params.ReferenceNumber,
		"line_items":       len(params.LineItems),
		"endpoint":         endpointURL,
		"idempotency_key":  params.IdempotencyKey,
	}).Info("Creating PayMongo checkout session")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(s.config.SecretKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if params.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", params.IdempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call PayMongo endpoint")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"status_code":      resp.StatusCode,
		"reference_number": params.ReferenceNumber,
	}).Info("PayMongo response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, gatewayErrorDetail(body))
	}

	var checkoutResp payMongoCheckoutResponse
	if err := json.Unmarshal(body, &checkoutResp); err != nil {
		s.logger.WithFields(logrus.Fields{
			"body":  string(body),
			"error": err.Error(),
		}).Error("Failed to parse PayMongo response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if checkoutResp.Data.ID == "" || checkoutResp.Data.Attributes.CheckoutURL == "" {
		return nil, fmt.Errorf("checkout creation failed: no session id or checkout URL returned")
	}

	result := &CheckoutSessionResult{
		SessionID:   checkoutResp.Data.ID,
		CheckoutURL: checkoutResp.Data.Attributes.CheckoutURL,
	}
	if pi := checkoutResp.Data.Attributes.PaymentIntent; pi != nil {
		result.PaymentIntentID = pi.ID
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":        result.SessionID,
		"payment_intent_id": result.PaymentIntentID,
	}).Info("PayMongo checkout session created")

	return result, nil
}

// mockCheckoutSession returns a local checkout URL for development without gateway credentials
func (s *PayMongoService) mockCheckoutSession(params *CheckoutSessionParams) *CheckoutSessionResult {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	result := &CheckoutSessionResult{
		SessionID:       "cs_mock_" + id,
		PaymentIntentID: "pi_mock_" + id,
	}
	result.CheckoutURL = fmt.Sprintf("%s/booking/mock-checkout?session=%s&ref=%s",
		s.config.AppBaseURL, result.SessionID, params.ReferenceNumber)

	s.logger.WithField("session_id", result.SessionID).Warn("Payment gateway mock mode: checkout session not sent to PayMongo")
	return result
}

func gatewayErrorDetail(body []byte) string {
	var errResp payMongoErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Errors) > 0 {
		parts := make([]string, 0, len(errResp.Errors))
		for _, e := range errResp.Errors {
			parts = append(parts, fmt.Sprintf("%s: %s", e.Code, e.Detail))
		}
		return strings.Join(parts, "; ")
	}
	return string(body)
}

// ============================================================================
// WEBHOOK SIGNATURES
// ============================================================================

// SignatureHeader is the parsed Paymongo-Signature header: t=<unix>,te=<hex>,li=<hex>
type SignatureHeader struct {
	Timestamp     string
	TestSignature string
	LiveSignature string
}

// Signature returns the live signature when present, else the test one
func (h *SignatureHeader) Signature() string {
	if h.LiveSignature != "" {
		return h.LiveSignature
	}
	return h.TestSignature
}

// ParseSignatureHeader splits the signature header into its fields
func ParseSignatureHeader(header string) (*SignatureHeader, error) {
	parsed := &SignatureHeader{}
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			parsed.Timestamp = value
		case "te":
			parsed.TestSignature = value
		case "li":
			parsed.LiveSignature = value
		}
	}

	if parsed.Timestamp == "" {
		return nil, fmt.Errorf("signature header has no timestamp")
	}
	if parsed.Signature() == "" {
		return nil, fmt.Errorf("signature header has no signature")
	}
	return parsed, nil
}

// ComputeSignature returns hex(HMAC-SHA256(secret, "{timestamp}.{body}"))
func ComputeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the signature header against the raw body in constant time
func (s *PayMongoService) VerifySignature(header string, body []byte) error {
	parsed, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	if s.config.SignatureTolerance > 0 {
		ts, err := strconv.ParseInt(parsed.Timestamp, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid signature timestamp: %w", err)
		}
		age := s.now().Sub(time.Unix(ts, 0))
		if math.Abs(float64(age)) > float64(s.config.SignatureTolerance) {
			return fmt.Errorf("signature timestamp outside tolerance (%s)", age.Round(time.Second))
		}
	}

	expected := ComputeSignature(s.config.WebhookSecret, parsed.Timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(parsed.Signature()))) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// ToMinorUnits converts an amount to centavos/cents
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts centavos/cents to an amount
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
