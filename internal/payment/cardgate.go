package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"storepay-core/internal/config"
	"storepay-core/internal/logger"
	"storepay-core/internal/signature"
	"storepay-core/internal/transport"

	"go.uber.org/zap"
)

// cardSecretField is the key under which the terminal secret joins the
// signing field set. The key name participates in the alphabetical
// ordering, so it is part of the wire protocol.
const cardSecretField = "Password"

// cardUnsignedFields are excluded from signing input: the digest itself
// plus the nested structures the protocol leaves out. This is a provider
// protocol quirk, preserved exactly.
var cardUnsignedFields = map[string]struct{}{
	"Token":   {},
	"Receipt": {},
	"DATA":    {},
}

type cardGateway struct {
	terminalID string
	secret     string
	baseURL    string
	sandbox    bool
	client     *transport.Client
	events     EventLog
}

// NewCardGateway adapts the bank card processor: requests are signed with
// the terminal's shared secret, callbacks carry the same keyed digest.
func NewCardGateway(creds config.CardCredentials, client *transport.Client, events EventLog) Provider {
	if creds.TerminalID == "" || creds.Secret == "" {
		logger.L().Warn("card processor credentials are incomplete; createPayment will fail")
	}
	return &cardGateway{
		terminalID: creds.TerminalID,
		secret:     creds.Secret,
		baseURL:    creds.BaseURL,
		sandbox:    creds.Sandbox,
		client:     client,
		events:     events,
	}
}

func (g *cardGateway) Name() string { return ProviderCardGate }

func (g *cardGateway) CreatePayment(ctx context.Context, req PaymentRequest) (*CreateResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("provider", ProviderCardGate),
		zap.String("order_id", req.OrderID),
		zap.Int64("amount_minor", req.AmountMinor),
	)

	if g.terminalID == "" || g.secret == "" {
		return nil, &ConfigError{Provider: ProviderCardGate, Reason: "terminal id and shared secret are required"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	signFields := map[string]string{
		"TerminalKey": g.terminalID,
		"Amount":      strconv.FormatInt(req.AmountMinor, 10),
		"OrderId":     req.OrderID,
	}
	if req.Description != "" {
		signFields["Description"] = req.Description
	}
	if req.SuccessURL != "" {
		signFields["SuccessURL"] = req.SuccessURL
	}
	if req.FailURL != "" {
		signFields["FailURL"] = req.FailURL
	}
	if req.CallbackURL != "" {
		signFields["NotificationURL"] = req.CallbackURL
	}

	body := make(map[string]interface{}, len(signFields)+3)
	for k, v := range signFields {
		body[k] = v
	}
	// Amount travels as a number; its signed representation is the same
	// decimal string.
	body["Amount"] = req.AmountMinor
	body["Token"] = signature.Sign(signFields, cardSecretField, g.secret)

	if req.CustomerEmail != "" || req.CustomerPhone != "" {
		data := map[string]string{}
		if req.CustomerEmail != "" {
			data["Email"] = req.CustomerEmail
		}
		if req.CustomerPhone != "" {
			data["Phone"] = req.CustomerPhone
		}
		body["DATA"] = data
	}

	// Real terminals reject requests without a fiscal receipt.
	if !g.sandbox {
		body["Receipt"] = buildCardReceipt(req)
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card init request: %w", err)
	}

	// The audit entry must be written even when the caller has already
	// disconnected: a later callback for this payment still needs to be
	// reconciled against something.
	logCtx := context.WithoutCancel(ctx)
	var paymentID string
	defer func() {
		if _, aerr := g.events.AppendOutbound(logCtx, ProviderCardGate, req.OrderID, paymentID, jsonBody); aerr != nil {
			log.Error("failed to record outbound payment event", zap.Error(aerr))
		}
	}()

	log.Info("sending card payment init")

	resp, err := g.client.Do(ctx, http.MethodPost, g.baseURL+"/v2/Init",
		map[string]string{"Content-Type": "application/json"}, jsonBody)
	if err != nil {
		log.Error("card init request failed", zap.Error(err))
		return nil, err
	}

	var res struct {
		Success    bool        `json:"Success"`
		ErrorCode  string      `json:"ErrorCode"`
		Message    string      `json:"Message"`
		Status     string      `json:"Status"`
		PaymentID  json.Number `json:"PaymentId"`
		PaymentURL string      `json:"PaymentURL"`
	}
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		log.Error("failed to decode card init response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode card init response: %w", err)
	}

	if !res.Success {
		log.Warn("card processor rejected init",
			zap.String("error_code", res.ErrorCode),
			zap.String("message", res.Message),
		)
		return nil, &ProviderError{Provider: ProviderCardGate, Code: res.ErrorCode, Message: res.Message}
	}

	paymentID = res.PaymentID.String()
	log.Info("card payment created",
		zap.String("payment_id", paymentID),
		zap.String("status", res.Status),
	)

	return &CreateResult{
		PaymentURL:        res.PaymentURL,
		ProviderPaymentID: paymentID,
	}, nil
}

// buildCardReceipt produces the fiscal receipt block. Item amounts must
// sum exactly to the order total; a rounding mismatch is corrected by
// adjusting the last item rather than failing the request.
func buildCardReceipt(req PaymentRequest) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(req.LineItems))
	var sum int64
	for _, li := range req.LineItems {
		amount := li.UnitPriceMinor * li.Quantity
		sum += amount
		items = append(items, map[string]interface{}{
			"Name":     li.Name,
			"Price":    li.UnitPriceMinor,
			"Quantity": li.Quantity,
			"Amount":   amount,
			"Tax":      "none",
		})
	}

	if diff := req.AmountMinor - sum; diff != 0 && len(items) > 0 {
		last := items[len(items)-1]
		last["Amount"] = last["Amount"].(int64) + diff
	}

	receipt := map[string]interface{}{
		"Items":    items,
		"Taxation": "usn_income",
	}
	if req.CustomerEmail != "" {
		receipt["Email"] = req.CustomerEmail
	}
	if req.CustomerPhone != "" {
		receipt["Phone"] = req.CustomerPhone
	}
	return receipt
}

func (g *cardGateway) ParseCallback(ctx context.Context, body []byte, header http.Header) (*CallbackResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("provider", ProviderCardGate))

	var orderID, paymentID, rawStatus string
	verified := false

	fields, err := decodeFlatFields(body, header.Get("Content-Type"))
	if err != nil {
		log.Warn("undecodable card callback body", zap.Error(err))
	} else {
		orderID = fields["OrderId"]
		paymentID = fields["PaymentId"]
		rawStatus = fields["Status"]

		signInput := make(map[string]string, len(fields))
		for k, v := range fields {
			if _, skip := cardUnsignedFields[k]; skip {
				continue
			}
			signInput[k] = v
		}

		candidate := fields["Token"]
		verified = candidate != "" && signature.Verify(signInput, cardSecretField, g.secret, candidate)
		if !verified {
			log.Warn("card callback failed signature check",
				zap.String("order_id", orderID),
				zap.String("payment_id", paymentID),
				zap.String("raw_status", rawStatus),
			)
		}
	}

	eventID, aerr := g.events.AppendInbound(ctx, ProviderCardGate, orderID, paymentID, rawStatus, body, verified)
	if aerr != nil {
		return nil, fmt.Errorf("failed to record inbound payment event: %w", aerr)
	}

	return &CallbackResult{
		EventID:   eventID,
		OrderID:   orderID,
		PaymentID: paymentID,
		RawStatus: rawStatus,
		Verified:  verified,
	}, nil
}

// AckResponse is always success-shaped: the processor retries any other
// shape indefinitely, even for payloads we could not verify.
func (g *cardGateway) AckResponse(bool) Ack {
	body, _ := json.Marshal(map[string]string{
		"TerminalKey": g.terminalID,
		"Status":      "OK",
	})
	return Ack{StatusCode: http.StatusOK, Body: body}
}
