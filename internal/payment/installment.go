package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"storepay-core/internal/config"
	"storepay-core/internal/logger"
	"storepay-core/internal/signature"
	"storepay-core/internal/transport"

	"go.uber.org/zap"
)

// installmentSignatureHeader carries the HMAC-SHA256 of the raw callback
// body, keyed with the merchant password.
const installmentSignatureHeader = "X-Signature"

type installmentGateway struct {
	login    string
	password string
	baseURL  string
	client   *transport.Client // nil when mTLS material is not configured
	events   EventLog
}

// NewInstallmentGateway adapts the installment provider. The provider
// mandates mutual TLS: when the certificate material is absent the
// adapter is constructed in a degraded state where createPayment fails
// fast instead of attempting a plain call the provider would reject.
func NewInstallmentGateway(creds config.InstallmentCredentials, events EventLog) Provider {
	g := &installmentGateway{
		login:    creds.Login,
		password: creds.Password,
		baseURL:  creds.BaseURL,
		events:   events,
	}

	client, err := transport.NewMTLS(transport.CertConfig{
		CertFile: creds.CertFile,
		KeyFile:  creds.KeyFile,
		CAFile:   creds.CAFile,
	}, transport.DefaultTimeout)
	if err != nil {
		logger.L().Warn("installment provider mTLS unavailable", zap.Error(err))
		return g
	}

	g.client = client
	return g
}

func (g *installmentGateway) Name() string { return ProviderInstallment }

func (g *installmentGateway) CreatePayment(ctx context.Context, req PaymentRequest) (*CreateResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("provider", ProviderInstallment),
		zap.String("order_id", req.OrderID),
		zap.Int64("amount_minor", req.AmountMinor),
	)

	if g.client == nil {
		return nil, &ConfigError{Provider: ProviderInstallment, Reason: "mTLS not configured"}
	}
	if g.login == "" || g.password == "" {
		return nil, &ConfigError{Provider: ProviderInstallment, Reason: "login and password are required"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, map[string]interface{}{
			"name":     li.Name,
			"price":    li.UnitPriceMinor,
			"quantity": li.Quantity,
		})
	}

	body := map[string]interface{}{
		"orderId":     req.OrderID,
		"amount":      req.AmountMinor,
		"currency":    req.Currency,
		"items":       items,
		"successUrl":  req.SuccessURL,
		"failUrl":     req.FailURL,
		"webhookUrl":  req.CallbackURL,
		"description": req.Description,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal installment order: %w", err)
	}

	logCtx := context.WithoutCancel(ctx)
	var creditID string
	defer func() {
		if _, aerr := g.events.AppendOutbound(logCtx, ProviderInstallment, req.OrderID, creditID, jsonBody); aerr != nil {
			log.Error("failed to record outbound payment event", zap.Error(aerr))
		}
	}()

	log.Info("sending installment order")

	resp, err := g.client.Do(ctx, http.MethodPost, g.baseURL+"/orders/create",
		map[string]string{
			"Content-Type":  "application/json",
			"Authorization": basicAuth(g.login, g.password),
		}, jsonBody)
	if err != nil {
		log.Error("installment order request failed", zap.Error(err))
		return nil, err
	}

	var res struct {
		ID      string `json:"id"`
		Link    string `json:"link"`
		Status  string `json:"status"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return nil, fmt.Errorf("failed to decode installment response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || res.ID == "" {
		log.Warn("installment provider rejected order",
			zap.Int("http_status", resp.StatusCode),
			zap.String("code", res.Code),
			zap.String("message", res.Message),
		)
		return nil, &ProviderError{Provider: ProviderInstallment, Code: res.Code, Message: res.Message}
	}

	creditID = res.ID
	log.Info("installment order created",
		zap.String("credit_id", creditID),
		zap.String("status", res.Status),
	)

	return &CreateResult{
		PaymentURL:        res.Link,
		ProviderPaymentID: creditID,
	}, nil
}

func (g *installmentGateway) ParseCallback(ctx context.Context, body []byte, header http.Header) (*CallbackResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("provider", ProviderInstallment))

	var orderID, creditID, rawStatus string

	// The HMAC covers the raw bytes, so verification happens before any
	// decoding can alter them.
	candidate := header.Get(installmentSignatureHeader)
	verified := candidate != "" && signature.VerifyHMAC(body, g.password, candidate)

	fields, err := decodeFlatFields(body, header.Get("Content-Type"))
	if err != nil {
		log.Warn("undecodable installment callback body", zap.Error(err))
		verified = false
	} else {
		orderID = fields["orderId"]
		creditID = fields["id"]
		rawStatus = fields["status"]
	}

	if !verified {
		log.Warn("installment callback failed HMAC check",
			zap.String("order_id", orderID),
			zap.String("credit_id", creditID),
			zap.String("raw_status", rawStatus),
		)
	}

	eventID, aerr := g.events.AppendInbound(ctx, ProviderInstallment, orderID, creditID, rawStatus, body, verified)
	if aerr != nil {
		return nil, fmt.Errorf("failed to record inbound payment event: %w", aerr)
	}

	return &CallbackResult{
		EventID:   eventID,
		OrderID:   orderID,
		PaymentID: creditID,
		RawStatus: rawStatus,
		Verified:  verified,
	}, nil
}

func (g *installmentGateway) AckResponse(bool) Ack {
	body, _ := json.Marshal(map[string]bool{"ok": true})
	return Ack{StatusCode: http.StatusOK, Body: body}
}

func basicAuth(login, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(login+":"+password))
}
