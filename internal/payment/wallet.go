package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"storepay-core/internal/config"
	"storepay-core/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// walletTokenHeader carries an HS256 token signed with the merchant API
// key; its payment_id claim must match the callback body.
const walletTokenHeader = "X-Wallet-Token"

type walletClaims struct {
	PaymentID string `json:"payment_id"`
	jwt.RegisteredClaims
}

type walletGateway struct {
	merchantID  string
	apiKey      string
	environment string
	events      EventLog
}

// NewWalletGateway adapts the wallet provider. Payment creation is
// client-side: the adapter returns configuration for the provider SDK and
// never calls the provider server-side. Only the callback path reaches
// this process.
func NewWalletGateway(creds config.WalletCredentials, events EventLog) Provider {
	if creds.MerchantID == "" || creds.APIKey == "" {
		logger.L().Warn("wallet provider credentials are incomplete; createPayment will fail")
	}
	env := creds.Environment
	if env == "" {
		env = "sandbox"
	}
	return &walletGateway{
		merchantID:  creds.MerchantID,
		apiKey:      creds.APIKey,
		environment: env,
		events:      events,
	}
}

func (g *walletGateway) Name() string { return ProviderWallet }

func (g *walletGateway) CreatePayment(ctx context.Context, req PaymentRequest) (*CreateResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("provider", ProviderWallet),
		zap.String("order_id", req.OrderID),
		zap.Int64("amount_minor", req.AmountMinor),
	)

	if g.merchantID == "" || g.apiKey == "" {
		return nil, &ConfigError{Provider: ProviderWallet, Reason: "merchant id and api key are required"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sdkConfig := map[string]string{
		"merchant_id":  g.merchantID,
		"environment":  g.environment,
		"order_id":     req.OrderID,
		"amount_minor": strconv.FormatInt(req.AmountMinor, 10),
		"currency":     req.Currency,
		"description":  req.Description,
	}

	payload, err := json.Marshal(sdkConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wallet sdk config: %w", err)
	}

	if _, aerr := g.events.AppendOutbound(context.WithoutCancel(ctx), ProviderWallet, req.OrderID, "", payload); aerr != nil {
		log.Error("failed to record outbound payment event", zap.Error(aerr))
	}

	log.Info("wallet sdk config issued")

	// The provider assigns a payment id only once the client-side SDK
	// completes; it arrives with the callback.
	return &CreateResult{SDKConfig: sdkConfig}, nil
}

func (g *walletGateway) ParseCallback(ctx context.Context, body []byte, header http.Header) (*CallbackResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("provider", ProviderWallet))

	var orderID, paymentID, rawStatus string
	verified := false

	fields, err := decodeFlatFields(body, header.Get("Content-Type"))
	if err != nil {
		log.Warn("undecodable wallet callback body", zap.Error(err))
	} else {
		orderID = fields["order_id"]
		paymentID = fields["payment_id"]
		rawStatus = fields["status"]

		if claims, verr := g.verifyToken(header.Get(walletTokenHeader)); verr != nil {
			log.Warn("wallet callback token rejected",
				zap.Error(verr),
				zap.String("order_id", orderID),
				zap.String("payment_id", paymentID),
			)
		} else {
			verified = claims.PaymentID == paymentID && paymentID != ""
			if !verified {
				log.Warn("wallet callback token does not match payload",
					zap.String("order_id", orderID),
					zap.String("payment_id", paymentID),
				)
			}
		}
	}

	eventID, aerr := g.events.AppendInbound(ctx, ProviderWallet, orderID, paymentID, rawStatus, body, verified)
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

func (g *walletGateway) verifyToken(tokenStr string) (*walletClaims, error) {
	if tokenStr == "" {
		return nil, errors.New("missing callback token")
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&walletClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(g.apiKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*walletClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid callback token")
	}
	return claims, nil
}

func (g *walletGateway) AckResponse(bool) Ack {
	body, _ := json.Marshal(map[string]bool{"ok": true})
	return Ack{StatusCode: http.StatusOK, Body: body}
}
