package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storepay-core/internal/config"
	"storepay-core/internal/db"
	"storepay-core/internal/logger"
	"storepay-core/internal/metrics"
	"storepay-core/internal/middleware"
	"storepay-core/internal/notify"
	"storepay-core/internal/order"
	"storepay-core/internal/payment"
	"storepay-core/internal/payment/webhook"
	"storepay-core/internal/transport"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	events := payment.NewEventLog(database)
	orders := order.NewStore(database)

	cardGateway := payment.NewCardGateway(cfg.Card, transport.New(transport.DefaultTimeout), events)
	installmentGateway := payment.NewInstallmentGateway(cfg.Installment, events)
	walletGateway := payment.NewWalletGateway(cfg.Wallet, events)

	svc := payment.NewService(cardGateway, installmentGateway, walletGateway)
	reconciler := order.NewReconciler(orders, events)
	notifier := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	stats := &metrics.Webhook{}

	hooks := webhook.NewHandler(svc, payment.NewStatusMapper(), reconciler, notifier, stats, cfg.Card.Sandbox)

	router := setupRouter(hooks, paymentsHandler(svc, orders))

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: middleware.RateLimitMiddleware(logger.RequestIDMiddleware(logger.LoggingMiddleware(router))),
	}

	go func() {
		logger.L().Info("payment core listening", zap.String("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.L().Info("shutting down", zap.Any("webhook_stats", stats.Snapshot()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
}

func setupRouter(hooks *webhook.Handler, payments http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	hooks.Register(mux)
	mux.HandleFunc("/payments", payments)

	return mux
}

type createPaymentRequest struct {
	Provider string                 `json:"provider"`
	Request  payment.PaymentRequest `json:"request"`
}

// paymentsHandler is the surface the checkout collaborator calls. POST
// creates a payment and returns a payment URL (or wallet SDK config), or
// an error the caller can classify: retryable transient failures versus
// definitive rejections. GET re-fetches the payment attached to an order,
// so an interrupted checkout can resume without a second provider call.
func paymentsHandler(svc *payment.Service, orders order.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createPayment(svc, orders, w, r)
		case http.MethodGet:
			lookupPayment(orders, w, r)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	}
}

func createPayment(svc *payment.Service, orders order.Store, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx)

	var in createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := svc.CreatePayment(ctx, in.Provider, in.Request)
	if err != nil {
		status := http.StatusBadRequest
		body := map[string]interface{}{"error": "payment could not be created"}
		switch {
		case transport.IsTransient(err):
			status = http.StatusServiceUnavailable
			body["retryable"] = true
		case payment.IsConfigError(err):
			status = http.StatusInternalServerError
		}
		log.Warn("create payment failed",
			zap.String("provider", in.Provider),
			zap.String("order_id", in.Request.OrderID),
			zap.Error(err),
		)
		writeJSON(w, status, body)
		return
	}

	if result.ProviderPaymentID != "" || result.PaymentURL != "" {
		meta := order.PaymentMeta{
			Provider:   in.Provider,
			PaymentID:  result.ProviderPaymentID,
			PaymentURL: result.PaymentURL,
		}
		if err := orders.AttachPaymentMeta(ctx, in.Request.OrderID, meta); err != nil {
			log.Warn("failed to attach payment meta",
				zap.String("order_id", in.Request.OrderID),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payment_url": result.PaymentURL,
		"payment_id":  result.ProviderPaymentID,
		"sdk_config":  result.SDKConfig,
	})
}

func lookupPayment(orders order.Store, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_id is required"})
		return
	}

	summary, err := orders.GetOrder(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		logger.FromCtx(ctx).Error("order lookup failed", zap.String("order_id", orderID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "order lookup failed"})
		return
	}

	resp := map[string]interface{}{
		"order_id": summary.ID,
		"status":   summary.Status,
	}

	meta, err := orders.GetPaymentMeta(ctx, orderID)
	if err != nil && !errors.Is(err, order.ErrNotFound) {
		logger.FromCtx(ctx).Warn("payment meta lookup failed", zap.String("order_id", orderID), zap.Error(err))
	}
	if meta != nil {
		resp["provider"] = meta.Provider
		resp["payment_id"] = meta.PaymentID
		resp["payment_url"] = meta.PaymentURL
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
