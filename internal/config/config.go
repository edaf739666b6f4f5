package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// CardCredentials is the shared-secret signing material for the card
// processor terminal.
type CardCredentials struct {
	TerminalID string
	Secret     string
	BaseURL    string
	Sandbox    bool
}

// InstallmentCredentials combines Basic-Auth login material with the
// client-certificate files the installment provider mandates for mTLS.
type InstallmentCredentials struct {
	Login    string
	Password string
	BaseURL  string
	CertFile string
	KeyFile  string
	CAFile   string
}

// WalletCredentials is the bearer material for the wallet provider. The
// API key also verifies the HS256 token on inbound callbacks.
type WalletCredentials struct {
	MerchantID  string
	APIKey      string
	Environment string
}

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	CallbackBaseURL string
	SuccessURL      string
	FailURL         string

	Card        CardCredentials
	Installment InstallmentCredentials
	Wallet      WalletCredentials

	TelegramToken  string
	TelegramChatID int64
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    os.Getenv("APP_PORT"),
		AppEnv:     os.Getenv("APP_ENV"),

		CallbackBaseURL: os.Getenv("CALLBACK_BASE_URL"),
		SuccessURL:      os.Getenv("SUCCESS_URL"),
		FailURL:         os.Getenv("FAIL_URL"),

		Card: CardCredentials{
			TerminalID: os.Getenv("CARDGATE_TERMINAL_ID"),
			Secret:     os.Getenv("CARDGATE_SECRET"),
			BaseURL:    os.Getenv("CARDGATE_BASE_URL"),
			Sandbox:    os.Getenv("CARDGATE_SANDBOX") == "true",
		},
		Installment: InstallmentCredentials{
			Login:    os.Getenv("INSTALLMENT_LOGIN"),
			Password: os.Getenv("INSTALLMENT_PASSWORD"),
			BaseURL:  os.Getenv("INSTALLMENT_BASE_URL"),
			CertFile: os.Getenv("INSTALLMENT_CERT_FILE"),
			KeyFile:  os.Getenv("INSTALLMENT_KEY_FILE"),
			CAFile:   os.Getenv("INSTALLMENT_CA_FILE"),
		},
		Wallet: WalletCredentials{
			MerchantID:  os.Getenv("WALLET_MERCHANT_ID"),
			APIKey:      os.Getenv("WALLET_API_KEY"),
			Environment: os.Getenv("WALLET_ENVIRONMENT"),
		},

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: chatID,
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}
