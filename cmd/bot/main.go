package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/stroyrent/rentbot/internal/api/http"
	"github.com/stroyrent/rentbot/internal/application/availability"
	bookingapp "github.com/stroyrent/rentbot/internal/application/booking"
	"github.com/stroyrent/rentbot/internal/application/dialog"
	paymentapp "github.com/stroyrent/rentbot/internal/application/payment"
	"github.com/stroyrent/rentbot/internal/config"
	"github.com/stroyrent/rentbot/internal/infrastructure/memstore"
	"github.com/stroyrent/rentbot/internal/infrastructure/postgres"
	"github.com/stroyrent/rentbot/internal/infrastructure/telegram"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	equipmentRepo := postgres.NewEquipmentRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)
	rentalRepo := postgres.NewRentalRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	sessions := memstore.NewSessionStore()

	// services; the transport doubles as the notifier, so services are
	// wired first and the notifier is attached through a late binding
	notifier := &lateNotifier{}
	availSvc := availability.NewService(equipmentRepo, rentalRepo, logger)
	bookingSvc := bookingapp.NewService(bookingRepo, equipmentRepo, notifier, logger)
	paymentSvc := paymentapp.NewService(bookingRepo, rentalRepo, paymentRepo, notifier, cfg.Currency, logger)
	machine := dialog.NewMachine(sessions, equipmentRepo, companyRepo, availSvc, bookingSvc, paymentSvc, logger)

	transport, err := telegram.New(telegram.Config{
		Token:          cfg.BotToken,
		ProviderToken:  cfg.PaymentProviderToken,
		OperatorChatID: cfg.OperatorChatID,
	}, machine, paymentSvc, logger)
	if err != nil {
		log.Fatalf("bot error: %v", err)
	}
	notifier.bind(transport)

	// operator API
	apiServer := httpapi.NewServer(bookingRepo, paymentRepo, logger)
	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// idle session eviction
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessions.Sweep(cfg.SessionTTL); n > 0 {
					logger.Info().Int("evicted", n).Msg("idle sessions swept")
				}
			}
		}
	}()

	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	logger.Info().Msg("bot started")
	transport.Start(ctx)

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

// lateNotifier breaks the construction cycle between the services and the
// transport that delivers their notifications.
type lateNotifier struct {
	target bookingapp.Notifier
}

func (n *lateNotifier) bind(target bookingapp.Notifier) { n.target = target }

func (n *lateNotifier) NotifyOperator(ctx context.Context, text string) error {
	if n.target == nil {
		return nil
	}
	return n.target.NotifyOperator(ctx, text)
}

func (n *lateNotifier) NotifyRequester(ctx context.Context, conversationID int64, text string) error {
	if n.target == nil {
		return nil
	}
	return n.target.NotifyRequester(ctx, conversationID, text)
}
