package main

import (
	"flag"
	"os"

	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/services"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/sirupsen/logrus"
)

// One-shot reconciliation run for operators and cron-less deployments.
// Runs every sweep once and exits non-zero if any record failed.
func main() {
	var sweep string
	flag.StringVar(&sweep, "sweep", "all", "sweep to run: all, payments, departures, poll")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pgDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	bookingRepo := database.NewBookingRepository(pgDB.DB)
	ticketRepo := database.NewTicketRepository(pgDB.DB)
	paymentRepo := database.NewPaymentRepository(pgDB.DB)
	bookingLogRepo := database.NewBookingLogRepository(pgDB.DB)
	scheduleDateRepo := database.NewScheduleDateRepository(pgDB.DB)

	var sink notify.Sink
	if cfg.Notification.WebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.Notification.WebhookURL)
	} else {
		sink = notify.NewLogSink(logger)
	}

	clock := services.SystemClock()
	ledger := services.NewCapacityLedger(scheduleDateRepo, logger)
	statusService := services.NewBookingStatusService(db, bookingRepo, ticketRepo, bookingLogRepo, ledger, sink, logger)
	midtransService := services.NewMidtransService(&cfg.Midtrans, logger)
	paymentService := services.NewPaymentService(paymentRepo, bookingRepo, statusService, midtransService, sink, clock, logger)
	reconciliationService := services.NewReconciliationService(
		db, bookingRepo, ticketRepo, paymentRepo, scheduleDateRepo,
		statusService, paymentService, midtransService,
		sink, clock, &cfg.Sweep, logger,
	)

	errCount := 0
	switch sweep {
	case "payments":
		_, errCount = reconciliationService.ExpirePendingPayments()
	case "departures":
		_, _, errCount = reconciliationService.SettlePastDepartures()
	case "poll":
		_, errCount = reconciliationService.PollPendingPayments()
	case "all":
		report := reconciliationService.RunAll()
		errCount = report.Errors
	default:
		logger.Fatalf("Unknown sweep: %s", sweep)
	}

	if errCount > 0 {
		logger.WithField("errors", errCount).Error("Reconciliation finished with errors")
		os.Exit(1)
	}
	logger.Info("Reconciliation finished")
}
