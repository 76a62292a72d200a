package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/amberwayequine/crm-backend/api/routes"
	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/internal/billing"
	"github.com/amberwayequine/crm-backend/internal/communications"
	"github.com/amberwayequine/crm-backend/internal/contacts"
	"github.com/amberwayequine/crm-backend/internal/deals"
	"github.com/amberwayequine/crm-backend/internal/purchaseorders"
	"github.com/amberwayequine/crm-backend/internal/shipments"
	"github.com/amberwayequine/crm-backend/internal/tasks"
	"github.com/amberwayequine/crm-backend/pkg/config"
	"github.com/amberwayequine/crm-backend/pkg/db"
	"github.com/amberwayequine/crm-backend/pkg/gmail"
	"github.com/amberwayequine/crm-backend/pkg/logger"
	"github.com/amberwayequine/crm-backend/pkg/migrate"
	"github.com/amberwayequine/crm-backend/pkg/openai"
	"github.com/amberwayequine/crm-backend/pkg/redis"
	"github.com/amberwayequine/crm-backend/pkg/twilio"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	activityRepo := activity.NewRepository(gormDB)
	commsRepo := communications.NewRepository(gormDB)
	contactsRepo := contacts.NewRepository(gormDB)
	dealsRepo := deals.NewRepository(gormDB)
	tasksRepo := tasks.NewRepository(gormDB)
	shipmentsRepo := shipments.NewRepository(gormDB)
	purchaseOrdersRepo := purchaseorders.NewRepository(gormDB)
	billingRepo := billing.NewRepository(gormDB)

	activitySvc, err := activity.NewService(activityRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}

	// Providers stay nil when unconfigured; sends fail open and still log
	// the communication row.
	var emailSender communications.EmailSender
	if cfg.Gmail.Configured() {
		client, err := gmail.NewClient(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, cfg.Gmail.RefreshToken, cfg.Gmail.FromAddress)
		if err != nil {
			logg.Error(context.Background(), "failed to create gmail client", err)
			os.Exit(1)
		}
		emailSender = client
	}
	var smsSender communications.SMSSender
	if cfg.Twilio.Configured() {
		client, err := twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber)
		if err != nil {
			logg.Error(context.Background(), "failed to create twilio client", err)
			os.Exit(1)
		}
		smsSender = client
	}
	var drafter communications.Drafter
	if cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(cfg.OpenAI.APIKey, openai.WithModel(cfg.OpenAI.Model))
		if err != nil {
			logg.Error(context.Background(), "failed to create openai client", err)
			os.Exit(1)
		}
		drafter = client
	}

	commsSvc, err := communications.NewService(commsRepo, contactsRepo, activitySvc, emailSender, smsSender, drafter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create communications service", err)
		os.Exit(1)
	}
	contactsSvc, err := contacts.NewService(contactsRepo, activitySvc, commsSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create contacts service", err)
		os.Exit(1)
	}
	tasksSvc, err := tasks.NewService(tasksRepo, dealsRepo, contactsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create tasks service", err)
		os.Exit(1)
	}
	dealsSvc, err := deals.NewService(dbClient, dealsRepo, activitySvc, commsRepo, tasksSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deals service", err)
		os.Exit(1)
	}
	shipmentsSvc, err := shipments.NewService(dbClient, shipmentsRepo, dealsRepo, tasksRepo, contactsRepo, activitySvc, commsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipments service", err)
		os.Exit(1)
	}
	purchaseOrdersSvc, err := purchaseorders.NewService(dbClient, purchaseOrdersRepo, dealsRepo, shipmentsRepo, commsRepo, activitySvc, cfg.Company)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase orders service", err)
		os.Exit(1)
	}
	billingSvc, err := billing.NewService(dbClient, billingRepo, dealsRepo, activitySvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.New(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Cache:          redisClient,
			Contacts:       contactsSvc,
			Deals:          dealsSvc,
			Tasks:          tasksSvc,
			PurchaseOrders: purchaseOrdersSvc,
			Shipments:      shipmentsSvc,
			Communications: commsSvc,
			Activity:       activitySvc,
			Billing:        billingSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
