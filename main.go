package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rpupo63/client-project-portal/api"
	"github.com/rpupo63/client-project-portal/config"
	"github.com/rpupo63/client-project-portal/database"
	"github.com/rpupo63/client-project-portal/models"
	"github.com/rpupo63/client-project-portal/services"
)

// errGenerated stops startup after a one-off code generation run.
var errGenerated = errors.New("generation finished")

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	ctx := context.Background()
	c := config.New()

	if prefix := config.GetString(c, "SSM_PARAMETER_PATH", ""); prefix != "" {
		client, err := config.NewSSMClient(ctx, config.GetString(c, "AWS_REGION", ""))
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating SSM client")
		}
		params, err := config.LoadParameters(ctx, client, prefix)
		if err != nil {
			log.Fatal().Err(err).Str("path", prefix).Msg("Error loading SSM parameters")
		}
		c.Merge(params)
		log.Info().Int("count", len(params)).Str("path", prefix).Msg("Loaded parameters from SSM")
	}

	store, err := openStore(ctx, c)
	if errors.Is(err, errGenerated) {
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening store")
	}

	storage, err := services.NewInvoiceStorage(ctx, services.StorageConfig{
		Bucket:        config.GetString(c, "INVOICE_BUCKET", ""),
		Region:        config.GetString(c, "AWS_REGION", ""),
		PublicBaseURL: config.GetString(c, "INVOICE_PUBLIC_BASE_URL", ""),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing invoice storage")
	}

	mailer := services.NewMailer(services.MailConfig{
		Provider:     config.GetString(c, "MAIL_PROVIDER", "smtp"),
		SMTPHost:     config.GetString(c, "SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     config.GetInt(c, "SMTP_PORT", 587),
		SMTPUser:     config.GetString(c, "SMTP_USER", ""),
		SMTPPassword: config.GetString(c, "SMTP_PASSWORD", ""),
		ResendAPIKey: config.GetString(c, "RESEND_API_KEY", ""),
	})
	notifier := services.NewNotificationService(
		mailer,
		config.GetString(c, "MAIL_FROM", config.GetString(c, "SMTP_USER", "")),
		config.GetString(c, "FRONTEND_URL", "http://localhost:3000"),
	)

	projects := services.NewProjectService(store, storage, notifier)
	deps := api.Dependencies{
		Projects: projects,
		Invoices: services.NewInvoiceService(store),
		Checkout: services.NewCheckoutService(projects, services.CheckoutConfig{
			SecretKey:     config.GetString(c, "STRIPE_SECRET_KEY", ""),
			WebhookSecret: config.GetString(c, "STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:    config.GetString(c, "CHECKOUT_SUCCESS_URL", ""),
			CancelURL:     config.GetString(c, "CHECKOUT_CANCEL_URL", ""),
			Currency:      config.GetString(c, "CHECKOUT_CURRENCY", ""),
		}),
	}

	// Both the server and the signal listener send once.
	errChannel := make(chan error, 2)

	server, err := api.NewServer(c, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("Error closing store")
	}
}

// openStore connects the backend named by DB_TYPE.
func openStore(ctx context.Context, c config.Config) (database.Store, error) {
	dbType := strings.ToLower(config.GetString(c, "DB_TYPE", "supa"))
	log.Info().Str("dbType", dbType).Msg("Selecting store")

	switch dbType {
	case "supa", "postgres":
		return openPostgres(c)
	case "mongo":
		log.Info().Msg("Connecting to MongoDB...")
		store, err := database.ConnectMongo(ctx, database.MongoConfig{
			URI:               config.GetString(c, "MONGODB_URI", ""),
			Database:          config.GetString(c, "MONGODB_DATABASE", "client_portal"),
			PoolSize:          uint64(config.GetInt(c, "MONGODB_POOL_SIZE", 10)),
			HeartbeatInterval: config.GetSeconds(c, "MONGODB_HEARTBEAT_SECONDS", 10),
			MaxConnIdleTime:   config.GetSeconds(c, "MONGODB_MAX_IDLE_SECONDS", 30),
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return database.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}
}

func openPostgres(c config.Config) (database.Store, error) {
	connStr := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		config.GetString(c, "SUPABASE_DB_HOST", ""),
		config.GetString(c, "SUPABASE_DB_USER", ""),
		config.GetString(c, "SUPABASE_DB_PASSWORD", ""),
		config.GetString(c, "SUPABASE_DB_NAME", ""),
		config.GetString(c, "SUPABASE_DB_PORT", "5432"),
		config.GetString(c, "SUPABASE_DB_SSLMODE", "require"),
	)
	log.Info().Msg("Connecting to Supabase database...")

	newLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
		Logger:      newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	// Test database connection
	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("test database connection: %w", err)
	}

	if host := config.GetString(c, "DB_REPLICA_HOST", ""); host != "" {
		replicaDSN := strings.Replace(connStr, "host="+config.GetString(c, "SUPABASE_DB_HOST", ""), "host="+host, 1)
		if err := database.UseReplicas(db, postgres.New(postgres.Config{DSN: replicaDSN, PreferSimpleProtocol: true})); err != nil {
			return nil, err
		}
		log.Info().Str("replica", host).Msg("Read replica registered")
	}

	// If generating models, run generation and exit
	if config.GetBool(c, "GENERATE_MODELS", false) {
		log.Info().Msg("Generating models and query helpers...")
		if err := models.GenerateModels(db); err != nil {
			return nil, err
		}
		return nil, errGenerated
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
		log.Info().Msg("Generating column mismatch report...")
		models.GenerateColumnMismatchReport(db)
		return nil, errGenerated
	}

	store := database.New(db)
	if config.GetBool(c, "AUTO_MIGRATE", true) {
		if err := store.Migrate(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
