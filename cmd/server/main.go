package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/duemate/duemate/internal/api"
	v1 "github.com/duemate/duemate/internal/api/v1"
	"github.com/duemate/duemate/internal/config"
	"github.com/duemate/duemate/internal/dynamodb"
	"github.com/duemate/duemate/internal/logger"
	"github.com/duemate/duemate/internal/pdf"
	"github.com/duemate/duemate/internal/repository/dynamo"
	"github.com/duemate/duemate/internal/service"
	"github.com/duemate/duemate/internal/validator"

	_ "github.com/duemate/duemate/docs/swagger"
	"github.com/duemate/duemate/internal/domain/invoice"
)

// @title DueMate API
// @version 1.0
// @description Invoice management API
// @BasePath /api
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC

	// Monetary amounts are emitted as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// DynamoDB
			dynamodb.NewClient,

			// Repositories
			provideInvoiceRepository,

			// PDF rendering
			pdf.NewGenerator,

			// Services
			service.NewInvoiceService,

			// API
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func provideInvoiceRepository(client *dynamodb.Client, cfg *config.Configuration, log *logger.Logger) invoice.Repository {
	return dynamo.NewInvoiceRepository(client.DB(), cfg.DynamoDB.TableName, log)
}

func provideHandlers(
	invoiceService service.InvoiceService,
	log *logger.Logger,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(log),
		Invoice: v1.NewInvoiceHandler(invoiceService, log),
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infof("Starting API server on %s", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
