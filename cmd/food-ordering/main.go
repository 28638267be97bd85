package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/auth"
	"github.com/vasiliy-maslov/food-ordering/internal/config"
	"github.com/vasiliy-maslov/food-ordering/internal/db"
	"github.com/vasiliy-maslov/food-ordering/internal/events"
	handler "github.com/vasiliy-maslov/food-ordering/internal/handler/http"
	"github.com/vasiliy-maslov/food-ordering/internal/media"
	"github.com/vasiliy-maslov/food-ordering/internal/order"
	"github.com/vasiliy-maslov/food-ordering/internal/payment"
	"github.com/vasiliy-maslov/food-ordering/internal/restaurant"
	"github.com/vasiliy-maslov/food-ordering/internal/transport"
	"github.com/vasiliy-maslov/food-ordering/internal/user"
)

type repositories struct {
	users       user.Repository
	restaurants restaurant.Repository
	orders      order.Repository
	close       func()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)

	log.Info().Str("env", cfg.App.Env).Str("storage", cfg.Storage.Driver).Msg("Food ordering service starting...")

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	repos, err := openStorage(startupCtx, cfg)
	cancelStartup()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.close()

	uploader, err := media.NewCloudinaryUploader(cfg.Cloudinary)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure image uploads")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		publisher = rabbit
	} else {
		log.Warn().Msg("RABBITMQ_URL not set, order status events are disabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	userSvc := user.NewService(repos.users)
	restaurantSvc := restaurant.NewService(repos.restaurants, uploader)
	orderSvc := order.NewService(repos.orders, repos.restaurants, payment.NewStripeGateway(cfg.Stripe), publisher, order.Settings{
		Currency:    cfg.Stripe.Currency,
		FrontendURL: cfg.App.FrontendURL,
	})

	authenticator := auth.NewAuthenticator(cfg.Auth, func(err error) bool { return errors.Is(err, user.ErrNotFound) })
	validate := handler.NewValidator()

	router := transport.NewRouter(
		handler.Middlewares{
			Authenticate: authenticator.Authenticate,
			RequireUser:  authenticator.RequireUser(userSvc),
		},
		cfg.App.FrontendURL,
		handler.NewUserHandler(userSvc, validate),
		handler.NewRestaurantHandler(restaurantSvc, validate),
		handler.NewOrderHandler(orderSvc, validate),
	)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Food ordering service stopped gracefully")
}

func setupLogger(cfg config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", cfg.Name).Logger()
}

func openStorage(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Storage.Driver == config.StorageDriverMongo {
		mongoDB, err := db.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := mongoDB.EnsureIndexes(ctx); err != nil {
			mongoDB.Close(context.Background())
			return nil, err
		}
		return &repositories{
			users:       user.NewMongoRepository(mongoDB.Database),
			restaurants: restaurant.NewMongoRepository(mongoDB.Database),
			orders:      order.NewMongoRepository(mongoDB.Database),
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				mongoDB.Close(ctx)
			},
		}, nil
	}

	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, err
	}
	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	return &repositories{
		users:       user.NewRepository(pg.Pool),
		restaurants: restaurant.NewRepository(pg.Pool),
		orders:      order.NewRepository(pg.Pool),
		close:       pg.Close,
	}, nil
}
