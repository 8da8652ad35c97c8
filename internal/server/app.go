// Package server wires the auth server together: storage, token services,
// the verification notifier, the user events consumer, the token janitor
// and the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/events"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/userevents"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// test seams
var (
	openDB  = sql.Open
	newSink = notify.New
)

type App struct {
	config       *config.Config
	logger       *logging.ZapLogger
	db           *sql.DB
	bus          *events.Bus
	sink         notify.Sink
	authService  *services.AuthService
	verification *services.VerificationService
	janitor      *services.Janitor
	userEvents   *userevents.Consumer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.NewProduction(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	sink, err := newSink(ctx, c, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("notifier init error: %w", err)
	}

	app, err := newApp(c, logger, db, rm, sink)
	if err != nil {
		db.Close()
		sink.Close()
		return nil, err
	}
	return app, nil
}

// newApp builds the services over already opened resources.
func newApp(c *config.Config, logger *logging.ZapLogger, db *sql.DB, rm repomanager.RepositoryManager, sink notify.Sink) (*App, error) {
	codec, err := auth.NewTokenCodec([]byte(c.SecretKey), c.Issuer, c.AccessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token codec error: %w", err)
	}

	bus := events.NewBus(logger)

	refresh := services.NewRefreshTokenService(db, rm, c, logger)
	verification := services.NewVerificationService(db, rm, c, bus, logger)
	as := services.NewAuthService(db, rm, codec, refresh, cryptox.NewVerifier(), logger)

	bus.Subscribe(events.TopicVerificationRequested, notify.NewForwarder(sink, logger).Handle)
	bus.Subscribe(events.TopicUserCreated, verification.HandleUserCreated)
	bus.Subscribe(events.TopicUserDeleted, refresh.HandleUserDeleted)

	var consumer *userevents.Consumer
	if c.UserEventsTopic != "" {
		r := userevents.NewKafkaReader(c.KafkaBrokers, c.UserEventsGroupID, c.UserEventsTopic)
		consumer = userevents.NewConsumer(r, bus, logger)
	}

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		bus:          bus,
		sink:         sink,
		authService:  as,
		verification: verification,
		janitor:      services.NewJanitor(db, rm, c, logger),
		userEvents:   consumer,
	}, nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.verification)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then drains
// in-flight notifications and releases resources.
func (app *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, stop)
	}()
	go func() {
		defer wg.Done()
		app.janitor.Run(ctx)
	}()

	if app.userEvents != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.userEvents.Run(ctx)
		}()
	}

	wg.Wait()
	app.shutdown(context.WithoutCancel(ctx))
}

func (app *App) shutdown(ctx context.Context) {
	app.bus.Wait()
	if err := app.sink.Close(); err != nil {
		app.logger.Error(ctx, "notifier close error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
	_ = app.logger.Sync()
}
