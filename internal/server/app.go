// Package server wires storage, services and the two listeners (gRPC import
// and the inbound email webhook) into a runnable application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/finsync/internal/emailparse"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/server/archive"
	"github.com/dmitrijs2005/finsync/internal/server/config"
	"github.com/dmitrijs2005/finsync/internal/server/notify"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/finsync/internal/server/services"
	"github.com/dmitrijs2005/finsync/internal/server/webhook"

	gs "github.com/dmitrijs2005/finsync/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	reconciler *services.Reconciler
	ingest     *services.IngestService
	archiver   webhook.Archiver
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app, err := newApp(ctx, c, l, db, m)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, l logging.Logger, db *sql.DB, m repomanager.RepositoryManager) (*App, error) {
	reconciler := services.NewReconciler(db, m, l)
	parser := emailparse.New(emailparse.WithFallbackCurrency(c.FallbackCurrency))

	var notifier services.Notifier
	if c.NotifyEnabled() {
		n, err := newNotifier(ctx, c, l)
		if err != nil {
			return nil, fmt.Errorf("notifier: %w", err)
		}
		notifier = n
	} else {
		l.Info(ctx, "no alert channel configured, card payment alerts disabled")
	}

	loanHints := services.NewLoanHintStore(db, m, l)
	ingest := services.NewIngestService(db, m, parser, reconciler, notifier, loanHints, l)

	app := &App{config: c, logger: l, db: db, reconciler: reconciler, ingest: ingest}

	if c.ArchiveEnabled() {
		client, err := archive.NewS3Client(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		app.archiver = archive.New(client, c.S3Bucket)
	}

	return app, nil
}

// newNotifier builds the delivery channels that have credentials. Gmail is
// tried before SMTP.
func newNotifier(ctx context.Context, c *config.Config, l logging.Logger) (*notify.Service, error) {
	var mailers []notify.Mailer

	if c.GmailRefreshToken != "" {
		g, err := notify.NewGmailSender(ctx, c.GmailClientID, c.GmailClientSecret, c.GmailRefreshToken, c.MailFrom)
		if err != nil {
			return nil, err
		}
		mailers = append(mailers, g)
	}
	if c.SMTPHost != "" {
		mailers = append(mailers, notify.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom))
	}

	var sms notify.SMSSender
	if c.TwilioAccountSID != "" {
		sms = notify.NewTwilioSender(c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFrom, http.DefaultClient)
	}

	return notify.NewService(l, sms, mailers...), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.reconciler, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := webhook.NewHandler(app.ingest, app.archiver, app.config.InboundSecret, app.logger)
	s := webhook.NewHTTPServer(app.config.EndpointAddrHTTP, webhook.NewMux(h, app.logger), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run serves both listeners until ctx is cancelled, a signal arrives or
// either listener fails, then closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}
