package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/client"
	"github.com/dmitrijs2005/finsync/internal/client/config"
	"github.com/dmitrijs2005/finsync/internal/client/importer"
	"github.com/dmitrijs2005/finsync/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/finsync/internal/client/services"
	"github.com/dmitrijs2005/finsync/internal/emailparse"
	"github.com/dmitrijs2005/finsync/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// importRunner is the part of importer.Engine the CLI drives.
type importRunner interface {
	StartImport(ctx context.Context) (*importer.Summary, error)
	Progress() importer.Progress
	Reset()
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	apiClient client.Client
	txService services.TransactionService
	engine    importRunner

	reader *bufio.Reader
	out    io.Writer
	outMu  sync.Mutex

	modeMu sync.RWMutex
	mode   Mode

	bg sync.WaitGroup
}

// NewApp opens the local queue and dials the server. The connection is
// lazy, so an unreachable server only shows up as offline mode.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.AccessToken, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	repo := transactions.NewSQLiteRepository(db)
	parser := emailparse.New(emailparse.WithFallbackCurrency(c.FallbackCurrency))

	return &App{
		config:    c,
		logger:    l.With("module", "cli"),
		db:        db,
		apiClient: apiClient,
		txService: services.NewTransactionService(repo, parser, c.DefaultAccountID, l),
		engine: importer.NewEngine(repo, apiClient, l, importer.Options{
			Attempts:  c.RetryAttempts,
			BaseDelay: c.RetryBaseDelay,
		}),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		mode:   ModeOffline,
	}, nil
}

// Run starts the connectivity watcher and blocks in the REPL until the user
// exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.printf("finsync CLI (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close waits for background imports and releases the connection and the
// database.
func (a *App) Close() {
	a.bg.Wait()
	if a.apiClient != nil {
		if err := a.apiClient.Close(); err != nil {
			a.logger.Warn(context.Background(), "closing connection", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(context.Background(), "closing database", "error", err)
		}
	}
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) getStatus() string {
	s := string(a.Mode())
	if n, err := a.txService.CountPending(context.Background()); err == nil && n > 0 {
		s = fmt.Sprintf("%s, %d pending", s, n)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.apiClient.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
