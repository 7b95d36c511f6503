package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"litledger/internal/config"
	"litledger/internal/domain"
	"litledger/internal/http/handlers"
	applog "litledger/internal/log"
	"litledger/internal/notify"
	"litledger/internal/repos"
	"litledger/internal/services"
	"litledger/internal/telemetry"
)

func main() {
	app := &cli.App{
		Name:  "litledger",
		Usage: "inventory and sales ledger operated through chat",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP endpoint the chat transport posts updates to",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "insecure-no-token",
						Usage: "serve without WEBHOOK_TOKEN_HASH; anyone who can reach the port acts as any actor",
					},
				},
				Action: serve,
			},
			{
				Name:  "archive",
				Usage: "snapshot a month's sales and reset the live counters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "period", Usage: "YYYY-MM, defaults to the current month"},
				},
				Action: archive,
			},
			{
				Name:  "seed",
				Usage: "create catalogue items from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: seed,
			},
			{
				Name:      "hash-token",
				Usage:     "print the bcrypt hash to put in WEBHOOK_TOKEN_HASH",
				ArgsUsage: "<token>",
				Action:    hashToken,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setupLogging sends structured logs to stdout and, when configured, to a file.
func setupLogging(cfg config.Config) func() {
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		log.Printf("[warn] bad LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	if cfg.LogFile == "" {
		return func() {}
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		return func() {}
	}
	mw := io.MultiWriter(os.Stdout, f)
	applog.SetOutput(mw)
	log.SetOutput(mw)
	return func() { _ = f.Close() }
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	return db, errors.Wrapf(err, "open %s database", cfg.DBDriver)
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defer setupLogging(cfg)()

	if c.Bool("insecure-no-token") {
		cfg.InsecureNoToken = true
	}
	if err := checkToken(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return errors.Wrap(err, "telemetry")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			applog.Error(nil, "telemetry.shutdown", err, nil)
		}
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var alerts services.Alerter
	if cfg.AlertWebhookURL != "" {
		alerts = notify.NewWebhook(cfg.AlertWebhookURL, 10*time.Second)
	}
	deps, err := handlers.NewDeps(db, cfg, alerts)
	if err != nil {
		return err
	}
	app := handlers.NewApp(deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		applog.Info(nil, "server.listen", map[string]any{"port": cfg.Port})
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		sweepSessions(gctx, deps, cfg.ConversationTTL)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		err := app.ShutdownWithTimeout(10 * time.Second)
		deps.Ledger.Wait()
		applog.Info(nil, "server.stopped", nil)
		return err
	})
	return g.Wait()
}

// checkToken refuses an unauthenticated API unless it was asked for explicitly.
func checkToken(cfg config.Config) error {
	if cfg.WebhookTokenHash != "" {
		_, err := bcrypt.Cost([]byte(cfg.WebhookTokenHash))
		return errors.Wrap(err, "WEBHOOK_TOKEN_HASH")
	}
	if !cfg.InsecureNoToken {
		return errors.New("WEBHOOK_TOKEN_HASH is not set; generate one with `litledger hash-token` or pass --insecure-no-token")
	}
	applog.Security(nil, "auth.token.disabled", nil)
	return nil
}

// sweepSessions drops idle conversations until ctx ends.
func sweepSessions(ctx context.Context, deps *handlers.Deps, ttl time.Duration) {
	if ttl <= 0 {
		<-ctx.Done()
		return
	}
	every := max(ttl/2, time.Minute)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := deps.Sessions.Sweep(); n > 0 {
				applog.Debug(nil, "conversation.swept", map[string]any{"expired": n})
			}
		}
	}
}

func archive(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defer setupLogging(cfg)()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	items, snaps := repos.NewItemRepo(db), repos.NewSnapshotRepo(db)
	p := domain.PeriodOf(time.Now())
	if raw := c.String("period"); raw != "" {
		if p, err = domain.ParsePeriod(raw); err != nil {
			return err
		}
	}
	n, err := services.NewLedgerService(items, snaps, nil).ArchivePeriod(c.Context, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "archived %d items into %s\n", n, p)
	return nil
}

// catalogItem is one entry of a seed file.
type catalogItem struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Cost     decimal.Decimal `json:"cost"`
	MinStock int             `json:"min_stock"`
	Stock    int             `json:"stock"`
}

func readCatalog(r io.Reader) ([]domain.NewItem, error) {
	var raw []catalogItem
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode catalogue")
	}
	out := make([]domain.NewItem, 0, len(raw))
	for i, it := range raw {
		if it.Name == "" {
			return nil, errors.Errorf("catalogue entry %d has no name", i)
		}
		out = append(out, domain.NewItem{
			Name: it.Name, Category: it.Category,
			Price: it.Price, Cost: it.Cost,
			MinStock: it.MinStock, Stock: it.Stock,
		})
	}
	return out, nil
}

func seed(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defer setupLogging(cfg)()

	f, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()
	catalog, err := readCatalog(f)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ledger := services.NewLedgerService(repos.NewItemRepo(db), repos.NewSnapshotRepo(db), nil)
	created, skipped, err := ledger.Import(c.Context, catalog)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created %d items, skipped %d existing\n", created, skipped)
	return nil
}

func hashToken(c *cli.Context) error {
	tok := c.Args().First()
	if tok == "" {
		return cli.Exit("usage: litledger hash-token <token>", 2)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(tok), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(h))
	return nil
}
