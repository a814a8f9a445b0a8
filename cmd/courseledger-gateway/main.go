package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/davidahmann/courseledger/internal/api"
	"github.com/davidahmann/courseledger/internal/auth"
	"github.com/davidahmann/courseledger/internal/catalog"
	"github.com/davidahmann/courseledger/internal/config"
	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/internal/ledger/ethrpc"
	"github.com/davidahmann/courseledger/internal/ledger/pgstore"
	"github.com/davidahmann/courseledger/internal/ledger/sqlstore"
	"github.com/davidahmann/courseledger/internal/market"
	"github.com/davidahmann/courseledger/internal/metrics"
)

func main() {
	if err := runFn(os.Args[1:], os.Getenv, listenAndServe, newServer); err != nil {
		fatalf("server error: %v", err)
	}
}

var runFn = run
var fatalf = log.Fatalf

type envFn func(string) string
type listenFn func(*http.Server) error
type serverFactory func(cfg config.Config, getenv envFn, logger zerolog.Logger) (*http.Server, func(), error)

func run(args []string, getenv envFn, listen listenFn, factory serverFactory) error {
	fs := pflag.NewFlagSet("courseledger-gateway", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to courseledger config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgFile := firstNonEmpty(*configPath, getenv(config.EnvPrefix+"CONFIG_PATH"))

	var cfg config.Config
	if cfgFile != "" {
		loaded, err := config.Read(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(getenv)
	cfg.ListenAddr = firstNonEmpty(cfg.ListenAddr, ":8080")
	cfg.CatalogPath = firstNonEmpty(cfg.CatalogPath, "courses.yaml")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := cfg.Log.Logger(os.Stderr)
	if err != nil {
		return err
	}

	server, cleanup, err := factory(cfg, getenv, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("ledger", cfg.LedgerDriver()).
		Msg("courseledger-gateway listening")
	if err := listen(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newServer(cfg config.Config, getenv envFn, logger zerolog.Logger) (*http.Server, func(), error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := market.NewService(client, market.Options{
		StrictSearch: cfg.StrictSearch(),
		ResultsSize:  cfg.Verification.CacheSize,
		Metrics:      metrics.NewMarketCollector(reg),
		Logger:       logger,
	})
	if err != nil {
		closeLedger()
		return nil, nil, err
	}

	h := &api.Handler{
		Auth:    auth.NewAuthenticatorFromEnv(getenv),
		Market:  svc,
		Catalog: cat,
		Log:     logger.With().Str("component", "api").Logger(),
	}
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(h, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server, closeLedger, nil
}

// openLedger builds the configured ledger client and a func releasing it.
func openLedger(ctx context.Context, cfg config.Config, logger zerolog.Logger) (ledger.Client, func(), error) {
	if cfg.LedgerDriver() == config.LedgerEthRPC {
		client, err := ethrpc.Dial(ctx, cfg.Ledger.RPCURL, common.HexToAddress(cfg.Ledger.ContractAddress), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", cfg.Ledger.RPCURL, err)
		}
		return client, client.Close, nil
	}

	store, closer, err := openStore(ctx, cfg.DB, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closer == nil {
			return
		}
		if err := closer.Close(); err != nil {
			logger.Warn().Err(err).Msg("close ledger store")
		}
	}

	owner := common.HexToAddress(cfg.Ledger.ContractOwner)
	contract := common.HexToAddress(cfg.Ledger.ContractAddress)
	if cfg.Ledger.ContractAddress == "" {
		contract = gethCrypto.CreateAddress(owner, 0)
	}
	local := ledger.NewLocal(store, owner, contract, logger)
	if err := seedAccounts(local, cfg.Ledger.Accounts, logger); err != nil {
		cleanup()
		return nil, nil, err
	}
	return local, cleanup, nil
}

func openStore(ctx context.Context, db config.DBConfig, logger zerolog.Logger) (ledger.Store, io.Closer, error) {
	switch (config.Config{DB: db}).DBDriver() {
	case config.DBSQLite:
		store, err := sqlstore.OpenSQLite(db.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := migrate(ctx, store.DB(), ledger.DBSQLite, logger); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, store, nil
	case config.DBPostgres:
		store, err := pgstore.OpenPostgres(db.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := migrate(ctx, store.DB(), ledger.DBPostgres, logger); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, store, nil
	default:
		return ledger.NewInMemoryStore(), nil, nil
	}
}

func migrate(ctx context.Context, db *sql.DB, driver ledger.DBDriver, logger zerolog.Logger) error {
	applied, err := ledger.Migrate(ctx, db, driver)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", driver, err)
	}
	if len(applied) > 0 {
		logger.Info().Str("driver", string(driver)).Strs("versions", applied).Msg("applied migrations")
	}
	return nil
}

// seedAccounts credits each configured account once per store; the store
// remembers which accounts were seeded, so restarts never mint again.
func seedAccounts(local *ledger.Local, accounts map[string]string, logger zerolog.Logger) error {
	for account, balance := range accounts {
		wei, err := ledger.ToWei(balance)
		if err != nil {
			return fmt.Errorf("ledger.accounts[%s]: %w", account, err)
		}
		addr := common.HexToAddress(account)
		seeded, err := local.Seed(addr, wei)
		if err != nil {
			return fmt.Errorf("seed %s: %w", addr.Hex(), err)
		}
		if seeded {
			logger.Info().Str("account", addr.Hex()).Str("balance", balance).Msg("seeded account")
		}
	}
	return nil
}

func listenAndServe(server *http.Server) error {
	return server.ListenAndServe()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
