package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/davidahmann/courseledger/internal/ledger"
)

const (
	LedgerLocal  = "local"
	LedgerEthRPC = "ethrpc"

	DBMemory   = "memory"
	DBSQLite   = "sqlite"
	DBPostgres = "postgres"

	EnvPrefix = "COURSELEDGER_"
)

type Config struct {
	ListenAddr   string             `yaml:"listen_addr"`
	CatalogPath  string             `yaml:"catalog_path"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	DB           DBConfig           `yaml:"db"`
	Search       SearchConfig       `yaml:"search"`
	Verification VerificationConfig `yaml:"verification"`
	Log          LogConfig          `yaml:"log"`
}

type LedgerConfig struct {
	Driver          string `yaml:"driver"`
	RPCURL          string `yaml:"rpc_url"`
	ContractAddress string `yaml:"contract_address"`
	ContractOwner   string `yaml:"contract_owner"`
	// Accounts seeds balances, in ether, for the local ledger.
	Accounts map[string]string `yaml:"accounts"`
}

type DBConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SearchConfig struct {
	StrictHex *bool `yaml:"strict_hex"`
}

type VerificationConfig struct {
	CacheSize int `yaml:"cache_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Read parses the config file at path without validating it, so callers
// can apply overrides first.
func Read(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides file settings with COURSELEDGER_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, name string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	set(&c.ListenAddr, "LISTEN_ADDR")
	set(&c.CatalogPath, "CATALOG_PATH")
	set(&c.Ledger.Driver, "LEDGER_DRIVER")
	set(&c.Ledger.RPCURL, "RPC_URL")
	set(&c.Ledger.ContractAddress, "CONTRACT_ADDRESS")
	set(&c.Ledger.ContractOwner, "CONTRACT_OWNER")
	set(&c.DB.Driver, "DB_DRIVER")
	set(&c.DB.DSN, "DB_DSN")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")
}

// StrictSearch defaults to true when search.strict_hex is unset.
func (c Config) StrictSearch() bool {
	return c.Search.StrictHex == nil || *c.Search.StrictHex
}

func (c Config) LedgerDriver() string {
	if c.Ledger.Driver == "" {
		return LedgerLocal
	}
	return c.Ledger.Driver
}

func (c Config) DBDriver() string {
	if c.DB.Driver == "" {
		return DBMemory
	}
	return c.DB.Driver
}

// Validate reports every problem in the configuration at once.
func (c Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...interface{}) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if c.ListenAddr == "" {
		add("listen_addr is required")
	}
	if c.CatalogPath == "" {
		add("catalog_path is required")
	}

	switch c.LedgerDriver() {
	case LedgerLocal:
		if !common.IsHexAddress(c.Ledger.ContractOwner) {
			add("ledger.contract_owner must be an address for the local ledger")
		} else if common.HexToAddress(c.Ledger.ContractOwner) == (common.Address{}) {
			add("ledger.contract_owner must not be the zero address")
		}
		if c.Ledger.ContractAddress != "" && !common.IsHexAddress(c.Ledger.ContractAddress) {
			add("ledger.contract_address %q is not an address", c.Ledger.ContractAddress)
		}
		for account, balance := range c.Ledger.Accounts {
			if !common.IsHexAddress(account) {
				add("ledger.accounts: %q is not an address", account)
			}
			if _, err := ledger.ToWei(balance); err != nil {
				add("ledger.accounts[%s]: %v", account, err)
			}
		}
	case LedgerEthRPC:
		if c.Ledger.RPCURL == "" {
			add("ledger.rpc_url is required when ledger.driver=ethrpc")
		}
		if !common.IsHexAddress(c.Ledger.ContractAddress) {
			add("ledger.contract_address must be an address when ledger.driver=ethrpc")
		}
		if c.DB.Driver != "" {
			add("db is only used by the local ledger")
		}
	default:
		add("ledger.driver %q is not one of local, ethrpc", c.Ledger.Driver)
	}

	switch c.DBDriver() {
	case DBMemory:
	case DBSQLite, DBPostgres:
		if c.DB.DSN == "" {
			add("db.dsn is required when db.driver is set")
		}
	default:
		add("db.driver %q is not one of memory, sqlite, postgres", c.DB.Driver)
	}

	if c.Verification.CacheSize < 0 {
		add("verification.cache_size must not be negative")
	}
	if _, err := c.Log.level(); err != nil {
		add("log.level: %v", err)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		add("log.format %q is not one of json, console", c.Log.Format)
	}

	return result.ErrorOrNil()
}

func (l LogConfig) level() (zerolog.Level, error) {
	if l.Level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(l.Level)
}

// Logger builds the root logger writing to w.
func (l LogConfig) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return zerolog.Nop(), err
	}
	if l.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
