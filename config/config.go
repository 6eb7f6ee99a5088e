// Package config loads bot configuration from a yaml file or CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a yaml field is omitted.
var (
	defaultOrderValue    = decimal.NewFromInt(100)
	defaultMinMovement   = decimal.RequireFromString("0.00001")
	defaultBelowPercent  = decimal.RequireFromString("0.5")
	defaultProfitPercent = decimal.NewFromInt(2)
	defaultRepriceBias   = decimal.RequireFromString("0.998")
)

const (
	defaultRounding             = 5
	defaultMaxOrders            = 10
	defaultOrderTTL             = 5 * time.Minute
	defaultReconcileInterval    = time.Minute
	defaultRulesRefreshInterval = 10 * time.Minute
	defaultListenAddr           = ":8080"
	defaultJournalDir           = "./wal/journal"
	defaultSnapshotDir          = "./wal/snapshots"
)

// Config holds every runtime knob of the bot.
type Config struct {
	Platform   string
	Symbols    []string
	QuoteAsset string

	OrderValue    decimal.Decimal
	MinMovement   decimal.Decimal
	Rounding      int32
	BelowPercent  decimal.Decimal
	ProfitPercent decimal.Decimal
	MaxOrders     int
	OrderTTL      time.Duration
	RepriceBias   decimal.Decimal
	TradeFrom     time.Time

	ReconcileInterval    time.Duration
	RulesRefreshInterval time.Duration

	InitialCapital decimal.Decimal

	ListenAddr   string
	WebhookToken string

	JournalDir  string
	SnapshotDir string
}

// ConfigTmp mirrors the yaml layout. Decimal fields are strings so precision
// survives parsing.
type ConfigTmp struct {
	Platform   string   `yaml:"platform"`
	Symbols    []string `yaml:"symbols"`
	QuoteAsset string   `yaml:"quote_asset"`

	OrderValueStr    string        `yaml:"order_value,omitempty"`
	MinMovementStr   string        `yaml:"min_movement,omitempty"`
	Rounding         int32         `yaml:"rounding,omitempty"`
	BelowPercentStr  string        `yaml:"below_percent,omitempty"`
	ProfitPercentStr string        `yaml:"profit_percent,omitempty"`
	MaxOrders        int           `yaml:"max_orders,omitempty"`
	OrderTTL         time.Duration `yaml:"order_ttl,omitempty"`
	RepriceBiasStr   string        `yaml:"reprice_bias,omitempty"`
	TradeFromStr     string        `yaml:"trade_from,omitempty"`

	ReconcileInterval    time.Duration `yaml:"reconcile_interval,omitempty"`
	RulesRefreshInterval time.Duration `yaml:"rules_refresh_interval,omitempty"`

	InitialCapitalStr string `yaml:"initial_capital,omitempty"`

	ListenAddr   string `yaml:"listen_addr,omitempty"`
	WebhookToken string `yaml:"webhook_token,omitempty"`

	JournalDir  string `yaml:"journal_dir,omitempty"`
	SnapshotDir string `yaml:"snapshot_dir,omitempty"`
}

// Get parses CLI flags and loads the yaml config. The -setup flag is
// reported back so main can launch the interactive wizard instead.
func Get() (Config, bool, error) {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	setup := flag.Bool("setup", false, "run the interactive configuration wizard")
	flag.Parse()

	if *setup {
		return Config{}, true, nil
	}

	cfg, err := getYaml(*configPath)
	return cfg, false, err
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	return fromTmp(tmp)
}

func fromTmp(tmp ConfigTmp) (Config, error) {
	cfg := Config{
		Platform:             strings.ToLower(tmp.Platform),
		Symbols:              tmp.Symbols,
		QuoteAsset:           strings.ToUpper(tmp.QuoteAsset),
		Rounding:             tmp.Rounding,
		MaxOrders:            tmp.MaxOrders,
		OrderTTL:             tmp.OrderTTL,
		ReconcileInterval:    tmp.ReconcileInterval,
		RulesRefreshInterval: tmp.RulesRefreshInterval,
		ListenAddr:           tmp.ListenAddr,
		WebhookToken:         tmp.WebhookToken,
		JournalDir:           tmp.JournalDir,
		SnapshotDir:          tmp.SnapshotDir,
	}

	if cfg.Platform == "" {
		return Config{}, fmt.Errorf("'platform' param is required (binance or bybit)")
	}
	if cfg.Platform != "binance" && cfg.Platform != "bybit" {
		return Config{}, fmt.Errorf("unsupported 'platform' param: %s", cfg.Platform)
	}
	if len(cfg.Symbols) == 0 {
		return Config{}, fmt.Errorf("'symbols' param is required, example: [BTCUSDT]")
	}
	for i, s := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}

	var err error
	if cfg.OrderValue, err = decimalOrDefault(tmp.OrderValueStr, defaultOrderValue); err != nil {
		return Config{}, fmt.Errorf("incorrect 'order_value' param in yaml config: %w", err)
	}
	if cfg.MinMovement, err = decimalOrDefault(tmp.MinMovementStr, defaultMinMovement); err != nil {
		return Config{}, fmt.Errorf("incorrect 'min_movement' param in yaml config: %w", err)
	}
	if cfg.BelowPercent, err = decimalOrDefault(tmp.BelowPercentStr, defaultBelowPercent); err != nil {
		return Config{}, fmt.Errorf("incorrect 'below_percent' param in yaml config: %w", err)
	}
	if cfg.ProfitPercent, err = decimalOrDefault(tmp.ProfitPercentStr, defaultProfitPercent); err != nil {
		return Config{}, fmt.Errorf("incorrect 'profit_percent' param in yaml config: %w", err)
	}
	if cfg.RepriceBias, err = decimalOrDefault(tmp.RepriceBiasStr, defaultRepriceBias); err != nil {
		return Config{}, fmt.Errorf("incorrect 'reprice_bias' param in yaml config: %w", err)
	}
	if cfg.InitialCapital, err = decimalOrDefault(tmp.InitialCapitalStr, decimal.Zero); err != nil {
		return Config{}, fmt.Errorf("incorrect 'initial_capital' param in yaml config: %w", err)
	}

	if tmp.TradeFromStr != "" {
		cfg.TradeFrom, err = time.Parse(time.RFC3339, tmp.TradeFromStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'trade_from' param in yaml config (must be RFC3339): %w", err)
		}
	}

	if cfg.Rounding <= 0 {
		cfg.Rounding = defaultRounding
	}
	if cfg.MaxOrders <= 0 {
		cfg.MaxOrders = defaultMaxOrders
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = defaultOrderTTL
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.RulesRefreshInterval <= 0 {
		cfg.RulesRefreshInterval = defaultRulesRefreshInterval
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.JournalDir == "" {
		cfg.JournalDir = defaultJournalDir
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = defaultSnapshotDir
	}

	return cfg, nil
}

func decimalOrDefault(s string, def decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return def, nil
	}
	return decimal.NewFromString(s)
}
