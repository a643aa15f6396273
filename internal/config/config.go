// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pairsbot-go/internal/signal"
)

const (
	// ModeLive routes orders to the broker.
	ModeLive = "live"
	// ModePaper fills orders against the last fetched close in an in-memory account.
	ModePaper = "paper"

	MethodPercentage = "percentage"
	MethodZScore     = "zscore"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// Broker describes connectivity to the brokerage REST API. Credentials are loaded separately.
type Broker struct {
	AuthURL           string  `yaml:"auth_url"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	HTTPTimeoutMs     int     `yaml:"http_timeout_ms"`
}

// Trading holds the pair list and every knob of the signal engine and scheduler.
type Trading struct {
	Mode                string  `yaml:"mode"`
	Method              string  `yaml:"method"`
	EntryThreshold      float64 `yaml:"entry_threshold"`
	ExitThreshold       float64 `yaml:"exit_threshold"`
	Window              string  `yaml:"window"`
	Period              string  `yaml:"period"`
	PositionSize        int     `yaml:"position_size"`
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
	FetchTimeoutMs      int     `yaml:"fetch_timeout_ms"`
	OrderTimeoutMs      int     `yaml:"order_timeout_ms"`
	MaxConcurrency      int     `yaml:"max_concurrency"`
	MarketHoursOnly     bool    `yaml:"market_hours_only"`
	MarketCalendar      string  `yaml:"market_calendar"`
	CompensateFailedLeg bool    `yaml:"compensate_failed_leg"`
	AccountNumber       string  `yaml:"account_number"`
	Pairs               []Pair  `yaml:"pairs"`
}

// Journal selects where ENTER/EXIT records are appended.
type Journal struct {
	Format string `yaml:"format"` // none|csv|jsonl|sqlite
	Path   string `yaml:"path"`
}

// Paper captures paper-trading account settings.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash"`
	FillsPath    string  `yaml:"fills_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Broker  Broker  `yaml:"broker"`
	Trading Trading `yaml:"trading"`
	Journal Journal `yaml:"journal"`
	Paper   Paper   `yaml:"paper"`
}

// Pair is a configured symbol tuple. It decodes from either `[AAPL, MSFT]` or `{symbol1: AAPL, symbol2: MSFT}`.
type Pair struct {
	Symbol1 string
	Symbol2 string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Pair) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var tuple []string
		if err := node.Decode(&tuple); err != nil {
			return err
		}
		if len(tuple) != 2 {
			return fmt.Errorf("line %d: pair needs exactly two symbols, got %d", node.Line, len(tuple))
		}
		p.Symbol1, p.Symbol2 = tuple[0], tuple[1]
	case yaml.MappingNode:
		var m struct {
			Symbol1 string `yaml:"symbol1"`
			Symbol2 string `yaml:"symbol2"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		p.Symbol1, p.Symbol2 = m.Symbol1, m.Symbol2
	default:
		return fmt.Errorf("line %d: pair must be a sequence or mapping", node.Line)
	}
	p.Symbol1 = strings.ToUpper(strings.TrimSpace(p.Symbol1))
	p.Symbol2 = strings.ToUpper(strings.TrimSpace(p.Symbol2))
	return nil
}

// MarshalYAML writes pairs back in the compact tuple form.
func (p Pair) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	node.Content = []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: p.Symbol1},
		{Kind: yaml.ScalarNode, Value: p.Symbol2},
	}
	return node, nil
}

// SignalPairs converts configured tuples into engine pairs, preserving order.
func (t Trading) SignalPairs() []signal.Pair {
	out := make([]signal.Pair, len(t.Pairs))
	for i, p := range t.Pairs {
		out[i] = signal.Pair{Symbol1: p.Symbol1, Symbol2: p.Symbol2}
	}
	return out
}

// LookbackWindow parses Window; Validate guarantees it is well formed.
func (t Trading) LookbackWindow() time.Duration {
	d, _ := time.ParseDuration(t.Window)
	return d
}

// PollInterval returns the sleep between cycles.
func (t Trading) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

// FetchTimeout bounds a single price history request.
func (t Trading) FetchTimeout() time.Duration {
	return time.Duration(t.FetchTimeoutMs) * time.Millisecond
}

// OrderTimeout bounds a single order submission.
func (t Trading) OrderTimeout() time.Duration {
	return time.Duration(t.OrderTimeoutMs) * time.Millisecond
}

// HTTPTimeout bounds any broker round trip, including token acquisition.
func (b Broker) HTTPTimeout() time.Duration {
	return time.Duration(b.HTTPTimeoutMs) * time.Millisecond
}

// ApplyDefaults fills zero values with the bot's defaults.
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "pairsbot"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Broker.RequestsPerSecond <= 0 {
		c.Broker.RequestsPerSecond = 20
	}
	if c.Broker.Burst <= 0 {
		c.Broker.Burst = 10
	}
	if c.Broker.HTTPTimeoutMs <= 0 {
		c.Broker.HTTPTimeoutMs = 15000
	}

	t := &c.Trading
	t.Mode = strings.ToLower(strings.TrimSpace(t.Mode))
	if t.Mode == "" {
		t.Mode = ModeLive
	}
	t.Method = strings.ToLower(strings.TrimSpace(t.Method))
	if t.Method == "" {
		t.Method = MethodPercentage
	}
	if t.Window == "" {
		t.Window = "48h"
		if t.Method == MethodZScore {
			t.Window = "72h"
		}
	}
	if t.Period == "" {
		t.Period = "minute_1"
	}
	if t.PositionSize <= 0 {
		t.PositionSize = 1
	}
	if t.PollIntervalSeconds <= 0 {
		t.PollIntervalSeconds = 1
	}
	if t.FetchTimeoutMs <= 0 {
		t.FetchTimeoutMs = 5000
	}
	if t.OrderTimeoutMs <= 0 {
		t.OrderTimeoutMs = 5000
	}
	if t.MaxConcurrency <= 0 {
		t.MaxConcurrency = len(t.Pairs)
	}
	if t.MarketCalendar == "" {
		t.MarketCalendar = "xnys"
	}

	c.Journal.Format = strings.ToLower(strings.TrimSpace(c.Journal.Format))
	if c.Journal.Format == "" {
		c.Journal.Format = "none"
	}
	if c.Journal.Path == "" {
		switch c.Journal.Format {
		case "csv":
			c.Journal.Path = "trade_log.csv"
		case "jsonl":
			c.Journal.Path = "trade_log.jsonl"
		case "sqlite":
			c.Journal.Path = "trade_log.db"
		}
	}
	if c.Paper.StartingCash <= 0 {
		c.Paper.StartingCash = 100000
	}
}

// Validate performs basic configuration validation.
func (c *Config) Validate() error {
	t := c.Trading
	switch t.Mode {
	case ModeLive, ModePaper:
	default:
		return fmt.Errorf("unknown trading mode %q", t.Mode)
	}
	switch t.Method {
	case MethodPercentage, MethodZScore:
	default:
		return fmt.Errorf("unknown spread method %q", t.Method)
	}
	if t.EntryThreshold < 0 || t.ExitThreshold < 0 {
		return fmt.Errorf("thresholds cannot be negative")
	}
	if t.ExitThreshold > 0 && t.EntryThreshold > 0 && t.ExitThreshold >= t.EntryThreshold {
		return fmt.Errorf("exit threshold %.5f must be below entry threshold %.5f", t.ExitThreshold, t.EntryThreshold)
	}
	d, err := time.ParseDuration(t.Window)
	if err != nil {
		return fmt.Errorf("parse window: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("window must be positive")
	}
	if len(t.Pairs) == 0 {
		return fmt.Errorf("at least one pair must be configured")
	}
	for i, p := range t.Pairs {
		if p.Symbol1 == "" || p.Symbol2 == "" {
			return fmt.Errorf("pair %d is missing a symbol", i)
		}
		if p.Symbol1 == p.Symbol2 {
			return fmt.Errorf("pair %d trades %s against itself", i, p.Symbol1)
		}
	}
	switch c.Journal.Format {
	case "none", "csv", "jsonl", "sqlite":
	default:
		return fmt.Errorf("unknown journal format %q", c.Journal.Format)
	}
	return nil
}

// Read decodes a YAML file as written, without defaults or validation.
func Read(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Effective returns a defaulted, validated copy; c itself is left as written.
func (c Config) Effective() (*Config, error) {
	c.Trading.Pairs = append([]Pair(nil), c.Trading.Pairs...)
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file from disk, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := Read(path)
	if err != nil {
		return nil, err
	}
	return raw.Effective()
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
