package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/efreitasn/dasim/internal/domain"
)

// Config holds all runtime configuration for a simulation run.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Run        RunConfig        `yaml:"run"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
}

// SimulationConfig describes the market: periods, agent population,
// price bounds and engine behavior. It is not modified after Load.
type SimulationConfig struct {
	Periods                int           `yaml:"periods"`
	PeriodDuration         float64       `yaml:"periodDuration"`
	BuyerAgentType         StringList    `yaml:"buyerAgentType"`
	SellerAgentType        StringList    `yaml:"sellerAgentType"`
	BuyerRate              FloatList     `yaml:"buyerRate"`
	SellerRate             FloatList     `yaml:"sellerRate"`
	BuyerValues            FloatList     `yaml:"buyerValues"`
	SellerCosts            FloatList     `yaml:"sellerCosts"`
	NumberOfBuyers         int           `yaml:"numberOfBuyers"`
	NumberOfSellers        int           `yaml:"numberOfSellers"`
	L                      float64       `yaml:"L"`
	H                      float64       `yaml:"H"`
	Integer                bool          `yaml:"integer"`
	IgnoreBudgetConstraint bool          `yaml:"ignoreBudgetConstraint"`
	KeepPreviousOrders     bool          `yaml:"keepPreviousOrders"`
	Silent                 bool          `yaml:"silent"`
	WithoutOrderLogs       bool          `yaml:"withoutOrderLogs"`
	Realtime               bool          `yaml:"realtime"`
	Seed                   uint64        `yaml:"seed"`
	XMarket                XMarketConfig `yaml:"xMarket"`
}

// XMarketConfig is passed through to the matching engine.
type XMarketConfig struct {
	BuySellBookLimit    int  `yaml:"buySellBookLimit"`
	ResetAfterEachTrade bool `yaml:"resetAfterEachTrade"`
}

type RunConfig struct {
	Sync      bool          `yaml:"sync"`
	BatchSize int           `yaml:"batchSize"`
	Tick      time.Duration `yaml:"tick"`     // real-time poll interval
	TimeUnit  time.Duration `yaml:"timeUnit"` // wall time per simulated time unit
	Delay     time.Duration `yaml:"delay"`    // pause between periods
}

type StorageConfig struct {
	Sink string `yaml:"sink"` // memory | csv | sqlite
	Dir  string `yaml:"dir"`  // csv output directory
	DSN  string `yaml:"dsn"`  // sqlite file, or ":memory:"
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Load reads the YAML file at path, applies a .env file and environment
// overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies overrides, defaults and
// validation exactly as Load does.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	cfg.Log.Level = getStr("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getStr("LOG_FORMAT", cfg.Log.Format)
	cfg.Storage.Sink = getStr("DASIM_SINK", cfg.Storage.Sink)

	var err error
	if cfg.Run.Sync, err = getBool("DASIM_SYNC", cfg.Run.Sync); err != nil {
		return fmt.Errorf("invalid DASIM_SYNC: %w", err)
	}
	if cfg.Simulation.Realtime, err = getBool("DASIM_REALTIME", cfg.Simulation.Realtime); err != nil {
		return fmt.Errorf("invalid DASIM_REALTIME: %w", err)
	}
	seed, err := getInt("DASIM_SEED", int(cfg.Simulation.Seed))
	if err != nil || seed < 0 {
		return fmt.Errorf("invalid DASIM_SEED: %q", os.Getenv("DASIM_SEED"))
	}
	cfg.Simulation.Seed = uint64(seed)
	return nil
}

func setDefaults(cfg *Config) {
	s := &cfg.Simulation
	if s.PeriodDuration == 0 {
		s.PeriodDuration = 1000
	}
	if len(s.BuyerAgentType) == 0 {
		s.BuyerAgentType = StringList{"ZIAgent"}
	}
	if len(s.SellerAgentType) == 0 {
		s.SellerAgentType = StringList{"ZIAgent"}
	}
	if len(s.BuyerRate) == 0 {
		s.BuyerRate = FloatList{1}
	}
	if len(s.SellerRate) == 0 {
		s.SellerRate = FloatList{1}
	}
	if s.L == 0 {
		s.L = 1
	}
	if s.H == 0 {
		s.H = 200
	}
	if cfg.Run.BatchSize <= 0 {
		cfg.Run.BatchSize = 100
	}
	if cfg.Run.Tick <= 0 {
		cfg.Run.Tick = 40 * time.Millisecond
	}
	if cfg.Run.TimeUnit <= 0 {
		cfg.Run.TimeUnit = time.Second
	}
	if cfg.Storage.Sink == "" {
		cfg.Storage.Sink = "memory"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "."
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "dasim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks the configuration for values a run cannot start with.
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	if !isValidLogLevel(c.Log.Level) {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level)}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &domain.ValidationError{Message: fmt.Sprintf("invalid log format %q, must be text or json", c.Log.Format)}
	}
	switch c.Storage.Sink {
	case "memory", "csv", "sqlite":
	default:
		return &domain.ValidationError{Message: fmt.Sprintf("invalid storage sink %q, must be one of: memory, csv, sqlite", c.Storage.Sink)}
	}
	return nil
}

// Validate checks the market description. Undeterminable agent counts
// are reported as domain.ErrNoAgents.
func (s *SimulationConfig) Validate() error {
	if s.BuyerCount() == 0 || s.SellerCount() == 0 {
		return fmt.Errorf("%w: need buyerValues/sellerCosts or numberOfBuyers/numberOfSellers", domain.ErrNoAgents)
	}
	if s.Periods < 1 {
		return &domain.ValidationError{Message: "periods must be at least 1"}
	}
	if !(s.PeriodDuration > 0) || math.IsInf(s.PeriodDuration, 0) {
		return &domain.ValidationError{Message: "periodDuration must be a positive number"}
	}
	if !(s.L < s.H) {
		return &domain.ValidationError{Message: fmt.Sprintf("price bounds must satisfy L < H, got L=%v H=%v", s.L, s.H)}
	}
	for _, r := range append(append(FloatList{}, s.BuyerRate...), s.SellerRate...) {
		if r < 0 || math.IsNaN(r) {
			return &domain.ValidationError{Message: fmt.Sprintf("arrival rates must be non-negative, got %v", r)}
		}
	}
	if s.NumberOfBuyers < 0 || s.NumberOfSellers < 0 {
		return &domain.ValidationError{Message: "agent counts must be non-negative"}
	}
	return nil
}

// BuyerCount is numberOfBuyers when given, otherwise one buyer per value.
func (s *SimulationConfig) BuyerCount() int {
	if s.NumberOfBuyers > 0 {
		return s.NumberOfBuyers
	}
	return len(s.BuyerValues)
}

// SellerCount is numberOfSellers when given, otherwise one seller per cost.
func (s *SimulationConfig) SellerCount() int {
	if s.NumberOfSellers > 0 {
		return s.NumberOfSellers
	}
	return len(s.SellerCosts)
}

// BuyerRateFor returns the arrival rate of the i-th buyer (0-based),
// cycling through buyerRate.
func (s *SimulationConfig) BuyerRateFor(i int) float64 { return cycle(s.BuyerRate, i, 1) }

// SellerRateFor returns the arrival rate of the i-th seller (0-based).
func (s *SimulationConfig) SellerRateFor(i int) float64 { return cycle(s.SellerRate, i, 1) }

// BuyerTypeFor returns the agent type of the i-th buyer (0-based).
func (s *SimulationConfig) BuyerTypeFor(i int) string { return cycle(s.BuyerAgentType, i, "ZIAgent") }

// SellerTypeFor returns the agent type of the i-th seller (0-based).
func (s *SimulationConfig) SellerTypeFor(i int) string { return cycle(s.SellerAgentType, i, "ZIAgent") }

func cycle[T any](xs []T, i int, def T) T {
	if len(xs) == 0 || i < 0 {
		return def
	}
	return xs[i%len(xs)]
}

// StringList decodes either a YAML scalar or a sequence of scalars.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = StringList{value.Value}
		return nil
	}
	var xs []string
	if err := value.Decode(&xs); err != nil {
		return err
	}
	*l = xs
	return nil
}

// FloatList decodes either a YAML number or a sequence of numbers.
type FloatList []float64

func (l *FloatList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var x float64
		if err := value.Decode(&x); err != nil {
			return err
		}
		*l = FloatList{x}
		return nil
	}
	var xs []float64
	if err := value.Decode(&xs); err != nil {
		return err
	}
	*l = xs
	return nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
