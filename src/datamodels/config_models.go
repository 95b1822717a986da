package datamodels

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/viper"

	"autonomity/src/utils/errors"
	"autonomity/src/utils/general"
)

type AutonomityConfig struct {
	ServerConfig     ServerConfig         `mapstructure:"server"`
	SimulationConfig SimulationConfig     `mapstructure:"simulation"`
	MarketConfig     MarketConfig         `mapstructure:"market"`
	RegulatorConfig  RegulatorConfig      `mapstructure:"regulator"`
	DatabaseConfig   DatabaseConfig       `mapstructure:"database"`
	PostgresConfig   PostgresConfig       `mapstructure:"postgres"`
	MetricsWriter    *MetricsWriterConfig `mapstructure:"metrics_writer"`
	StorageConfig    StorageConfig        `mapstructure:"storage"`
	BacktestConfig   BacktestConfig       `mapstructure:"backtest"`
}

func (c *AutonomityConfig) Validate() error {
	if err := c.ServerConfig.Validate(); err != nil {
		return err
	}
	if err := c.SimulationConfig.Validate(); err != nil {
		return err
	}
	if err := c.MarketConfig.Validate(); err != nil {
		return err
	}
	if err := c.RegulatorConfig.Validate(); err != nil {
		return err
	}
	return c.DatabaseConfig.Validate()
}

type PostgresConfig struct {
	Database string `mapstructure:"database"`
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`
	SSL      struct {
		CA   string `mapstructure:"ca"`
		Cert string `mapstructure:"cert"`
		Key  string `mapstructure:"key"`
		Mode string `mapstructure:"mode"`
	} `mapstructure:"ssl"`
	URI  string `mapstructure:"uri"`
	User string `mapstructure:"user"`
}

type DatabaseDriver string

const (
	DatabaseDriverNone     DatabaseDriver = "none"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverSqlite   DatabaseDriver = "sqlite"
)

type DatabaseConfig struct {
	Driver     DatabaseDriver `mapstructure:"driver"`
	SqlitePath string         `mapstructure:"sqlite_path"`
}

func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "", DatabaseDriverNone, DatabaseDriverPostgres:
		return nil
	case DatabaseDriverSqlite:
		if d.SqlitePath == "" {
			return errors.New("database.sqlite_path is required for the sqlite driver")
		}
		return nil
	}
	return errors.Newf("unknown database driver %q", d.Driver)
}

type ServerConfig struct {
	Port            string   `mapstructure:"port"`
	HealthEndpoint  string   `mapstructure:"health_endpoint"`
	MetricsEndpoint string   `mapstructure:"metrics_endpoint"`
	CorsOrigins     []string `mapstructure:"cors_origins"`
	MaxAutoSteps    int      `mapstructure:"max_auto_steps"`
	GinMode         string   `mapstructure:"gin_mode"`
}

func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return errors.New("server.port is required")
	}
	if s.MaxAutoSteps <= 0 {
		return errors.New("server.max_auto_steps must be greater than 0")
	}
	return nil
}

type WSConfig struct {
	Upgrader websocket.Upgrader
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	Prefix string `mapstructure:"prefix"`
}

// AgentConfig describes one roster member. Recipe is only read for the recipe type.
type AgentConfig struct {
	Name            string       `mapstructure:"name" json:"name"`
	Type            StrategyType `mapstructure:"type" json:"type"`
	PositionSizePct float64      `mapstructure:"position_size_pct" json:"position_size_pct"`
	Seed            int64        `mapstructure:"seed" json:"seed"`
	Followers       int          `mapstructure:"followers" json:"followers"`
	Goal            string       `mapstructure:"goal" json:"goal"`
	Recipe          *Recipe      `mapstructure:"recipe" json:"recipe"`
}

func (a *AgentConfig) Validate() error {
	if a.Name == "" {
		return errors.Wrap(errors.ErrInvalidAgentConfig, "agent name is required")
	}
	if a.PositionSizePct < 0 || a.PositionSizePct > 1 {
		return errors.Wrapf(errors.ErrInvalidAgentConfig, "agent %s: position_size_pct must be within [0, 1]", a.Name)
	}
	if a.Type == StrategyRecipe {
		if a.Recipe == nil {
			return errors.Wrapf(errors.ErrInvalidRecipe, "agent %s: recipe is required", a.Name)
		}
		return nil
	}
	if !general.ItemInSlice(BuiltinStrategyTypes, a.Type) {
		return errors.Wrapf(errors.ErrInvalidAgentConfig, "agent %s: unknown strategy type %q", a.Name, a.Type)
	}
	return nil
}

// SimulationConfig configures every run. Roster replaces the built-in roster
// when non-empty; CustomAgents are appended after it.
type SimulationConfig struct {
	InitialCash  float64       `mapstructure:"initial_cash"`
	RecentWindow int           `mapstructure:"recent_window"`
	NoiseSeed    int64         `mapstructure:"noise_seed"`
	Roster       []AgentConfig `mapstructure:"roster"`
	CustomAgents []AgentConfig `mapstructure:"custom_agents"`
}

func (s *SimulationConfig) Validate() error {
	if s.InitialCash <= 0 {
		return errors.New("simulation.initial_cash must be greater than 0")
	}
	if s.RecentWindow <= 0 {
		return errors.New("simulation.recent_window must be greater than 0")
	}
	names := []string{}
	for _, agents := range [][]AgentConfig{s.Roster, s.CustomAgents} {
		for i := range agents {
			if err := agents[i].Validate(); err != nil {
				return err
			}
			names = append(names, agents[i].Name)
		}
	}
	if !general.NoDuplicateItemsInSlice(names) {
		return errors.New("simulation agent names must be unique")
	}
	return nil
}

type MarketProvider string

const (
	MarketProviderYahoo MarketProvider = "yahoo"
	MarketProviderCsv   MarketProvider = "csv"
)

type CsvColumnConfig struct {
	ColumnIndex int    `mapstructure:"column_index"`
	FieldName   string `mapstructure:"field_name"`
}

type CsvProviderConfig struct {
	DataDir          string            `mapstructure:"data_dir"`
	TimestampColName string            `mapstructure:"timestamp_col_name"`
	TimestampFormat  string            `mapstructure:"timestamp_format"`
	HasHeader        bool              `mapstructure:"has_header"`
	Columns          []CsvColumnConfig `mapstructure:"columns"`
}

type MarketConfig struct {
	Provider  MarketProvider     `mapstructure:"provider"`
	BaseURL   string             `mapstructure:"base_url"`
	UserAgent string             `mapstructure:"user_agent"`
	Timeout   time.Duration      `mapstructure:"timeout"`
	Csv       *CsvProviderConfig `mapstructure:"csv"`
}

func (m *MarketConfig) Validate() error {
	switch m.Provider {
	case MarketProviderYahoo:
		if ok, reason := general.IsValidURL(m.BaseURL); !ok {
			return errors.Newf("market.base_url: %s", reason)
		}
	case MarketProviderCsv:
		if m.Csv == nil || m.Csv.DataDir == "" {
			return errors.New("market.csv.data_dir is required for the csv provider")
		}
	default:
		return errors.Newf("unknown market provider %q", m.Provider)
	}
	return nil
}

type RegulatorConfig struct {
	HaltVolatility float64 `mapstructure:"halt_volatility"`
	MaxOrderPct    float64 `mapstructure:"max_order_pct"`
	MaxPositionPct float64 `mapstructure:"max_position_pct"`
}

func (r *RegulatorConfig) Validate() error {
	if r.HaltVolatility <= 0 {
		return errors.New("regulator.halt_volatility must be greater than 0")
	}
	if r.MaxOrderPct <= 0 || r.MaxOrderPct > 1 {
		return errors.New("regulator.max_order_pct must be within (0, 1]")
	}
	if r.MaxPositionPct <= 0 || r.MaxPositionPct > 1 {
		return errors.New("regulator.max_position_pct must be within (0, 1]")
	}
	return nil
}

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

type MetricsWriterConfig struct {
	WsWriter         bool       `mapstructure:"ws_writer"`
	FileWriter       bool       `mapstructure:"file_writer"`
	FilePath         string     `mapstructure:"file_path"`
	FileFormat       FileFormat `mapstructure:"file_format"`
	DbWriter         bool       `mapstructure:"db_writer"`
	PrometheusWriter bool       `mapstructure:"prometheus_writer"`
}

// BacktestConfig drives the headless replay command.
type BacktestConfig struct {
	Symbol    string `mapstructure:"symbol"`
	Period    string `mapstructure:"period"`
	Interval  string `mapstructure:"interval"`
	OutputDir string `mapstructure:"output_dir"`
	MaxSteps  int    `mapstructure:"max_steps"`
}

func (b *BacktestConfig) Validate() error {
	if b.Symbol == "" {
		return errors.New("backtest.symbol is required")
	}
	if b.OutputDir == "" {
		return errors.New("backtest.output_dir is required")
	}
	return nil
}

// NewBacktestConfig reads a standalone backtest file. Relative output and data
// directories are resolved against baseDir.
func NewBacktestConfig(thisFilepath string, baseDir string) (*AutonomityConfig, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(thisFilepath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AutonomityConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if !filepath.IsAbs(cfg.BacktestConfig.OutputDir) {
		cfg.BacktestConfig.OutputDir = filepath.Join(baseDir, cfg.BacktestConfig.OutputDir)
	}
	if cfg.MarketConfig.Csv != nil && !filepath.IsAbs(cfg.MarketConfig.Csv.DataDir) {
		cfg.MarketConfig.Csv.DataDir = filepath.Join(baseDir, cfg.MarketConfig.Csv.DataDir)
	}
	if cfg.MetricsWriter != nil && cfg.MetricsWriter.FilePath == "" {
		slog.Info("Writing backtest metrics next to the output directory")
		cfg.MetricsWriter.FilePath = filepath.Join(cfg.BacktestConfig.OutputDir, "metrics")
	}

	return &cfg, nil
}
