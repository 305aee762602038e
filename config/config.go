package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Strategy StrategyConfig `yaml:"strategy"`
	Paper    PaperConfig    `yaml:"paper"`
	Journal  JournalConfig  `yaml:"journal"`
	Log      LogConfig      `yaml:"log"`
}

// StrategyConfig son los parámetros de la estrategia de market making.
// Inmutables por ejecución: se validan al cargar y se inyectan al engine.
type StrategyConfig struct {
	Exchange            string  `yaml:"exchange"`
	TradingPair         string  `yaml:"trading_pair"`
	OrderAmount         float64 `yaml:"order_amount"`
	BidSpread           float64 `yaml:"bid_spread"` // fracción del mid, ej. 0.01 = 1%
	AskSpread           float64 `yaml:"ask_spread"`
	OrderRefreshSeconds int     `yaml:"order_refresh_seconds"`

	InventorySkewEnabled   bool    `yaml:"inventory_skew_enabled"`
	InventoryTargetBasePct float64 `yaml:"inventory_target_base_pct"` // ej. 0.5 = 50% en base

	EMAPeriod       int     `yaml:"ema_period"`
	RSIPeriod       int     `yaml:"rsi_period"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerDev    float64 `yaml:"bollinger_dev"`

	// RSIUseRecentDeltas activa la variante corregida del RSI que usa los
	// deltas más recientes. Por defecto false: se mantiene la semántica
	// histórica (semilla con los deltas más antiguos).
	RSIUseRecentDeltas bool `yaml:"rsi_use_recent_deltas"`

	StopLoss StopLossConfig `yaml:"stop_loss"`
}

// StopLossConfig controla la parada de emergencia opcional.
type StopLossConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Threshold       float64 `yaml:"threshold"` // caída fraccional, ej. 0.02 = 2%
	CooldownSeconds int     `yaml:"cooldown_seconds"`
}

// PaperConfig configura el exchange simulado.
type PaperConfig struct {
	BaseBalance  float64 `yaml:"base_balance"`
	QuoteBalance float64 `yaml:"quote_balance"`
	InitialMid   float64 `yaml:"initial_mid"`
	Drift        float64 `yaml:"drift"`      // deriva fraccional por tick, ej. 0.0001
	Volatility   float64 `yaml:"volatility"` // amplitud fraccional del ruido, 0 = determinista
	Seed         int64   `yaml:"seed"`
	OrderRate    float64 `yaml:"order_rate"` // órdenes/seg admitidas (límite del venue simulado)
}

// JournalConfig controla dónde se journalean los quotes emitidos.
type JournalConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o vacío para desactivar
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza configuraciones inválidas de forma temprana, antes de
// construir nada: fallar aquí y no dentro del tick loop.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.TradingPair == "" {
		return fmt.Errorf("config.Validate: trading_pair is required")
	}
	if s.OrderAmount <= 0 {
		return fmt.Errorf("config.Validate: order_amount must be > 0, got %v", s.OrderAmount)
	}
	if s.BidSpread <= 0 || s.BidSpread >= 1 {
		return fmt.Errorf("config.Validate: bid_spread must be in (0, 1), got %v", s.BidSpread)
	}
	if s.AskSpread <= 0 || s.AskSpread >= 1 {
		return fmt.Errorf("config.Validate: ask_spread must be in (0, 1), got %v", s.AskSpread)
	}
	// Periodos ≥ 1: una ventana con capacidad 0 crecería sin límite.
	if s.EMAPeriod < 1 {
		return fmt.Errorf("config.Validate: ema_period must be >= 1, got %d", s.EMAPeriod)
	}
	if s.RSIPeriod < 1 {
		return fmt.Errorf("config.Validate: rsi_period must be >= 1, got %d", s.RSIPeriod)
	}
	if s.BollingerPeriod < 1 {
		return fmt.Errorf("config.Validate: bollinger_period must be >= 1, got %d", s.BollingerPeriod)
	}
	if s.BollingerDev <= 0 {
		return fmt.Errorf("config.Validate: bollinger_dev must be > 0, got %v", s.BollingerDev)
	}
	if s.InventoryTargetBasePct < 0 || s.InventoryTargetBasePct > 1 {
		return fmt.Errorf("config.Validate: inventory_target_base_pct must be in [0, 1], got %v", s.InventoryTargetBasePct)
	}
	if s.OrderRefreshSeconds <= 0 {
		return fmt.Errorf("config.Validate: order_refresh_seconds must be > 0, got %d", s.OrderRefreshSeconds)
	}
	if s.StopLoss.Enabled {
		if s.StopLoss.Threshold <= 0 {
			return fmt.Errorf("config.Validate: stop_loss.threshold must be > 0, got %v", s.StopLoss.Threshold)
		}
		if s.StopLoss.CooldownSeconds <= 0 {
			return fmt.Errorf("config.Validate: stop_loss.cooldown_seconds must be > 0, got %d", s.StopLoss.CooldownSeconds)
		}
	}
	return nil
}

// RefreshInterval devuelve el tiempo entre ticks como time.Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Strategy.OrderRefreshSeconds) * time.Second
}

// StopLossCooldown devuelve el cooldown del stop-loss como time.Duration.
func (c *Config) StopLossCooldown() time.Duration {
	return time.Duration(c.Strategy.StopLoss.CooldownSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MMBOT_TRADING_PAIR"); v != "" {
		cfg.Strategy.TradingPair = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	s := &cfg.Strategy
	if s.Exchange == "" {
		s.Exchange = "paper"
	}
	if s.TradingPair == "" {
		s.TradingPair = "ETH-USDT"
	}
	if s.OrderAmount == 0 {
		s.OrderAmount = 0.01
	}
	if s.BidSpread == 0 {
		s.BidSpread = 0.01
	}
	if s.AskSpread == 0 {
		s.AskSpread = 0.01
	}
	if s.OrderRefreshSeconds == 0 {
		s.OrderRefreshSeconds = 15
	}
	if s.InventoryTargetBasePct == 0 {
		s.InventoryTargetBasePct = 0.5
	}
	if s.EMAPeriod == 0 {
		s.EMAPeriod = 15
	}
	if s.RSIPeriod == 0 {
		s.RSIPeriod = 14
	}
	if s.BollingerPeriod == 0 {
		s.BollingerPeriod = 20
	}
	if s.BollingerDev == 0 {
		s.BollingerDev = 2.0
	}

	p := &cfg.Paper
	if p.BaseBalance == 0 && p.QuoteBalance == 0 {
		p.BaseBalance = 1.0
		p.QuoteBalance = 1000.0
	}
	if p.InitialMid == 0 {
		p.InitialMid = 100.0
	}
	if p.OrderRate == 0 {
		p.OrderRate = 5
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
