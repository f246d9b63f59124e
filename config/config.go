package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/relbot/internal/domain"
)

// Config es la configuración completa del servicio.
type Config struct {
	Weights domain.Weights `yaml:"weights"`
	Trading TradingConfig  `yaml:"trading"`
	Broker  BrokerConfig   `yaml:"broker"`
	HTTP    HTTPConfig     `yaml:"http"`
	News    NewsConfig     `yaml:"news"`
	LLM     LLMConfig      `yaml:"llm"`
	Storage StorageConfig  `yaml:"storage"`
	Log     LogConfig      `yaml:"log"`
}

// TradingConfig controla el gate y el sizing.
type TradingConfig struct {
	ReliabilityThreshold float64 `yaml:"reliability_threshold"`
	BasePositionSize     float64 `yaml:"base_position_size"`
	MinPositionSize      float64 `yaml:"min_position_size"`
	MaxPositionSize      float64 `yaml:"max_position_size"`
	PollIntervalMillis   int     `yaml:"poll_interval_millis"`
	PollTimeoutSeconds   int     `yaml:"poll_timeout_seconds"`
}

// BrokerConfig apunta al gateway de brokerage.
type BrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID int    `yaml:"client_id"`
}

// BaseURL devuelve el base URL del gateway REST.
func (b BrokerConfig) BaseURL() string {
	return fmt.Sprintf("https://%s:%d/v1/api", b.Host, b.Port)
}

// HTTPConfig controla el servidor HTTP que recibe señales.
type HTTPConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Addr devuelve la dirección de bind.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// NewsConfig apunta a la API de noticias financieras.
type NewsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LLMConfig apunta al modelo de sentiment (API OpenAI-compatible).
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// StorageConfig controla dónde se persiste el audit log.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Las variables de entorno sobreescriben el YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// PollInterval devuelve el intervalo de polling como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalMillis) * time.Millisecond
}

// PollTimeout devuelve el timeout de polling como time.Duration.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Trading.PollTimeoutSeconds) * time.Second
}

// Validate comprueba la configuración al arrancar. Los errores son
// fatales: el proceso no debe servir tráfico con pesos o tamaños
// inválidos. Las warnings son informativas.
func (c *Config) Validate() (warnings []string, err error) {
	var errs []error

	if werr := c.Weights.Validate(); werr != nil {
		errs = append(errs, werr)
	}

	t := c.Trading
	if t.ReliabilityThreshold < 0 || t.ReliabilityThreshold > 1 {
		errs = append(errs, fmt.Errorf("reliability_threshold must be in [0,1] (got %.3f)", t.ReliabilityThreshold))
	}
	if t.MinPositionSize <= 0 || t.BasePositionSize <= 0 || t.MaxPositionSize <= 0 {
		errs = append(errs, errors.New("position sizes must all be > 0"))
	} else if t.MinPositionSize > t.BasePositionSize || t.BasePositionSize > t.MaxPositionSize {
		errs = append(errs, fmt.Errorf("position sizes must satisfy min <= base <= max (got %.0f/%.0f/%.0f)",
			t.MinPositionSize, t.BasePositionSize, t.MaxPositionSize))
	}

	if c.Broker.Port < 1024 || c.Broker.Port > 65535 {
		errs = append(errs, fmt.Errorf("broker port must be in [1024,65535] (got %d)", c.Broker.Port))
	}
	if c.HTTP.Port < 1024 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http port must be in [1024,65535] (got %d)", c.HTTP.Port))
	}

	if t.ReliabilityThreshold < 0.5 {
		warnings = append(warnings, fmt.Sprintf("reliability_threshold %.2f is low, elevated execution risk", t.ReliabilityThreshold))
	}
	if c.News.APIKey == "" {
		warnings = append(warnings, "news api_key not set, credibility will fall back to neutral")
	}
	if c.LLM.APIKey == "" {
		warnings = append(warnings, "llm api_key not set, sentiment and relevance scoring disabled")
	}

	return warnings, errors.Join(errs...)
}

// applyEnvOverrides sobreescribe valores con variables de entorno.
func applyEnvOverrides(cfg *Config) {
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setFloat("WEIGHT_PROBABILITY", &cfg.Weights.Probability)
	setFloat("WEIGHT_PLAUSIBILITY", &cfg.Weights.Plausibility)
	setFloat("WEIGHT_CREDIBILITY", &cfg.Weights.Credibility)
	setFloat("WEIGHT_POSSIBILITY", &cfg.Weights.Possibility)
	setFloat("RELIABILITY_THRESHOLD", &cfg.Trading.ReliabilityThreshold)
	setFloat("BASE_POSITION_SIZE", &cfg.Trading.BasePositionSize)
	setFloat("MIN_POSITION_SIZE", &cfg.Trading.MinPositionSize)
	setFloat("MAX_POSITION_SIZE", &cfg.Trading.MaxPositionSize)
	setString("IBKR_HOST", &cfg.Broker.Host)
	setInt("IBKR_PORT", &cfg.Broker.Port)
	setInt("IBKR_CLIENT_ID", &cfg.Broker.ClientID)
	setString("FINNHUB_API_KEY", &cfg.News.APIKey)
	setString("LLM_API_KEY", &cfg.LLM.APIKey)
	setString("LLM_BASE_URL", &cfg.LLM.BaseURL)
	setString("LLM_MODEL_NAME", &cfg.LLM.Model)
	setInt("HTTP_PORT", &cfg.HTTP.Port)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	zero := domain.Weights{}
	if cfg.Weights == zero {
		cfg.Weights = domain.DefaultWeights()
	}
	if cfg.Trading.ReliabilityThreshold == 0 {
		cfg.Trading.ReliabilityThreshold = 0.6
	}
	if cfg.Trading.BasePositionSize == 0 {
		cfg.Trading.BasePositionSize = 100
	}
	if cfg.Trading.MinPositionSize == 0 {
		cfg.Trading.MinPositionSize = 10
	}
	if cfg.Trading.MaxPositionSize == 0 {
		cfg.Trading.MaxPositionSize = 500
	}
	if cfg.Trading.PollIntervalMillis <= 0 {
		cfg.Trading.PollIntervalMillis = 100
	}
	if cfg.Trading.PollTimeoutSeconds <= 0 {
		cfg.Trading.PollTimeoutSeconds = 15
	}
	if cfg.Broker.Host == "" {
		cfg.Broker.Host = "127.0.0.1"
	}
	if cfg.Broker.Port == 0 {
		cfg.Broker.Port = 7497 // puerto demo
	}
	if cfg.Broker.ClientID == 0 {
		cfg.Broker.ClientID = 1
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 5000
	}
	if cfg.News.BaseURL == "" {
		cfg.News.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.deepseek.com"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "deepseek-chat"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "relbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
