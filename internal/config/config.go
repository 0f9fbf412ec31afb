package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "America/Sao_Paulo"
	configPathEnv   = "SENTINELA_CONFIG"
	logLevelEnv     = "SENTINELA_LOG_LEVEL"
	databaseDSNEnv  = "DATABASE_DSN"

	xAPIKeyEnv            = "X_API_KEY"
	xAPISecretEnv         = "X_API_SECRET"
	xAccessTokenEnv       = "X_ACCESS_TOKEN"
	xAccessTokenSecretEnv = "X_ACCESS_TOKEN_SECRET"
	telegramTokenEnv      = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv     = "TELEGRAM_CHAT_ID"
)

// Publisher drivers.
const (
	PublisherX        = "x"
	PublisherTelegram = "telegram"
	PublisherConsole  = "console"
)

// Ledger drivers.
const (
	LedgerFile     = "file"
	LedgerPostgres = "postgres"
	LedgerSQLite   = "sqlite"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	HTTP      HTTPConfig      `yaml:"http"`
	Publisher PublisherConfig `yaml:"publisher"`
	News      NewsConfig      `yaml:"news"`
	Expenses  ExpensesConfig  `yaml:"expenses"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig bounds every outbound call.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// PublisherConfig chooses the platform and carries its credentials.
type PublisherConfig struct {
	Driver   string         `yaml:"driver"`
	X        XConfig        `yaml:"x"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// XConfig holds OAuth 1.0a user-context credentials for the X API.
type XConfig struct {
	Endpoint          string `yaml:"endpoint"`
	APIKey            string `yaml:"apiKey"`
	APISecret         string `yaml:"apiSecret"`
	AccessToken       string `yaml:"accessToken"`
	AccessTokenSecret string `yaml:"accessTokenSecret"`
}

// TelegramConfig wires all data required to post to a channel.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// LedgerConfig locates the published-items ledger of one pipeline.
type LedgerConfig struct {
	Driver    string        `yaml:"driver"`
	Path      string        `yaml:"path"`
	Key       string        `yaml:"key"`
	DSN       string        `yaml:"dsn"`
	Retention time.Duration `yaml:"retention"`
}

// SiteConfig describes a single news site with its scanner strategy.
type SiteConfig struct {
	Name     string            `yaml:"name"`
	Scanner  string            `yaml:"scanner"`
	URL      string            `yaml:"url"`
	Disabled bool              `yaml:"disabled"`
	Options  map[string]string `yaml:"options"`
}

// NewsConfig configures the news pipeline.
type NewsConfig struct {
	Ledger   LedgerConfig `yaml:"ledger"`
	Sites    []SiteConfig `yaml:"sites"`
	Hashtags string       `yaml:"hashtags"`
}

// ExpensesConfig configures the ranking job and the expense thread pipeline.
type ExpensesConfig struct {
	Ledger            LedgerConfig `yaml:"ledger"`
	RankingFile       string       `yaml:"rankingFile"`
	APIURL            string       `yaml:"apiUrl"`
	Months            int          `yaml:"months"`
	Concurrency       int          `yaml:"concurrency"`
	RequestsPerSecond float64      `yaml:"requestsPerSecond"`
	Hashtags          string       `yaml:"hashtags"`
}

// SchedulerConfig defines when each job runs in schedule mode; empty disables a job.
type SchedulerConfig struct {
	News     string         `yaml:"news"`
	Expenses string         `yaml:"expenses"`
	Ranking  string         `yaml:"ranking"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MetricsConfig enables pushing run metrics to a Prometheus pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
}

// Load reads .env, the YAML file (explicit path or SENTINELA_CONFIG) and env overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.News.Sites) == 0 {
		cfg.News.Sites = Default().News.Sites
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.News.Ledger.DSN = v
		c.Expenses.Ledger.DSN = v
	}

	if v := os.Getenv(xAPIKeyEnv); v != "" {
		c.Publisher.X.APIKey = v
	}
	if v := os.Getenv(xAPISecretEnv); v != "" {
		c.Publisher.X.APISecret = v
	}
	if v := os.Getenv(xAccessTokenEnv); v != "" {
		c.Publisher.X.AccessToken = v
	}
	if v := os.Getenv(xAccessTokenSecretEnv); v != "" {
		c.Publisher.X.AccessTokenSecret = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Publisher.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Publisher.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

// Validate reports settings that would make a run meaningless or unsafe.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Publisher.Driver) {
	case PublisherX:
		x := c.Publisher.X
		if x.APIKey == "" || x.APISecret == "" || x.AccessToken == "" || x.AccessTokenSecret == "" {
			errs = append(errs, errors.New("publisher.x: credentials are incomplete"))
		}
	case PublisherTelegram:
		if c.Publisher.Telegram.BotToken == "" || c.Publisher.Telegram.ChatID == "" {
			errs = append(errs, errors.New("publisher.telegram: botToken and chatId are required"))
		}
	case PublisherConsole:
	default:
		errs = append(errs, fmt.Errorf("publisher.driver: unknown driver %q", c.Publisher.Driver))
	}

	errs = append(errs, c.News.Ledger.validate("news.ledger"), c.Expenses.Ledger.validate("expenses.ledger"))

	for i, site := range c.News.Sites {
		if site.Name == "" || site.URL == "" || site.Scanner == "" {
			errs = append(errs, fmt.Errorf("news.sites[%d]: name, scanner and url are required", i))
		}
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}

	return errors.Join(errs...)
}

func (l LedgerConfig) validate(prefix string) error {
	var errs []error
	switch strings.ToLower(l.Driver) {
	case LedgerFile:
		if l.Path == "" || l.Key == "" {
			errs = append(errs, fmt.Errorf("%s: path and key are required for the file driver", prefix))
		}
	case LedgerPostgres, LedgerSQLite:
		if l.DSN == "" {
			errs = append(errs, fmt.Errorf("%s: dsn is required for the %s driver", prefix, l.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("%s: unknown driver %q", prefix, l.Driver))
	}
	if l.Retention <= 0 {
		errs = append(errs, fmt.Errorf("%s: retention must be positive", prefix))
	}
	return errors.Join(errs...)
}

// Default returns the built-in configuration: four official feeds, file ledgers, X publisher.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		HTTP:    HTTPConfig{Timeout: 15 * time.Second},
		Publisher: PublisherConfig{
			Driver: PublisherX,
			X:      XConfig{Endpoint: "https://api.twitter.com/2/tweets"},
			Telegram: TelegramConfig{
				APIURL: "https://api.telegram.org",
			},
		},
		News: NewsConfig{
			Ledger: LedgerConfig{
				Driver:    LedgerFile,
				Path:      "estado.json",
				Key:       "posted_news",
				Retention: 3 * 24 * time.Hour,
			},
			Hashtags: "#Noticias #Politica #Brasil",
			Sites: []SiteConfig{
				{Name: "senado", Scanner: "rss", URL: "https://www12.senado.leg.br/noticias/rss/agencia"},
				{Name: "camara", Scanner: "rss", URL: "https://www.camara.leg.br/noticias/rss/ultimas-noticias"},
				{
					Name: "stf", Scanner: "rss", URL: "https://noticias.stf.jus.br/rss",
					Options: map[string]string{"userAgent": "browser", "insecureSkipVerify": "true"},
				},
				{
					Name: "tse", Scanner: "rss", URL: "https://www.tse.jus.br/comunicacao/noticias/rss",
					Options: map[string]string{"userAgent": "browser", "insecureSkipVerify": "true"},
				},
			},
		},
		Expenses: ExpensesConfig{
			Ledger: LedgerConfig{
				Driver:    LedgerFile,
				Path:      "estado_gastos.json",
				Key:       "posted_deputies",
				Retention: 30 * 24 * time.Hour,
			},
			RankingFile:       "ranking_gastos.json",
			APIURL:            "https://dadosabertos.camara.leg.br/api/v2",
			Months:            3,
			Concurrency:       4,
			RequestsPerSecond: 5,
			Hashtags:          "#ProjetoSentinela #TransparenciaBrasil #Fiscalize #Governo #GastosPúblicos",
		},
		Scheduler: SchedulerConfig{
			News:     "*/30 7-22 * * *",
			Expenses: "0 12 * * *",
			Ranking:  "0 3 * * 1",
			Timezone: defaultTimezone,
		},
		Metrics: MetricsConfig{Job: "sentinela"},
	}
}
