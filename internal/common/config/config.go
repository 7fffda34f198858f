// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	GenAI         GenAIConfig             `mapstructure:"genai"`
	Assistant     AssistantConfig         `mapstructure:"assistant"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Mongo         MongoConfig         `mapstructure:"mongo"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

// MongoConfig points at the catalog database (products, templates, phrases).
type MongoConfig struct {
	URI                 string `mapstructure:"uri"`
	Database            string `mapstructure:"database"`
	ProductsCollection  string `mapstructure:"products_collection"`
	TemplatesCollection string `mapstructure:"templates_collection"`
	PhrasesCollection   string `mapstructure:"phrases_collection"`
	ConnectTimeout      int    `mapstructure:"connect_timeout"` // milliseconds
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	URL          string   `mapstructure:"url"`
	ProductIndex string   `mapstructure:"product_index"`
	Enabled      bool     `mapstructure:"enabled"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// GenAIConfig drives the generation cascade.
type GenAIConfig struct {
	APIKey         string   `mapstructure:"api_key"`
	Models         []string `mapstructure:"models"`
	MaxAttempts    int      `mapstructure:"max_attempts"`
	BaseDelay      int      `mapstructure:"base_delay"`   // milliseconds
	MaxDelay       int      `mapstructure:"max_delay"`    // milliseconds
	CallTimeout    int      `mapstructure:"call_timeout"` // milliseconds
	Temperature    float32  `mapstructure:"temperature"`
	MaxTokens      int      `mapstructure:"max_tokens"`
	FinalMaxTokens int      `mapstructure:"final_max_tokens"`
}

// AssistantConfig tunes conversation handling.
type AssistantConfig struct {
	DefaultLanguage    string             `mapstructure:"default_language"`
	ContextTTL         int                `mapstructure:"context_ttl"` // seconds
	MinConstraintKinds int                `mapstructure:"min_constraint_kinds"`
	MinConstraints     int                `mapstructure:"min_constraints"`
	MaxRecommendations int                `mapstructure:"max_recommendations"`
	WarmTenants        []string           `mapstructure:"warm_tenants"`
	ScoreWeights       map[string]float64 `mapstructure:"score_weights"`
}

// NotificationConfig configures human-handoff escalation notices.
type NotificationConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	TopicARN  string `mapstructure:"topic_arn"`
	FromEmail string `mapstructure:"from_email"`
	ToEmail   string `mapstructure:"to_email"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
