package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"opencivicdata"`
	User     string `envconfig:"DB_USER" default:"openpolicy"`
	Password string `envconfig:"DB_PASS" default:"openpolicy123"`
}

type svcConfig struct {
	Address        string `envconfig:"CIVICDATA_ADDRESS" default:":8000"`
	MetricsAddress string `envconfig:"CIVICDATA_METRICS_ADDRESS" default:":8080"`
	LogLevel       string `envconfig:"CIVICDATA_LOG_LEVEL" default:"info"`

	Scheduler SchedulerConfig
	Policy    PolicyConfig
	Quality   QualityConfig

	MigrationFolder string `envconfig:"CIVICDATA_MIGRATIONS_FOLDER" default:""`

	Auth Auth
}

type Auth struct {
	AuthenticationType string `envconfig:"CIVICDATA_AUTH" default:"apikey"`

	// APIKeys maps api keys to role names, e.g. "key1:researcher,key2:admin".
	// Requests without a recognized key are treated as anonymous.
	APIKeys map[string]string `envconfig:"CIVICDATA_API_KEYS" default:""`
}

type SchedulerConfig struct {
	Workers    int `envconfig:"CIVICDATA_SCHEDULER_WORKERS" default:"4"`
	QueueDepth int `envconfig:"CIVICDATA_SCHEDULER_QUEUE_DEPTH" default:"64"`
	RunHistory int `envconfig:"CIVICDATA_RUN_HISTORY" default:"50"`

	// AllowConcurrentSameKind permits two runs of the same jurisdiction kind
	// to execute at once. The original product allowed this implicitly; here
	// it is an explicit switch so duplicate-work tradeoffs are a deployment
	// decision.
	AllowConcurrentSameKind bool `envconfig:"CIVICDATA_ALLOW_CONCURRENT_SAME_KIND" default:"true"`
}

type PolicyConfig struct {
	EngineURL     string        `envconfig:"CIVICDATA_OPA_URL" default:"http://localhost:8181"`
	EngineTimeout time.Duration `envconfig:"CIVICDATA_OPA_TIMEOUT" default:"500ms"`
	DecisionPath  string        `envconfig:"CIVICDATA_OPA_DECISION_PATH" default:"civic/authz/decision"`

	// Embedded starts a local OPA runtime serving PoliciesDir. Used in dev
	// and tests where no external OPA deployment exists.
	Embedded    bool   `envconfig:"CIVICDATA_OPA_EMBEDDED" default:"false"`
	PoliciesDir string `envconfig:"CIVICDATA_OPA_POLICIES_DIR" default:"policies"`
}

type QualityConfig struct {
	BatchInterval time.Duration `envconfig:"CIVICDATA_VALIDATION_INTERVAL" default:"1h"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config suitable for tests: sqlite in-memory store,
// single worker, embedded policy evaluation disabled.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service: &svcConfig{
			Address:        ":8000",
			MetricsAddress: ":8080",
			LogLevel:       "info",
			Scheduler: SchedulerConfig{
				Workers:                 1,
				QueueDepth:              16,
				RunHistory:              50,
				AllowConcurrentSameKind: true,
			},
			Policy: PolicyConfig{
				EngineURL:     "http://localhost:8181",
				EngineTimeout: 500 * time.Millisecond,
				DecisionPath:  "civic/authz/decision",
			},
			Quality: QualityConfig{BatchInterval: time.Hour},
			Auth:    Auth{AuthenticationType: "none"},
		},
	}
}
