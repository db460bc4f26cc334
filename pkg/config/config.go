package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Clock         ClockConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OPENLOTS_APP_ENV" required:"true"`
	Port         string `envconfig:"OPENLOTS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OPENLOTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OPENLOTS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"OPENLOTS_DB_DSN"`

	Host     string `envconfig:"OPENLOTS_DB_HOST"`
	Port     int    `envconfig:"OPENLOTS_DB_PORT" default:"5432"`
	User     string `envconfig:"OPENLOTS_DB_USER"`
	Password string `envconfig:"OPENLOTS_DB_PASSWORD"`
	Name     string `envconfig:"OPENLOTS_DB_NAME"`
	SSLMode  string `envconfig:"OPENLOTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPENLOTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPENLOTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPENLOTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPENLOTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OPENLOTS_REDIS_URL"`
	Address      string        `envconfig:"OPENLOTS_REDIS_ADDR"`
	Password     string        `envconfig:"OPENLOTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPENLOTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPENLOTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPENLOTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPENLOTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPENLOTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPENLOTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"OPENLOTS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"OPENLOTS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"OPENLOTS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OPENLOTS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OPENLOTS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OPENLOTS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OPENLOTS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OPENLOTS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"OPENLOTS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginNameLimit     int           `envconfig:"OPENLOTS_AUTH_RATE_LIMIT_LOGIN_NAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"OPENLOTS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"OPENLOTS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterNameLimit  int           `envconfig:"OPENLOTS_AUTH_RATE_LIMIT_REGISTER_NAME_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"OPENLOTS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// ClockConfig pins the auction timeline to a fixed offset zone. The site
// historically runs on UTC+3 wall time; the offset is configuration, not a
// constant, so tests can inject synthetic clocks.
type ClockConfig struct {
	ZoneName    string `envconfig:"OPENLOTS_TIME_ZONE_NAME" default:"MSK"`
	OffsetHours int    `envconfig:"OPENLOTS_TIME_ZONE_OFFSET_HOURS" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OPENLOTS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
