package util

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

// Config is an alias for the config package.
type Config = *viper.Viper

// Settings holds the resolved service configuration. It is built once at startup
// and handed to the components that need it.
type Settings struct {
	AppName string `mapstructure:"app_name" validate:"required"`
	Debug   bool   `mapstructure:"debug"`

	HTTPAddress        string `mapstructure:"http_address"`
	HTTPPort           int    `mapstructure:"http_port" validate:"min=1,max=65535"`
	TLSCertificateFile string `mapstructure:"tls_certificate_file"`
	TLSPrivateKeyFile  string `mapstructure:"tls_private_key_file"`

	DBType     string `mapstructure:"db_type" validate:"oneof=postgres sqlite3"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBSSLMode  string `mapstructure:"db_sslmode"`
	SQLiteFile string `mapstructure:"sqlite_file"`

	JWTSecretKey             string `mapstructure:"jwt_secret_key" validate:"required"`
	JWTAlgorithm             string `mapstructure:"jwt_algorithm" validate:"oneof=HS256 HS384 HS512"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes" validate:"min=1"`
	RefreshTokenExpireDays   int    `mapstructure:"refresh_token_expire_days" validate:"min=1"`

	CORSAllowedOrigins   []string `mapstructure:"cors_allowed_origins"`
	CORSAllowCredentials bool     `mapstructure:"cors_allow_credentials"`

	DefaultTheme    string   `mapstructure:"default_theme" validate:"required"`
	AvailableThemes []string `mapstructure:"available_themes" validate:"min=1"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`

	GeoIPDatabase  string  `mapstructure:"geoip_database"`
	MenuSeedFile   string  `mapstructure:"menu_seed_file"`
	LoginRateLimit float64 `mapstructure:"login_rate_limit"`
	LoginRateBurst int     `mapstructure:"login_rate_burst"`
	BrokerAddress  string  `mapstructure:"broker_address"`
}

// AccessTokenTTL is the lifetime of an access token.
func (s *Settings) AccessTokenTTL() time.Duration {
	return time.Duration(s.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTokenTTL is the lifetime of a refresh token.
func (s *Settings) RefreshTokenTTL() time.Duration {
	return time.Duration(s.RefreshTokenExpireDays) * 24 * time.Hour
}

// ThemeAvailable reports whether name is one of the configured themes.
func (s *Settings) ThemeAvailable(name string) bool {
	for _, v := range s.AvailableThemes {
		if v == name {
			return true
		}
	}
	return false
}

var defaults = map[string]interface{}{
	"app_name":                    "corkboard",
	"debug":                       false,
	"http_address":                "",
	"http_port":                   8000,
	"db_type":                     "sqlite3",
	"db_host":                     "localhost",
	"db_port":                     "5432",
	"db_user":                     "postgres",
	"db_password":                 "",
	"db_name":                     "corkboard",
	"db_sslmode":                  "disable",
	"sqlite_file":                 "corkboard.db",
	"jwt_secret_key":              "",
	"jwt_algorithm":               "HS256",
	"access_token_expire_minutes": 30,
	"refresh_token_expire_days":   7,
	"cors_allowed_origins":        []string{"http://localhost:3000"},
	"cors_allow_credentials":      true,
	"default_theme":               "light",
	"available_themes":            []string{"light", "dark", "blue", "green"},
	"log_level":                   "info",
	"log_format":                  "text",
	"geoip_database":              "",
	"menu_seed_file":              "",
	"login_rate_limit":            1.0,
	"login_rate_burst":            10,
	"broker_address":              "",
}

// InitConfig initializes the config system.
func InitConfig() {
	viper.SetEnvPrefix("corkboard")
	viper.AutomaticEnv()
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
	viper.SetConfigName("corkboard")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/corkboard")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.WithError(err).Warning("Reading config file")
		}
	}
}

// LoadSettings decodes the current configuration into a validated Settings.
func LoadSettings() (*Settings, error) {
	return DecodeSettings(viper.GetViper())
}

// DecodeSettings decodes a viper instance into Settings. Comma separated strings,
// as they arrive from the environment, are split into slices.
func DecodeSettings(v Config) (*Settings, error) {
	settings := new(Settings)
	err := v.Unmarshal(settings, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		splitCommaHook,
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return nil, errors.Wrap(err, "decoding settings")
	}
	if err = Validate.Struct(settings); err != nil {
		return nil, errors.Wrap(err, "validating settings")
	}
	if settings.Debug {
		jww.SetStdoutThreshold(jww.LevelDebug)
	}
	return settings, nil
}

func splitCommaHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	raw := data.(string)
	if raw == "" {
		return []string{}, nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// InitLogging configures logrus from settings.
func InitLogging(settings *Settings) {
	level, err := log.ParseLevel(settings.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if settings.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	if settings.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
