package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the field-logistics service.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Redis holds the connection settings for the durable store.
	Redis RedisConfig `mapstructure:",squash"`

	// Annealing holds the tuning parameters for the route optimizer.
	Annealing AnnealingConfig `mapstructure:",squash"`

	// Reconcile holds the settings for the delivery-outcome reconciliation endpoint.
	Reconcile ReconcileConfig `mapstructure:",squash"`

	// Partner holds settings for the partner-device agent.
	Partner PartnerConfig `mapstructure:",squash"`
}

// RedisConfig holds connection details for the Redis-backed store.
type RedisConfig struct {
	// URL is the Redis connection string, e.g. redis://localhost:6379/0.
	URL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`
	// RouteTTLHours is how long a cached run sheet stays readable offline.
	RouteTTLHours int `mapstructure:"ROUTE_CACHE_TTL_HOURS" default:"24"`
}

// AnnealingConfig holds the simulated-annealing schedule for route sequencing.
// The defaults are tuned for run sheets of a few dozen stops with distances
// in meters; materially larger routes will want a different schedule.
type AnnealingConfig struct {
	// InitialTemp is the starting temperature of the cooling schedule.
	InitialTemp float64 `mapstructure:"SA_INITIAL_TEMP" default:"10000"`
	// CoolingRate is the geometric cooling multiplier applied each iteration.
	CoolingRate float64 `mapstructure:"SA_COOLING_RATE" default:"0.9995"`
	// MinTemp is the temperature at which the search terminates.
	MinTemp float64 `mapstructure:"SA_MIN_TEMP" default:"1"`
}

// ReconcileConfig holds the contract with the core platform's outcome API.
type ReconcileConfig struct {
	// URL is the batch reconciliation endpoint for offline delivery outcomes.
	URL string `mapstructure:"RECONCILE_URL" required:"true"`
	// TimeoutSeconds bounds a single batch flush request.
	TimeoutSeconds int `mapstructure:"RECONCILE_TIMEOUT_SECONDS" default:"15"`
}

// PartnerConfig holds settings for the partner-device agent binary.
type PartnerConfig struct {
	// APIURL is the base URL of the field-logistics API.
	APIURL string `mapstructure:"PARTNER_API_URL" default:"http://localhost:8080"`
	// ID identifies the partner running the agent.
	ID string `mapstructure:"PARTNER_ID" default:"partner-dev"`
	// DeviceID scopes the local offline action queue.
	DeviceID string `mapstructure:"PARTNER_DEVICE_ID" default:"device-dev"`
	// ReportIntervalSeconds is the wait between position reports.
	ReportIntervalSeconds int `mapstructure:"PARTNER_REPORT_INTERVAL_SECONDS" default:"5"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
