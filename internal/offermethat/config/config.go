// Application configuration loaded from environment variables via struct
// tags. Secret-looking values are masked before they hit the logs.
package config

import (
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"
)

type Config struct {
	SecretKey string `env:"SECRET_KEY"`

	DatabaseDSN string `env:"DATABASE_URL"`

	MinioEndpoint   string `env:"MINIO_ENDPOINT"`
	MinioAccessKey  string `env:"MINIO_ACCESS_KEY_ID"`
	MinioSecretKey  string `env:"MINIO_SECRET_ACCESS_KEY"`
	MinioBucketName string `env:"MINIO_BUCKET_NAME"`
	MinioUseSSL     bool   `env:"MINIO_USE_SSL"`

	WebURLRaw string `env:"WEB_URL"`
	WebURL    *url.URL

	SignedURLTTL int `env:"SIGNED_URL_TTL"` // seconds

	ExternalLimiterRaw string `env:"EXTERNAL_LIMITER_URL"`
	ExternalLimiter    *url.URL

	DefaultUserEmail string `env:"DEFAULT_USER_EMAIL"`

	SignUpEnable bool `env:"SIGN_UP_ENABLE"`
	Demo         bool `env:"DEMO"`
}

// ReadConfig loads the configuration from the environment and validates the
// required variables. Exits the process on missing or malformed values.
func ReadConfig() *Config {
	config := &Config{}

	envConfig("env", config)

	if config.WebURLRaw == "" {
		slog.Error("WEB_URL is required")
		os.Exit(1)
	} else {
		var err error
		config.WebURL, err = url.Parse(config.WebURLRaw)
		if err != nil {
			slog.Error("WEB_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	if config.SecretKey == "" {
		slog.Error("SECRET_KEY is required")
		os.Exit(1)
	}

	if config.DatabaseDSN == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if config.SignedURLTTL <= 0 {
		config.SignedURLTTL = 3600
	}

	if config.ExternalLimiterRaw != "" {
		var err error
		config.ExternalLimiter, err = url.Parse(config.ExternalLimiterRaw)
		if err != nil {
			slog.Error("EXTERNAL_LIMITER_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	return config
}

// Assigns env values to the struct fields by the tag on each field.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		if strings.Contains(strings.ToLower(fName), "pass") || strings.Contains(strings.ToLower(fName), "secret") || strings.Contains(strings.ToLower(fName), "token") {
			pass := strings.Split(GetEnv(fEnvTag), "")
			logValue = pass[0]
			for i := 1; i < len(pass)-1; i++ {
				logValue += "*"
			}
			logValue += pass[len(pass)-1]
		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}
