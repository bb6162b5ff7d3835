package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting. Precedence, highest first: CLI
// flags, PESTICIDE_* environment variables, config file, defaults.
type Config struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	ModelPath       string        `mapstructure:"model_path" yaml:"model_path" validate:"required"`
	MetadataPath    string        `mapstructure:"metadata_path" yaml:"metadata_path"`
	OnnxLibraryPath string        `mapstructure:"onnx_library_path" yaml:"onnx_library_path"`
	LogoPath        string        `mapstructure:"logo_path" yaml:"logo_path"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level" validate:"oneof=DEBUG INFO WARN ERROR"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" validate:"min=1024"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl" validate:"min=0"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit" validate:"min=0"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst" validate:"min=1"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
	Preload         bool          `mapstructure:"preload" yaml:"preload"`
	DeveloperName   string        `mapstructure:"developer_name" yaml:"developer_name"`
}

// Default expects models/ and static/ under the working directory.
func Default() Config {
	return Config{
		Host:            "",
		Port:            8080,
		ModelPath:       filepath.Join("models", "pesticide_cnn_model.onnx"),
		MetadataPath:    filepath.Join("models", "model_metadata.json"),
		LogoPath:        filepath.Join("static", "logo.png"),
		LogLevel:        "INFO",
		MaxUploadBytes:  10 << 20,
		CacheTTL:        10 * time.Minute,
		RateLimit:       5,
		RateBurst:       10,
		ShutdownTimeout: 10 * time.Second,
		DeveloperName:   "Jaydish Kennedy",
	}
}

// SetDefaults registers Default() with v so unset keys resolve.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("model_path", d.ModelPath)
	v.SetDefault("metadata_path", d.MetadataPath)
	v.SetDefault("onnx_library_path", d.OnnxLibraryPath)
	v.SetDefault("logo_path", d.LogoPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("max_upload_bytes", d.MaxUploadBytes)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("rate_burst", d.RateBurst)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
	v.SetDefault("preload", d.Preload)
	v.SetDefault("developer_name", d.DeveloperName)
}

// Init wires environment lookup and the optional config file into v.
// A missing default config file is not an error; a missing explicit one is.
func Init(v *viper.Viper, cfgFile string) error {
	// .env is optional.
	_ = godotenv.Load()

	SetDefaults(v)

	v.SetEnvPrefix("PESTICIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Hosting platforms set a bare PORT.
	_ = v.BindEnv("port", "PESTICIDE_PORT", "PORT")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pesticide"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes and validates the resolved configuration.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
