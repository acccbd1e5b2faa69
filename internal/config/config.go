package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Theme    ThemeConfig    `yaml:"theme"`
	Journal  JournalConfig  `yaml:"journal"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Images   ImagesConfig   `yaml:"images"`
	Features FeaturesConfig `yaml:"features"`
	Meta     MetaConfig     `yaml:"meta"`
	Social   SocialConfig   `yaml:"social"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Daybook"`
	Description string `yaml:"description" default:"A dated journal with inline images"`
	Tagline     string `yaml:"tagline" default:"One page per day"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12700"`
}

type ThemeConfig struct {
	Default            string       `yaml:"default" default:"dark"`
	AllowSwitching     bool         `yaml:"allow_switching" default:"true"`
	SyntaxHighlighting SyntaxConfig `yaml:"syntax_highlighting"`
}

type SyntaxConfig struct {
	DefaultDark  string `yaml:"default_dark" default:"gruvbox"`
	DefaultLight string `yaml:"default_light" default:"catppuccin-latte"`
}

type JournalConfig struct {
	EntriesPerPage  int    `yaml:"entries_per_page" default:"30"`
	DefaultTimezone string `yaml:"default_timezone" default:"UTC"`
}

// AutosaveConfig tunes the save pipeline: 2s of quiet before a save, a save
// no later than 30s after the first pending change, and up to three retries
// at 2s/4s/8s.
type AutosaveConfig struct {
	DebounceSeconds  int `yaml:"debounce_seconds" default:"2"`
	MaxWaitSeconds   int `yaml:"max_wait_seconds" default:"30"`
	RetryBaseSeconds int `yaml:"retry_base_seconds" default:"2"`
	RetryLimit       int `yaml:"retry_limit" default:"3"`
}

func (c AutosaveConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

func (c AutosaveConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds) * time.Second
}

func (c AutosaveConfig) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseSeconds) * time.Second
}

type ImagesConfig struct {
	// Library selects the image library backend: sqlite or s3.
	Library string   `yaml:"library" default:"sqlite"`
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket        string `yaml:"bucket" default:""`
	Region        string `yaml:"region" default:"auto"`
	Endpoint      string `yaml:"endpoint" default:""`
	PublicBaseURL string `yaml:"public_base_url" default:""`
}

type FeaturesConfig struct {
	Authentication AuthConfig   `yaml:"authentication"`
	Editor         EditorConfig `yaml:"editor"`
	Search         FeatureFlag  `yaml:"search"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Type    string `yaml:"type" default:"ed25519"`
}

type EditorConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

type FeatureFlag struct {
	Enabled bool `yaml:"enabled" default:"false"`
}

type MetaConfig struct {
	Author   string   `yaml:"author" default:""`
	Keywords []string `yaml:"keywords" default:"journal,daybook,notes"`
	Favicon  string   `yaml:"favicon" default:"/static/favicon.ico"`
}

type SocialConfig struct {
	GitHub   string `yaml:"github" default:""`
	Twitter  string `yaml:"twitter" default:""`
	LinkedIn string `yaml:"linkedin" default:""`
	Email    string `yaml:"email" default:""`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	AppConfig = config
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
