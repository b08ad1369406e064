package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prebid/consent-string/bitutils"
	"github.com/prebid/consent-string/errortypes"
	"github.com/prebid/consent-string/vendorconsent"
	"github.com/prebid/consent-string/versions"
	"github.com/spf13/viper"
)

// Configuration holds the values a consent management platform stamps on every consent string it writes.
type Configuration struct {
	FormatVersion int     `mapstructure:"format_version"`
	CMP           CMP     `mapstructure:"cmp"`
	ConsentScreen int     `mapstructure:"consent_screen"`
	Language      string  `mapstructure:"language"`
	Encoding      string  `mapstructure:"encoding"`
	VendorList    Catalog `mapstructure:"vendor_list"`
	Metrics       Metrics `mapstructure:"metrics"`
}

// CMP identifies the consent tool implementation.
type CMP struct {
	ID      int `mapstructure:"id"`
	Version int `mapstructure:"version"`
}

// Catalog points at a Global Vendor List document on disk.
type Catalog struct {
	Path string `mapstructure:"path"`
}

type Metrics struct {
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

type PrometheusMetrics struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// New uses viper to get our configuration
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}
	c.Language = strings.ToLower(c.Language)

	if errs := c.validate(versions.Default()); len(errs) > 0 {
		return &c, errortypes.NewAggregateErrors("validation errors", errs)
	}
	return &c, nil
}

func (cfg *Configuration) validate(registry versions.Registry) []error {
	var errs []error

	versionCfg, err := registry.Lookup(cfg.FormatVersion)
	if err != nil {
		errs = append(errs, fmt.Errorf("format_version: %v", err))
	} else {
		errs = validateWidth(errs, "cmp.id", cfg.CMP.ID, versionCfg.Width(versions.FieldCmpID))
		errs = validateWidth(errs, "cmp.version", cfg.CMP.Version, versionCfg.Width(versions.FieldCmpVersion))
		errs = validateWidth(errs, "consent_screen", cfg.ConsentScreen, versionCfg.Width(versions.FieldConsentScreen))
		if _, err := bitutils.LanguageToBits(cfg.Language, versionCfg.Width(versions.FieldLanguageLetter), versionCfg.Width(versions.FieldLanguage)); err != nil {
			errs = append(errs, fmt.Errorf("language: %v", err))
		}
	}

	if _, err := vendorconsent.ParseEncoding(cfg.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("encoding: %v", err))
	}
	if cfg.Metrics.Prometheus.Enabled && cfg.Metrics.Prometheus.Namespace == "" {
		errs = append(errs, errors.New("metrics.prometheus.namespace must be set when prometheus metrics are enabled"))
	}
	return errs
}

func validateWidth(errs []error, key string, value int, width int) []error {
	if !bitutils.Fits(value, width) {
		return append(errs, fmt.Errorf("%s must be in [0, %d) to fit %d bits. Got %d", key, 1<<uint(width), width, value))
	}
	return errs
}

// VendorEncoding returns the configured vendor field encoding. New has already validated it.
func (cfg *Configuration) VendorEncoding() vendorconsent.Encoding {
	enc, _ := vendorconsent.ParseEncoding(cfg.Encoding)
	return enc
}

// SetupViper registers defaults, the config file search path and the environment binding.
// A missing config file is not an error; the defaults apply.
func SetupViper(v *viper.Viper, filename string) error {
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/config")

	v.SetDefault("format_version", 1)
	v.SetDefault("cmp.id", 0)
	v.SetDefault("cmp.version", 0)
	v.SetDefault("consent_screen", 0)
	v.SetDefault("language", "en")
	v.SetDefault("encoding", vendorconsent.Automatic.String())
	v.SetDefault("vendor_list.path", "")
	v.SetDefault("metrics.prometheus.enabled", false)
	v.SetDefault("metrics.prometheus.namespace", "consent")
	v.SetDefault("metrics.prometheus.subsystem", "")

	v.SetEnvPrefix("CONSENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}
