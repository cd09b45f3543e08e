package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// SeedCountry is one bootstrap country from the seed catalog.
type SeedCountry struct {
	Name string `mapstructure:"name"`
	Code string `mapstructure:"code"`
}

// SeedCatalog lists the countries created at startup when they are missing.
type SeedCatalog struct {
	Countries []SeedCountry `mapstructure:"countries"`
}

// LoadSeedCatalog reads the seed catalog from a YAML file:
//
//	seed:
//	  countries:
//	    - name: Benin
//	      code: BEN
//
// SEED_CONFIG_FILE pins the file explicitly; otherwise the usual config
// paths are searched and, when no file exists, the env-configured default
// country is used.
func LoadSeedCatalog(cfg Config) (SeedCatalog, error) {
	v := viper.New()
	if cfg.SeedConfigFile != "" {
		v.SetConfigFile(cfg.SeedConfigFile)
	} else {
		v.SetConfigName("seed")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/fieldtrack")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfg.SeedConfigFile == "" && errors.As(err, &notFound) {
			return defaultSeedCatalog(cfg), nil
		}
		return SeedCatalog{}, err
	}

	var catalog SeedCatalog
	if err := v.UnmarshalKey("seed", &catalog); err != nil {
		return SeedCatalog{}, err
	}
	if err := validateSeedCatalog(catalog); err != nil {
		return SeedCatalog{}, err
	}
	return catalog, nil
}

func defaultSeedCatalog(cfg Config) SeedCatalog {
	if !cfg.SeedDefaultCountry {
		return SeedCatalog{}
	}
	return SeedCatalog{Countries: []SeedCountry{{
		Name: cfg.DefaultCountryName,
		Code: cfg.DefaultCountryCode,
	}}}
}

func validateSeedCatalog(catalog SeedCatalog) error {
	for _, country := range catalog.Countries {
		if strings.TrimSpace(country.Name) == "" || strings.TrimSpace(country.Code) == "" {
			return fmt.Errorf("seed country needs both name and code, got %q/%q", country.Name, country.Code)
		}
	}
	return nil
}
