package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// RoyaltyPolicy controls how the royalty reports price a line item.
// Percentages are whole numbers (20 means 20%).
type RoyaltyPolicy struct {
	DefaultPercent   float64 `mapstructure:"defaultPercent"`
	DeductionPercent float64 `mapstructure:"deductionPercent"`
	VATPercent       float64 `mapstructure:"vatPercent"`
	Vendor           string  `mapstructure:"vendor"`
	CompanyName      string  `mapstructure:"companyName"`
}

func DefaultRoyaltyPolicy() RoyaltyPolicy {
	return RoyaltyPolicy{
		DefaultPercent:   20,
		DeductionPercent: 30,
		VATPercent:       25,
	}
}

// LoadRoyaltyPolicy reads royalty.yml when present and falls back to defaults.
func LoadRoyaltyPolicy() (RoyaltyPolicy, error) {
	v := viper.New()

	v.SetConfigName("royalty")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/shopmirror")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHOPMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRoyaltyPolicy()
	v.SetDefault("royalty.defaultPercent", defaults.DefaultPercent)
	v.SetDefault("royalty.deductionPercent", defaults.DeductionPercent)
	v.SetDefault("royalty.vatPercent", defaults.VATPercent)
	v.SetDefault("royalty.vendor", defaults.Vendor)
	v.SetDefault("royalty.companyName", defaults.CompanyName)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return RoyaltyPolicy{}, err
		}
	}

	var policy RoyaltyPolicy
	if err := v.UnmarshalKey("royalty", &policy); err != nil {
		return RoyaltyPolicy{}, err
	}
	if err := validateRoyaltyPolicy(policy); err != nil {
		return RoyaltyPolicy{}, err
	}
	return policy, nil
}

func validateRoyaltyPolicy(p RoyaltyPolicy) error {
	if p.DefaultPercent < 0 || p.DefaultPercent > 100 {
		return errors.New("royalty defaultPercent must be within [0, 100]")
	}
	if p.DeductionPercent < 0 || p.DeductionPercent > 100 {
		return errors.New("royalty deductionPercent must be within [0, 100]")
	}
	if p.VATPercent < 0 || p.VATPercent > 100 {
		return errors.New("royalty vatPercent must be within [0, 100]")
	}
	return nil
}
