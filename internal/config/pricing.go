package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"privatize-quote/internal/quote"
)

// LoadPricing reads the pricing file. Unknown keys are rejected so that a
// typo never silently falls back to a zero price.
func LoadPricing(path string) (quote.PricingConfiguration, error) {
	const operation = "config.LoadPricing"

	var cfg quote.PricingConfiguration
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return quote.PricingConfiguration{}, fmt.Errorf("%s: decode %s: %w", operation, path, err)
	}
	return checkPricing(operation, md, cfg)
}

// ParsePricing is LoadPricing for an in-memory document.
func ParsePricing(data string) (quote.PricingConfiguration, error) {
	const operation = "config.ParsePricing"

	var cfg quote.PricingConfiguration
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return quote.PricingConfiguration{}, fmt.Errorf("%s: %w", operation, err)
	}
	return checkPricing(operation, md, cfg)
}

func checkPricing(operation string, md toml.MetaData, cfg quote.PricingConfiguration) (quote.PricingConfiguration, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return quote.PricingConfiguration{}, fmt.Errorf("%s: unknown keys: %s", operation, strings.Join(keys, ", "))
	}
	for _, v := range quote.Variants {
		if !md.IsDefined(string(v)) {
			return quote.PricingConfiguration{}, fmt.Errorf("%s: missing [%s] section", operation, v)
		}
	}
	if err := cfg.Validate(); err != nil {
		return quote.PricingConfiguration{}, fmt.Errorf("%s: %w", operation, err)
	}
	return cfg, nil
}
