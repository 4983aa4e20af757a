package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/maheshrc27/autopost/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadPricing reads the pricing table from a YAML file. Missing keys keep
// their default values and a missing file yields the defaults.
func LoadPricing(path string) (models.PricingPolicy, error) {
	pricing := models.DefaultPricing()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("pricing file not found, using defaults", "path", path)
			return pricing, nil
		}
		return pricing, fmt.Errorf("read pricing file: %w", err)
	}

	if err := yaml.Unmarshal(data, &pricing); err != nil {
		return pricing, fmt.Errorf("parse pricing file: %w", err)
	}

	if pricing.CostShort < 0 || pricing.CostMedium < 0 || pricing.CostLong < 0 || pricing.CostImage < 0 {
		return pricing, errors.New("pricing costs must not be negative")
	}

	return pricing, nil
}
