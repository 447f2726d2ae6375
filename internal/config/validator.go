package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Validate runs struct-tag validation (go-playground/validator, teacher's
// choice in pkg/config/validator.go) plus semantic checks that tags can't
// express: no phase may be partitioned twice, and the budget partition
// fractions must not sum to more than 1.0 (the reserve fraction is not
// counted in that sum).
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if len(cfg.Providers) == 0 {
		return ErrNoProviders
	}

	var sum float64
	seen := make(map[string]bool, len(cfg.Budget.Partitions))
	for _, p := range cfg.Budget.Partitions {
		if seen[string(p.Phase)] {
			return fmt.Errorf("%w: duplicate budget partition for phase %q", ErrValidationFailed, p.Phase)
		}
		seen[string(p.Phase)] = true
		sum += p.Fraction
	}
	if sum > 1.0+1e-9 {
		return fmt.Errorf("%w: budget partitions sum to %.4f, exceeds 1.0", ErrValidationFailed, sum)
	}
	return nil
}
