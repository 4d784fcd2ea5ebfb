package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// OpenAI
	if c.OpenAI.APIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required")
	}
	if c.OpenAI.EmbeddingDim < 1 {
		errs = append(errs, fmt.Sprintf("OPENAI_EMBEDDING_DIM must be positive, got %d", c.OpenAI.EmbeddingDim))
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Matching parameters
	if c.Matching.DefaultTopK < 1 {
		errs = append(errs, fmt.Sprintf("MATCHING_DEFAULT_TOP_K must be positive, got %d", c.Matching.DefaultTopK))
	}
	if c.Matching.ExtractAfterTurns < 2 {
		errs = append(errs, fmt.Sprintf("MATCHING_EXTRACT_AFTER_TURNS must be at least 2, got %d", c.Matching.ExtractAfterTurns))
	}
	for name, boost := range map[string]float64{
		"MATCHING_BOOST_LOCATION":   c.Matching.LocationBoost,
		"MATCHING_BOOST_EMPLOYMENT": c.Matching.EmploymentBoost,
		"MATCHING_BOOST_REMOTE":     c.Matching.RemoteBoost,
		"MATCHING_BOOST_SALARY":     c.Matching.SalaryBoost,
	} {
		if boost < 0 {
			errs = append(errs, fmt.Sprintf("%s must not be negative, got %v", name, boost))
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
