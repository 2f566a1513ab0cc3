package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that cfg is usable. The tool id is not checked; the
// catalog service decides which tools exist.
func Validate(cfg *Config) error {
	var errs []error

	if err := ValidateBaseURL(cfg.API.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if cfg.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", cfg.API.Timeout))
	}
	if strings.TrimSpace(cfg.Tool) == "" {
		errs = append(errs, errors.New("tool must not be empty"))
	}
	if cfg.Search.Debounce < 0 {
		errs = append(errs, fmt.Errorf("search.debounce must not be negative, got %s", cfg.Search.Debounce))
	}
	if cfg.Search.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("search.cache_size must be positive, got %d", cfg.Search.CacheSize))
	}
	if cfg.Session.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("session.history_limit must be positive, got %d", cfg.Session.HistoryLimit))
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url has no host: %q", raw)
	}
	return nil
}
