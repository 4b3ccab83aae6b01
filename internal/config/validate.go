// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package config

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/tomtom215/campusmatch/internal/logging"
	"github.com/tomtom215/campusmatch/internal/validation"
)

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// maxMemoryPattern matches DuckDB memory limits such as 512MB, 2GB or 1.5GiB.
var maxMemoryPattern = regexp.MustCompile(`^\d+(\.\d+)?\s*(B|KB|MB|GB|TB|KiB|MiB|GiB|TiB)$`)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}

	validators := []func() error{
		c.validateLogging,
		c.validateDatabase,
		c.validateEmbedding,
		c.validateEngine,
		c.validateReindex,
		c.validateServer,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, disabled, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !maxMemoryPattern.MatchString(c.Database.MaxMemory) {
		return fmt.Errorf("DUCKDB_MAX_MEMORY must look like 512MB or 2GB, got %q", c.Database.MaxMemory)
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("DUCKDB_QUERY_TIMEOUT must be positive, got %v", c.Database.QueryTimeout)
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	e := &c.Embedding
	if err := e.CacheConfig().Validate(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if e.Provider == ProviderHTTP {
		if err := validateHTTPURL(e.BaseURL, "EMBEDDING_BASE_URL"); err != nil {
			return err
		}
		if e.Timeout <= 0 {
			return fmt.Errorf("EMBEDDING_TIMEOUT must be positive, got %v", e.Timeout)
		}
	}
	if e.Breaker.Enabled {
		if e.Breaker.FailureRatio <= 0 || e.Breaker.FailureRatio > 1 {
			return fmt.Errorf("embedding.breaker.failure_ratio must be in (0,1], got %v", e.Breaker.FailureRatio)
		}
		if e.Breaker.Timeout <= 0 {
			return fmt.Errorf("embedding.breaker.timeout must be positive, got %v", e.Breaker.Timeout)
		}
	}
	return nil
}

func (c *Config) validateEngine() error {
	if err := c.Engine().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

func (c *Config) validateReindex() error {
	if c.Reindex.Timeout <= 0 {
		return fmt.Errorf("REINDEX_TIMEOUT must be positive, got %v", c.Reindex.Timeout)
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP read and write timeouts must be positive, got %v and %v",
			c.Server.ReadTimeout, c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if c.Server.RateLimitRequests < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT_REQUESTS must not be negative, got %d", c.Server.RateLimitRequests)
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT_WINDOW must be positive when rate limiting is on, got %v",
			c.Server.RateLimitWindow)
	}
	return nil
}

// validateHTTPURL checks that rawURL is an absolute http(s) URL without query
// parameters. A path is allowed since embedding endpoints are usually
// versioned (https://host/v1).
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}
