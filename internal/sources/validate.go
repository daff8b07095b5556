package sources

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate applies defaults and verifies required fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}
	if cfg.Server.Version == "" {
		return fmt.Errorf("server.version is required")
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Server.Transport)) {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be stdio or http")
	}

	if cfg.Server.SpecStore.TTL == "" {
		cfg.Server.SpecStore.TTL = "30m"
	}
	if _, err := time.ParseDuration(cfg.Server.SpecStore.TTL); err != nil {
		return fmt.Errorf("server.spec_store.ttl is invalid: %w", err)
	}
	if cfg.Server.SpecStore.SweepInterval == "" {
		cfg.Server.SpecStore.SweepInterval = "5m"
	}
	if _, err := time.ParseDuration(cfg.Server.SpecStore.SweepInterval); err != nil {
		return fmt.Errorf("server.spec_store.sweep_interval is invalid: %w", err)
	}

	if strings.EqualFold(cfg.Server.Transport, "http") {
		if strings.TrimSpace(cfg.Server.HTTP.Listen) == "" {
			cfg.Server.HTTP.Listen = ":8080"
		}
		if cfg.Server.HTTP.Path == "" {
			cfg.Server.HTTP.Path = "/mcp"
		}
	}

	if strings.TrimSpace(cfg.Upstream.BaseURL) == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if _, err := parseBaseURL(cfg.Upstream.BaseURL); err != nil {
		return fmt.Errorf("upstream.base_url is invalid: %w", err)
	}
	if cfg.Upstream.DatasetParam == "" {
		cfg.Upstream.DatasetParam = "datasetId"
	}
	if strings.TrimSpace(cfg.Upstream.Timeout) != "" {
		if _, err := time.ParseDuration(cfg.Upstream.Timeout); err != nil {
			return fmt.Errorf("upstream.timeout is invalid: %w", err)
		}
	}
	if cfg.Upstream.RatePerMinute < 0 {
		return fmt.Errorf("upstream.rate_per_minute must be >= 0")
	}

	seen := map[string]struct{}{}
	for i, param := range cfg.Upstream.AllowedParams {
		name := strings.TrimSpace(param)
		if name == "" {
			return fmt.Errorf("upstream.allowed_params[%d] is empty", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate allowed param: %s", name)
		}
		seen[name] = struct{}{}
		if name == cfg.Upstream.DatasetParam {
			return fmt.Errorf("upstream.allowed_params must not repeat dataset_param")
		}
	}

	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("base url is invalid: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url must be absolute")
	}
	return parsed, nil
}
