package sources

// Config is the top-level YAML configuration.
type Config struct {
	// Server describes the MCP server settings.
	Server ServerConfig `yaml:"server"`
	// Upstream describes the statistics API the broker fetches from.
	Upstream UpstreamConfig `yaml:"upstream"`
}

// ServerConfig defines MCP server settings.
type ServerConfig struct {
	// Name is the MCP server name.
	Name string `yaml:"name"`
	// Version is the MCP server version.
	Version string `yaml:"version"`
	// Transport selects the server transport ("http" or "stdio").
	Transport string `yaml:"transport"`
	// ShutdownTimeout overrides graceful shutdown duration.
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	// SpecStore configures spec retention and sweeping.
	SpecStore SpecStoreConfig `yaml:"spec_store"`
	// HTTP configures HTTP transport.
	HTTP HTTPConfig `yaml:"http"`
}

// SpecStoreConfig configures execution spec retention.
type SpecStoreConfig struct {
	// TTL is the maximum spec age before a sweep removes it.
	TTL string `yaml:"ttl"`
	// SweepInterval controls how often the sweep loop runs.
	SweepInterval string `yaml:"sweep_interval"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// Path is the MCP HTTP endpoint path.
	Path string `yaml:"path"`
	// ReadTimeout limits request read time.
	ReadTimeout string `yaml:"read_timeout"`
	// WriteTimeout limits response write time.
	WriteTimeout string `yaml:"write_timeout"`
	// IdleTimeout controls idle connections.
	IdleTimeout string `yaml:"idle_timeout"`
	// Stateless disables session tracking.
	Stateless bool `yaml:"stateless"`
}

// UpstreamConfig describes the statistics API endpoint that execution specs
// target. Values here feed the deterministic remote-call descriptor; the
// broker never interprets the dataset schema itself.
type UpstreamConfig struct {
	// BaseURL is the absolute API root, without a trailing slash.
	BaseURL string `yaml:"base_url"`
	// DataPath is the dataset endpoint path appended to BaseURL.
	DataPath string `yaml:"data_path"`
	// DatasetParam is the query parameter carrying the dataset identifier.
	DatasetParam string `yaml:"dataset_param"`
	// Query adds static query parameters to every call (API keys and the
	// like, usually rendered from the environment).
	Query map[string]string `yaml:"query"`
	// Headers adds HTTP headers to every call.
	Headers map[string]string `yaml:"headers"`
	// AllowedParams whitelists caller-supplied passthrough parameters.
	AllowedParams []string `yaml:"allowed_params"`
	// Timeout bounds a single remote call.
	Timeout string `yaml:"timeout"`
	// RatePerMinute limits remote calls per minute; zero disables limiting.
	RatePerMinute int `yaml:"rate_per_minute"`
}
