// Package config loads the TOML configuration file into a RuntimeConfig
// snapshot, and watches that file for changes, publishing a freshly built
// snapshot on every change. Certificate files it references are not watched.
package config

// FileConfig is the root of the on-disk TOML schema.
type FileConfig struct {
	HTTPAddress    string              `toml:"http_address"`
	HTTPSAddress   string              `toml:"https_address"`
	HealthInterval int                 `toml:"health_interval"`
	BackendPools   []FilePool          `toml:"backend_pools"`
	Certificates   map[string]FileCert `toml:"certificates"`
	Logging        FileLoggingConfig   `toml:"logging"`
}

// FileLoggingConfig is the ambient logging section: an optional Loki push
// endpoint plus per-level enable toggles, applied to the applog package on
// every build (startup and every reload).
type FileLoggingConfig struct {
	LokiURL      string `toml:"loki_url"`
	InfoEnabled  *bool  `toml:"info_enabled"`
	DebugEnabled *bool  `toml:"debug_enabled"`
	ErrorEnabled *bool  `toml:"error_enabled"`
}

type FilePool struct {
	Matcher      FileMatcher      `toml:"matcher"`
	Addresses    []string         `toml:"addresses"`
	Schemes      []string         `toml:"schemes"`
	Strategy     FileStrategy     `toml:"strategy"`
	Middlewares  []FileMiddleware `toml:"middlewares"`
	HealthConfig FileHealthConfig `toml:"health_config"`
	Client       FileClientConfig `toml:"client"`
}

// FileMatcher. Type is one of "Host", "HostRegex", "And", "Or". And/Or
// reference earlier matchers by index into the pool's matcher list isn't
// expressible in flat TOML, so composite matchers nest their operands
// inline via A/B.
type FileMatcher struct {
	Type  string       `toml:"type"`
	Host  string       `toml:"host"`
	Regex string       `toml:"regex"`
	A     *FileMatcher `toml:"a"`
	B     *FileMatcher `toml:"b"`
}

// FileStrategy. Type is one of "RoundRobin", "Random", "IpHash",
// "LeastConnection", "StickyCookie". StickyCookie nests its Inner.
type FileStrategy struct {
	Type       string        `toml:"type"`
	CookieName string        `toml:"cookie_name"`
	HTTPOnly   bool          `toml:"http_only"`
	Secure     bool          `toml:"secure"`
	SameSite   string        `toml:"same_site"`
	Inner      *FileStrategy `toml:"inner"`
}

// FileMiddleware. Type is one of "MaxBodySize", "RateLimiter",
// "Authentication", "HttpsRedirector", "Compression", "CustomErrorPages".
type FileMiddleware struct {
	Type string `toml:"type"`

	// MaxBodySize
	Limit int64 `toml:"limit"`

	// RateLimiter
	RateLimit          uint64 `toml:"rate_limit"`
	RateWindowSeconds  int64  `toml:"window_seconds"`

	// Authentication
	DirectoryAddress string `toml:"directory_address"`
	UserBase         string `toml:"user_base"`
	RDNAttribute     string `toml:"rdn_attribute"`
	Recursive        bool   `toml:"recursive"`

	// CustomErrorPages
	Mapping map[string]string `toml:"mapping"`
}

type FileHealthConfig struct {
	SlowThresholdMS int64  `toml:"slow_threshold_ms"`
	TimeoutMS       int64  `toml:"timeout_ms"`
	Path            string `toml:"path"`
}

type FileClientConfig struct {
	PoolIdleTimeoutSeconds int `toml:"pool_idle_timeout_seconds"`
	PoolMaxIdlePerHost     int `toml:"pool_max_idle_per_host"`
}

// FileCert is either a file-backed certificate or an ACME-managed one.
type FileCert struct {
	FileCertPath string       `toml:"file_cert"`
	FileKeyPath  string       `toml:"file_key"`
	Acme         *FileAcmeCfg `toml:"acme"`
}

type FileAcmeCfg struct {
	Staging    bool   `toml:"staging"`
	Email      string `toml:"email"`
	PersistDir string `toml:"persist_dir"`
}
