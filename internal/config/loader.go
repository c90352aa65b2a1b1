package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Load loads configuration from all available sources
// Hierarchy (lowest to highest precedence):
// 1. Built-in defaults
// 2. System config (/etc/slowkicker/config.toml)
// 3. glftpd config (/glftpd/etc/slowkicker.toml)
// 4. SLOWKICKER_CONFIG
// 5. explicit path (--config), which must exist
// 6. Environment variables (SLOWKICKER_*)
func Load(explicit string) (*Config, error) {
	// Start with defaults
	cfg := GetDefaultConfig()

	for _, path := range GetConfigPaths() {
		if err := loadConfigFile(cfg, path); err != nil {
			// Only return error if file exists but can't be parsed
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}

	if explicit != "" {
		if err := loadConfigFile(cfg, explicit); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", explicit, err)
		}
	}

	loadFromEnv(cfg)
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadConfigFile decodes a TOML config file on top of cfg. Keys absent from
// the file keep their current value; a [[directories]] list replaces the
// previous table as a whole.
func loadConfigFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	// Decoding into a populated slice would merge rule fields element-wise.
	previous := cfg.Directories
	cfg.Directories = nil

	md, err := toml.DecodeFile(path, cfg)
	if !md.IsDefined("directories") {
		cfg.Directories = previous
	}
	if err != nil {
		return err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown configuration keys: %v", undecoded)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	if env := os.Getenv("SLOWKICKER_ROOT"); env != "" {
		cfg.Glftpd.Root = env
	}

	if env := os.Getenv("SLOWKICKER_POLL_INTERVAL"); env != "" {
		cfg.Daemon.PollInterval = env
	}

	if env := os.Getenv("SLOWKICKER_METRICS_LISTEN"); env != "" {
		cfg.Metrics.Listen = env
	}

	if env := os.Getenv("SLOWKICKER_VERBOSE"); env == "true" || env == "1" {
		cfg.Daemon.Verbose = true
	}
}

// Encode writes cfg as TOML
func Encode(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// WriteExample writes an example config file to the specified path
func WriteExample(path string) error {
	example := `# slowkicker configuration
# Every key is optional; the values below are the built-in defaults.

[glftpd]
root = "/glftpd"
# SysV shared memory key of the online users table (ipc_key in glftpd.conf)
ipc_key = 0xDEADBABE
# Paths default to their usual place under root
# lock_file = "/glftpd/tmp/slowkicker.lock"
# daemon_log = "/glftpd/ftp-data/logs/slowkicker.log"
# server_log = "/glftpd/ftp-data/logs/glftpd.log"
# group_file = "/glftpd/etc/group"

[daemon]
# Pause between two passes over the online users table
poll_interval = "1s"
# Number of (user, path) pairs remembered for max_kicks
history_size = 1000
# Mirror the daemon log on stderr
verbose = false

[audit]
# Resolve the uploader's primary group for glftpd.log lines
group_lookup = true
# Log SLOW / ZEROBYTE / STALLED separately (false: one SLOWKICK line format)
categories = true
group_cache_ttl = "1m"
# Optional JSON Lines journal of every kick (read with 'slowkicker kicks')
# journal_path = "/glftpd/ftp-data/logs/slowkicker.jsonl"

[undupe]
enabled = true
# binary = "/glftpd/bin/undupe"
timeout = "10s"

[metrics]
# Prometheus endpoint, e.g. "127.0.0.1:9469" (empty = disabled)
listen = ""

# Directory rules, first match wins. Defining any rule replaces the defaults.
# min_speed is in kB/s, min_duration in seconds.
[[directories]]
mask = "/site/iso/*"
min_speed = 75.0
min_duration = 15
max_kicks = 3

[[directories]]
mask = "/site/mp3/*"
min_speed = 75.0
min_duration = 15
max_kicks = 3

[[directories]]
mask = "/site/0day/*"
min_speed = 75.0
min_duration = 15
max_kicks = 3
`

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(example), 0o644)
}
