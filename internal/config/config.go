package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/bioboy/slowkicker/internal/glftpd"
	"github.com/bioboy/slowkicker/internal/history"
	"github.com/bioboy/slowkicker/internal/policy"
	"github.com/bioboy/slowkicker/internal/undupe"
)

// Config represents the complete configuration
type Config struct {
	Glftpd      GlftpdConfig           `toml:"glftpd"`
	Daemon      DaemonConfig           `toml:"daemon"`
	Audit       AuditConfig            `toml:"audit"`
	Undupe      UndupeConfig           `toml:"undupe"`
	Metrics     MetricsConfig          `toml:"metrics"`
	Directories []policy.DirectoryRule `toml:"directories"`
}

// GlftpdConfig locates the glftpd installation and its shared state.
// Empty file paths are derived from Root.
type GlftpdConfig struct {
	Root      string `toml:"root"`
	IPCKey    int    `toml:"ipc_key"`
	LockFile  string `toml:"lock_file"`
	DaemonLog string `toml:"daemon_log"` // slowkicker's own log
	ServerLog string `toml:"server_log"` // glftpd.log, read by site bots
	GroupFile string `toml:"group_file"`
}

// DaemonConfig controls the polling loop
type DaemonConfig struct {
	PollInterval string `toml:"poll_interval"` // "1s", "500ms"
	HistorySize  int    `toml:"history_size"`
	Verbose      bool   `toml:"verbose"` // mirror the daemon log on stderr
}

// AuditConfig selects how kicks are reported in glftpd.log
type AuditConfig struct {
	GroupLookup   bool   `toml:"group_lookup"` // resolve group names from etc/group
	Categories    bool   `toml:"categories"`   // SLOW / ZEROBYTE / STALLED instead of a single SLOWKICK line
	GroupCacheTTL string `toml:"group_cache_ttl"`
	JournalPath   string `toml:"journal_path"` // optional JSON Lines kick journal
}

// UndupeConfig configures the dupe database cleanup tool
type UndupeConfig struct {
	Enabled bool   `toml:"enabled"`
	Binary  string `toml:"binary"`
	Timeout string `toml:"timeout"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Listen string `toml:"listen"` // "" disables the endpoint
}

// DefaultRoot is the default glftpd installation directory.
const DefaultRoot = "/glftpd"

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Glftpd: GlftpdConfig{
			Root:   DefaultRoot,
			IPCKey: glftpd.DefaultIPCKey,
		},
		Daemon: DaemonConfig{
			PollInterval: "1s",
			HistorySize:  history.DefaultCapacity,
		},
		Audit: AuditConfig{
			GroupLookup:   true,
			Categories:    true,
			GroupCacheTTL: "1m",
		},
		Undupe: UndupeConfig{
			Enabled: true,
			Timeout: undupe.DefaultTimeout.String(),
		},
		Directories: []policy.DirectoryRule{
			{Mask: "/site/iso/*", MinSpeed: 75, MinDuration: 15, MaxKicks: 3},
			{Mask: "/site/mp3/*", MinSpeed: 75, MinDuration: 15, MaxKicks: 3},
			{Mask: "/site/0day/*", MinSpeed: 75, MinDuration: 15, MaxKicks: 3},
		},
	}
}

// GetConfigPaths returns the list of config file paths to check (in order)
// If SLOWKICKER_CONFIG environment variable is set, it is added as highest priority
func GetConfigPaths() []string {
	paths := []string{
		"/etc/slowkicker/config.toml",                  // System config
		path.Join(DefaultRoot, "etc", "slowkicker.toml"), // Alongside glftpd.conf
	}

	if envConfig := os.Getenv("SLOWKICKER_CONFIG"); envConfig != "" {
		paths = append(paths, envConfig)
	}

	return paths
}

// resolvePaths fills in file locations left empty with their place under Root.
func (c *Config) resolvePaths() {
	root := c.Glftpd.Root
	if c.Glftpd.LockFile == "" {
		c.Glftpd.LockFile = path.Join(root, "tmp", "slowkicker.lock")
	}
	if c.Glftpd.DaemonLog == "" {
		c.Glftpd.DaemonLog = path.Join(root, "ftp-data", "logs", "slowkicker.log")
	}
	if c.Glftpd.ServerLog == "" {
		c.Glftpd.ServerLog = path.Join(root, "ftp-data", "logs", "glftpd.log")
	}
	if c.Glftpd.GroupFile == "" {
		c.Glftpd.GroupFile = path.Join(root, "etc", "group")
	}
	if c.Undupe.Binary == "" {
		c.Undupe.Binary = path.Join(root, "bin", "undupe")
	}
}

// PollIntervalDuration returns the parsed poll interval
func (c *Config) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Daemon.PollInterval)
	return d
}

// UndupeTimeout returns the parsed undupe timeout
func (c *Config) UndupeTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Undupe.Timeout)
	return d
}

// GroupCacheTTL returns the parsed group name cache lifetime
func (c *Config) GroupCacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Audit.GroupCacheTTL)
	return d
}

// Validate checks the configuration for values the daemon cannot run with
func (c *Config) Validate() error {
	if !path.IsAbs(c.Glftpd.Root) {
		return fmt.Errorf("glftpd.root must be an absolute path, got %q", c.Glftpd.Root)
	}

	if d, err := time.ParseDuration(c.Daemon.PollInterval); err != nil {
		return fmt.Errorf("invalid daemon.poll_interval %q: %w", c.Daemon.PollInterval, err)
	} else if d <= 0 {
		return fmt.Errorf("daemon.poll_interval must be positive, got %s", d)
	}

	if c.Daemon.HistorySize <= 0 {
		return fmt.Errorf("daemon.history_size must be positive, got %d", c.Daemon.HistorySize)
	}

	if _, err := time.ParseDuration(c.Undupe.Timeout); err != nil {
		return fmt.Errorf("invalid undupe.timeout %q: %w", c.Undupe.Timeout, err)
	}

	if _, err := time.ParseDuration(c.Audit.GroupCacheTTL); err != nil {
		return fmt.Errorf("invalid audit.group_cache_ttl %q: %w", c.Audit.GroupCacheTTL, err)
	}

	for i, d := range c.Directories {
		if d.Mask == "" {
			return fmt.Errorf("directories[%d]: mask is required", i)
		}
		if d.MinSpeed < 0 || d.MinDuration < 0 || d.MaxKicks < 0 {
			return fmt.Errorf("directories[%d] (%s): thresholds must not be negative", i, d.Mask)
		}
	}

	if _, err := policy.NewTable(c.Directories); err != nil {
		return fmt.Errorf("invalid directories: %w", err)
	}

	return nil
}
