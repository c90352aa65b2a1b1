package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/bioboy/slowkicker/internal/config"
	"github.com/bioboy/slowkicker/internal/glftpd"
	"github.com/bioboy/slowkicker/internal/lock"
)

// CheckConfiguration reports which config file the configuration came from
func CheckConfiguration(cfg *config.Config) HealthCheck {
	if cfg == nil {
		return HealthCheck{
			Name:    "config",
			Status:  StatusFailed,
			Message: "Configuration not loaded",
		}
	}

	// Find which config files exist
	var loadedFrom []string
	for _, path := range config.GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			loadedFrom = append(loadedFrom, path)
		}
	}

	message := "Defaults only (no config files)"
	if len(loadedFrom) > 0 {
		message = loadedFrom[len(loadedFrom)-1] // Show highest priority
	}

	return HealthCheck{
		Name:    "config",
		Status:  StatusOK,
		Message: fmt.Sprintf("%s, %d directory rule(s)", message, len(cfg.Directories)),
		Details: map[string]interface{}{
			"loaded_from": loadedFrom,
			"rules":       len(cfg.Directories),
		},
	}
}

// CheckRoot verifies the glftpd root directory exists
func CheckRoot(root string) HealthCheck {
	info, err := os.Stat(root)
	if err != nil {
		return HealthCheck{
			Name:    "root",
			Status:  StatusFailed,
			Message: fmt.Sprintf("Could not access %s: %v", root, err),
		}
	}

	if !info.IsDir() {
		return HealthCheck{
			Name:    "root",
			Status:  StatusFailed,
			Message: fmt.Sprintf("%s is not a directory", root),
		}
	}

	return HealthCheck{
		Name:    "root",
		Status:  StatusOK,
		Message: root,
		Details: map[string]interface{}{
			"path": root,
		},
	}
}

// CheckOnlineTable samples the online users table once
func CheckOnlineTable(ctx context.Context, source glftpd.Source) HealthCheck {
	sessions, err := source.Sample(ctx)
	if err != nil {
		return HealthCheck{
			Name:    "online_table",
			Status:  StatusFailed,
			Message: err.Error(),
		}
	}

	if len(sessions) == 0 {
		return HealthCheck{
			Name:    "online_table",
			Status:  StatusWarning,
			Message: "Empty or missing (is glftpd running with the same ipc_key?)",
		}
	}

	return HealthCheck{
		Name:    "online_table",
		Status:  StatusOK,
		Message: fmt.Sprintf("%d record(s)", len(sessions)),
		Details: map[string]interface{}{
			"records": len(sessions),
		},
	}
}

// CheckLogDirectory verifies the directory holding a log file is writable
func CheckLogDirectory(name, path string) HealthCheck {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	if err != nil {
		return HealthCheck{
			Name:    name,
			Status:  StatusFailed,
			Message: fmt.Sprintf("Could not access %s: %v", dir, err),
		}
	}

	if !info.IsDir() {
		return HealthCheck{
			Name:    name,
			Status:  StatusFailed,
			Message: fmt.Sprintf("%s is not a directory", dir),
		}
	}

	// Check if writable by creating a temp file
	testFile := filepath.Join(dir, ".slowkicker-health-check")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return HealthCheck{
			Name:    name,
			Status:  StatusFailed,
			Message: fmt.Sprintf("%s is not writable", dir),
		}
	}
	os.Remove(testFile)

	return HealthCheck{
		Name:    name,
		Status:  StatusOK,
		Message: fmt.Sprintf("%s (writable)", path),
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

// CheckGroupFile verifies the account database can be read when group lookup is enabled
func CheckGroupFile(cfg *config.Config) HealthCheck {
	if !cfg.Audit.GroupLookup {
		return HealthCheck{
			Name:    "group_file",
			Status:  StatusOK,
			Message: "Disabled (kicks are logged as SLOWKICK)",
		}
	}

	f, err := os.Open(cfg.Glftpd.GroupFile)
	if err != nil {
		return HealthCheck{
			Name:    "group_file",
			Status:  StatusWarning,
			Message: fmt.Sprintf("Unreadable, groups will show as %s: %v", glftpd.DefaultGroupName, err),
		}
	}
	f.Close()

	return HealthCheck{
		Name:    "group_file",
		Status:  StatusOK,
		Message: cfg.Glftpd.GroupFile,
	}
}

// CheckUndupe verifies the undupe binary is executable when enabled
func CheckUndupe(cfg *config.Config) HealthCheck {
	if !cfg.Undupe.Enabled {
		return HealthCheck{
			Name:    "undupe",
			Status:  StatusOK,
			Message: "Disabled",
		}
	}

	info, err := os.Stat(cfg.Undupe.Binary)
	if err != nil {
		return HealthCheck{
			Name:    "undupe",
			Status:  StatusWarning,
			Message: fmt.Sprintf("%s not found, kicked files stay in the dupe database", cfg.Undupe.Binary),
		}
	}

	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return HealthCheck{
			Name:    "undupe",
			Status:  StatusWarning,
			Message: fmt.Sprintf("%s is not executable", cfg.Undupe.Binary),
		}
	}

	return HealthCheck{
		Name:    "undupe",
		Status:  StatusOK,
		Message: cfg.Undupe.Binary,
	}
}

// CheckLock reports whether a daemon currently holds the lock file. The lock
// is only queried, never taken.
func CheckLock(path string) HealthCheck {
	held, err := lock.Held(path)
	if err != nil {
		return HealthCheck{
			Name:    "daemon",
			Status:  StatusFailed,
			Message: err.Error(),
		}
	}
	if held {
		return HealthCheck{
			Name:    "daemon",
			Status:  StatusOK,
			Message: "Running (lock held)",
			Details: map[string]interface{}{
				"running": true,
			},
		}
	}

	return HealthCheck{
		Name:    "daemon",
		Status:  StatusWarning,
		Message: "Not running",
		Details: map[string]interface{}{
			"running": false,
		},
	}
}

// CheckPrivileges warns when slowkicker cannot signal other users' processes
func CheckPrivileges() HealthCheck {
	if unix.Geteuid() == 0 {
		return HealthCheck{
			Name:    "privileges",
			Status:  StatusOK,
			Message: "Running as root",
		}
	}

	return HealthCheck{
		Name:    "privileges",
		Status:  StatusWarning,
		Message: fmt.Sprintf("Running as uid %d, sessions of other users cannot be kicked", unix.Geteuid()),
	}
}

// RunAll runs every check against cfg
func RunAll(ctx context.Context, cfg *config.Config, source glftpd.Source) []HealthCheck {
	return []HealthCheck{
		CheckConfiguration(cfg),
		CheckRoot(cfg.Glftpd.Root),
		CheckOnlineTable(ctx, source),
		CheckLogDirectory("daemon_log", cfg.Glftpd.DaemonLog),
		CheckLogDirectory("server_log", cfg.Glftpd.ServerLog),
		CheckGroupFile(cfg),
		CheckUndupe(cfg),
		CheckLock(cfg.Glftpd.LockFile),
		CheckPrivileges(),
	}
}
