package config

const (
	defaultWorkspaceDir       = "~/.local/share/novelkit"
	defaultAPIBind            = "127.0.0.1:7974"
	defaultQuotaMiB           = 2048
	defaultFreshnessSeconds   = 30
	defaultGraceSeconds       = 60
	defaultSweepSeconds       = 300
	defaultStaleSeconds       = 1800
	defaultProbeTimeoutMillis = 2000
	defaultRepairProbeTTLSecs = 30
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults. Path fields
// that derive from the workspace directory are filled during normalize so a
// user override of workspace_dir relocates the whole tree.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			APIBind:      defaultAPIBind,
		},
		Storage: Storage{
			QuotaMiB: defaultQuotaMiB,
		},
		Cache: Cache{
			FreshnessSeconds:   defaultFreshnessSeconds,
			GraceSeconds:       defaultGraceSeconds,
			SweepSeconds:       defaultSweepSeconds,
			StaleSeconds:       defaultStaleSeconds,
			ProbeTimeoutMillis: defaultProbeTimeoutMillis,
			RepairProbeTTLSecs: defaultRepairProbeTTLSecs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
