package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General     GeneralSettings     `json:"general"`
	Connections ConnectionSettings  `json:"connections"`
	Chunks      ChunkSettings       `json:"chunks"`
	Retry       RetrySettings       `json:"retry"`
	Performance PerformanceSettings `json:"performance"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	DefaultDownloadDir string `json:"default_download_dir"`
	WarnOnDuplicate     bool   `json:"warn_on_duplicate"`
	AutoResumeOnStart   bool   `json:"auto_resume_on_startup"`
	EnableResume        bool   `json:"enable_resume"`
	SkipUpdateCheck     bool   `json:"skip_update_check"`

	Theme             int `json:"theme"`
	LogRetentionCount int `json:"log_retention_count"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// ConnectionSettings contains network and HTTP client parameters (spec.md §6).
type ConnectionSettings struct {
	MaxConcurrentDownloads int           `json:"max_concurrent_downloads"`
	UserAgent              string        `json:"user_agent"`
	ProxyURL               string        `json:"proxy_url"`
	Timeout                time.Duration `json:"timeout"`
	MaxRedirects           int           `json:"max_redirects"`
	VerifySSL              bool          `json:"verify_ssl"`
}

// ChunkSettings contains the chunked-download knobs (spec.md §6).
type ChunkSettings struct {
	EnableChunkedDownload bool  `json:"enable_chunked_download"`
	ChunkSize             int64 `json:"chunk_size"`
	MinChunkSize          int64 `json:"min_chunk_size"`
	MaxConcurrentChunks   int   `json:"max_concurrent_chunks"`
	WorkerBufferSize      int   `json:"worker_buffer_size"`
}

// RetrySettings contains the retry policy parameters (spec.md §6/§7).
type RetrySettings struct {
	RetryCount       int           `json:"retry_count"`
	RetryDelay       time.Duration `json:"retry_delay"`
	RetryMaxDelay    time.Duration `json:"retry_max_delay"`
	BackoffMultipler float64       `json:"retry_backoff_multiplier"`
	JitterFactor     float64       `json:"retry_jitter_factor"`
	RetryableErrors  []string      `json:"retryable_errors"`
}

// PerformanceSettings contains performance tuning parameters.
type PerformanceSettings struct {
	SpeedLimitKB          int64         `json:"speed_limit_kb"`
	SlowWorkerThreshold   float64       `json:"slow_worker_threshold"`
	SlowWorkerGracePeriod time.Duration `json:"slow_worker_grace_period"`
	StallTimeout          time.Duration `json:"stall_timeout"`
	SpeedEmaAlpha         float64       `json:"speed_ema_alpha"`
}

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text displayed in right pane
	Type        string // "string", "int", "int64", "bool", "duration", "float64"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "default_download_dir", Label: "Default Download Dir", Description: "Default directory for new downloads. Leave empty to use current directory.", Type: "string"},
			{Key: "warn_on_duplicate", Label: "Warn on Duplicate", Description: "Saved with the settings but not read: adding a duplicate download shows no warning.", Type: "bool"},
			{Key: "auto_resume_on_startup", Label: "Auto Resume On Startup", Description: "Automatically resume interrupted tasks on startup.", Type: "bool"},
			{Key: "enable_resume", Label: "Enable Resume", Description: "Write resume records so interrupted tasks can continue later.", Type: "bool"},
			{Key: "skip_update_check", Label: "Skip Update Check", Description: "Saved with the settings but not read: chunkdl performs no update check.", Type: "bool"},
			{Key: "theme", Label: "App Theme", Description: "UI theme for the status view (System, Light, Dark).", Type: "int"},
			{Key: "log_retention_count", Label: "Log Retention Count", Description: "Saved with the settings but not read: debug.log is a single file that is appended to.", Type: "int"},
		},
		"Connections": {
			{Key: "max_concurrent_downloads", Label: "Max Concurrent Downloads", Description: "Maximum number of tasks running at once.", Type: "int"},
			{Key: "user_agent", Label: "User Agent", Description: "Custom User-Agent string for HTTP requests. Leave empty for default.", Type: "string"},
			{Key: "proxy_url", Label: "Proxy URL", Description: "HTTP(S) or SOCKS5 proxy URL. Leave empty to use system default.", Type: "string"},
			{Key: "timeout", Label: "Timeout", Description: "Per-request timeout (e.g. 30s).", Type: "duration"},
			{Key: "max_redirects", Label: "Max Redirects", Description: "Maximum number of redirects to follow before probing.", Type: "int"},
		},
		"Chunks": {
			{Key: "enable_chunked_download", Label: "Enable Chunked Download", Description: "Split range-capable downloads into concurrent chunks.", Type: "bool"},
			{Key: "chunk_size", Label: "Chunk Size", Description: "Target size of each chunk in bytes.", Type: "int64"},
			{Key: "min_chunk_size", Label: "Min Chunk Size", Description: "Minimum chunk size below which chunking is skipped.", Type: "int64"},
			{Key: "max_concurrent_chunks", Label: "Max Concurrent Chunks", Description: "Maximum number of chunks downloading in parallel per task.", Type: "int"},
			{Key: "worker_buffer_size", Label: "Worker Buffer Size", Description: "I/O buffer size per chunk worker in bytes.", Type: "int"},
		},
		"Retry": {
			{Key: "retry_count", Label: "Retry Count", Description: "Number of times to retry a failed chunk before giving up.", Type: "int"},
			{Key: "retry_delay", Label: "Retry Delay", Description: "Base delay before the first retry (e.g. 500ms).", Type: "duration"},
			{Key: "retry_max_delay", Label: "Retry Max Delay", Description: "Upper bound on backoff delay (e.g. 30s).", Type: "duration"},
		},
		"Performance": {
			{Key: "speed_limit_kb", Label: "Speed Limit (KB/s)", Description: "Aggregate throughput cap across all chunks. 0 disables limiting.", Type: "int64"},
			{Key: "slow_worker_threshold", Label: "Slow Worker Threshold", Description: "Saved with the settings but not read: the engine does no slow-worker detection.", Type: "float64"},
			{Key: "stall_timeout", Label: "Stall Timeout", Description: "Saved with the settings but not read: the engine does no stall detection.", Type: "duration"},
		},
	}
}

// CategoryOrder returns the order of categories for UI tabs.
func CategoryOrder() []string {
	return []string{"General", "Connections", "Chunks", "Retry", "Performance"}
}

const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// DefaultSettings returns a new Settings instance with sensible defaults,
// matching the knob table in spec.md §6.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	defaultDir := filepath.Join(homeDir, "Downloads")

	return &Settings{
		General: GeneralSettings{
			DefaultDownloadDir: defaultDir,
			WarnOnDuplicate:    true,
			AutoResumeOnStart:  true,
			EnableResume:       true,
			SkipUpdateCheck:    false,

			Theme:             ThemeAdaptive,
			LogRetentionCount: 5,
		},
		Connections: ConnectionSettings{
			MaxConcurrentDownloads: 3,
			UserAgent:              "", // Empty means use default UA
			Timeout:                30 * time.Second,
			MaxRedirects:           10,
			VerifySSL:              true,
		},
		Chunks: ChunkSettings{
			EnableChunkedDownload: true,
			ChunkSize:             4 * MB,
			MinChunkSize:          2 * MB,
			MaxConcurrentChunks:   4,
			WorkerBufferSize:      512 * KB,
		},
		Retry: RetrySettings{
			RetryCount:       5,
			RetryDelay:       500 * time.Millisecond,
			RetryMaxDelay:    30 * time.Second,
			BackoffMultipler: 2.0,
			JitterFactor:     0.2,
			RetryableErrors: []string{
				"timeout",
				"connection reset",
				"dns resolution failed",
				"connection refused",
				"temporary failure",
				"broken pipe",
				"eof",
			},
		},
		Performance: PerformanceSettings{
			SpeedLimitKB:          0,
			SlowWorkerThreshold:   0.3,
			SlowWorkerGracePeriod: 5 * time.Second,
			StallTimeout:          5 * time.Second,
			SpeedEmaAlpha:         0.3,
		},
	}
}

// GetSurgeDir returns the directory holding chunkdl's own state: the lock
// file and settings used by the CLI. Kept distinct from a task's
// download directory, which holds tasks.json, resume_*.json, and chunk
// temp directories (spec.md §6).
func GetSurgeDir() string {
	if dir := os.Getenv("CHUNKDL_HOME"); dir != "" {
		return dir
	}
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".chunkdl")
	}
	return filepath.Join(cfgDir, "chunkdl")
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetSurgeDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if file doesn't exist.
func LoadSettings() (*Settings, error) {
	path := GetSettingsPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings() // Start with defaults to fill any missing fields
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	path := GetSettingsPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// RuntimeConfig is the flattened, consumer-facing view of Settings that the
// engine and task manager take as a parameter. Keeping it separate from
// Settings lets the on-disk schema evolve without touching every call site.
type RuntimeConfig struct {
	MaxConcurrentDownloads int
	UserAgent              string
	ProxyURL               string
	Timeout                time.Duration
	MaxRedirects           int
	VerifySSL              bool

	EnableChunkedDownload bool
	ChunkSize             int64
	MinChunkSize          int64
	MaxConcurrentChunks   int
	WorkerBufferSize      int

	EnableResume      bool
	AutoResumeOnStart bool

	RetryCount       int
	RetryDelay       time.Duration
	RetryMaxDelay    time.Duration
	BackoffMultipler float64
	JitterFactor     float64
	RetryableErrors  []string

	SpeedLimitKB int64

	DownloadsDir string
}

// ToRuntimeConfig creates a RuntimeConfig from user Settings.
func (s *Settings) ToRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MaxConcurrentDownloads: s.Connections.MaxConcurrentDownloads,
		UserAgent:              s.Connections.UserAgent,
		ProxyURL:               s.Connections.ProxyURL,
		Timeout:                s.Connections.Timeout,
		MaxRedirects:           s.Connections.MaxRedirects,
		VerifySSL:              s.Connections.VerifySSL,

		EnableChunkedDownload: s.Chunks.EnableChunkedDownload,
		ChunkSize:             s.Chunks.ChunkSize,
		MinChunkSize:          s.Chunks.MinChunkSize,
		MaxConcurrentChunks:   s.Chunks.MaxConcurrentChunks,
		WorkerBufferSize:      s.Chunks.WorkerBufferSize,

		EnableResume:      s.General.EnableResume,
		AutoResumeOnStart: s.General.AutoResumeOnStart,

		RetryCount:       s.Retry.RetryCount,
		RetryDelay:       s.Retry.RetryDelay,
		RetryMaxDelay:    s.Retry.RetryMaxDelay,
		BackoffMultipler: s.Retry.BackoffMultipler,
		JitterFactor:     s.Retry.JitterFactor,
		RetryableErrors:  s.Retry.RetryableErrors,

		SpeedLimitKB: s.Performance.SpeedLimitKB,

		DownloadsDir: s.General.DefaultDownloadDir,
	}
}
