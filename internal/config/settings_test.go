package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	if settings == nil {
		t.Fatal("DefaultSettings returned nil")
	}

	t.Run("GeneralSettings", func(t *testing.T) {
		if settings.General.DefaultDownloadDir == "" {
			t.Error("Default download directory should not be empty")
		}
		if !strings.Contains(strings.ToLower(settings.General.DefaultDownloadDir), "downloads") {
			t.Errorf("Default download dir should contain 'Downloads', got: %s", settings.General.DefaultDownloadDir)
		}
		if !settings.General.WarnOnDuplicate {
			t.Error("WarnOnDuplicate should be true by default")
		}
		if !settings.General.AutoResumeOnStart {
			t.Error("AutoResumeOnStart should be true by default")
		}
		if !settings.General.EnableResume {
			t.Error("EnableResume should be true by default")
		}
	})

	t.Run("ConnectionSettings", func(t *testing.T) {
		if settings.Connections.MaxConcurrentDownloads <= 0 {
			t.Errorf("MaxConcurrentDownloads should be positive, got: %d", settings.Connections.MaxConcurrentDownloads)
		}
		if settings.Connections.Timeout <= 0 {
			t.Error("Timeout should be positive")
		}
		// UserAgent can be empty (means use default)
	})

	t.Run("ChunkSettings", func(t *testing.T) {
		if settings.Chunks.MinChunkSize <= 0 {
			t.Errorf("MinChunkSize should be positive, got: %d", settings.Chunks.MinChunkSize)
		}
		if settings.Chunks.ChunkSize < settings.Chunks.MinChunkSize {
			t.Error("ChunkSize should be at least MinChunkSize")
		}
		if settings.Chunks.WorkerBufferSize <= 0 {
			t.Errorf("WorkerBufferSize should be positive, got: %d", settings.Chunks.WorkerBufferSize)
		}
	})

	t.Run("RetrySettings", func(t *testing.T) {
		if settings.Retry.RetryCount < 0 {
			t.Errorf("RetryCount should be non-negative, got: %d", settings.Retry.RetryCount)
		}
		if settings.Retry.RetryDelay <= 0 {
			t.Error("RetryDelay should be positive")
		}
		if len(settings.Retry.RetryableErrors) == 0 {
			t.Error("RetryableErrors should be non-empty")
		}
	})

	t.Run("PerformanceSettings", func(t *testing.T) {
		if settings.Performance.SpeedLimitKB < 0 {
			t.Error("SpeedLimitKB should be non-negative")
		}
		if settings.Performance.SlowWorkerThreshold < 0 || settings.Performance.SlowWorkerThreshold > 1 {
			t.Errorf("SlowWorkerThreshold should be between 0 and 1, got: %f", settings.Performance.SlowWorkerThreshold)
		}
		if settings.Performance.StallTimeout <= 0 {
			t.Errorf("StallTimeout should be positive, got: %v", settings.Performance.StallTimeout)
		}
		if settings.Performance.SpeedEmaAlpha < 0 || settings.Performance.SpeedEmaAlpha > 1 {
			t.Errorf("SpeedEmaAlpha should be between 0 and 1, got: %f", settings.Performance.SpeedEmaAlpha)
		}
	})
}

func TestDefaultSettings_Consistency(t *testing.T) {
	s1 := DefaultSettings()
	s2 := DefaultSettings()

	if s1 == s2 {
		t.Error("DefaultSettings should return new instance each time")
	}

	if s1.Connections.MaxConcurrentDownloads != s2.Connections.MaxConcurrentDownloads {
		t.Error("Default settings should be consistent")
	}
}

func TestGetSettingsPath(t *testing.T) {
	path := GetSettingsPath()

	if path == "" {
		t.Error("GetSettingsPath returned empty string")
	}

	surgeDir := GetSurgeDir()
	if !strings.HasPrefix(path, surgeDir) {
		t.Errorf("Settings path should be under surge dir. Path: %s, SurgeDir: %s", path, surgeDir)
	}

	if !strings.HasSuffix(path, "settings.json") {
		t.Errorf("Settings path should end with 'settings.json', got: %s", path)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("Settings path should be absolute, got: %s", path)
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "chunkdl-settings-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	original := &Settings{
		General: GeneralSettings{
			DefaultDownloadDir: tmpDir,
			WarnOnDuplicate:    false,
			AutoResumeOnStart:  true,
			EnableResume:       true,
		},
		Connections: ConnectionSettings{
			MaxConcurrentDownloads: 7,
			UserAgent:              "TestAgent/1.0",
			Timeout:                10 * time.Second,
		},
		Chunks: ChunkSettings{
			EnableChunkedDownload: true,
			ChunkSize:             2 * MB,
			MinChunkSize:          1 * MB,
			WorkerBufferSize:      256 * KB,
		},
		Retry: RetrySettings{
			RetryCount: 5,
			RetryDelay: time.Second,
		},
		Performance: PerformanceSettings{
			SlowWorkerThreshold:   0.5,
			SlowWorkerGracePeriod: 10 * time.Second,
			StallTimeout:          5 * time.Second,
			SpeedEmaAlpha:         0.5,
		},
	}

	data, err := json.MarshalIndent(original, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal settings: %v", err)
	}

	testPath := filepath.Join(tmpDir, "test_settings.json")
	if err := os.WriteFile(testPath, data, 0644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}

	readData, err := os.ReadFile(testPath)
	if err != nil {
		t.Fatalf("Failed to read settings file: %v", err)
	}

	loaded := DefaultSettings()
	if err := json.Unmarshal(readData, loaded); err != nil {
		t.Fatalf("Failed to unmarshal settings: %v", err)
	}

	if loaded.General.DefaultDownloadDir != original.General.DefaultDownloadDir {
		t.Errorf("DefaultDownloadDir mismatch: got %q, want %q",
			loaded.General.DefaultDownloadDir, original.General.DefaultDownloadDir)
	}
	if loaded.General.WarnOnDuplicate != original.General.WarnOnDuplicate {
		t.Error("WarnOnDuplicate mismatch")
	}
	if loaded.Connections.MaxConcurrentDownloads != original.Connections.MaxConcurrentDownloads {
		t.Errorf("MaxConcurrentDownloads mismatch: got %d, want %d", loaded.Connections.MaxConcurrentDownloads, original.Connections.MaxConcurrentDownloads)
	}
	if loaded.Connections.UserAgent != original.Connections.UserAgent {
		t.Error("UserAgent mismatch")
	}
	if loaded.Chunks.MinChunkSize != original.Chunks.MinChunkSize {
		t.Error("MinChunkSize mismatch")
	}
	if loaded.Performance.SlowWorkerGracePeriod != original.Performance.SlowWorkerGracePeriod {
		t.Error("SlowWorkerGracePeriod mismatch")
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Logf("LoadSettings returned error (may be expected): %v", err)
	}

	if settings != nil {
		if settings.Connections.MaxConcurrentDownloads <= 0 {
			t.Error("Should return default settings with valid values")
		}
	}
}

func TestLoadSettings_CorruptedJSON(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "chunkdl-corrupt-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	testPath := filepath.Join(tmpDir, "corrupt.json")
	if err := os.WriteFile(testPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	data, _ := os.ReadFile(testPath)
	settings := DefaultSettings()
	err = json.Unmarshal(data, settings)

	if err == nil {
		t.Error("Expected error when unmarshaling invalid JSON")
	}
}

func TestLoadSettings_PartialJSON(t *testing.T) {
	partial := `{
		"general": {
			"default_download_dir": "/custom/path"
		}
	}`

	settings := DefaultSettings()
	if err := json.Unmarshal([]byte(partial), settings); err != nil {
		t.Fatalf("Failed to unmarshal partial JSON: %v", err)
	}

	if settings.General.DefaultDownloadDir != "/custom/path" {
		t.Errorf("Custom field not set: %s", settings.General.DefaultDownloadDir)
	}

	if settings.Connections.MaxConcurrentDownloads <= 0 {
		t.Error("Default values should be preserved for missing fields")
	}
}

func TestToRuntimeConfig(t *testing.T) {
	settings := DefaultSettings()
	runtime := settings.ToRuntimeConfig()

	if runtime == nil {
		t.Fatal("ToRuntimeConfig returned nil")
	}

	if runtime.MaxConcurrentDownloads != settings.Connections.MaxConcurrentDownloads {
		t.Error("MaxConcurrentDownloads not correctly mapped")
	}
	if runtime.UserAgent != settings.Connections.UserAgent {
		t.Error("UserAgent not correctly mapped")
	}
	if runtime.MinChunkSize != settings.Chunks.MinChunkSize {
		t.Error("MinChunkSize not correctly mapped")
	}
	if runtime.ChunkSize != settings.Chunks.ChunkSize {
		t.Error("ChunkSize not correctly mapped")
	}
	if runtime.WorkerBufferSize != settings.Chunks.WorkerBufferSize {
		t.Error("WorkerBufferSize not correctly mapped")
	}
	if runtime.RetryCount != settings.Retry.RetryCount {
		t.Error("RetryCount not correctly mapped")
	}
	if runtime.SpeedLimitKB != settings.Performance.SpeedLimitKB {
		t.Error("SpeedLimitKB not correctly mapped")
	}
	if runtime.EnableResume != settings.General.EnableResume {
		t.Error("EnableResume not correctly mapped")
	}
}

func TestGetSettingsMetadata(t *testing.T) {
	metadata := GetSettingsMetadata()

	if metadata == nil {
		t.Fatal("GetSettingsMetadata returned nil")
	}

	expectedCategories := CategoryOrder()
	for _, cat := range expectedCategories {
		if _, ok := metadata[cat]; !ok {
			t.Errorf("Missing metadata for category: %s", cat)
		}
	}

	for category, settings := range metadata {
		for i, setting := range settings {
			if setting.Key == "" {
				t.Errorf("Category %s, index %d: Key is empty", category, i)
			}
			if setting.Label == "" {
				t.Errorf("Category %s, key %s: Label is empty", category, setting.Key)
			}
			if setting.Description == "" {
				t.Errorf("Category %s, key %s: Description is empty", category, setting.Key)
			}
			if setting.Type == "" {
				t.Errorf("Category %s, key %s: Type is empty", category, setting.Key)
			}

			validTypes := map[string]bool{
				"string": true, "int": true, "int64": true,
				"bool": true, "duration": true, "float64": true,
			}
			if !validTypes[setting.Type] {
				t.Errorf("Category %s, key %s: Invalid type %q", category, setting.Key, setting.Type)
			}
		}
	}
}

func TestCategoryOrder(t *testing.T) {
	order := CategoryOrder()

	if len(order) == 0 {
		t.Error("CategoryOrder returned empty slice")
	}

	expectedCount := 5 // General, Connections, Chunks, Retry, Performance
	if len(order) != expectedCount {
		t.Errorf("Expected %d categories, got %d", expectedCount, len(order))
	}

	seen := make(map[string]bool)
	for _, cat := range order {
		if seen[cat] {
			t.Errorf("Duplicate category: %s", cat)
		}
		seen[cat] = true
	}

	metadata := GetSettingsMetadata()
	for _, cat := range order {
		if _, ok := metadata[cat]; !ok {
			t.Errorf("Category %s in order but not in metadata", cat)
		}
	}
}

func TestSettingsJSON_Serialization(t *testing.T) {
	original := DefaultSettings()

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	loaded := &Settings{}
	if err := json.Unmarshal(data, loaded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if loaded.Connections.MaxConcurrentDownloads != original.Connections.MaxConcurrentDownloads {
		t.Error("Round-trip failed for MaxConcurrentDownloads")
	}
	if loaded.Performance.StallTimeout != original.Performance.StallTimeout {
		t.Error("Round-trip failed for StallTimeout (duration)")
	}
}

func TestConstants(t *testing.T) {
	if KB != 1024 {
		t.Errorf("KB should be 1024, got %d", KB)
	}
	if MB != 1024*1024 {
		t.Errorf("MB should be 1048576, got %d", MB)
	}
}

func TestSaveSettings_RealFunction(t *testing.T) {
	t.Setenv("CHUNKDL_HOME", t.TempDir())

	original := DefaultSettings()
	original.Connections.MaxConcurrentDownloads = 8
	original.General.AutoResumeOnStart = true
	original.Connections.UserAgent = "TestAgent/3.0"

	err := SaveSettings(original)
	if err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	settingsPath := GetSettingsPath()
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		t.Error("Settings file was not created by SaveSettings")
	}

	loaded, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if loaded.Connections.MaxConcurrentDownloads != 8 {
		t.Errorf("MaxConcurrentDownloads mismatch: got %d, want 8", loaded.Connections.MaxConcurrentDownloads)
	}
	if !loaded.General.AutoResumeOnStart {
		t.Error("AutoResumeOnStart should be true")
	}
	if loaded.Connections.UserAgent != "TestAgent/3.0" {
		t.Errorf("UserAgent mismatch: got %q, want %q", loaded.Connections.UserAgent, "TestAgent/3.0")
	}
}

func TestLoadSettings_RealFunction(t *testing.T) {
	t.Setenv("CHUNKDL_HOME", t.TempDir())

	original := DefaultSettings()
	original.Retry.RetryCount = 99
	err := SaveSettings(original)
	if err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	loaded, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if loaded.Retry.RetryCount != 99 {
		t.Errorf("RetryCount mismatch: got %d, want 99", loaded.Retry.RetryCount)
	}
}

func TestSaveAndLoadSettings_RoundTrip(t *testing.T) {
	t.Setenv("CHUNKDL_HOME", t.TempDir())

	original := &Settings{
		General: GeneralSettings{
			DefaultDownloadDir: "/test/path",
			WarnOnDuplicate:    false,
			AutoResumeOnStart:  true,
			EnableResume:       true,
		},
		Connections: ConnectionSettings{
			MaxConcurrentDownloads: 9,
			UserAgent:              "RoundTripTest/1.0",
		},
		Chunks: ChunkSettings{
			EnableChunkedDownload: true,
			ChunkSize:             2 * MB,
			MinChunkSize:          1 * MB,
			WorkerBufferSize:      1 * MB,
		},
		Retry: RetrySettings{
			RetryCount: 10,
		},
		Performance: PerformanceSettings{
			SlowWorkerThreshold:   0.2,
			SlowWorkerGracePeriod: 15 * time.Second,
			StallTimeout:          10 * time.Second,
			SpeedEmaAlpha:         0.5,
		},
	}

	err := SaveSettings(original)
	if err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	loaded, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if loaded.General.WarnOnDuplicate != original.General.WarnOnDuplicate {
		t.Error("WarnOnDuplicate mismatch")
	}
	if loaded.Connections.MaxConcurrentDownloads != original.Connections.MaxConcurrentDownloads {
		t.Error("MaxConcurrentDownloads mismatch")
	}
	if loaded.Performance.SlowWorkerGracePeriod != original.Performance.SlowWorkerGracePeriod {
		t.Error("SlowWorkerGracePeriod mismatch")
	}
}
