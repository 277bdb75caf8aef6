// Package config provides configuration management for periscope.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.Equal(DefaultProjectName, cfg.ProjectName)
	s.Equal(DefaultMaxConns, cfg.MaxConns)
	s.Equal(DefaultEventLimit, cfg.EventLimit)
	s.Equal(DefaultWatchDebounceMs, cfg.WatchDebounceMs)
	s.Empty(cfg.RedactKeys)
	s.True(cfg.Dashboard)
	s.Contains(cfg.DBPath, "periscope.db")
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	dir := DataDir()
	s.Contains(dir, ".periscope")
}

// TestDBPath tests database path.
func (s *ConfigSuite) TestDBPath() {
	path := DBPath()
	s.Contains(path, "periscope.db")
}

// TestSettingsPath tests settings file path.
func (s *ConfigSuite) TestSettingsPath() {
	path := SettingsPath()
	s.Contains(path, "settings.json")
}

// TestEnsureDataDir tests data directory creation.
func (s *ConfigSuite) TestEnsureDataDir() {
	err := EnsureDataDir()
	s.NoError(err)

	dir := DataDir()
	info, err := os.Stat(dir)
	s.NoError(err)
	s.True(info.IsDir())
}

// TestEnsureSettings tests settings file creation.
func (s *ConfigSuite) TestEnsureSettings() {
	// First ensure data dir exists
	err := EnsureDataDir()
	s.NoError(err)

	// Ensure settings creates default file
	err = EnsureSettings()
	s.NoError(err)

	path := SettingsPath()
	info, err := os.Stat(path)
	s.NoError(err)
	s.False(info.IsDir())

	// Second call should not error (file exists)
	err = EnsureSettings()
	s.NoError(err)
}

// TestEnsureAll tests full initialization.
func (s *ConfigSuite) TestEnsureAll() {
	err := EnsureAll()
	s.NoError(err)

	// Verify dir and settings exist
	_, err = os.Stat(DataDir())
	s.NoError(err)
	_, err = os.Stat(SettingsPath())
	s.NoError(err)
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name            string
		settingsJSON    string
		expectedPort    int
		expectedProject string
		expectedLimit   int
	}{
		{
			name:            "no settings file",
			settingsJSON:    "",
			expectedPort:    DefaultWorkerPort,
			expectedProject: DefaultProjectName,
			expectedLimit:   DefaultEventLimit,
		},
		{
			name:            "custom port",
			settingsJSON:    `{"PERISCOPE_WORKER_PORT": 38888}`,
			expectedPort:    38888,
			expectedProject: DefaultProjectName,
			expectedLimit:   DefaultEventLimit,
		},
		{
			name:            "custom project",
			settingsJSON:    `{"PERISCOPE_PROJECT_NAME": "clinical-pipeline"}`,
			expectedPort:    DefaultWorkerPort,
			expectedProject: "clinical-pipeline",
			expectedLimit:   DefaultEventLimit,
		},
		{
			name:            "custom event limit",
			settingsJSON:    `{"PERISCOPE_EVENT_LIMIT": 200}`,
			expectedPort:    DefaultWorkerPort,
			expectedProject: DefaultProjectName,
			expectedLimit:   200,
		},
		{
			name:            "multiple settings",
			settingsJSON:    `{"PERISCOPE_WORKER_PORT": 39999, "PERISCOPE_PROJECT_NAME": "ehr", "PERISCOPE_EVENT_LIMIT": 50}`,
			expectedPort:    39999,
			expectedProject: "ehr",
			expectedLimit:   50,
		},
		{
			name:            "invalid JSON returns defaults",
			settingsJSON:    `{invalid}`,
			expectedPort:    DefaultWorkerPort,
			expectedProject: DefaultProjectName,
			expectedLimit:   DefaultEventLimit,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			// Create fresh temp dir
			tempDir, err := os.MkdirTemp("", "config-test-*")
			s.Require().NoError(err)
			defer os.RemoveAll(tempDir)

			os.Setenv("HOME", tempDir)

			// Create data dir
			err = os.MkdirAll(filepath.Join(tempDir, ".periscope"), 0750)
			s.Require().NoError(err)

			if tt.settingsJSON != "" {
				writeErr := os.WriteFile(
					filepath.Join(tempDir, ".periscope", "settings.json"),
					[]byte(tt.settingsJSON),
					0600,
				)
				s.Require().NoError(writeErr)
			}

			cfg, err := Load()
			s.NoError(err)
			s.NotNil(cfg)
			s.Equal(tt.expectedPort, cfg.WorkerPort)
			s.Equal(tt.expectedProject, cfg.ProjectName)
			s.Equal(tt.expectedLimit, cfg.EventLimit)
		})
	}
}

// TestLoad_EnvOverridesSettings tests that environment variables win over
// the settings file.
func (s *ConfigSuite) TestLoad_EnvOverridesSettings() {
	err := os.MkdirAll(filepath.Join(s.tempDir, ".periscope"), 0750)
	s.Require().NoError(err)

	err = os.WriteFile(
		filepath.Join(s.tempDir, ".periscope", "settings.json"),
		[]byte(`{"PERISCOPE_WORKER_PORT": 38888, "PERISCOPE_PROJECT_NAME": "from-file"}`),
		0600,
	)
	s.Require().NoError(err)

	os.Setenv("PERISCOPE_WORKER_PORT", "45678")
	os.Setenv("PERISCOPE_REDACT_KEYS", "mrn,dob")
	defer os.Unsetenv("PERISCOPE_WORKER_PORT")
	defer os.Unsetenv("PERISCOPE_REDACT_KEYS")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(45678, cfg.WorkerPort)
	s.Equal("from-file", cfg.ProjectName)
	s.Equal([]string{"mrn", "dob"}, cfg.RedactKeys)
}

// TestSplitTrim tests the splitTrim helper function.
func TestSplitTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "single value",
			input:    "ssn",
			expected: []string{"ssn"},
		},
		{
			name:     "multiple values",
			input:    "ssn,mrn,dob",
			expected: []string{"ssn", "mrn", "dob"},
		},
		{
			name:     "values with spaces",
			input:    " ssn , mrn , dob ",
			expected: []string{"ssn", "mrn", "dob"},
		},
		{
			name:     "empty values filtered",
			input:    "ssn,,mrn,,",
			expected: []string{"ssn", "mrn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestLoad_RedactKeysFromFile tests list settings stored as comma strings.
func TestLoad_RedactKeysFromFile(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", origHome)

	err = os.MkdirAll(filepath.Join(tempDir, ".periscope"), 0750)
	require.NoError(t, err)

	settingsJSON := `{"PERISCOPE_REDACT_KEYS": "insurance_id, dob", "PERISCOPE_DASHBOARD": false}`
	err = os.WriteFile(
		filepath.Join(tempDir, ".periscope", "settings.json"),
		[]byte(settingsJSON),
		0600,
	)
	require.NoError(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"insurance_id", "dob"}, cfg.RedactKeys)
	assert.False(t, cfg.Dashboard)
}

// TestGet tests the global config getter.
func TestGet(t *testing.T) {
	// Save and restore HOME
	origHome := os.Getenv("HOME")
	tempDir, err := os.MkdirTemp("", "config-get-test-*")
	require.NoError(t, err)
	defer func() {
		os.Setenv("HOME", origHome)
		os.RemoveAll(tempDir)
	}()
	os.Setenv("HOME", tempDir)

	// Create data dir
	err = os.MkdirAll(filepath.Join(tempDir, ".periscope"), 0750)
	require.NoError(t, err)

	// Get() should return a valid config
	cfg := Get()
	require.NotNil(t, cfg)
	assert.Greater(t, cfg.WorkerPort, 0)
	assert.NotEmpty(t, cfg.ProjectName)
}

// TestGetWorkerPort_WithEnv tests GetWorkerPort with environment variable.
func TestGetWorkerPort_WithEnv(t *testing.T) {
	// Save original env
	origEnv := os.Getenv("PERISCOPE_WORKER_PORT")
	defer os.Setenv("PERISCOPE_WORKER_PORT", origEnv)

	// Test with valid port in env
	os.Setenv("PERISCOPE_WORKER_PORT", "45678")
	port := GetWorkerPort()
	assert.Equal(t, 45678, port)

	// Test with invalid port (should fall back to config)
	os.Setenv("PERISCOPE_WORKER_PORT", "not-a-number")
	port = GetWorkerPort()
	assert.Greater(t, port, 0)

	// Test with zero port (should fall back to config)
	os.Setenv("PERISCOPE_WORKER_PORT", "0")
	port = GetWorkerPort()
	assert.Greater(t, port, 0)

	// Test with no env (should use config)
	os.Unsetenv("PERISCOPE_WORKER_PORT")
	port = GetWorkerPort()
	assert.Greater(t, port, 0)
}
