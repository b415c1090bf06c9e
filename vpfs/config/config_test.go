package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	viper.Reset()

	// Save original directory
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	// Create temporary directory for testing
	tempDir, err := os.MkdirTemp("", "vpfs-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	// Change to temp directory so no real config file is picked up
	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "/proc", cfg.ProcFS.MountPoint)
	assert.False(suite.T(), cfg.ProcFS.AllowOther)
	assert.False(suite.T(), cfg.ProcFS.Demo)
	assert.Equal(suite.T(), int64(policy.DefaultClkTck), cfg.ProcFS.ClkTck)
	assert.Equal(suite.T(), "0400", cfg.ProcFS.StatMode)
	assert.Equal(suite.T(), policy.CallerSelf, cfg.ProcFS.FakeSelf)
	assert.Equal(suite.T(), int32(policy.DefaultKernelPID), cfg.ProcFS.KernelPID)
	assert.Equal(suite.T(), "0", cfg.ProcFS.AnonOwner)

	pol, err := cfg.Policy()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), policy.Default(), pol)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
procfs:
  mountPoint: "/mnt/vproc"
  allowOther: true
  clkTck: 1000
  statMode: "0444"
  fakeSelf: 1
  kernelPid: 4
  anonOwner: "9"
`
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "/mnt/vproc", cfg.ProcFS.MountPoint)
	assert.True(suite.T(), cfg.ProcFS.AllowOther)

	pol, err := cfg.Policy()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1000), pol.ClkTck)
	assert.Equal(suite.T(), fs.FileMode(0o444), pol.StatMode)
	assert.Equal(suite.T(), int32(1), pol.FakeSelf)
	assert.Equal(suite.T(), int32(4), pol.KernelPID)
	assert.Equal(suite.T(), uint32(9), pol.AnonOwner)
}

func (suite *ConfigTestSuite) TestCompatiblePreset() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	cfg.ProcFS.Compatible = true
	cfg.ProcFS.StatMode = "0400"
	cfg.ProcFS.ClkTck = 250

	pol, err := cfg.Policy()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(100), pol.ClkTck)
	assert.Equal(suite.T(), fs.FileMode(0o444), pol.StatMode)
	assert.Equal(suite.T(), int32(1), pol.FakeSelf)
}

func (suite *ConfigTestSuite) TestPolicyValidation() {
	base, err := LoadConfig("")
	require.NoError(suite.T(), err)

	cfg := *base
	cfg.ProcFS.ClkTck = 0
	_, err = cfg.Policy()
	assert.ErrorContains(suite.T(), err, "clkTck")

	cfg = *base
	cfg.ProcFS.KernelPID = -2
	_, err = cfg.Policy()
	assert.ErrorContains(suite.T(), err, "kernelPid")

	cfg = *base
	cfg.ProcFS.StatMode = "0999"
	_, err = cfg.Policy()
	assert.ErrorContains(suite.T(), err, "statMode")

	cfg = *base
	cfg.ProcFS.StatMode = "17777"
	_, err = cfg.Policy()
	assert.ErrorContains(suite.T(), err, "statMode")

	cfg = *base
	cfg.ProcFS.AnonOwner = "no-such-user-424242"
	_, err = cfg.Policy()
	assert.ErrorContains(suite.T(), err, "anonOwner")
}

func (suite *ConfigTestSuite) TestNegativeFakeSelfNormalizes() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	cfg.ProcFS.FakeSelf = -7

	pol, err := cfg.Policy()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), policy.CallerSelf, pol.FakeSelf)
}
