package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tauraamui/framegrab/pkg/configdef"
	"github.com/tauraamui/framegrab/pkg/log"
)

type LoadConfigTestSuite struct {
	suite.Suite
	configResolver   configdef.Resolver
	fs               afero.Fs
	path             string
	configFile       afero.File
	userConfigDirRef func() (string, error)
	resetLogging     func()
}

func (suite *LoadConfigTestSuite) SetupSuite() {
	os.Unsetenv("FRAMEGRAB_CONFIG")
	suite.resetLogging = log.Silence()
	suite.fs = afero.NewMemMapFs()
	suite.configResolver = DefaultResolver()

	// use in memory FS in implementation for tests
	fs = suite.fs
	suite.userConfigDirRef = userConfigDir
	userConfigDir = func() (string, error) { return "/testroot/.config", nil }
}

func (suite *LoadConfigTestSuite) TearDownSuite() {
	fs = afero.NewOsFs()
	userConfigDir = suite.userConfigDirRef
	suite.resetLogging()
}

func (suite *LoadConfigTestSuite) SetupTest() {
	path, err := resolveConfigPath()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.fs.MkdirAll(filepath.Dir(path), os.ModeDir|os.ModePerm))
	suite.path = path

	configFile, err := suite.fs.Create(path)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), configFile)

	suite.configFile = configFile

	// can be overridden this so reset it back before
	// each test to ensure that it's an opt in thing per
	// individual test
	suite.overwriteTestConfig(
		`{
			"debug": true,
			"backend": "sim",
			"cameras": []
		}`,
	)
}

func (suite *LoadConfigTestSuite) overwriteTestConfig(config string) {
	require.NoError(suite.T(), suite.configFile.Truncate(0))
	_, err := suite.configFile.Seek(0, 0)
	require.NoError(suite.T(), err)
	_, err = suite.configFile.WriteString(config)
	assert.NoError(suite.T(), err)
}

func (suite *LoadConfigTestSuite) TearDownTest() {
	require.NoError(suite.T(), suite.configFile.Close())
	suite.fs.Remove(suite.path)
}

func (suite *LoadConfigTestSuite) TestLoadConfig() {
	config, err := suite.configResolver.Resolve()
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), config)

	assert.Equal(suite.T(), true, config.Debug)
	assert.Equal(suite.T(), "sim", config.Backend)
	assert.ElementsMatch(suite.T(), config.Cameras, []configdef.Camera{})
}

func (suite *LoadConfigTestSuite) TestLoadConfigFillsCameraDefaults() {
	suite.overwriteTestConfig(
		`{"cameras": [
			{"title": "Bench", "camera_id": "DEV_SIM_0001", "exposure_time": 2000},
			{"title": "Rail", "allocation_mode": "alloc_and_announce", "buffer_count": 12}
		]}`,
	)

	config, err := suite.configResolver.Resolve()
	require.NoError(suite.T(), err)
	require.Len(suite.T(), config.Cameras, 2)

	assert.Equal(suite.T(), configdef.Camera{
		Title:          "Bench",
		CameraID:       "DEV_SIM_0001",
		AllocationMode: "announce",
		BufferCount:    5,
		QueueCapacity:  5,
		ExposureTime:   2000,
	}, config.Cameras[0])
	assert.Equal(suite.T(), "alloc_and_announce", config.Cameras[1].AllocationMode)
	assert.Equal(suite.T(), 12, config.Cameras[1].BufferCount)
}

func (suite *LoadConfigTestSuite) TestConfigLoadFailsValidationOnDupCameraTitles() {
	suite.overwriteTestConfig(
		`{"cameras": [
			{"title": "FakeCam1"},
			{"title": "FakeCam2"},
			{"title": "FakeCam3"},
			{"title": "FakeCam4"},
			{"title": "FakeCam3"}
		]}`,
	)

	config, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	require.Empty(suite.T(), config)

	assert.EqualError(suite.T(), err, "validation failed: camera titles must be unique")
}

func (suite *LoadConfigTestSuite) TestConfigLoadFailsOnInvalidJSON() {
	suite.overwriteTestConfig(`{"cameras": [`)

	_, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "parsing configuration error")
}

func (suite *LoadConfigTestSuite) TestConfigPathFromEnv() {
	os.Setenv("FRAMEGRAB_CONFIG", "/somewhere/else.json")
	defer os.Unsetenv("FRAMEGRAB_CONFIG")

	path, err := resolveConfigPath()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "/somewhere/else.json", path)
}

func TestLoadConfigTestSuite(t *testing.T) {
	suite.Run(t, &LoadConfigTestSuite{})
}
