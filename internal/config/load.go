package config

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tauraamui/framegrab/pkg/configdef"
	"github.com/tauraamui/framegrab/pkg/log"
)

func load() (configdef.Values, error) {
	var values configdef.Values

	configPath, err := resolveConfigPath()
	if err != nil {
		return configdef.Values{}, err
	}

	log.Info("Resolved config file location: %s", configPath)
	file, err := readConfigFile(configPath)
	if err != nil {
		return configdef.Values{}, err
	}

	if err := unmarshal(file, &values); err != nil {
		return configdef.Values{}, err
	}

	loadDefaultCameraSettings(values.Cameras)

	if err = values.RunValidate(); err != nil {
		return configdef.Values{}, err
	}

	return values, nil
}

func loadDefaultCameraSettings(cameras []configdef.Camera) {
	for i := 0; i < len(cameras); i++ {
		camera := &cameras[i]
		if len(camera.AllocationMode) == 0 {
			camera.AllocationMode = defaultSettings[ALLOCATIONMODE].(string)
		}
		if camera.BufferCount == 0 {
			camera.BufferCount = defaultSettings[BUFFERCOUNT].(int)
		}
		if camera.QueueCapacity == 0 {
			camera.QueueCapacity = defaultSettings[QUEUECAPACITY].(int)
		}
	}
}

var readConfigFile = func(path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

func unmarshal(content []byte, values *configdef.Values) error {
	err := json.Unmarshal(content, values)
	if err != nil {
		return errors.Errorf("parsing configuration error: %v", err)
	}
	return nil
}
