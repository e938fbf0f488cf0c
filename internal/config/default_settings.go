package config

import "github.com/tauraamui/framegrab/pkg/configdef"

type defaultSettingKey uint

const (
	BACKEND        defaultSettingKey = 0x0
	CAMERAS        defaultSettingKey = 0x1
	ALLOCATIONMODE defaultSettingKey = 0x2
	BUFFERCOUNT    defaultSettingKey = 0x3
	QUEUECAPACITY  defaultSettingKey = 0x4
)

var defaultSettings = map[defaultSettingKey]interface{}{
	BACKEND:        "sim",
	CAMERAS:        []configdef.Camera{},
	ALLOCATIONMODE: "announce",
	BUFFERCOUNT:    5,
	QUEUECAPACITY:  5,
}
