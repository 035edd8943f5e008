package util

import (
	"github.com/berfenger/rffan2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "rffan",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		Fan: config.FanConfig{
			Id:                          "test_fan",
			Name:                        "Test Fan",
			TopicIn:                     "tele/rfbridge/RESULT",
			TopicOut:                    "cmnd/rfbridge/RfSend",
			PayloadOnOff:                "0x0A0001",
			PayloadUp:                   "0x0A0002",
			PayloadDown:                 "0x0A0003",
			SettleDelayMillis:           100,
			CommandTimeoutMillis:        1000,
			StateRefreshIntervalSeconds: 0,
		},
		RF: config.RFConfig{
			Bits:     18,
			Protocol: 8,
			Pulse:    320,
			Repeat:   2,
		},
		Port: 8080,
	}
}
