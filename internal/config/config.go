package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Fan      FanConfig     `mapstructure:"fan"`
	RF       RFConfig      `mapstructure:"rf"`
	HomeKit  HomeKitConfig `mapstructure:"homekit"`
	Port     uint          `mapstructure:"port"`
	HttpLog  bool          `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// FanConfig describes the single RF fan handled by this bridge.
type FanConfig struct {
	Id           string
	Name         string
	Manufacturer string
	Model        string
	TopicIn      string `mapstructure:"topic_in"`
	TopicOut     string `mapstructure:"topic_out"`
	PayloadOnOff string `mapstructure:"payload_onoff"`
	PayloadUp    string `mapstructure:"payload_up"`
	PayloadDown  string `mapstructure:"payload_down"`

	SettleDelayMillis           uint32 `mapstructure:"settle_delay_millis"`
	StepDownOnDecrease          bool   `mapstructure:"step_down_on_decrease"`
	StepOnTurnOn                bool   `mapstructure:"step_on_turn_on"`
	CommandTimeoutMillis        uint32 `mapstructure:"command_timeout_millis"`
	StateRefreshIntervalSeconds uint32 `mapstructure:"state_refresh_interval_seconds"`
}

// RFConfig holds the constant part of the RfSend envelope.
type RFConfig struct {
	Bits     int
	Protocol int
	Pulse    int
	Repeat   int
}

type HomeKitConfig struct {
	Enable     bool
	Pin        string
	StorageDir string `mapstructure:"storage_dir"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

func CheckFanConfig(fan FanConfig) error {
	if _, err := CheckMQTTTopic(fan.Id); err != nil {
		return errors.New("invalid fan id. can only contain letters, numbers and underscores")
	}
	required := map[string]string{
		"fan.topic_in":      fan.TopicIn,
		"fan.topic_out":     fan.TopicOut,
		"fan.payload_onoff": fan.PayloadOnOff,
		"fan.payload_up":    fan.PayloadUp,
		"fan.payload_down":  fan.PayloadDown,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("config param %s is required", key)
		}
	}
	if strings.ContainsAny(fan.TopicIn, "+#") || strings.ContainsAny(fan.TopicOut, "+#") {
		return errors.New("fan topics cannot contain MQTT wildcards")
	}
	if fan.PayloadOnOff == fan.PayloadUp || fan.PayloadOnOff == fan.PayloadDown || fan.PayloadUp == fan.PayloadDown {
		return errors.New("fan payloads onoff, up and down must be distinct")
	}
	if fan.SettleDelayMillis < 100 {
		return errors.New("config param fan.settle_delay_millis should be >= 100")
	}
	return nil
}

func CheckHomeKitConfig(hk HomeKitConfig) error {
	if !hk.Enable {
		return nil
	}
	if !regexp.MustCompile("^[0-9]{8}$").MatchString(hk.Pin) {
		return errors.New("config param homekit.pin must have 8 digits")
	}
	if hk.StorageDir == "" {
		return errors.New("config param homekit.storage_dir is required")
	}
	return nil
}
