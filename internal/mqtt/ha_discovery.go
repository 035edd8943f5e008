package mqtt

import (
	"fmt"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device                 HADiscoveryDevice `json:"device"`
	StateTopic             string            `json:"state_topic"`
	CommandTopic           string            `json:"command_topic,omitempty"`
	PercentageStateTopic   string            `json:"percentage_state_topic,omitempty"`
	PercentageCommandTopic string            `json:"percentage_command_topic,omitempty"`
	StateClass             string            `json:"state_class,omitempty"`
	DeviceClass            string            `json:"device_class,omitempty"`
	UnitOfMeasurement      string            `json:"unit_of_measurement,omitempty"`
	AvTopic                string            `json:"availability_topic,omitempty"`
	EntityCategory         string            `json:"entity_category,omitempty"`
	Name                   string            `json:"name"`
	UniqueId               string            `json:"unique_id"`
	Platform               string            `json:"platform"`
	EnabledByDefault       *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn              string            `json:"payload_on,omitempty"`
	PayloadOff             string            `json:"payload_off,omitempty"`
	Icon                   string            `json:"icon,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func HADiscoverySensorTopic(prefix string, sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", prefix, sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func HADiscoveryFanTopic(prefix string, fan domain.GenericFan) string {
	return fmt.Sprintf("%s/fan/%s/%s/config", prefix, fan.Device.Id, fan.Id)
}

// GenericSensorToHADiscoveryMessage describes the bridge connectivity sensor,
// the only sensor the bridge exposes. Its state is the bridge availability.
func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:            device(sensor.Device),
		StateTopic:        client.BridgeStateTopic(),
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		AvTopic:           client.BridgeStateTopic(),
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		Icon:              sensor.Icon,
		EnabledByDefault:  sensor.EnabledByDefault,
		Platform:          "mqtt",
		PayloadOn:         MQTT_PAYLOAD_ONLINE,
		PayloadOff:        MQTT_PAYLOAD_OFFLINE,
	}
}

// GenericFanToHADiscoveryMessage describes a fan driven by percentage.
func GenericFanToHADiscoveryMessage(client *MQTTClient, fan domain.GenericFan) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:                 device(fan.Device),
		StateTopic:             client.FanStateTopic(fan.Id),
		CommandTopic:           client.FanCommandTopic(fan.Id),
		PercentageStateTopic:   client.FanPercentageStateTopic(fan.Id),
		PercentageCommandTopic: client.FanPercentageCommandTopic(fan.Id),
		AvTopic:                client.BridgeStateTopic(),
		Name:                   fan.Name,
		UniqueId:               fan.UniqueId,
		Icon:                   fan.Icon,
		Platform:               "mqtt",
		PayloadOn:              MQTT_PAYLOAD_ON,
		PayloadOff:             MQTT_PAYLOAD_OFF,
	}
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
