package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE     = "bridge"
	DEVICE_CLASS_CONNECTIVITY  = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC    = "diagnostic"
	SENSOR_TYPE_BINARY         = "binary_sensor"
	FAN_ICON                   = "mdi:fan"
	DEFAULT_FAN_MANUFACTURER   = "MQTT Dummy Inc."
	DEFAULT_FAN_MODEL          = "MQTT Fan v1"
	BRIDGE_DEVICE_MANUFACTURER = "ACasal"
	BRIDGE_DEVICE_MODEL        = "RFFan2MQTT"
)

// FanInfo is the identity of the fan announced to the platforms.
type FanInfo struct {
	Id           string
	Name         string
	Manufacturer string
	Model        string
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("rffan_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: BRIDGE_DEVICE_MANUFACTURER,
		Model:        BRIDGE_DEVICE_MODEL,
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("RFFan2MQTT %s", md5HashShort(baseTopic)),
	}
}

func FanDevice(baseTopic string, info FanInfo) Device {
	manufacturer := info.Manufacturer
	if manufacturer == "" {
		manufacturer = DEFAULT_FAN_MANUFACTURER
	}
	model := info.Model
	if model == "" {
		model = DEFAULT_FAN_MODEL
	}
	return Device{
		Id:           fmt.Sprintf("rffan_%s_%s", info.Id, md5HashShort(baseTopic)),
		Manufacturer: manufacturer,
		Model:        model,
		Name:         info.Name,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func FanEntity(fanDevice Device, info FanInfo) GenericFan {
	return GenericFan{
		Device:   fanDevice,
		Id:       info.Id,
		Name:     info.Name,
		UniqueId: uniqueId(fanDevice.Id, info.Id),
		Icon:     FAN_ICON,
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
