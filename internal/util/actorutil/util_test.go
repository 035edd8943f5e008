package actorutil

import (
	"testing"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/mqtt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedMQTTCommandPower(t *testing.T) {

	req, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: "ceiling",
		Command:  mqtt.MQTT_COMMAND_POWER,
		Payload:  "on",
	}, "ceiling")
	require.NoError(t, err)
	assert.Equal(t, domain.FanTurnOnRequest{}, req)

	req, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: "ceiling",
		Command:  mqtt.MQTT_COMMAND_POWER,
		Payload:  "OFF",
	}, "ceiling")
	require.NoError(t, err)
	assert.Equal(t, domain.FanTurnOffRequest{}, req)

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: "ceiling",
		Command:  mqtt.MQTT_COMMAND_POWER,
		Payload:  "maybe",
	}, "ceiling")
	assert.Error(t, err)
}

func TestParsedMQTTCommandPercentage(t *testing.T) {

	cmd := func(payload string) mqtt.ParsedMQTTCommand {
		return mqtt.ParsedMQTTCommand{
			DeviceId: "ceiling",
			Command:  mqtt.MQTT_COMMAND_PERCENTAGE,
			Payload:  payload,
		}
	}

	req, err := ParsedMQTTCommandToCommand(cmd("50"), "ceiling")
	require.NoError(t, err)
	assert.Equal(t, domain.FanSetPercentageRequest{Percentage: 50}, req)

	req, err = ParsedMQTTCommandToCommand(cmd("0"), "ceiling")
	require.NoError(t, err)
	assert.Equal(t, domain.FanTurnOffRequest{}, req, "0 means off")

	for _, payload := range []string{"abc", "", "101", "-1", "33.3"} {
		_, err := ParsedMQTTCommandToCommand(cmd(payload), "ceiling")
		assert.Error(t, err, payload)
	}
}

func TestParsedMQTTCommandOtherFan(t *testing.T) {

	req, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: "bedroom",
		Command:  mqtt.MQTT_COMMAND_POWER,
		Payload:  "on",
	}, "ceiling")
	assert.NoError(t, err)
	assert.Nil(t, req)
}
