package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/rffan2mqtt/internal/config"
	"github.com/berfenger/rffan2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	cfg := config.Config{
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "loremTopic",
			HADiscoveryTopic: "homeassistant",
		},
	}
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestFanCommandParse(t *testing.T) {

	assert := assert.New(t)

	r := fanCommandExtractor("loremTopic")
	matches := r.FindStringSubmatch("loremTopic/fan/my_fan/command")

	assert.Equal("my_fan", matches[1], "fan id extract")
}

func TestFanCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := fanCommandExtractor("loremTopic")

	assert.Empty(r.FindStringSubmatch("loremTopic/fan/my_fan/state"), "no matches")
	assert.Empty(r.FindStringSubmatch("other/loremTopic/fan/my_fan/command"), "anchored at base topic")
}

func TestFanPercentageSetParse(t *testing.T) {

	assert := assert.New(t)

	r := fanPercentageSetExtractor("loremTopic")
	matches := r.FindStringSubmatch("loremTopic/fan/fan_1/percentage/set")

	assert.Equal("fan_1", matches[1], "fan id extract")
	assert.Empty(r.FindStringSubmatch("loremTopic/fan/fan_1/percentage"), "state topic is not a command")
}

func TestParseTopicCommand(t *testing.T) {

	require := require.New(t)
	client := testClient()

	cmd, err := client.parseTopicCommand(client.FanCommandTopic("ceiling"), "on")
	require.NoError(err)
	require.Equal(ParsedMQTTCommand{DeviceId: "ceiling", Command: MQTT_COMMAND_POWER, Payload: "on"}, *cmd)

	cmd, err = client.parseTopicCommand(client.FanPercentageCommandTopic("ceiling"), "67")
	require.NoError(err)
	require.Equal(ParsedMQTTCommand{DeviceId: "ceiling", Command: MQTT_COMMAND_PERCENTAGE, Payload: "67"}, *cmd)

	_, err = client.parseTopicCommand(client.FanPercentageCommandTopic("ceiling"), "abc")
	require.Error(err)

	_, err = client.parseTopicCommand(client.FanStateTopic("ceiling"), "on")
	require.ErrorIs(err, ErrNotACommand)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)
	client := testClient()

	assert.Equal("loremTopic/bridge/state", client.BridgeStateTopic())
	assert.Equal("loremTopic/fan/ceiling/state", client.FanStateTopic("ceiling"))
	assert.Equal("loremTopic/fan/ceiling/percentage", client.FanPercentageStateTopic("ceiling"))
	assert.Equal("loremTopic/#", client.CommandTopic())
	assert.Equal("homeassistant/status", client.HomeAssistantStatusTopic())
}

func TestFanDiscoveryMessage(t *testing.T) {

	require := require.New(t)
	client := testClient()

	info := domain.FanInfo{Id: "ceiling", Name: "Ceiling fan"}
	bridge := domain.BridgeDevice("loremTopic")
	fanDevice := domain.FanDevice("loremTopic", info)
	fanDevice.ViaDevice = bridge.Id
	fan := domain.FanEntity(fanDevice, info)

	topic := HADiscoveryFanTopic(client.DiscoveryPrefix(), fan)
	require.Equal("homeassistant/fan/"+fanDevice.Id+"/ceiling/config", topic)

	payload, err := json.Marshal(GenericFanToHADiscoveryMessage(client, fan))
	require.NoError(err)

	var decoded map[string]any
	require.NoError(json.Unmarshal(payload, &decoded))
	require.Equal("loremTopic/fan/ceiling/command", decoded["command_topic"])
	require.Equal("loremTopic/fan/ceiling/state", decoded["state_topic"])
	require.Equal("loremTopic/fan/ceiling/percentage/set", decoded["percentage_command_topic"])
	require.Equal("loremTopic/fan/ceiling/percentage", decoded["percentage_state_topic"])
	require.Equal("loremTopic/bridge/state", decoded["availability_topic"])
	require.Equal("on", decoded["payload_on"])
	require.Equal("off", decoded["payload_off"])

	dev := decoded["device"].(map[string]any)
	require.Equal([]any{fanDevice.Id}, dev["identifiers"])
	require.Equal(domain.DEFAULT_FAN_MANUFACTURER, dev["manufacturer"])
	require.Equal(domain.DEFAULT_FAN_MODEL, dev["model"])
	require.Equal(bridge.Id, dev["via_device"])
}

func TestBridgeDiscoveryMessage(t *testing.T) {

	require := require.New(t)
	client := testClient()

	sensors := domain.BridgeSensors(domain.BridgeDevice("loremTopic"))
	require.Len(sensors, 1)

	msg := GenericSensorToHADiscoveryMessage(client, sensors[0])
	require.Equal(client.BridgeStateTopic(), msg.StateTopic)
	require.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	require.Equal(MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
	require.Equal("homeassistant/binary_sensor/"+sensors[0].Device.Id+"/bridge/config",
		HADiscoverySensorTopic(client.DiscoveryPrefix(), sensors[0]))
}
