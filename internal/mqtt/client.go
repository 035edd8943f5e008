package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	MQTT_COMMAND_POWER      = "power"
	MQTT_COMMAND_PERCENTAGE = "percentage"
)

var ErrNotACommand = errors.New("not a command topic")

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("rffan_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:                 mqtt.NewClient(opts),
		cfg:                    cfg.MQTT,
		fanCommandRegexp:       fanCommandExtractor(cfg.MQTT.BaseTopic),
		fanPercentageSetRegexp: fanPercentageSetExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client                 mqtt.Client
	cfg                    config.MQTTConfig
	fanCommandRegexp       *regexp.Regexp
	fanPercentageSetRegexp *regexp.Regexp
}

type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Payload  string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) FanStateTopic(fanId string) string {
	return fmt.Sprintf("%s/fan/%s/state", c.baseTopic(), fanId)
}

func (c *MQTTClient) FanCommandTopic(fanId string) string {
	return fmt.Sprintf("%s/fan/%s/command", c.baseTopic(), fanId)
}

func (c *MQTTClient) FanPercentageStateTopic(fanId string) string {
	return fmt.Sprintf("%s/fan/%s/percentage", c.baseTopic(), fanId)
}

func (c *MQTTClient) FanPercentageCommandTopic(fanId string) string {
	return fmt.Sprintf("%s/fan/%s/percentage/set", c.baseTopic(), fanId)
}

// HomeAssistantStatusTopic is where Home Assistant publishes its birth and will messages.
func (c *MQTTClient) HomeAssistantStatusTopic() string {
	return fmt.Sprintf("%s/status", c.cfg.HADiscoveryTopic)
}

func (c *MQTTClient) DiscoveryPrefix() string {
	return c.cfg.HADiscoveryTopic
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	return c.parseTopicCommand(msg.Topic(), string(msg.Payload()))
}

func (c *MQTTClient) parseTopicCommand(topic, payload string) (*ParsedMQTTCommand, error) {
	if matches := c.fanCommandRegexp.FindStringSubmatch(topic); len(matches) == 2 {
		return &ParsedMQTTCommand{
			DeviceId: matches[1],
			Command:  MQTT_COMMAND_POWER,
			Payload:  payload,
		}, nil
	}
	if matches := c.fanPercentageSetRegexp.FindStringSubmatch(topic); len(matches) == 2 {
		// try to parse a valid number
		if _, err := strconv.Atoi(strings.TrimSpace(payload)); err != nil {
			return nil, fmt.Errorf("invalid percentage payload %q: %w", payload, err)
		}
		return &ParsedMQTTCommand{
			DeviceId: matches[1],
			Command:  MQTT_COMMAND_PERCENTAGE,
			Payload:  payload,
		}, nil
	}
	return nil, ErrNotACommand
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

// SubscribeMultiple subscribes to every topic in one round trip.
func (c *MQTTClient) SubscribeMultiple(topics []string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic] = qos
	}
	token := c.client.SubscribeMultiple(filters, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) CommandTopic() string {
	return fmt.Sprintf("%s/#", c.baseTopic())
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func fanCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/fan/([a-zA-Z0-9_]+)/command$", regexp.QuoteMeta(baseTopic)))
}

func fanPercentageSetExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/fan/([a-zA-Z0-9_]+)/percentage/set$", regexp.QuoteMeta(baseTopic)))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
