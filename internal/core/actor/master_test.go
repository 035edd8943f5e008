package actor

import (
	"strings"
	"testing"
	"time"

	adactor "github.com/berfenger/rffan2mqtt/internal/adapter/actor"
	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/mqtt"
	"github.com/berfenger/rffan2mqtt/internal/util"
	"github.com/berfenger/rffan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	var mqttActor *adactor.MQTTActor
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, nil, func(es *eventstream.EventStream) *adactor.MQTTActor {
			mqttActor = adactor.NewTestMQTTActor(&cfg, es, logger, nil)
			return mqttActor
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	defer context.Stop(pid)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, healthResp.Healthy, "healthy is true")

	// MQTT command routed to the fan
	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: cfg.Fan.Id,
		Command:  mqtt.MQTT_COMMAND_PERCENTAGE,
		Payload:  "33",
	}})

	require.Eventually(t, func() bool {
		res, err := context.RequestFuture(pid, domain.GetFanStateRequest{}, time.Second).Result()
		return err == nil && res.(domain.GetFanStateResponse).State == domain.NewFanState(true, 2)
	}, 5*time.Second, 50*time.Millisecond)

	// HTTP style request keeps its sender through the master
	res, err = context.RequestFuture(pid, domain.FanTurnOffRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, domain.NewFanState(false, 0), res.(domain.FanCommandResponse).State)

	// state topics follow the announcements
	require.Eventually(t, func() bool {
		for _, msg := range mqttActor.Published() {
			if msg.Topic == "rffan/fan/"+cfg.Fan.Id+"/percentage" && msg.Payload == "33" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMasterActorHomeAssistantBirth(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	var mqttActor *adactor.MQTTActor
	pid, err := as.Root.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, nil, func(es *eventstream.EventStream) *adactor.MQTTActor {
			mqttActor = adactor.NewTestMQTTActor(&cfg, es, logger, nil)
			return mqttActor
		}, logger)
	}), domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	defer as.Root.Stop(pid)

	_, err = as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)

	discoveryCount := func() int {
		n := 0
		for _, msg := range mqttActor.Published() {
			if strings.HasPrefix(msg.Topic, "homeassistant/fan/") {
				n++
			}
		}
		return n
	}

	// published once at startup
	require.Eventually(t, func() bool { return discoveryCount() == 1 }, 3*time.Second, 20*time.Millisecond)

	as.Root.Send(pid, domain.HomeAssistantOnline{})
	require.Eventually(t, func() bool { return discoveryCount() == 2 }, 3*time.Second, 20*time.Millisecond)

	// availability is announced again
	require.Eventually(t, func() bool {
		for _, msg := range mqttActor.Published() {
			if msg.Topic == "rffan/bridge/state" && msg.Payload == "online" && msg.Retain {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}
