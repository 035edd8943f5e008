package actor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/util"
	"github.com/berfenger/rffan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActorHealth(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	root := as.Root

	es := &eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, es, logger, nil) })
	pid := root.Spawn(props)

	msg := domain.ActorHealthRequest{}
	result, err := root.RequestFuture(pid, msg, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)
	assert.Equal(t, domain.ACTOR_ID_MQTT, resp.Id)

	root.Stop(pid)
}

func TestMQTTActorPublishesFanState(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	es := &eventstream.EventStream{}
	mqttActor := NewTestMQTTActor(&cfg, es, logger, nil)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return mqttActor }))

	// wait for the event stream subscription
	_, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)

	es.Publish(domain.FanStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: cfg.Fan.Id},
		State:                  domain.NewFanState(true, 3),
	})

	require.Eventually(t, func() bool {
		return len(mqttActor.Published()) == 2
	}, 2*time.Second, 20*time.Millisecond)

	published := mqttActor.Published()
	assert.Equal(t, "rffan/fan/"+cfg.Fan.Id+"/state", published[0].Topic)
	assert.Equal(t, "on", published[0].Payload)
	assert.True(t, published[0].Retain)
	assert.Equal(t, "rffan/fan/"+cfg.Fan.Id+"/percentage", published[1].Topic)
	assert.Equal(t, "50", published[1].Payload)
	assert.True(t, published[1].Retain)
}

func TestRFCommandPublisher(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	mqttActor := NewTestMQTTActor(&cfg, nil, logger, nil)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return mqttActor }))

	publisher := NewRFCommandPublisher(as.Root, pid, cfg.Fan.TopicOut, time.Second)
	err := publisher.SendRFCommand(context.Background(), domain.DefaultRFProtocol().Command("0x0A0002"))
	require.NoError(t, err)

	published := mqttActor.Published()
	require.Len(t, published, 1)
	assert.Equal(t, cfg.Fan.TopicOut, published[0].Topic)
	assert.Equal(t, byte(1), published[0].Qos)
	assert.False(t, published[0].Retain)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(published[0].Payload), &envelope))
	assert.Equal(t, map[string]any{
		"Data":     "0x0A0002",
		"Bits":     float64(18),
		"Protocol": float64(8),
		"Pulse":    float64(320),
		"Repeat":   float64(2),
	}, envelope)
}

func TestRFCommandPublisherError(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.NewNop()

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	brokerErr := errors.New("not connected")
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewTestMQTTActor(&cfg, nil, logger, brokerErr)
	}))

	publisher := NewRFCommandPublisher(as.Root, pid, cfg.Fan.TopicOut, time.Second)
	err := publisher.SendRFCommand(context.Background(), domain.DefaultRFProtocol().Command("0x0A0001"))
	assert.ErrorIs(t, err, brokerErr)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err = publisher.SendRFCommand(cancelled, domain.DefaultRFProtocol().Command("0x0A0001"))
	assert.ErrorIs(t, err, context.Canceled)
}
