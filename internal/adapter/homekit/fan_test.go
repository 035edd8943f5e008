package homekit

import (
	"sync"
	"testing"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingRequester struct {
	mu       sync.Mutex
	requests []domain.FanRequest
}

func (r *recordingRequester) Request(req domain.FanRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func TestRemoteUpdateMapping(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(domain.FanTurnOnRequest{}, OnToRequest(true))
	assert.Equal(domain.FanTurnOffRequest{}, OnToRequest(false))

	assert.Equal(domain.FanTurnOffRequest{}, RotationSpeedToRequest(0))
	assert.Equal(domain.FanSetPercentageRequest{Percentage: 33}, RotationSpeedToRequest(33.3))
	assert.Equal(domain.FanSetPercentageRequest{Percentage: 67}, RotationSpeedToRequest(66.7))
	assert.Equal(domain.FanSetPercentageRequest{Percentage: 100}, RotationSpeedToRequest(100))
}

func TestFanAccessoryFollowsStateEvents(t *testing.T) {

	require := require.New(t)
	cfg := util.LoadTestConfig()
	acc := NewFanAccessory(&cfg, &recordingRequester{}, zap.NewNop())

	es := &eventstream.EventStream{}
	sub := acc.Subscribe(es)
	defer es.Unsubscribe(sub)

	es.Publish(domain.FanStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: cfg.Fan.Id},
		State:                  domain.NewFanState(true, 3),
	})
	require.True(acc.Fan.On.Value())
	require.Equal(float64(50), acc.Fan.RotationSpeed.Value())

	// other fans are ignored
	es.Publish(domain.FanStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "other"},
		State:                  domain.NewFanState(false, 0),
	})
	require.True(acc.Fan.On.Value())

	// off keeps the last speed for the next turn on
	es.Publish(domain.FanStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: cfg.Fan.Id},
		State:                  domain.NewFanState(false, 0),
	})
	require.False(acc.Fan.On.Value())
	require.Equal(float64(50), acc.Fan.RotationSpeed.Value())
}

func TestFanAccessoryLocalUpdatesAreNotRequests(t *testing.T) {

	cfg := util.LoadTestConfig()
	requester := &recordingRequester{}
	acc := NewFanAccessory(&cfg, requester, zap.NewNop())

	acc.Update(domain.NewFanState(true, 6))
	time.Sleep(20 * time.Millisecond)

	requester.mu.Lock()
	defer requester.mu.Unlock()
	assert.Empty(t, requester.requests)
}
