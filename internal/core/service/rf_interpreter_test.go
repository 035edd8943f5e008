package service

import (
	"context"
	"testing"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rfMessage(code string) []byte {
	return []byte(`{"RfReceived":{"Sync":12400,"Low":420,"High":1240,"Data":"` + code + `","RfKey":"None"}}`)
}

func newTestInterpreter(t *testing.T) (*RFEventInterpreter, *SpeedController, *recorder) {
	ctrl, rec := newTestController(t, false)
	return NewRFEventInterpreter(testPayloads, ctrl, zap.Must(zap.NewDevelopment())), ctrl, rec
}

func TestDecode(t *testing.T) {

	interp, _, _ := newTestInterpreter(t)

	code, err := interp.Decode(rfMessage(CODE_UP))
	require.NoError(t, err)
	assert.Equal(t, CODE_UP, code)

	for _, payload := range []string{
		`not json`,
		`{}`,
		`{"RfReceived":{}}`,
		`{"RfReceived":null}`,
		`{"Other":{"Data":"0x0A0002"}}`,
	} {
		_, err := interp.Decode([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformedRFMessage, payload)
	}
}

func TestMatch(t *testing.T) {

	interp, _, _ := newTestInterpreter(t)

	assert.Equal(t, domain.RF_EVENT_STEP_DOWN, interp.Match(CODE_DOWN))
	assert.Equal(t, domain.RF_EVENT_STEP_UP, interp.Match(CODE_UP))
	assert.Equal(t, domain.RF_EVENT_POWER_TOGGLE, interp.Match(CODE_ONOFF))
	assert.Equal(t, domain.RF_EVENT_NONE, interp.Match("0xFFFFFF"))
	assert.Equal(t, domain.RF_EVENT_NONE, interp.Match(""))
}

func TestMatchPrefersStepDown(t *testing.T) {

	ctrl, _ := newTestController(t, false)
	interp := NewRFEventInterpreter(domain.RFPayloads{
		PowerToggle: "0x01",
		StepUp:      "0x01",
		StepDown:    "0x01",
	}, ctrl, zap.NewNop())

	assert.Equal(t, domain.RF_EVENT_STEP_DOWN, interp.Match("0x01"))
}

func TestHandleRemoteStepUp(t *testing.T) {

	require := require.New(t)
	interp, ctrl, rec := newTestInterpreter(t)
	on(t, ctrl, rec, 2)

	event := interp.HandleMessage(context.Background(), rfMessage(CODE_UP))
	require.Equal(domain.RF_EVENT_STEP_UP, event)
	require.Equal(domain.NewFanState(true, 3), ctrl.State())
	require.Empty(rec.trace, "remote press is not echoed")
	require.Equal(ctrl.State(), rec.lastState())
}

func TestHandleRemoteStepDown(t *testing.T) {

	require := require.New(t)
	interp, ctrl, rec := newTestInterpreter(t)
	on(t, ctrl, rec, 2)

	interp.HandleMessage(context.Background(), rfMessage(CODE_DOWN))
	require.Equal(1, ctrl.State().Speed)
	interp.HandleMessage(context.Background(), rfMessage(CODE_DOWN))
	require.Equal(domain.NewFanState(true, 1), ctrl.State(), "remote down never turns the fan off")
	require.Empty(rec.trace)
}

func TestHandleRemoteToggle(t *testing.T) {

	require := require.New(t)
	interp, ctrl, rec := newTestInterpreter(t)

	interp.HandleMessage(context.Background(), rfMessage(CODE_ONOFF))
	require.Equal(domain.NewFanState(true, 1), ctrl.State())
	interp.HandleMessage(context.Background(), rfMessage(CODE_ONOFF))
	require.Equal(domain.NewFanState(false, 0), ctrl.State())
	require.Empty(rec.trace)
}

func TestHandleIgnoresBadMessages(t *testing.T) {

	require := require.New(t)
	interp, ctrl, rec := newTestInterpreter(t)
	on(t, ctrl, rec, 4)

	for _, payload := range [][]byte{
		[]byte(`garbage`),
		[]byte(`{"RfReceived":{"Sync":1}}`),
		rfMessage("0x123456"),
	} {
		require.Equal(domain.RF_EVENT_NONE, interp.HandleMessage(context.Background(), payload))
	}
	require.Equal(domain.NewFanState(true, 4), ctrl.State())
	require.Empty(rec.trace)
	require.Empty(rec.states)
}
