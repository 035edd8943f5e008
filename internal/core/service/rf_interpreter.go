package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/core/port"

	"go.uber.org/zap"
)

var ErrMalformedRFMessage = errors.New("malformed rf message")

type rfBridgeMessage struct {
	RfReceived *struct {
		Data *string `json:"Data"`
	} `json:"RfReceived"`
}

// RFEventInterpreter turns RF bridge messages into echo suppressed fan
// operations. Each message is handled on its own.
type RFEventInterpreter struct {
	payloads domain.RFPayloads
	fan      port.FanController
	logger   *zap.Logger
}

func NewRFEventInterpreter(payloads domain.RFPayloads, fan port.FanController, logger *zap.Logger) *RFEventInterpreter {
	return &RFEventInterpreter{
		payloads: payloads,
		fan:      fan,
		logger:   logger,
	}
}

// Decode extracts RfReceived.Data from a bridge message.
func (i *RFEventInterpreter) Decode(payload []byte) (string, error) {
	var msg rfBridgeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedRFMessage, err)
	}
	if msg.RfReceived == nil {
		return "", fmt.Errorf("%w: missing RfReceived", ErrMalformedRFMessage)
	}
	if msg.RfReceived.Data == nil {
		return "", fmt.Errorf("%w: missing RfReceived.Data", ErrMalformedRFMessage)
	}
	return *msg.RfReceived.Data, nil
}

// Match checks step down, step up and power toggle, in that order.
func (i *RFEventInterpreter) Match(code string) domain.RFEvent {
	switch code {
	case i.payloads.StepDown:
		return domain.RF_EVENT_STEP_DOWN
	case i.payloads.StepUp:
		return domain.RF_EVENT_STEP_UP
	case i.payloads.PowerToggle:
		return domain.RF_EVENT_POWER_TOGGLE
	default:
		return domain.RF_EVENT_NONE
	}
}

// HandleMessage never fails: malformed or unknown messages are logged and dropped.
func (i *RFEventInterpreter) HandleMessage(ctx context.Context, payload []byte) domain.RFEvent {
	i.logger.Debug("rf: raw message received", zap.ByteString("payload", payload))

	code, err := i.Decode(payload)
	if err != nil {
		i.logger.Warn("rf: failed to parse message", zap.Error(err))
		return domain.RF_EVENT_NONE
	}

	event := i.Match(code)
	switch event {
	case domain.RF_EVENT_STEP_DOWN:
		err = i.fan.DecreaseSpeed(ctx, true)
	case domain.RF_EVENT_STEP_UP:
		err = i.fan.IncreaseSpeed(ctx, true)
	case domain.RF_EVENT_POWER_TOGGLE:
		err = i.fan.TogglePower(ctx, true)
	default:
		i.logger.Debug("rf: no matching command for code", zap.String("code", code))
		return event
	}
	i.logger.Debug("rf: matched command", zap.String("event", event.String()))

	if err != nil {
		i.logger.Error("rf: fan operation failed", zap.String("event", event.String()), zap.Error(err))
	}
	return event
}
