package port

import (
	"context"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
)

// RFCommandSender publishes an RF command to the bridge and waits for the
// transport to accept it.
type RFCommandSender interface {
	SendRFCommand(ctx context.Context, cmd domain.RFCommand) error
}

// FanStateListener receives every state announcement. It is called with the
// controller sequencing guard held and must not call back into the controller.
type FanStateListener interface {
	OnFanStateChanged(state domain.FanState)
}

type FanController interface {
	TurnOn(ctx context.Context, percentage *int) error
	TurnOff(ctx context.Context) error
	TogglePower(ctx context.Context, suppressEcho bool) error
	SetPercentage(ctx context.Context, percentage int) error
	IncreaseSpeed(ctx context.Context, suppressEcho bool) error
	DecreaseSpeed(ctx context.Context, suppressEcho bool) error
	Refresh()
	State() domain.FanState
}

// FanStateListenerFunc adapts a function to FanStateListener.
type FanStateListenerFunc func(state domain.FanState)

func (f FanStateListenerFunc) OnFanStateChanged(state domain.FanState) {
	f(state)
}
