package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/config"
	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/core/events"
	"github.com/berfenger/rffan2mqtt/internal/core/port"
	"github.com/berfenger/rffan2mqtt/internal/core/service"
	. "github.com/berfenger/rffan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// FanActor owns the speed controller of one fan. Requests run one at a time
// outside the actor loop; requests arriving meanwhile wait in arrival order.
type FanActor struct {
	ActorWithStates
	config      *config.Config
	sender      port.RFCommandSender
	eventStream *eventstream.EventStream
	pending     *Stash
	controller  *service.SpeedController
	interpreter *service.RFEventInterpreter
	opCtx       context.Context
	cancelOps   context.CancelFunc

	logger *zap.Logger
}

type fanOperationDone struct {
	request domain.FanRequest
	replyTo *actor.PID
	err     error
}

func NewFanActor(config *config.Config, sender port.RFCommandSender, eventStream *eventstream.EventStream, logger *zap.Logger) *FanActor {
	act := &FanActor{
		config:      config,
		sender:      sender,
		eventStream: eventStream,
		pending:     &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_FAN, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(FanStartingState{
		actor: act,
	})
	return act
}

func (state *FanActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func SpeedControllerConfig(cfg *config.Config) service.SpeedControllerConfig {
	return service.SpeedControllerConfig{
		Payloads: domain.RFPayloads{
			PowerToggle: cfg.Fan.PayloadOnOff,
			StepUp:      cfg.Fan.PayloadUp,
			StepDown:    cfg.Fan.PayloadDown,
		},
		Protocol: domain.RFProtocol{
			Bits:     cfg.RF.Bits,
			Protocol: cfg.RF.Protocol,
			Pulse:    cfg.RF.Pulse,
			Repeat:   cfg.RF.Repeat,
		},
		SettleDelay:        time.Duration(cfg.Fan.SettleDelayMillis) * time.Millisecond,
		StepDownOnDecrease: cfg.Fan.StepDownOnDecrease,
		StepOnTurnOn:       cfg.Fan.StepOnTurnOn,
	}
}

func (state *FanActor) announce(fanState domain.FanState) {
	if state.eventStream == nil {
		return
	}
	state.eventStream.Publish(events.FanStateToUpdateEvent(state.config.Fan.Id, fanState))
}

// Starting state

type FanStartingState struct {
	ActorState
	actor *FanActor
}

func (state FanStartingState) Name() string {
	return "starting"
}

func (state FanStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("fan@starting started")

		state.actor.opCtx, state.actor.cancelOps = context.WithCancel(context.Background())
		state.actor.controller = service.NewSpeedController(SpeedControllerConfig(state.actor.config),
			state.actor.sender, port.FanStateListenerFunc(state.actor.announce), state.actor.logger)
		state.actor.interpreter = service.NewRFEventInterpreter(SpeedControllerConfig(state.actor.config).Payloads,
			state.actor.controller, state.actor.logger)

		// the device state is unknown at boot, assume off
		state.actor.controller.Refresh()

		state.actor.Become(FanIdleState{
			actor: state.actor,
		})
		state.actor.pending.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("fan@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.pending.Stash(ctx, msg)
	}
}

// Idle state

type FanIdleState struct {
	ActorState
	actor *FanActor
}

func (state FanIdleState) Name() string {
	return "idle"
}

func (state FanIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("fan@idle: ActorHealthRequest")
		ctx.Respond(state.actor.health())
	case domain.GetFanStateRequest:
		state.actor.respondState(ctx, msg)
	case domain.FanRequest:
		state.actor.logger.Debug("fan@idle: fan request", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.BecomeStacked(FanBusyState{
			actor: state.actor,
		}.OnEnter(ctx, msg, ForRequest(msg).ReplyTo(ctx)))
	case *actor.Stopping:
		state.actor.stop()
	default:
		state.actor.logger.Debug("fan@idle: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Busy state

type FanBusyState struct {
	ActorState
	actor   *FanActor
	request domain.FanRequest
}

func (state FanBusyState) Name() string {
	return "busy"
}

func (state FanBusyState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case fanOperationDone:
		if msg.err != nil {
			state.actor.logger.Error("fan@busy: operation failed", zap.String("type", fmt.Sprintf("%T", msg.request)), zap.Error(msg.err))
		}
		ForRequest(msg.request).RespondTo(ctx, msg.replyTo, domain.FanCommandResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: msg.err,
			},
			State: state.actor.controller.State(),
		})

		// run the next queued request or go back to idle
		state.actor.UnbecomeStacked()
		if next, sender, ok := state.actor.pending.Pop(); ok {
			req := next.(domain.FanRequest)
			replyTo := sender
			if req.ReplyTo() != nil {
				replyTo = (*actor.PID)(req.ReplyTo())
			}
			state.actor.BecomeStacked(FanBusyState{
				actor: state.actor,
			}.OnEnter(ctx, req, replyTo))
		}
	case domain.ActorHealthRequest:
		ctx.Respond(state.actor.health())
	case domain.GetFanStateRequest:
		state.actor.respondState(ctx, msg)
	case domain.FanRequest:
		state.actor.logger.Debug("fan@busy: queue request", zap.String("type", fmt.Sprintf("%T", msg)), zap.Int("queued", state.actor.pending.Len()+1))
		state.actor.pending.Stash(ctx, msg)
	case *actor.Stopping:
		state.actor.stop()
	default:
		state.actor.logger.Debug("fan@busy: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// OnEnter starts the request in the background. Its result comes back as fanOperationDone.
func (state FanBusyState) OnEnter(ctx actor.Context, req domain.FanRequest, replyTo *actor.PID) FanBusyState {
	state.request = req
	fan := state.actor
	NewBackgroundTask(ctx, func() (*fanOperationDone, error) {
		err := fan.execute(req)
		return &fanOperationDone{request: req, replyTo: replyTo, err: err}, nil
	}).Recover(func(err error) fanOperationDone {
		return fanOperationDone{request: req, replyTo: replyTo, err: err}
	}).PipeTo(ctx.Self())
	return state
}

func (state *FanActor) execute(req domain.FanRequest) error {
	ctx := state.opCtx
	ctrl := state.controller
	switch r := req.(type) {
	case domain.FanTurnOnRequest:
		return ctrl.TurnOn(ctx, r.Percentage)
	case domain.FanTurnOffRequest:
		return ctrl.TurnOff(ctx)
	case domain.FanTogglePowerRequest:
		return ctrl.TogglePower(ctx, r.SuppressEcho)
	case domain.FanSetPercentageRequest:
		return ctrl.SetPercentage(ctx, r.Percentage)
	case domain.FanIncreaseSpeedRequest:
		return ctrl.IncreaseSpeed(ctx, r.SuppressEcho)
	case domain.FanDecreaseSpeedRequest:
		return ctrl.DecreaseSpeed(ctx, r.SuppressEcho)
	case domain.FanRFMessageRequest:
		state.interpreter.HandleMessage(ctx, r.Payload)
		return nil
	case domain.FanRefreshStateRequest:
		ctrl.Refresh()
		return nil
	default:
		return fmt.Errorf("unsupported fan request %T", req)
	}
}

// health reports the active state, "busy" while a request runs.
func (state *FanActor) health() domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_FAN,
		Healthy: true,
		State:   state.StateName(),
	}
}

func (state *FanActor) respondState(ctx actor.Context, req domain.GetFanStateRequest) {
	ForRequest(req).Respond(ctx, domain.GetFanStateResponse{
		State: state.controller.State(),
	})
}

func (state *FanActor) stop() {
	if state.cancelOps != nil {
		state.logger.Debug("fan: cancel running operations")
		state.cancelOps()
	}
}
