package homekit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/config"
	"github.com/berfenger/rffan2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	hlog "github.com/brutella/hap/log"
	"github.com/brutella/hap/service"
	"github.com/carlmjohnson/versioninfo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FanRequester delivers requests coming from HomeKit controllers.
type FanRequester interface {
	Request(req domain.FanRequest)
}

type fanService struct {
	*service.S

	On            *characteristic.On
	RotationSpeed *characteristic.RotationSpeed
}

func newFanService() *fanService {
	s := fanService{}
	s.S = service.New(service.TypeFan)

	s.On = characteristic.NewOn()
	s.AddC(s.On.C)

	s.RotationSpeed = characteristic.NewRotationSpeed()
	s.RotationSpeed.SetStepValue(domain.PercentageStep())
	s.AddC(s.RotationSpeed.C)

	return &s
}

type FanAccessory struct {
	A   *accessory.A
	Fan *fanService

	requester FanRequester
	fanId     string
	logger    *zap.Logger
}

func NewFanAccessory(cfg *config.Config, requester FanRequester, logger *zap.Logger) *FanAccessory {
	info := accessory.Info{
		Name:         cfg.Fan.Name,
		SerialNumber: cfg.Fan.Id,
		Manufacturer: cfg.Fan.Manufacturer,
		Model:        cfg.Fan.Model,
		Firmware:     versioninfo.Short(),
	}

	acc := &FanAccessory{
		A:         accessory.New(info, accessory.TypeFan),
		Fan:       newFanService(),
		requester: requester,
		fanId:     cfg.Fan.Id,
		logger:    logger.With(zap.String("component", "homekit")),
	}
	acc.A.AddS(acc.Fan.S)

	acc.Fan.On.OnValueRemoteUpdate(func(on bool) {
		acc.logger.Debug("homekit: remote update on", zap.Bool("on", on))
		acc.requester.Request(OnToRequest(on))
	})
	acc.Fan.RotationSpeed.OnValueRemoteUpdate(func(speed float64) {
		acc.logger.Debug("homekit: remote update rotation speed", zap.Float64("speed", speed))
		acc.requester.Request(RotationSpeedToRequest(speed))
	})

	return acc
}

func OnToRequest(on bool) domain.FanRequest {
	if on {
		return domain.FanTurnOnRequest{}
	}
	return domain.FanTurnOffRequest{}
}

func RotationSpeedToRequest(speed float64) domain.FanRequest {
	percentage := int(math.Round(speed))
	if percentage <= 0 {
		return domain.FanTurnOffRequest{}
	}
	return domain.FanSetPercentageRequest{Percentage: min(percentage, 100)}
}

// Update mirrors a fan state on the characteristics.
func (a *FanAccessory) Update(state domain.FanState) {
	a.Fan.On.SetValue(state.On)
	if state.On {
		a.Fan.RotationSpeed.SetValue(float64(state.Percentage))
	}
}

// Subscribe keeps the accessory in sync with the fan state events.
func (a *FanAccessory) Subscribe(es *eventstream.EventStream) *eventstream.Subscription {
	return es.Subscribe(func(evt any) {
		if e, ok := evt.(domain.FanStateUpdateEvent); ok && e.Id == a.fanId {
			a.Update(e.State)
		}
	})
}

// Serve publishes the accessory until ctx is done.
func (a *FanAccessory) Serve(ctx context.Context, cfg config.HomeKitConfig) error {
	if a.logger.Core().Enabled(zapcore.DebugLevel) {
		hlog.Debug.Enable()
	}
	server, err := hap.NewServer(hap.NewFsStore(cfg.StorageDir), a.A)
	if err != nil {
		return fmt.Errorf("could not create HomeKit server: %w", err)
	}
	server.Pin = cfg.Pin

	a.logger.Info("homekit: serving accessory", zap.String("fan", a.fanId))
	return server.ListenAndServe(ctx)
}

// ActorRequester sends requests to the master actor and logs failures.
type ActorRequester struct {
	sender  actor.SenderContext
	master  *actor.PID
	timeout time.Duration
	logger  *zap.Logger
}

func NewActorRequester(sender actor.SenderContext, master *actor.PID, timeout time.Duration, logger *zap.Logger) *ActorRequester {
	return &ActorRequester{
		sender:  sender,
		master:  master,
		timeout: timeout,
		logger:  logger,
	}
}

func (r *ActorRequester) Request(req domain.FanRequest) {
	future := r.sender.RequestFuture(r.master, req, r.timeout)
	go func() {
		res, err := future.Result()
		if err != nil {
			r.logger.Error("homekit: fan request failed", zap.String("type", fmt.Sprintf("%T", req)), zap.Error(err))
			return
		}
		if resp, ok := res.(domain.FanCommandResponse); ok && resp.HasResponseError() {
			r.logger.Error("homekit: fan request failed", zap.String("type", fmt.Sprintf("%T", req)), zap.Error(resp.ResponseError))
		}
	}()
}
