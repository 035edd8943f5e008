package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/core/port"

	"go.uber.org/zap"
)

type SpeedControllerConfig struct {
	Payloads           domain.RFPayloads
	Protocol           domain.RFProtocol
	SettleDelay        time.Duration
	StepDownOnDecrease bool
	// StepOnTurnOn drives turn_on with a percentage through the step sequence
	StepOnTurnOn bool
}

// SpeedController owns the fan state and turns control intents into RF
// commands. The device only understands power toggle and single steps, so
// every intent becomes a sequence of those.
type SpeedController struct {
	// seq serializes operations, including their settle waits
	seq sync.Mutex
	// mu protects state so State() does not block on a running sequence
	mu    sync.RWMutex
	state domain.FanState

	cfg      SpeedControllerConfig
	sender   port.RFCommandSender
	listener port.FanStateListener
	wait     func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

func NewSpeedController(cfg SpeedControllerConfig, sender port.RFCommandSender, listener port.FanStateListener, logger *zap.Logger) *SpeedController {
	return &SpeedController{
		state:    domain.NewFanState(false, 0),
		cfg:      cfg,
		sender:   sender,
		listener: listener,
		wait:     sleepContext,
		logger:   logger,
	}
}

func (c *SpeedController) State() domain.FanState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Refresh announces the current state again.
func (c *SpeedController) Refresh() {
	c.seq.Lock()
	defer c.seq.Unlock()
	c.announce()
}

// TurnOn powers the fan on. A target percentage only sets the tracked speed,
// unless StepOnTurnOn asks for the step sequence.
func (c *SpeedController) TurnOn(ctx context.Context, percentage *int) error {
	c.seq.Lock()
	defer c.seq.Unlock()
	if percentage == nil {
		return c.turnOn(ctx, false, 0)
	}
	target := domain.PercentageToSpeed(*percentage)
	if c.cfg.StepOnTurnOn {
		if current := c.State(); current.On && current.Speed == target {
			c.announce()
			return nil
		}
		return c.setPercentage(ctx, *percentage)
	}
	return c.turnOn(ctx, false, target)
}

func (c *SpeedController) TurnOff(ctx context.Context) error {
	c.seq.Lock()
	defer c.seq.Unlock()
	return c.turnOff(ctx, false)
}

// TogglePower flips the power state. With suppressEcho the toggle is only
// recorded, because the remote already sent it to the device.
func (c *SpeedController) TogglePower(ctx context.Context, suppressEcho bool) error {
	c.seq.Lock()
	defer c.seq.Unlock()
	if c.State().On {
		return c.turnOff(ctx, suppressEcho)
	}
	return c.turnOn(ctx, suppressEcho, 0)
}

func (c *SpeedController) SetPercentage(ctx context.Context, percentage int) error {
	c.seq.Lock()
	defer c.seq.Unlock()
	return c.setPercentage(ctx, percentage)
}

func (c *SpeedController) IncreaseSpeed(ctx context.Context, suppressEcho bool) error {
	c.seq.Lock()
	defer c.seq.Unlock()

	current := c.State()
	if !current.On {
		c.logger.Debug("fan: ignoring increase_speed, fan is off")
		return nil
	}

	var err error
	if current.Speed < domain.MAX_SPEED {
		c.setState(true, current.Speed+1)
		c.logger.Debug("fan: increased speed", zap.Int("speed", current.Speed+1))
		if !suppressEcho {
			err = c.send(ctx, c.cfg.Payloads.StepUp)
		}
	} else {
		c.logger.Debug("fan: at maximum speed, ignoring increase_speed")
	}

	c.announce()
	return err
}

func (c *SpeedController) DecreaseSpeed(ctx context.Context, suppressEcho bool) error {
	c.seq.Lock()
	defer c.seq.Unlock()

	current := c.State()
	if !current.On {
		c.logger.Debug("fan: ignoring decrease_speed, fan is off")
		return nil
	}

	var err error
	switch {
	case current.Speed > 1:
		c.setState(true, current.Speed-1)
		c.logger.Debug("fan: decreased speed", zap.Int("speed", current.Speed-1))
		if !suppressEcho {
			err = c.send(ctx, c.cfg.Payloads.StepDown)
		}
	case current.Speed == 1:
		// the down signal never switches the fan off
		c.logger.Debug("fan: at minimum speed, ignoring decrease_speed")
		return nil
	default:
		c.logger.Debug("fan: speed already 0, turning off")
		c.setState(false, 0)
		if !suppressEcho {
			err = c.send(ctx, c.cfg.Payloads.PowerToggle)
		}
	}

	c.announce()
	return err
}

// turnOn sets the tracked speed to speed, or keeps the current one (at least 1)
// when speed is 0.
func (c *SpeedController) turnOn(ctx context.Context, suppressEcho bool, speed int) error {
	current := c.State()
	if !current.On && !suppressEcho {
		if err := c.send(ctx, c.cfg.Payloads.PowerToggle); err != nil {
			return err
		}
	} else if current.On {
		// a toggle here would switch the device off
		c.logger.Debug("fan: already on, no power toggle sent")
	}

	if speed == 0 {
		speed = max(current.Speed, 1)
	}
	c.setState(true, speed)
	c.announce()
	return nil
}

func (c *SpeedController) turnOff(ctx context.Context, suppressEcho bool) error {
	current := c.State()
	if current.On && !suppressEcho {
		if err := c.send(ctx, c.cfg.Payloads.PowerToggle); err != nil {
			return err
		}
	} else if !current.On {
		c.logger.Debug("fan: already off, no power toggle sent")
	}

	c.setState(false, 0)
	c.announce()
	return nil
}

func (c *SpeedController) setPercentage(ctx context.Context, percentage int) error {
	target := domain.PercentageToSpeed(percentage)
	current := c.State()
	if current.On && current.Speed == target {
		return nil
	}

	if !current.On {
		c.logger.Debug("fan: fan is off, turning on before setting speed")
		if err := c.send(ctx, c.cfg.Payloads.PowerToggle); err != nil {
			return err
		}
		c.setState(true, 0)
		if err := c.wait(ctx, c.cfg.SettleDelay); err != nil {
			c.announce()
			return err
		}
	}

	speed := c.State().Speed
	switch {
	case target > speed:
		for ; speed < target; speed++ {
			if err := c.step(ctx, c.cfg.Payloads.StepUp, speed+1); err != nil {
				c.logger.Error("fan: step sequence aborted", zap.Int("speed", c.State().Speed), zap.Int("target", target), zap.Error(err))
				c.announce()
				return err
			}
		}
	case target < speed && c.cfg.StepDownOnDecrease:
		for ; speed > target; speed-- {
			if err := c.step(ctx, c.cfg.Payloads.StepDown, speed-1); err != nil {
				c.logger.Error("fan: step sequence aborted", zap.Int("speed", c.State().Speed), zap.Int("target", target), zap.Error(err))
				c.announce()
				return err
			}
		}
	case target < speed:
		c.logger.Warn("fan: lowering speed without step commands, state may drift from the device",
			zap.Int("speed", speed), zap.Int("target", target))
		c.setState(true, target)
	}

	c.announce()
	return nil
}

// step sends one step command, records the new speed and waits for the
// device to settle.
func (c *SpeedController) step(ctx context.Context, code string, newSpeed int) error {
	if err := c.send(ctx, code); err != nil {
		return err
	}
	c.setState(true, newSpeed)
	return c.wait(ctx, c.cfg.SettleDelay)
}

func (c *SpeedController) send(ctx context.Context, code string) error {
	cmd := c.cfg.Protocol.Command(code)
	c.logger.Debug("fan: send rf command", zap.String("data", cmd.Data))
	if err := c.sender.SendRFCommand(ctx, cmd); err != nil {
		return fmt.Errorf("send rf command %s: %w", code, err)
	}
	return nil
}

func (c *SpeedController) setState(on bool, speed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = domain.NewFanState(on, speed)
}

func (c *SpeedController) announce() {
	if c.listener != nil {
		c.listener.OnFanStateChanged(c.State())
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensure interface compliance
var _ port.FanController = (*SpeedController)(nil)
