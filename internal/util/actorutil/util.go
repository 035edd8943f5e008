package actorutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a command received on a fan topic to a fan
// request. Commands for other fans return nil.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand, fanId string) (domain.FanRequest, error) {
	if cmd.DeviceId != fanId {
		return nil, nil
	}
	payload := strings.TrimSpace(cmd.Payload)
	switch cmd.Command {
	case mqtt.MQTT_COMMAND_POWER:
		switch strings.ToLower(payload) {
		case mqtt.MQTT_PAYLOAD_ON:
			return domain.FanTurnOnRequest{}, nil
		case mqtt.MQTT_PAYLOAD_OFF:
			return domain.FanTurnOffRequest{}, nil
		}
		return nil, fmt.Errorf("invalid power payload %q", payload)
	case mqtt.MQTT_COMMAND_PERCENTAGE:
		value, err := strconv.Atoi(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid percentage payload %q: %w", payload, err)
		}
		if value < 0 || value > 100 {
			return nil, fmt.Errorf("percentage %d out of range", value)
		}
		// Home Assistant sends 0 to switch the fan off
		if value == 0 {
			return domain.FanTurnOffRequest{}, nil
		}
		return domain.FanSetPercentageRequest{Percentage: value}, nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd.Command)
}
