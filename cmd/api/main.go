package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/rffan2mqtt/internal/adapter/actor"
	"github.com/berfenger/rffan2mqtt/internal/adapter/homekit"
	"github.com/berfenger/rffan2mqtt/internal/config"
	"github.com/berfenger/rffan2mqtt/internal/core/actor"
	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/job"
	"github.com/berfenger/rffan2mqtt/internal/server"
	"github.com/berfenger/rffan2mqtt/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, cancel context.CancelFunc, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// stop HomeKit and scheduled jobs
	cancel()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// shared by the actors and the HomeKit accessory
	eventStream := &eventstream.EventStream{}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, eventStream, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	bgCtx, cancel := context.WithCancel(context.Background())

	// periodic state refresh
	if cfg.Fan.StateRefreshIntervalSeconds > 0 {
		refreshJob := job.NewActorStateRefreshJob(time.Duration(cfg.Fan.StateRefreshIntervalSeconds)*time.Second, ctx, pid, logger)
		if err := refreshJob.Start(bgCtx); err != nil {
			logger.Error("could not start state refresh job", zap.Error(err))
		} else {
			defer refreshJob.Stop()
		}
	}

	// HomeKit accessory
	if cfg.HomeKit.Enable {
		requester := homekit.NewActorRequester(ctx, pid, server.FanRequestTimeout(cfg.Fan), logger)
		acc := homekit.NewFanAccessory(cfg, requester, logger)
		sub := acc.Subscribe(eventStream)
		defer eventStream.Unsubscribe(sub)
		go func() {
			if err := acc.Serve(bgCtx, cfg.HomeKit); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("homekit server error", zap.Error(err))
			}
		}()
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, cancel, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => RFFAN_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("RFFAN_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("rffan")
	// RFFAN_MQTT_HOST => mqtt.host
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// fan id is used in topics and entity ids
	fanId, err := config.CheckMQTTTopic(cfg.Fan.Id)
	if err == nil {
		cfg.Fan.Id = fanId
	}
	if err := config.CheckFanConfig(cfg.Fan); err != nil {
		return nil, err
	}
	if cfg.Fan.CommandTimeoutMillis < 100 {
		return nil, errors.New("config param fan.command_timeout_millis should be >= 100")
	}

	if err := config.CheckHomeKitConfig(cfg.HomeKit); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "rffan")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("fan.id", "rf_fan")
	viper.SetDefault("fan.name", "RF Fan")
	viper.SetDefault("fan.manufacturer", "MQTT Dummy Inc.")
	viper.SetDefault("fan.model", "MQTT Fan v1")
	viper.SetDefault("fan.topic_in", "tele/rfbridge/RESULT")
	viper.SetDefault("fan.topic_out", "cmnd/rfbridge/RfSend")
	viper.SetDefault("fan.payload_onoff", "0x000001")
	viper.SetDefault("fan.payload_up", "0x000002")
	viper.SetDefault("fan.payload_down", "0x000003")
	viper.SetDefault("fan.settle_delay_millis", 1000)
	viper.SetDefault("fan.step_down_on_decrease", false)
	viper.SetDefault("fan.step_on_turn_on", false)
	viper.SetDefault("fan.command_timeout_millis", 5000)
	viper.SetDefault("fan.state_refresh_interval_seconds", 300)
	rf := domain.DefaultRFProtocol()
	viper.SetDefault("rf.bits", rf.Bits)
	viper.SetDefault("rf.protocol", rf.Protocol)
	viper.SetDefault("rf.pulse", rf.Pulse)
	viper.SetDefault("rf.repeat", rf.Repeat)
	viper.SetDefault("homekit.enable", false)
	viper.SetDefault("homekit.pin", "00102003")
	viper.SetDefault("homekit.storage_dir", "./homekit")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.HomeKit.Pin = "*redacted*"
	slog.Info("Using", "config", cfg)
}
