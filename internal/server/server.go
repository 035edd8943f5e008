package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/config"
	"github.com/berfenger/rffan2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port           uint
	httpLog        bool
	rootContext    *actor.RootContext
	masterActor    *actor.PID
	requestTimeout time.Duration
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *http.Server {
	NewServer := newServer(cfg, rootContext, masterActor)

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: NewServer.requestTimeout + 5*time.Second,
	}

	return server
}

func newServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *Server {
	return &Server{
		port:           cfg.Port,
		rootContext:    rootContext,
		masterActor:    masterActor,
		httpLog:        cfg.HttpLog,
		requestTimeout: FanRequestTimeout(cfg.Fan),
	}
}

// FanRequestTimeout covers a full sequence from off to max speed. Requests
// queued behind another sequence can outlive it; they still run and the
// caller gets 504.
func FanRequestTimeout(fan config.FanConfig) time.Duration {
	perStep := time.Duration(fan.SettleDelayMillis+fan.CommandTimeoutMillis) * time.Millisecond
	return time.Duration(domain.MAX_SPEED+2)*perStep + 5*time.Second
}
