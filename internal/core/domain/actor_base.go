package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorRef keeps protoactor out of the request types' public surface.
type ActorRef actor.PID

// ActorRequestMixIn lets a request name its reply target. Requests relayed
// by the master keep the HTTP or HomeKit future as ReplyToRef.
type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

// ActorResponseMixIn carries the transport or controller error back to the caller.
type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

// ensure interface compliance
var _ ActorRequest = ActorRequestMixIn{}
var _ ActorResponse = ActorResponseMixIn{}
var _ ActorResponse = FanCommandResponse{}
