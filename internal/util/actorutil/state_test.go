package actorutil

import (
	"testing"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
)

type namedState string

func (s namedState) Name() string            { return string(s) }
func (s namedState) Receive(_ actor.Context) {}

func TestActorWithStatesName(t *testing.T) {

	assert := assert.New(t)
	s := ActorWithStates{Behavior: actor.NewBehavior()}
	assert.Equal("", s.StateName())

	s.Become(namedState("idle"))
	s.BecomeStacked(namedState("busy"))
	assert.Equal("busy", s.StateName())

	s.UnbecomeStacked()
	assert.Equal("idle", s.StateName())

	s.BecomeStacked(namedState("busy"))
	s.Become(namedState("stopping"))
	assert.Equal("stopping", s.StateName())
}
