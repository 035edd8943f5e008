package domain

// FanRequest

type FanRequest interface {
	ActorRequest
	fanRequest()
}

type FanRequestMixIn struct {
	ActorRequestMixIn
}

func (r FanRequestMixIn) fanRequest() {}

// FanCommandResponse is the answer to every FanRequest

type FanCommandResponse struct {
	ActorResponseMixIn
	State FanState
}

// Fan commands

type FanTurnOnRequest struct {
	FanRequestMixIn
	Percentage *int
}

type FanTurnOffRequest struct {
	FanRequestMixIn
}

type FanTogglePowerRequest struct {
	FanRequestMixIn
	SuppressEcho bool
}

type FanSetPercentageRequest struct {
	FanRequestMixIn
	Percentage int
}

type FanIncreaseSpeedRequest struct {
	FanRequestMixIn
	SuppressEcho bool
}

type FanDecreaseSpeedRequest struct {
	FanRequestMixIn
	SuppressEcho bool
}

// FanRFMessageRequest carries a raw message received on the RF bridge topic.
type FanRFMessageRequest struct {
	FanRequestMixIn
	Payload []byte
}

type FanRefreshStateRequest struct {
	FanRequestMixIn
}

type GetFanStateRequest struct {
	ActorRequestMixIn
}

type GetFanStateResponse struct {
	ActorResponseMixIn
	State FanState
}

// ensure interface compliance
var _ FanRequest = FanTurnOnRequest{}
var _ FanRequest = FanRFMessageRequest{}
