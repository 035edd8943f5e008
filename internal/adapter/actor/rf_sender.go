package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/rffan2mqtt/internal/core/domain"
	"github.com/berfenger/rffan2mqtt/internal/core/port"

	"github.com/asynkron/protoactor-go/actor"
)

// RFCommandPublisher sends RF commands to the bridge through the MQTT actor
// and waits for the broker acknowledgement.
type RFCommandPublisher struct {
	sender    actor.SenderContext
	mqttActor *actor.PID
	topic     string
	timeout   time.Duration
}

func NewRFCommandPublisher(sender actor.SenderContext, mqttActor *actor.PID, topic string, timeout time.Duration) *RFCommandPublisher {
	return &RFCommandPublisher{
		sender:    sender,
		mqttActor: mqttActor,
		topic:     topic,
		timeout:   timeout,
	}
}

func (p *RFCommandPublisher) SendRFCommand(ctx context.Context, cmd domain.RFCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}

	res, err := p.sender.RequestFuture(p.mqttActor, domain.PublishMessageRequest{
		Topic:   p.topic,
		Payload: string(payload),
		Qos:     1,
		Retain:  false,
	}, timeout).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	resp, ok := res.(domain.PublishMessageResponse)
	if !ok {
		return fmt.Errorf("publish to %s: unexpected response %T", p.topic, res)
	}
	return resp.GetResponseError()
}

// ensure interface compliance
var _ port.RFCommandSender = (*RFCommandPublisher)(nil)
