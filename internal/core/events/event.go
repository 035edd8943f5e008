package events

import (
	. "github.com/berfenger/rffan2mqtt/internal/core/domain"
)

func FanStateToUpdateEvent(fanId string, state FanState) FanStateUpdateEvent {
	return FanStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: fanId,
		},
		State: state,
	}
}

func BridgeStateToUpdateEvent(online bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
