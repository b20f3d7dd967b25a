package websocket

import (
	tools "github.com/kirillDanshin/nulltime"
)

const (
	Websocket_Samples   = "SAMPLES"
	Websocket_Whitelist = "WHITELIST"
	Websocket_All       = "ALL"
)

const (
	Websocket_Update = "UPDATE"
	Websocket_Add    = "ADD"
	Websocket_Delete = "DELETE"
)

const (
	MessageType_Data      = "DATA"
	MessageType_Subscribe = "SUBSCRIBE"
	MessageType_Heartbeat = "HEARTBEAT"
)

// WSHeaderMessage addresses a message. UserId 0 goes to every connected user.
type WSHeaderMessage struct {
	UserId  uint             `json:"user_id"`
	Message WebsocketMessage `json:"message"`
}

type WebsocketMessage struct {
	MessageType string         `json:"message_type"`
	Timestamp   tools.NullTime `json:"timestamp"`
	Status      int            `json:"status,omitempty"`
	Message     string         `json:"message,omitempty"`
	ForeignType string         `json:"foreign_type,omitempty"`
	ForeignId   uint           `json:"foreign_id,omitempty"`
	Action      string         `json:"action,omitempty"`
	Data        interface{}    `json:"data,omitempty"`
}

type RegisteredMessageType struct {
	MessageType string `json:"message_type"`
	SpecifiedId uint   `json:"specified_id"`
}

type RegisteredMessageTypes []RegisteredMessageType

// Wants reports whether a connection subscribed to these types gets msg.
func (types RegisteredMessageTypes) Wants(msg WebsocketMessage) bool {
	for _, area := range types {
		if (area.MessageType == msg.ForeignType || area.MessageType == Websocket_All) && (area.SpecifiedId == 0 || area.SpecifiedId == msg.ForeignId) {
			return true
		}
	}
	return false
}
