package websocket

import "time"

const (
	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Maximum inbound message size.
	maxMessageSize = 64 * 1024

	defaultSendBuffer = 64
)

// Options tunes per-session socket behaviour.
type Options struct {
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	return o
}

// pingPeriod must be shorter than pongWait.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}
