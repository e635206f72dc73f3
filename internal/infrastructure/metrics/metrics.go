package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farmconnect_ws_sessions_active",
			Help: "Currently registered websocket sessions",
		},
	)

	RoomSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farmconnect_ws_room_subscriptions",
			Help: "Sessions currently subscribed to a conversation room",
		},
	)

	RejectedConnections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_ws_rejected_connections_total",
			Help: "Connection attempts rejected before upgrade",
		},
		[]string{"reason"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_ws_events_dropped_total",
			Help: "Outbound events dropped because a session buffer was full or closed",
		},
		[]string{"event"},
	)

	InboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_ws_inbound_events_total",
			Help: "Inbound websocket events by type and outcome",
		},
		[]string{"event", "outcome"},
	)

	// Business metrics
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_messages_appended_total",
			Help: "Messages stored by message type",
		},
		[]string{"message_type"},
	)

	NegotiationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_negotiation_outcomes_total",
			Help: "Negotiation operations by action and result code",
		},
		[]string{"action", "result"},
	)

	CartBridgeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_cart_bridge_calls_total",
			Help: "Cart bridge invocations by result",
		},
		[]string{"result"},
	)

	TypingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmconnect_typing_transitions_total",
			Help: "Typing state transitions broadcast to rooms",
		},
		[]string{"state"},
	)
)
