package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatTurns counts completed chat turns by outcome (ok, error).
	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskdeck",
		Subsystem: "ai",
		Name:      "chat_turns_total",
		Help:      "Number of chat turns processed.",
	}, []string{"outcome"})

	// StreamFragments counts fragments emitted to clients.
	StreamFragments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskdeck",
		Subsystem: "ai",
		Name:      "stream_fragments_total",
		Help:      "Number of streamed response fragments emitted.",
	})

	// ToolInvocations counts tool invocations by tool name and status.
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskdeck",
		Subsystem: "ai",
		Name:      "tool_invocations_total",
		Help:      "Number of agent tool invocations.",
	}, []string{"tool", "status"})
)
