package notification

import (
	"context"

	"go.uber.org/zap"

	"gymbuddy/models"
	"gymbuddy/utils"
)

// LogSink writes every event to the application log. It is the only sink
// wired by default; push or chat delivery registers its own sink here.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Deliver(_ context.Context, event models.MatchEvent) error {
	utils.GetLogger().Info("match event",
		zap.String("type", string(event.Type)),
		zap.String("recipientId", event.RecipientID),
		zap.String("proposalId", event.ProposalID),
		zap.String("sessionId", event.SessionID),
	)
	return nil
}

// ChannelSink pushes events onto a buffered channel. Tests and in-process
// consumers subscribe this way; a full channel drops the event rather than
// blocking the emitter.
type ChannelSink struct {
	C chan models.MatchEvent
}

// NewChannelSink returns a sink buffering up to size events.
func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{C: make(chan models.MatchEvent, size)}
}

func (s *ChannelSink) Name() string { return "channel" }

func (s *ChannelSink) Deliver(_ context.Context, event models.MatchEvent) error {
	select {
	case s.C <- event:
	default:
	}
	return nil
}
