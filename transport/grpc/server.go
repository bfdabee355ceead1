package grpc

import (
	"context"
	"time"

	"github.com/Nikunjmattoo/bot-framework-sub000/pipeline"
	"github.com/Nikunjmattoo/bot-framework-sub000/streaming"
)

// pollInterval is how often StreamUpdates checks a session's Streaming Bus
// ring for events the subscriber hasn't seen yet.
const pollInterval = 250 * time.Millisecond

// Server implements BrainServiceServer by delegating to a Turn Pipeline for
// ProcessTurn and polling a Streaming Bus for StreamUpdates. It holds no
// state of its own.
type Server struct {
	Pipeline *pipeline.Pipeline
	Bus      *streaming.Bus
}

// NewServer wires a Server over an already-constructed Pipeline and Bus.
func NewServer(p *pipeline.Pipeline, bus *streaming.Bus) *Server {
	return &Server{Pipeline: p, Bus: bus}
}

func (s *Server) ProcessTurn(ctx context.Context, req *ProcessTurnRequest) (*ProcessTurnResponse, error) {
	resp, err := s.Pipeline.ProcessTurn(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamUpdates polls the Streaming Bus for req.SessionID until the stream's
// context is cancelled, forwarding every event the subscriber has not
// already seen. Events are de-duplicated against the last-sent timestamp
// rather than by count, since the ring evicts its oldest entries once full
// and a count-based cursor would skip or repeat entries across an eviction.
func (s *Server) StreamUpdates(req *StreamUpdatesRequest, stream BrainService_StreamUpdatesServer) error {
	ctx := stream.Context()
	var lastSent time.Time

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			events := s.Bus.Poll(ctx, req.SessionID)
			for _, evt := range events {
				if !evt.Timestamp.After(lastSent) {
					continue
				}
				if err := stream.Send(&StreamUpdatesResponse{Event: evt}); err != nil {
					return err
				}
				lastSent = evt.Timestamp
			}
		}
	}
}
