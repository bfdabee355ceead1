package grpc

import (
	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/pipeline"
)

// ProcessTurnRequest and ProcessTurnResponse are the wire messages for the
// unary ProcessTurn call. They are the pipeline package's own Request and
// Response: a call's whole purpose is "run the Turn Pipeline", so there is
// nothing a transport-specific DTO would add beyond JSON tags.
type (
	ProcessTurnRequest  = pipeline.Request
	ProcessTurnResponse = pipeline.Response
)

// StreamUpdatesRequest opens a server-streaming subscription to a
// session's Streaming Bus.
type StreamUpdatesRequest struct {
	SessionID string `json:"session_id"`
}

// StreamUpdatesResponse carries a single Streaming Bus event.
type StreamUpdatesResponse struct {
	Event domain.StreamEvent `json:"event"`
}
