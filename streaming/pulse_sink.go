package streaming

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/streaming/pulseclient"
)

// PulseSink mirrors a session's ring onto a Pulse stream so that readers in
// other processes (a separate API replica, a transcript indexer) can
// subscribe instead of polling this process's in-memory ring. It implements
// Sink.
type PulseSink struct {
	client pulseclient.Client
}

// NewPulseSink wraps a Pulse client as a streaming Sink.
func NewPulseSink(client pulseclient.Client) *PulseSink {
	return &PulseSink{client: client}
}

type envelope struct {
	UpdateType string         `json:"update_type"`
	SessionID  string         `json:"session_id"`
	Timestamp  string         `json:"timestamp"`
	Context    map[string]any `json:"context,omitempty"`
}

// Publish implements Sink.
func (p *PulseSink) Publish(ctx context.Context, sessionID string, event domain.StreamEvent) error {
	stream, err := p.client.Stream(fmt.Sprintf("brain/session/%s", sessionID))
	if err != nil {
		return err
	}
	payload, err := json.Marshal(envelope{
		UpdateType: string(event.UpdateType),
		SessionID:  sessionID,
		Timestamp:  event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Context:    event.Context,
	})
	if err != nil {
		return err
	}
	_, err = stream.Add(ctx, string(event.UpdateType), payload)
	return err
}
