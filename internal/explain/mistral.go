package explain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gage-technologies/mistral-go"
)

// DefaultModel is the Mistral chat model used when none is configured.
const DefaultModel = "mistral-large-latest"

// MistralConfig configures the Mistral completer.
type MistralConfig struct {
	APIKey      string
	Endpoint    string // empty uses the library default
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Mistral is a Completer backed by the Mistral chat API.
type Mistral struct {
	client      *mistral.MistralClient
	model       string
	temperature float64
}

// NewMistral returns a Mistral completer. The client does not retry on its
// own; retries belong to the Pipeline.
func NewMistral(cfg MistralConfig) *Mistral {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Mistral{
		client:      mistral.NewMistralClient(cfg.APIKey, cfg.Endpoint, 1, cfg.Timeout),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// NewMistralPipeline returns a Pipeline backed by Mistral. With an empty
// cfg.APIKey no client is created and the pipeline returns NotConfigured.
func NewMistralPipeline(cfg Config, m MistralConfig) *Pipeline {
	if cfg.APIKey == "" {
		return NewPipeline(cfg, nil)
	}
	m.APIKey = cfg.APIKey
	if m.Timeout <= 0 {
		m.Timeout = cfg.Timeout
	}
	return NewPipeline(cfg, NewMistral(m))
}

type chatReply struct {
	text string
	err  error
}

// Complete sends the instructions as a system and a user message.
// The HTTP call itself is bounded by the client timeout; ctx only stops
// waiting for it.
func (m *Mistral) Complete(ctx context.Context, system, user string) (string, error) {
	params := mistral.DefaultChatRequestParams
	params.Temperature = m.temperature

	msgs := []mistral.ChatMessage{
		{Role: mistral.RoleSystem, Content: system},
		{Role: mistral.RoleUser, Content: user},
	}

	done := make(chan chatReply, 1)
	go func() {
		res, err := m.client.Chat(m.model, msgs, &params)
		if err != nil {
			done <- chatReply{err: err}
			return
		}
		if len(res.Choices) == 0 {
			done <- chatReply{err: errors.New("mistral: no choices in response")}
			return
		}
		done <- chatReply{text: fmt.Sprintf("%v", res.Choices[0].Message.Content)}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
