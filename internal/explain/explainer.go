// Package explain turns an analysis summary into a natural-language
// explanation using an external language model.
//
// Explaining never fails the caller: missing credentials and collaborator
// errors produce a marked placeholder instead.
package explain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrExplanationUnavailable marks a failed attempt. It never leaves the
// pipeline; callers receive a placeholder Explanation instead.
var ErrExplanationUnavailable = errors.New("explanation unavailable")

// NotConfigured is the explanation returned when no credential is set.
const NotConfigured = "[explanation unavailable: language model not configured]"

const maxDetail = 200

// Completer sends one system and user instruction pair and returns the
// generated text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Request is one explanation request.
type Request struct {
	Summary string
	Level   Level
}

// Explanation is the pipeline output. Placeholder is set when Text is not a
// model answer.
type Explanation struct {
	Text        string
	Placeholder bool
}

// Config configures a Pipeline.
type Config struct {
	APIKey   string        // empty disables the language model
	Language string        // default English
	Timeout  time.Duration // budget for all attempts, default 15s
	Logger   zerolog.Logger
}

// Pipeline builds prompts and calls the Completer.
type Pipeline struct {
	cfg Config
	log zerolog.Logger
	c   Completer
}

// NewPipeline creates a pipeline. A nil completer or an empty API key makes
// every call return NotConfigured.
func NewPipeline(cfg Config, c Completer) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "English"
	}
	return &Pipeline{cfg: cfg, log: cfg.Logger, c: c}
}

// Configured reports whether a language model is available.
func (p *Pipeline) Configured() bool {
	return p.c != nil && p.cfg.APIKey != ""
}

// Explain returns an explanation of req.Summary. It retries once on a
// failed attempt while the caller's context and the time budget allow.
func (p *Pipeline) Explain(ctx context.Context, req Request) Explanation {
	if !p.Configured() {
		return Explanation{Text: NotConfigured, Placeholder: true}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	system := SystemPrompt(ParseLevel(string(req.Level)))
	user := UserPrompt(req.Summary, p.cfg.Language)

	start := time.Now()
	text, err := p.attempt(ctx, system, user)
	if err != nil && ctx.Err() == nil {
		p.log.Warn().Str("detail", p.redact(err.Error())).Msg("explanation failed, retrying")
		text, err = p.attempt(ctx, system, user)
	}
	if err != nil {
		detail := p.redact(strings.TrimPrefix(err.Error(), ErrExplanationUnavailable.Error()+": "))
		p.log.Error().Str("detail", detail).Dur("dur", time.Since(start)).Msg("explanation unavailable")
		return Explanation{Text: "[explanation unavailable: " + detail + "]", Placeholder: true}
	}

	p.log.Debug().Str("level", string(req.Level)).Dur("dur", time.Since(start)).Msg("explanation done")
	return Explanation{Text: text}
}

func (p *Pipeline) attempt(ctx context.Context, system, user string) (string, error) {
	text, err := p.c.Complete(ctx, system, user)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", fmt.Errorf("%w: %v", ErrExplanationUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrExplanationUnavailable)
	}
	return text, nil
}

var bearer = regexp.MustCompile(`(?i)bearer\s+\S+`)

// redact removes the API key and bearer tokens from s and bounds its length.
func (p *Pipeline) redact(s string) string {
	if p.cfg.APIKey != "" {
		s = strings.ReplaceAll(s, p.cfg.APIKey, "[REDACTED]")
	}
	s = bearer.ReplaceAllString(s, "Bearer [REDACTED]")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxDetail {
		s = s[:maxDetail] + "..."
	}
	return s
}
