// Package openai provides the speech-to-text transport using the
// OpenAI-compatible audio API.
package openai

import (
	"context"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Transcriber transcribes captured audio via the transcription endpoint.
type Transcriber struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the transcription provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewTranscriber creates an OpenAI-compatible transcription provider.
func NewTranscriber(cfg *Config) *Transcriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcriber{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// Transcribe sends the audio stream and returns the final transcript.
// filename carries the format hint the API needs (e.g. "capture.webm").
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	start := time.Now()

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcription API: %w", err)
	}

	t.logger.Debug("transcription completed",
		zap.String("model", t.model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("transcript_len", len(resp.Text)),
	)
	return resp.Text, nil
}
