// Package voice turns a spoken transcript into a search query by stripping
// the wake/command phrases users prefix their requests with.
package voice

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/partdex/internal/domain"
)

// Transcriber is the external speech-to-text capability: one final
// transcript per activation.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// commandPrefixes are stripped from the front of a transcript, longest
// first so "hey inventory" wins over "inventory".
var commandPrefixes = []string{
	"hey inventory",
	"search for",
	"look for",
	"show me",
	"inventory",
	"find",
}

// Service converts captured audio into a query.
type Service struct {
	transcriber Transcriber
}

// New creates the service. transcriber can be nil when voice capture is not
// configured; Query then fails with domain.ErrNoTranscriber.
func New(transcriber Transcriber) *Service {
	return &Service{transcriber: transcriber}
}

// Enabled reports whether a transcriber is configured.
func (s *Service) Enabled() bool { return s.transcriber != nil }

// Query transcribes the audio and strips command prefixes from the result.
func (s *Service) Query(ctx context.Context, audio io.Reader, filename string) (transcript, query string, err error) {
	if s.transcriber == nil {
		return "", "", domain.ErrNoTranscriber
	}
	transcript, err = s.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", "", fmt.Errorf("transcribe: %w", err)
	}
	return transcript, StripCommandPrefix(transcript), nil
}

// StripCommandPrefix removes leading command phrases from a transcript,
// case-insensitively, repeating so "hey inventory find oil filter" reduces
// to "oil filter". A phrase only matches at a word boundary.
func StripCommandPrefix(transcript string) string {
	out := strings.TrimSpace(transcript)
	for {
		stripped := false
		lower := strings.ToLower(out)
		for _, prefix := range commandPrefixes {
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			rest := out[len(prefix):]
			if rest != "" && !strings.HasPrefix(rest, " ") {
				continue
			}
			out = strings.TrimSpace(rest)
			stripped = true
			break
		}
		if !stripped || out == "" {
			return out
		}
	}
}
