// ABOUTME: Audio pipeline: text-to-speech synthesis and audio-file transcription
// ABOUTME: Owns temporary voice files and their cleanup within one orchestration call

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adanzweig/ronda-backend/internal/provider"
)

// ErrAudioNotFound is returned when a referenced audio file does not
// exist on disk. Distinct from an empty transcription so the orchestrator
// can answer with a targeted message.
var ErrAudioNotFound = errors.New("audio file not found")

// defaultMIMEType is used when a file extension is unrecognized
const defaultMIMEType = "audio/mp3"

// Synthesizer converts text to spoken audio bytes
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Pipeline handles voice input and output for the orchestrator
type Pipeline struct {
	tts       Synthesizer
	mediaRoot string
	logger    *slog.Logger
}

// NewPipeline creates a pipeline writing voice files under mediaRoot,
// one subdirectory per company.
func NewPipeline(tts Synthesizer, mediaRoot string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		tts:       tts,
		mediaRoot: mediaRoot,
		logger:    logger.With("component", "audio"),
	}
}

// CompanyDir returns the media directory for a company
func (p *Pipeline) CompanyDir(companyID int64) string {
	return filepath.Join(p.mediaRoot, fmt.Sprintf("company%d", companyID))
}

// SpeechFile synthesizes text to an mp3 file named
// {ticketID}_{unixMillis}.mp3 inside the company's media directory. The
// timestamp keeps concurrent calls for the same ticket from colliding.
// The caller must remove the file after the send attempt via CleanupFiles.
func (p *Pipeline) SpeechFile(ctx context.Context, text, voice string, companyID, ticketID int64) (string, error) {
	if p.tts == nil {
		return "", fmt.Errorf("no synthesizer configured")
	}

	data, err := p.tts.Synthesize(ctx, KeepSpeakableChars(text), voice)
	if err != nil {
		return "", fmt.Errorf("synthesizing speech: %w", err)
	}

	dir := p.CompanyDir(companyID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%d.mp3", ticketID, time.Now().UnixMilli()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing audio file: %w", err)
	}
	return path, nil
}

// CleanupFiles removes produced audio files and intermediate artifacts.
// Missing files are ignored; other removal failures are logged, never
// returned, so cleanup can run on every exit path.
func (p *Pipeline) CleanupFiles(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Error("failed to delete audio file", "path", path, "error", err)
		}
	}
}

// TranscribeFile verifies the file exists, then transcribes it through
// the given provider client. The MIME type is derived from the file
// extension.
func (p *Pipeline) TranscribeFile(ctx context.Context, client provider.Client, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrAudioNotFound, path)
		}
		return "", fmt.Errorf("checking audio file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading audio file: %w", err)
	}

	return client.Transcribe(ctx, data, MIMETypeForFile(path))
}

// MIMETypeForFile derives an audio MIME type from the file extension.
// Extension is the sole signal; unrecognized extensions fall back to the
// default. This is a best-effort heuristic, not content sniffing.
func MIMETypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mp3"
	case ".aac":
		return "audio/aac"
	case ".ogg", ".oga", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".aiff":
		return "audio/aiff"
	case ".m4a", ".mp4":
		return "audio/mp4"
	default:
		return defaultMIMEType
	}
}

// speakablePunct is the punctuation preserved in text sent to synthesis
const speakablePunct = ".,;:!?¿¡"

// KeepSpeakableChars strips characters that read poorly when spoken,
// keeping letters, digits, spaces and sentence punctuation.
func KeepSpeakableChars(text string) string {
	var sb strings.Builder
	for _, r := range text {
		switch {
		case r == ' ' || r == '\n':
			sb.WriteRune(' ')
		case isLetterOrDigit(r), strings.ContainsRune(speakablePunct, r):
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func isLetterOrDigit(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		(r >= 'À' && r <= 'ÿ') // accented Latin-1 letters common in Spanish and Portuguese
}
