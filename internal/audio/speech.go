// ABOUTME: OpenAI speech synthesis implementation of the Synthesizer interface
// ABOUTME: Converts reply text to mp3 audio through the tts-1 model

package audio

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// defaultVoice is used when queue settings carry no recognized voice name
const defaultVoice = "alloy"

// OpenAISpeech synthesizes speech through the OpenAI audio API
type OpenAISpeech struct {
	api openai.Client
}

// NewOpenAISpeech constructs a synthesizer bound to the given API key
func NewOpenAISpeech(apiKey string) (*OpenAISpeech, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("speech synthesizer requires an API key")
	}
	return &OpenAISpeech{
		api: openai.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Synthesize renders text as mp3 bytes using the requested voice
func (s *OpenAISpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(voice) == "" {
		voice = defaultVoice
	}

	resp, err := s.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech response: %w", err)
	}
	return data, nil
}
