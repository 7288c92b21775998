// ABOUTME: OpenAI provider client built on the official openai-go SDK
// ABOUTME: Chat completions plus Whisper transcription behind the Client interface

package provider

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client using the OpenAI API
type OpenAIClient struct {
	api openai.Client
}

// NewOpenAIClient constructs a client bound to the given API key
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai client requires an API key")
	}
	return &OpenAIClient{
		api: openai.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Complete sends the full exchange sequence, system entry included, and
// returns the first choice's text.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Exchanges))
	for _, ex := range req.Exchanges {
		switch ex.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(ex.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(ex.Content))
		default:
			messages = append(messages, openai.UserMessage(ex.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &Error{Kind: KindOpenAI, Op: "complete", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindOpenAI, Op: "complete", Err: fmt.Errorf("response contained no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe runs the audio through Whisper. Empty input is reported as
// "no transcription" rather than an error.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(bytes.NewReader(audio), fileNameForMIME(mimeType), mimeType),
	})
	if err != nil {
		return "", &Error{Kind: KindOpenAI, Op: "transcribe", Err: err}
	}
	return resp.Text, nil
}

// fileNameForMIME picks a filename whose extension matches the MIME type,
// which the transcription endpoint uses to decode the upload.
func fileNameForMIME(mimeType string) string {
	switch mimeType {
	case "audio/wav":
		return "audio.wav"
	case "audio/ogg":
		return "audio.ogg"
	case "audio/aac":
		return "audio.aac"
	case "audio/flac":
		return "audio.flac"
	case "audio/aiff":
		return "audio.aiff"
	case "audio/mp4":
		return "audio.m4a"
	default:
		return "audio.mp3"
	}
}
