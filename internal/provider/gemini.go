// ABOUTME: Gemini provider client built on the official Google GenAI SDK
// ABOUTME: Chat completions plus inline-audio transcription behind the Client interface

package provider

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// transcribePrompt asks Gemini to transcribe the attached audio verbatim
const transcribePrompt = "Genera una transcripción precisa de este audio."

// geminiTranscribeModel is the fixed model used for audio transcription,
// the Gemini counterpart of whisper-1 on the OpenAI side
const geminiTranscribeModel = "gemini-2.0-flash"

// GeminiClient implements Client using the Google GenAI SDK
type GeminiClient struct {
	api *genai.Client
}

// NewGeminiClient constructs a client bound to the given API key
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini client requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{api: client}, nil
}

// Complete sends the running history plus the separately supplied
// instruction string. System-role exchanges never travel in the history;
// the instructions reach the model exactly once via SystemInstruction.
func (c *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Exchanges))
	for _, ex := range req.Exchanges {
		switch ex.Role {
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(ex.Content, genai.RoleModel))
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(ex.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", &Error{Kind: KindGemini, Op: "complete", Err: fmt.Errorf("no user content to send")}
	}

	cfg := &genai.GenerateContentConfig{}
	if req.Instructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.api.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", &Error{Kind: KindGemini, Op: "complete", Err: err}
	}
	return collectText(resp), nil
}

// Transcribe sends the audio inline with an explicit MIME type and a
// transcription instruction. Empty input is reported as "no transcription"
// rather than an error.
func (c *GeminiClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(audio, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.api.Models.GenerateContent(ctx, geminiTranscribeModel, contents, nil)
	if err != nil {
		return "", &Error{Kind: KindGemini, Op: "transcribe", Err: err}
	}
	return collectText(resp), nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
