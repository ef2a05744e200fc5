package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/hyprcaption/internal/audio"
)

// OpenAIAdapter implements BatchAdapter for the OpenAI transcription API
type OpenAIAdapter struct {
	client   *openai.Client
	model    string
	language string
}

func NewOpenAIAdapter(apiKey, model, language string) *OpenAIAdapter {
	return newOpenAIAdapterWithConfig(openai.DefaultConfig(apiKey), model, language)
}

func newOpenAIAdapterWithConfig(cfg openai.ClientConfig, model, language string) *OpenAIAdapter {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIAdapter{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: language,
	}
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wavData, err := convertToWAV(audio.Float32ToPCM16(samples))
	if err != nil {
		return "", fmt.Errorf("convert to WAV: %w", err)
	}

	req := openai.AudioRequest{
		Model:    a.model,
		Reader:   bytes.NewReader(wavData),
		FilePath: "audio.wav",
		Language: a.language,
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("openai-adapter: API call failed after %v: %v", duration, err)
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	log.Printf("openai-adapter: transcribed %v of audio in %v: %q", samplesDuration(len(samples)), duration, resp.Text)
	return resp.Text, nil
}
