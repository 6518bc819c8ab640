package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// Recognizer turns recorded speech into text
type Recognizer interface {
	Recognize(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// OpenAIRecognizer implements Recognizer with the audio transcriptions API
type OpenAIRecognizer struct {
	client openAIClient
	model  string
}

// NewOpenAIRecognizer creates a new OpenAI-backed recognizer
func NewOpenAIRecognizer(apiKey, model string) *OpenAIRecognizer {
	if model == "" {
		model = defaultTranscriptionModel
	}
	return &OpenAIRecognizer{
		client: newOpenAIClient(apiKey, "", defaultTimeout),
		model:  model,
	}
}

func (r *OpenAIRecognizer) Recognize(ctx context.Context, filename string, audio io.Reader) (string, error) {
	text, err := r.client.transcribe(ctx, r.model, filename, audio)
	if err != nil {
		return "", NewRecognitionError(err)
	}
	return strings.TrimSpace(text), nil
}

// TextRecognizer treats the upload as an already transcribed UTF-8 text file
type TextRecognizer struct {
	maxBytes int64
}

// NewTextRecognizer creates a recognizer that reads at most maxBytes of text
func NewTextRecognizer(maxBytes int64) *TextRecognizer {
	if maxBytes <= 0 {
		maxBytes = 64 << 10
	}
	return &TextRecognizer{maxBytes: maxBytes}
}

func (r *TextRecognizer) Recognize(ctx context.Context, filename string, audio io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(audio, r.maxBytes+1))
	if err != nil {
		return "", NewRecognitionError(err)
	}
	if int64(len(data)) > r.maxBytes {
		return "", NewInvalidAudioError(filename, fmt.Sprintf("exceeds %d bytes", r.maxBytes))
	}
	if !utf8.Valid(data) {
		return "", NewInvalidAudioError(filename, "is not UTF-8 text")
	}
	return strings.TrimSpace(string(data)), nil
}

// NewRecognizer creates a recognizer based on configuration
func NewRecognizer(cfg Config) (Recognizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		r := NewOpenAIRecognizer(cfg.APIKey, cfg.TranscriptionModel)
		r.client = newOpenAIClient(cfg.APIKey, cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
		return r, nil
	case "json":
		return NewTextRecognizer(0), nil
	default:
		return nil, fmt.Errorf("unsupported command provider: %s", cfg.Provider)
	}
}
