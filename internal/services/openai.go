package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mirinae-games/npc-engine/pkg/chat"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	DefaultTemperature         = 0.7
	DefaultMaxCompletionTokens = 120
)

// OpenAIService implements LLMService against any OpenAI-compatible
// chat completions endpoint.
type OpenAIService struct {
	apiKey      string
	baseURL     string
	modelName   string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// openAIChatRequest is the wire request for POST /chat/completions.
type openAIChatRequest struct {
	Model               string             `json:"model"`
	Messages            []chat.ChatMessage `json:"messages"`
	MaxCompletionTokens int                `json:"max_completion_tokens,omitempty"`
	Temperature         float64            `json:"temperature,omitempty"`
}

type openAIChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type openAIChatResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
	Usage   *struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		TotalTokens         int `json:"total_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates a client for an OpenAI-compatible backend.
func NewOpenAIService(apiKey, baseURL, modelName string) *OpenAIService {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIService{
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		modelName:   modelName,
		maxTokens:   DefaultMaxCompletionTokens,
		temperature: DefaultTemperature,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Chat sends the message sequence and returns the first choice plus
// usage accounting. A response with no choices is an error; callers
// treat it as a transient failure and fall back locally.
func (s *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	reqBody := openAIChatRequest{
		Model:               s.modelName,
		Messages:            messages,
		MaxCompletionTokens: s.maxTokens,
		Temperature:         s.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp openAIChatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s (%s)", apiResp.Error.Message, apiResp.Error.Type)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("API returned no choices")
	}

	result := &chat.ChatResponse{
		Message: strings.TrimSpace(apiResp.Choices[0].Message.Content),
	}
	if apiResp.Usage != nil {
		result.Usage = &chat.Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			CachedTokens:     apiResp.Usage.PromptTokensDetails.CachedTokens,
		}
	}
	return result, nil
}
