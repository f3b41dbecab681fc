// Package assistant wraps the Gemini API as the question-answering
// collaborator: prompts go in, grounded answers plus token usage come out.
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"
)

// Answer is a grounded reply with the usage metadata the provider
// reported for the call.
type Answer struct {
	Text           string
	PromptTokens   int
	ResponseTokens int
	TotalTokens    int
}

// Client is the process-wide Gemini handle. It is constructed once at
// startup and passed down explicitly; there are no package-level
// singletons.
type Client struct {
	genai        *genai.Client
	model        string
	systemPrompt string
	storeName    string
}

// NewClient builds the Gemini client from configuration.
func NewClient(ctx context.Context, cfg models.AssistantConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("assistant: api key is required (set GEMINI_API_KEY)")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		genai:        gc,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// Genai exposes the underlying SDK client for corpus management.
func (c *Client) Genai() *genai.Client {
	return c.genai
}

// UseStore sets the File Search store resource name answers are grounded
// against.
func (c *Client) UseStore(storeName string) {
	c.storeName = storeName
}

// StoreName returns the grounding store resource name, empty until
// UseStore is called.
func (c *Client) StoreName() string {
	return c.storeName
}

// Ask sends one composed prompt to Gemini with the File Search tool
// attached. The caller's context bounds the call. On failure the returned
// Answer may still carry partial usage metadata when the provider
// reported any; callers should account for it.
func (c *Client) Ask(ctx context.Context, prompt string) (*Answer, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.systemPrompt, genai.RoleUser),
	}
	if c.storeName != "" {
		cfg.Tools = []*genai.Tool{
			{
				FileSearch: &genai.FileSearch{
					FileSearchStoreNames: []string{c.storeName},
				},
			},
		}
	}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	duration := time.Since(start)

	answer := &Answer{}
	if resp != nil {
		answer.Text = resp.Text()
		answer.PromptTokens, answer.ResponseTokens, answer.TotalTokens = usageFromResponse(resp)
	}

	if err != nil {
		fiberlog.Errorf("assistant: Gemini request failed after %v: %v", duration, err)
		return answer, fmt.Errorf("generate request failed: %w", err)
	}

	fiberlog.Debugf("assistant: Gemini request completed in %v (%d tokens)", duration, answer.TotalTokens)
	return answer, nil
}

func usageFromResponse(resp *genai.GenerateContentResponse) (prompt, response, total int) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0, 0
	}
	u := resp.UsageMetadata
	return int(u.PromptTokenCount), int(u.CandidatesTokenCount), int(u.TotalTokenCount)
}
