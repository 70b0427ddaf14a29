package review

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const reviewSystemPrompt = `You are a writing reviewer. You are given notes a ` +
	`person is drafting, possibly with your own earlier feedback. Respond with ` +
	`a short review of the newest human-written material: factual checks, ` +
	`counterpoints, and concrete suggestions. Separate points with blank lines.`

const titleSystemPrompt = `Produce a short title (at most six words) for the ` +
	`following note. Respond with the title only.`

// OpenAIReviewer runs reviews and title generation through the OpenAI chat
// completions API.
type OpenAIReviewer struct {
	client *openai.Client
	model  string
}

// NewOpenAIReviewer creates a reviewer with the given API key and default
// model.
func NewOpenAIReviewer(apiKey, model string) (*OpenAIReviewer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	return &OpenAIReviewer{client: openai.NewClient(apiKey), model: model}, nil
}

// Review implements Reviewer.
func (r *OpenAIReviewer) Review(ctx context.Context, humanText, model string, turns TurnList) (Result, error) {
	if model == "" {
		model = r.model
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: reviewSystemPrompt},
	}
	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAI {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	if len(turns) == 0 {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: humanText})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return Result{}, fmt.Errorf("review completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, nil
	}
	return Result{NarrativeBlocks: splitBlocks(resp.Choices[0].Message.Content)}, nil
}

// GenerateTitle implements autosave.TitleGenerator.
func (r *OpenAIReviewer) GenerateTitle(ctx context.Context, humanText string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: humanText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("title completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(strings.Trim(resp.Choices[0].Message.Content, `"`)), nil
}

func splitBlocks(text string) []string {
	var blocks []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
