package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"

	"sentio/internal/config"
)

// Bedrock is an LLM client for AWS Bedrock, using the Converse API so that
// tool use works the same way as with the OpenAI provider.
type Bedrock struct {
	client      *bedrockruntime.Client
	modelID     string
	temperature float32
	maxTokens   int
}

// NewBedrock creates a new Bedrock client. Credentials come from the
// configuration, not the ambient AWS environment, so a missing key fails
// here at construction rather than on the first query.
func NewBedrock(cfg config.LLMConfig) (*Bedrock, error) {
	region := cfg.Bedrock.Region
	if region == "" {
		region = "us-west-2"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Bedrock.AccessKeyID, cfg.Bedrock.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Bedrock{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		modelID:     cfg.Bedrock.ModelID,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete issues a single user prompt and returns the generated text.
func (b *Bedrock) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.Chat(ctx, "", []Message{{Role: RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Chat sends a conversation and optional tool declarations to the model.
func (b *Bedrock) Chat(ctx context.Context, system string, messages []Message, tools []Tool) (*Response, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(b.temperature),
			MaxTokens:   aws.Int32(int32(b.maxTokens)),
		},
	}

	if system != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}
	input.Messages = toBedrockMessages(messages)

	if len(tools) > 0 {
		toolCfg := &types.ToolConfiguration{}
		for _, tool := range tools {
			toolCfg.Tools = append(toolCfg.Tools, &types.ToolMemberToolSpec{
				Value: types.ToolSpecification{
					Name:        aws.String(tool.Name),
					Description: aws.String(tool.Description),
					InputSchema: &types.ToolInputSchemaMemberJson{
						Value: document.NewLazyDocument(tool.Parameters),
					},
				},
			})
		}
		input.ToolConfig = toolCfg
	}

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse failed: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected converse output type %T", out.Output)
	}

	resp := &Response{}
	for _, block := range msg.Value.Content {
		switch v := block.(type) {
		case *types.ContentBlockMemberText:
			resp.Text += v.Value
		case *types.ContentBlockMemberToolUse:
			args := map[string]interface{}{}
			if v.Value.Input != nil {
				if err := v.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
					return nil, fmt.Errorf("failed to decode arguments for tool %q: %w",
						aws.ToString(v.Value.Name), err)
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        aws.ToString(v.Value.ToolUseId),
				Name:      aws.ToString(v.Value.Name),
				Arguments: args,
			})
		}
	}
	return resp, nil
}

// ModelInfo returns the configured provider and generation settings.
func (b *Bedrock) ModelInfo() ModelInfo {
	return ModelInfo{
		Provider:    "bedrock",
		Model:       b.modelID,
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	}
}

// toBedrockMessages converts internal messages to Converse messages. The
// Converse API has no tool role: tool results travel as user-role tool
// result blocks, and assistant tool calls as tool use blocks.
func toBedrockMessages(messages []Message) []types.Message {
	var out []types.Message
	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			out = append(out, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberToolResult{
						Value: types.ToolResultBlock{
							ToolUseId: aws.String(msg.ToolCallID),
							Content: []types.ToolResultContentBlock{
								&types.ToolResultContentBlockMemberText{Value: msg.Content},
							},
						},
					},
				},
			})
		case RoleAssistant:
			var blocks []types.ContentBlock
			if msg.Content != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(call.ID),
						Name:      aws.String(call.Name),
						Input:     document.NewLazyDocument(call.Arguments),
					},
				})
			}
			out = append(out, types.Message{Role: types.ConversationRoleAssistant, Content: blocks})
		default:
			out = append(out, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
			})
		}
	}
	return out
}

var _ LLM = (*Bedrock)(nil)
