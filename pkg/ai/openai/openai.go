package openai

import (
	"sync"

	"github.com/buildscope/bimgraph/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GraphOpenAIClient talks to an OpenAI-compatible chat completion API. It is
// used both for Cypher generation and for prose answer generation.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	chatModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for
// creating a new GraphOpenAIClient.
//
// ChatModel specifies the default model for chat/completion requests.
// ChatURL and ChatKey configure the API endpoint; an empty ChatURL targets
// the official API.
type NewGraphOpenAIClientParams struct {
	ChatModel string
	ChatURL   string
	ChatKey   string
}

// NewGraphOpenAIClient creates a client configured with the provided
// parameters.
//
// Example:
//
//	params := openai.NewGraphOpenAIClientParams{
//		ChatModel: "gpt-4o-mini",
//		ChatKey:   os.Getenv("OPENAI_API_KEY"),
//	}
//	client := openai.NewGraphOpenAIClient(params)
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	return &GraphOpenAIClient{
		chatModel: params.ChatModel,
		chatURL:   params.ChatURL,
		chatKey:   params.ChatKey,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		ChatClient: newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
