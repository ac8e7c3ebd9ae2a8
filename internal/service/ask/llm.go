package ask

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// systemPrompt keeps the assistant in its health-advice lane. The persona
// matches the greeting the mobile client shows before the first question.
const systemPrompt = "You are Vitalis, a friendly virtual health assistant. " +
	"You help users analyze symptoms, give health tips, and provide general " +
	"wellness advice. Keep answers short, practical, and kind. You are not a " +
	"doctor: for anything serious or persistent, advise seeing a medical " +
	"professional."

// LLM answers questions directly from a chat model instead of the HTTP
// endpoint, for deployments that run inference in-process. It satisfies the
// same Answerer contract, including the failure-text mapping.
type LLM struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewLLM compiles the prompt-plus-model chain once at startup.
func NewLLM(ctx context.Context, chatModel model.ChatModel) (*LLM, error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{question}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile ask chain: %w", err)
	}

	return &LLM{chain: runnable}, nil
}

// Ask runs the chain for one question.
func (l *LLM) Ask(ctx context.Context, question, identityID string) Result {
	response, err := l.chain.Invoke(ctx, map[string]any{"question": question})
	if err != nil {
		log.Printf("[ask] llm invocation failed for identity=%s: %v", identityID, err)
		return Failure(FailConnectText)
	}

	if response.Content == "" {
		return Failure(FailGenericText)
	}

	log.Printf("[ask] llm answered identity=%s length=%d", identityID, len(response.Content))
	return Answer(response.Content)
}
