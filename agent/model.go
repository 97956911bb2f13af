package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/automesh/internal/util"
	"github.com/hupe1980/automesh/knowledge"
	"github.com/hupe1980/automesh/logging"
	"github.com/hupe1980/automesh/model"
	"github.com/hupe1980/automesh/registry"
	"github.com/hupe1980/automesh/tool"
)

// ModelAgentOptions configure a ModelAgent.
type ModelAgentOptions struct {
	// Description overrides the generated agent description.
	Description string
	// Instructions is the system prompt template. Go template placeholders
	// ({{.key}}) are resolved against the input payload at execution time.
	Instructions string
	// RequiredTools names the tools this agent expects registered; the
	// loader validates them at boot.
	RequiredTools []string
	// KnowledgeLimit caps how many knowledge documents are injected into
	// the prompt. Zero disables knowledge retrieval.
	KnowledgeLimit int
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// ModelAgent is an agent backed by a text generation model. It renders its
// instruction template against the input, optionally grounds the prompt with
// knowledge documents matching the input, and returns the model's reply.
type ModelAgent struct {
	BaseAgent

	llm       model.Model
	opts      ModelAgentOptions
	tools     *registry.Registry[tool.Tool]
	knowledge knowledge.Source
	logger    logging.Logger
}

// NewModelAgent constructs a model-backed agent.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		KnowledgeLimit: 3,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent: NewBaseAgent(name),
		llm:       llm,
		opts:      opts,
		logger:    opts.Logger,
	}
	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}

	return a
}

// RequiredTools returns the tool names declared at construction.
func (a *ModelAgent) RequiredTools() []string {
	return append([]string(nil), a.opts.RequiredTools...)
}

// SetToolRegistry implements ToolRegistryAware.
func (a *ModelAgent) SetToolRegistry(tools *registry.Registry[tool.Tool]) { a.tools = tools }

// SetKnowledgeSource implements KnowledgeAware.
func (a *ModelAgent) SetKnowledgeSource(source knowledge.Source) { a.knowledge = source }

// ExecuteTool invokes one of the agent's tools by name with schema-validated
// arguments.
func (a *ModelAgent) ExecuteTool(toolCtx *tool.Context, name string, args map[string]any) (any, error) {
	if a.tools == nil {
		return nil, fmt.Errorf("agent %s: no tool registry wired", a.Name())
	}
	t, err := a.tools.Get(name)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.Name(), err)
	}
	return t.Call(toolCtx, args)
}

// Invoke renders the instructions, grounds them with matching knowledge,
// and generates a reply. The input payload supplies both the template state
// and the user content under input["input"].
func (a *ModelAgent) Invoke(ctx context.Context, input map[string]any) (map[string]any, error) {
	instructions, err := util.RenderTemplate(a.opts.Instructions, input)
	if err != nil {
		return nil, fmt.Errorf("agent %s: render instructions: %w", a.Name(), err)
	}

	userInput := ""
	if s, ok := input["input"].(string); ok {
		userInput = s
	}

	if ctxBlock := a.knowledgeContext(ctx, input, userInput); ctxBlock != "" {
		instructions = instructions + "\n\nRelevant context:\n" + ctxBlock
	}

	resp, err := a.llm.Generate(ctx, model.Request{
		Instructions: instructions,
		Input:        userInput,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.Name(), err)
	}

	a.logger.Debug("agent generated",
		"agent", a.Name(),
		"model", a.llm.Name(),
		"finish_reason", resp.FinishReason,
		"output_tokens", resp.Usage.OutputTokens,
	)

	return map[string]any{
		"text":          resp.Text,
		"finish_reason": resp.FinishReason,
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	}, nil
}

// knowledgeContext searches the wired knowledge source for documents
// matching the query (input["query"] falling back to the user input).
func (a *ModelAgent) knowledgeContext(ctx context.Context, input map[string]any, userInput string) string {
	if a.knowledge == nil || a.opts.KnowledgeLimit <= 0 {
		return ""
	}

	query := userInput
	if q, ok := input["query"].(string); ok && q != "" {
		query = q
	}
	if query == "" {
		return ""
	}

	tenantID, _ := input["tenant_id"].(string)
	results, err := a.knowledge.Search(ctx, tenantID, query, a.opts.KnowledgeLimit)
	if err != nil {
		a.logger.Warn("knowledge search failed", "agent", a.Name(), "error", err)
		return ""
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(r.Document.Content)
	}

	return sb.String()
}

var (
	_ Agent             = (*ModelAgent)(nil)
	_ ToolRegistryAware = (*ModelAgent)(nil)
	_ KnowledgeAware    = (*ModelAgent)(nil)
)
