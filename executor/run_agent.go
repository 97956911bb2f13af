package executor

import (
	"context"
	"fmt"

	"github.com/hupe1980/automesh/core"
)

// Invoker dispatches an invocation to a named component. The agent registry
// satisfies this.
type Invoker interface {
	Invoke(ctx context.Context, name string, input map[string]any) (map[string]any, error)
}

// RunAgent dispatches the RUN_AGENT action to a registered agent. The agent
// name comes from config["agent"]; the agent input is config["input"] merged
// over the prior action outputs under the "prior" key.
type RunAgent struct {
	agents Invoker
}

// NewRunAgent creates the RUN_AGENT executor backed by an agent registry.
func NewRunAgent(agents Invoker) *RunAgent {
	return &RunAgent{agents: agents}
}

func (e *RunAgent) Name() string { return string(core.ActionRunAgent) }

func (e *RunAgent) Description() string {
	return "Runs a registered agent and returns its output."
}

func (e *RunAgent) Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error) {
	name := configString(config, "agent", "")
	if name == "" {
		return nil, fmt.Errorf("run agent: missing agent name")
	}

	input := map[string]any{"prior": prior}
	if config != nil {
		if extra, ok := config["input"].(map[string]any); ok {
			for k, v := range extra {
				input[k] = v
			}
		}
	}

	return e.agents.Invoke(ctx, name, input)
}

var _ core.Executor = (*RunAgent)(nil)
