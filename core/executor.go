package core

import "context"

// Executor handles one action type. Executors register under the action type
// string they serve and receive the action's configuration plus the
// accumulated outputs of prior actions in the same run (keyed by action
// identifier), enabling simple data-passing between steps.
//
// Executors must be safe for concurrent use: one executor instance serves
// every automation of every tenant. The engine does not retry; executors
// should be idempotent-safe so callers can retry at their discretion. The
// engine imposes no timeout of its own, so executors performing I/O must
// enforce their own bounded deadlines.
type Executor interface {
	Component

	Execute(ctx context.Context, config map[string]any, prior map[string]map[string]any) (map[string]any, error)
}
