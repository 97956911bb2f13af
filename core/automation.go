package core

import "time"

// TriggerKind is the event class that may cause an automation to run.
type TriggerKind string

const (
	TriggerSchedule     TriggerKind = "SCHEDULE"
	TriggerEvent        TriggerKind = "EVENT"
	TriggerWebhook      TriggerKind = "WEBHOOK"
	TriggerManual       TriggerKind = "MANUAL"
	TriggerConditionMet TriggerKind = "CONDITION_MET"
	TriggerDataChange   TriggerKind = "DATA_CHANGE"
)

// ValidTriggerKind reports whether k is one of the known trigger kinds.
func ValidTriggerKind(k TriggerKind) bool {
	switch k {
	case TriggerSchedule, TriggerEvent, TriggerWebhook, TriggerManual, TriggerConditionMet, TriggerDataChange:
		return true
	}
	return false
}

// Trigger pairs a trigger kind with its opaque configuration. The config is
// interpreted per kind: a SCHEDULE trigger reads config["schedule"], an EVENT
// trigger reads config["event"], and so on.
type Trigger struct {
	Kind   TriggerKind    `json:"kind"`
	Config map[string]any `json:"config,omitempty"`
}

// ScheduleExpression returns the schedule expression configured on a
// SCHEDULE trigger, or "" when absent.
func (t Trigger) ScheduleExpression() string {
	if t.Config == nil {
		return ""
	}
	expr, _ := t.Config["schedule"].(string)
	return expr
}

// ConditionOp is a comparison operator applied to a resolved context field.
type ConditionOp string

const (
	OpEquals      ConditionOp = "equals"
	OpNotEquals   ConditionOp = "not_equals"
	OpContains    ConditionOp = "contains"
	OpGreaterThan ConditionOp = "greater_than"
	OpLessThan    ConditionOp = "less_than"
	OpExists      ConditionOp = "exists"
	OpNotExists   ConditionOp = "not_exists"
)

// LogicOp joins a condition with the next one in sequence.
type LogicOp string

const (
	LogicAnd LogicOp = "AND"
	LogicOr  LogicOp = "OR"
)

// Condition is a boolean test against the runtime context. Field is a
// dot-separated path resolved against the context map. Logic describes how
// this condition combines with the NEXT condition in the sequence; empty
// means AND.
type Condition struct {
	Field string      `json:"field"`
	Op    ConditionOp `json:"op"`
	Value any         `json:"value,omitempty"`
	Logic LogicOp     `json:"logic,omitempty"`
}

// ActionType classifies an action and selects its executor.
type ActionType string

const (
	ActionSendMessage      ActionType = "SEND_MESSAGE"
	ActionSendEmail        ActionType = "SEND_EMAIL"
	ActionCreateTask       ActionType = "CREATE_TASK"
	ActionUpdateField      ActionType = "UPDATE_FIELD"
	ActionCallWebhook      ActionType = "CALL_WEBHOOK"
	ActionRunAgent         ActionType = "RUN_AGENT"
	ActionSendNotification ActionType = "SEND_NOTIFICATION"
	ActionScheduleFollowup ActionType = "SCHEDULE_FOLLOWUP"
	ActionUpdateContact    ActionType = "UPDATE_CONTACT"
	ActionCreateDeal       ActionType = "CREATE_DEAL"
	ActionCustom           ActionType = "CUSTOM"
)

// Action is one ordered step of an automation. Order controls execution
// sequence; Config is opaque and interpreted by the executor registered for
// Type.
type Action struct {
	ID     string         `json:"id"`
	Type   ActionType     `json:"type"`
	Config map[string]any `json:"config,omitempty"`
	Order  int            `json:"order"`
}

// Automation is a named rule: trigger + conditions + ordered actions, owned
// by one tenant. ExecutionCount increases monotonically across runs.
type Automation struct {
	ID             string      `json:"id"`
	TenantID       string      `json:"tenant_id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Trigger        Trigger     `json:"trigger"`
	Conditions     []Condition `json:"conditions,omitempty"`
	Actions        []Action    `json:"actions"`
	Enabled        bool        `json:"enabled"`
	ExecutionCount int64       `json:"execution_count"`
	LastExecutedAt *time.Time  `json:"last_executed_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Clone returns a deep copy so stored automations cannot be mutated externally.
func (a *Automation) Clone() *Automation {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Trigger.Config = cloneMap(a.Trigger.Config)
	clone.Conditions = append([]Condition(nil), a.Conditions...)
	clone.Actions = make([]Action, len(a.Actions))
	for i, act := range a.Actions {
		clone.Actions[i] = act
		clone.Actions[i].Config = cloneMap(act.Config)
	}
	if a.LastExecutedAt != nil {
		last := *a.LastExecutedAt
		clone.LastExecutedAt = &last
	}
	return &clone
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
