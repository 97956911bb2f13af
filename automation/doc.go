// Package automation implements the rule engine: automations pair a trigger
// with optional conditions and an ordered list of actions, and the Engine
// owns their lifecycle, condition evaluation, action dispatch through
// registered executors, execution history, and schedule timers.
package automation
