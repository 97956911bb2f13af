// Package executor provides the built-in action executors dispatched by the
// automation engine. Each executor is registered under the action type it
// handles. The built-ins for outbound channels (messages, email,
// notifications) log the action and return a structured receipt; production
// deployments replace them with integration-backed implementations.
package executor
