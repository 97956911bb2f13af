// Package core defines the shared domain model and contracts of AutoMesh:
// tenants, users and usage counters; automations with their triggers,
// conditions, actions and execution records; the store interfaces layered
// over in-memory or persistent backends; the component contracts
// (Component, Invokable, Executor) that registries dispatch against; and the
// structured error taxonomy used across packages.
//
// The package is intentionally dependency-light so every other package can
// import it without cycles. Behavior lives in the sibling packages (tenant,
// automation, registry, loader); core carries only data, contracts and the
// invariants encoded in constructors.
package core
