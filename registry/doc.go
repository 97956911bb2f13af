// Package registry provides the generic, typed component registry used for
// tools, agents, action executors, integration providers and knowledge
// sources alike.
//
// A Registry maps a string identifier to a live component instance and
// offers register/unregister/lookup/list/clear plus a uniform Invoke
// dispatch that calls the component's execution entry point. During boot the
// loader populates registries from compiled-in factory catalogs and then
// validates every cross-reference, so the set of registered components and
// the set of referenced identifiers stay perfectly in sync before the system
// starts.
package registry
