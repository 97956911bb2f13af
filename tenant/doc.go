// Package tenant owns tenant and user identity, plan-derived resource limits
// and running usage counters. Its Registry is the quota gate every other
// component consults before doing tenant-scoped work.
//
// Usage tracking is advisory and after-the-fact: the increment always
// persists, the limit check happens on the incremented value, and a breach
// emits a usage:limit-exceeded event alongside the quota error. This avoids
// a second round trip per tracked operation at the cost of admitting a small
// overshoot equal to the number of concurrent in-flight operations.
//
// Every mutating operation emits a named domain event to the explicit
// observer list (Subscribe); the registry itself ships with no subscribers.
package tenant
