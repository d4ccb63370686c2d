// Package manifest provides the durable, versioned per-project record of
// template changes: file and resource changes, the template version history,
// per-environment deployment status, inter-template dependencies and the
// update-strategy configuration. The manifest is an aggregate mutated through
// explicit operations and persisted as JSON through the Store.
package manifest
