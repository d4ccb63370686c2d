// Package orchestrator drives change-manifest update cycles: it loads or
// creates a manifest, ingests detected changes, decides by strategy whether
// templates need regeneration, plans and executes the update through external
// collaborators, and records the outcome durably.
//
// One cycle runs to completion or failure per project before another starts
// against the same manifest; serialization across cycles is the caller's
// responsibility. Pending changes are cleared only on full success, so
// re-invoking a failed cycle is always safe.
package orchestrator
