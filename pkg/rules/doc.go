// Package rules defines the static rule tables consumed by the resolver and
// orchestrator: dependency categories, structural validation rules, template
// reference patterns and the coarse deployment priority order. Rule sets are
// CUE documents; a default set is embedded in the binary and callers can load
// their own, so rules are swappable per test rather than hidden constants.
package rules
