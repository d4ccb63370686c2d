// Package cue provides the embedded default rule set.
package cue

import "embed"

// RulesFS contains the embedded dependency rule set.
// This embeds all .cue files from the rules directory.
//
//go:embed rules/*.cue
var RulesFS embed.FS

// DefaultRulesPath is the path of the default rule set within the embedded filesystem.
const DefaultRulesPath = "rules/rules.cue"
