package rules

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"

	embedded "github.com/chazu/starbuck/cue"
)

// Default loads the embedded default rule set.
func Default() (*RuleSet, error) {
	content, err := embedded.RulesFS.ReadFile(embedded.DefaultRulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded rule set: %w", err)
	}
	return LoadBytes(content)
}

// LoadBytes compiles a CUE rule document and decodes it into a RuleSet.
func LoadBytes(content []byte) (*RuleSet, error) {
	ctx := cuecontext.New()

	value := ctx.CompileBytes(content)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile rule set: %w", err)
	}

	var rs RuleSet
	if err := value.Decode(&rs); err != nil {
		return nil, fmt.Errorf("failed to decode rule set: %w", err)
	}

	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}

	return &rs, nil
}

// LoadFile loads a rule set from a CUE file on disk.
func LoadFile(path string) (*RuleSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set %s: %w", path, err)
	}
	return LoadBytes(content)
}
