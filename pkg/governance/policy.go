package governance

import (
	"fmt"
	"path/filepath"

	"github.com/ormasoftchile/hvcpi/pkg/config"
)

// Policy restricts which catalog actions may be dispatched. Patterns
// are shell globs matched against action names; deny takes precedence
// over allow.
type Policy struct {
	Allow []string
	Deny  []string
}

// NewPolicy creates a Policy from the provider config. An empty policy
// is permissive.
func NewPolicy(p config.Policy) *Policy {
	return &Policy{
		Allow: p.AllowActions,
		Deny:  p.DenyActions,
	}
}

// CheckAction validates an action name against the policy.
func (p *Policy) CheckAction(name string) error {
	for _, pattern := range p.Deny {
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			// Invalid pattern blocks for safety
			return fmt.Errorf("invalid deny pattern %q: %w", pattern, err)
		}
		if matched {
			return fmt.Errorf("action %q matches denied pattern %q", name, pattern)
		}
	}

	if len(p.Allow) > 0 {
		for _, pattern := range p.Allow {
			if matched, err := filepath.Match(pattern, name); err == nil && matched {
				return nil
			}
		}
		return fmt.Errorf("action %q is not in the policy allowlist", name)
	}

	return nil
}
