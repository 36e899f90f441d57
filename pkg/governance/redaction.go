// Package governance applies output-safety policies: redaction of
// sensitive values from logged script text and surfaced tool errors.
package governance

import (
	"regexp"

	"github.com/ormasoftchile/hvcpi/pkg/config"
)

// CompiledRedaction is a pre-compiled redaction rule.
type CompiledRedaction struct {
	Pattern *regexp.Regexp
	Replace string
}

// CompileRedactionRules compiles redaction rules from the provider config.
// A rule with no replacement masks with "[REDACTED]".
func CompileRedactionRules(rules []config.RedactionRule) ([]*CompiledRedaction, error) {
	var compiled []*CompiledRedaction
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, err
		}
		replace := r.Replace
		if replace == "" {
			replace = "[REDACTED]"
		}
		compiled = append(compiled, &CompiledRedaction{
			Pattern: re,
			Replace: replace,
		})
	}
	return compiled, nil
}

// RedactOutput applies all compiled redaction rules to the given output.
func RedactOutput(output string, rules []*CompiledRedaction) string {
	result := output
	for _, r := range rules {
		result = r.Pattern.ReplaceAllString(result, r.Replace)
	}
	return result
}

// Redactor wraps compiled rules as a plain string transform, the form
// the shell runner accepts for scrubbing its debug logs.
func Redactor(rules []*CompiledRedaction) func(string) string {
	return func(s string) string { return RedactOutput(s, rules) }
}
