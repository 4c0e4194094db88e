package patterns

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SyntaxError reports a glob pattern that failed to compile.
type SyntaxError struct {
	Pattern string
	Err     error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Compiled globs are immutable, so a single process-wide cache serves every
// pattern stack. Pattern lists repeat heavily across units (defaults, service
// scope) and across invocations.
var cache, _ = lru.New[string, glob.Glob](1024)

func compile(pattern string) (glob.Glob, error) {
	if g, ok := cache.Get(pattern); ok {
		return g, nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, &SyntaxError{Pattern: pattern, Err: err}
	}
	cache.Add(pattern, g)
	return g, nil
}

// Validate eagerly compiles every pattern in the list so malformed globs
// surface before any file is touched. A leading '!' is negation, not part of
// the glob itself.
func Validate(patterns []string) error {
	for _, p := range patterns {
		if _, err := compile(strings.TrimPrefix(p, "!")); err != nil {
			return err
		}
	}
	return nil
}

type rule struct {
	pattern  string
	include  bool
	anchored bool // patterns containing a separator match against the full path
	g        glob.Glob
}

func (r rule) matches(p string) bool {
	if r.anchored {
		return r.g.Match(p)
	}
	return r.g.Match(path.Base(p))
}

// Set is an ordered stack of selection rules built from two pattern lists.
// Every candidate path starts out selected; rules are evaluated in order and
// the last rule matching a path decides whether it stays in or drops out.
type Set struct {
	rules []rule
}

// Compile builds the rule stack for one packaging unit. Bare patterns in
// excluded drop the paths they match and a leading '!' re-includes them; the
// polarity is inverted for included. Rules keep list order, excluded first,
// so later patterns win over earlier ones regardless of which list they came
// from.
func Compile(excluded, included []string) (*Set, error) {
	rules := make([]rule, 0, len(excluded)+len(included))
	for _, p := range excluded {
		r, err := newRule(p, false)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	for _, p := range included {
		r, err := newRule(p, true)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return &Set{rules: rules}, nil
}

func newRule(pattern string, include bool) (rule, error) {
	if rest, ok := strings.CutPrefix(pattern, "!"); ok {
		pattern = rest
		include = !include
	}
	g, err := compile(pattern)
	if err != nil {
		return rule{}, err
	}
	return rule{
		pattern:  pattern,
		include:  include,
		anchored: strings.Contains(pattern, "/"),
		g:        g,
	}, nil
}

// Match reports whether p survives the rule stack.
func (s *Set) Match(p string) bool {
	include := true
	for i := range s.rules {
		if s.rules[i].matches(p) {
			include = s.rules[i].include
		}
	}
	return include
}

// Resolve filters candidates through the rule stack, preserving input order
// and dropping duplicates.
func (s *Set) Resolve(candidates []string) []string {
	resolved := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, p := range candidates {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if s.Match(p) {
			resolved = append(resolved, p)
		}
	}
	return resolved
}
