// Package voice maps caller voice selectors onto provider voice names, so
// published aliases survive provider-side renames.
package voice

import (
	"regexp"
	"strings"
	"sync"

	"voxgate/config"
)

// Router handles voice selector routing and mapping
type Router struct {
	routes       map[string]string
	patterns     []patternRoute
	defaultVoice string
	mu           sync.RWMutex
}

type patternRoute struct {
	pattern *regexp.Regexp
	target  string
}

// NewRouter creates a router from the configured voice table.
func NewRouter(cfg *config.Config) *Router {
	r := &Router{
		routes:       make(map[string]string),
		defaultVoice: cfg.Voices.Default,
	}

	for _, route := range cfg.Voices.Routes {
		r.AddRoute(route.Pattern, route.Target)
	}

	return r
}

// AddRoute adds a selector mapping. Patterns containing * match as globs.
func (r *Router) AddRoute(pattern, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.Contains(pattern, "*") {
		regexPattern := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
		if re, err := regexp.Compile(regexPattern); err == nil {
			r.patterns = append(r.patterns, patternRoute{
				pattern: re,
				target:  target,
			})
		}
	} else {
		r.routes[pattern] = target
	}
}

// Resolve returns the provider voice for a caller selector. Exact matches
// win over patterns; an empty selector gets the default voice; an unmatched
// selector passes through untouched.
func (r *Router) Resolve(selector string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if selector == "" {
		return r.defaultVoice
	}

	if target, ok := r.routes[selector]; ok {
		return target
	}

	for _, p := range r.patterns {
		if p.pattern.MatchString(selector) {
			return p.target
		}
	}

	return selector
}
