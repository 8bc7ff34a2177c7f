package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Options captures the filtering configuration.
type Options struct {
	IncludePath    []string
	IncludeContent []string
	ExcludePath    []string
	ExcludeContent []string
}

// Stats reports how often each pattern matched.
type Stats struct {
	IncludePathPatterns    []string
	IncludeContentPatterns []string
	ExcludePathPatterns    []string
	ExcludeContentPatterns []string
	Hits                   map[string]int
	Checked                int
	Skipped                int
}

// Filter holds compiled regex patterns for selecting archives.
type Filter struct {
	includeMode     bool
	excludeMode     bool
	includePath     []*regexp.Regexp
	includeContent  []*regexp.Regexp
	excludePath     []*regexp.Regexp
	excludeContent  []*regexp.Regexp
	needContentText bool

	mu      sync.Mutex
	hits    map[string]int
	checked int
	skipped int
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	includePath, err := compilePatterns(opts.IncludePath)
	if err != nil {
		return nil, fmt.Errorf("compile include-path pattern: %w", err)
	}
	includeContent, err := compilePatterns(opts.IncludeContent)
	if err != nil {
		return nil, fmt.Errorf("compile include-content pattern: %w", err)
	}
	excludePath, err := compilePatterns(opts.ExcludePath)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-path pattern: %w", err)
	}
	excludeContent, err := compilePatterns(opts.ExcludeContent)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-content pattern: %w", err)
	}

	includeActive := len(includePath) > 0 || len(includeContent) > 0
	excludeActive := len(excludePath) > 0 || len(excludeContent) > 0
	if includeActive && excludeActive {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	return &Filter{
		includeMode:     includeActive,
		excludeMode:     excludeActive,
		includePath:     includePath,
		includeContent:  includeContent,
		excludePath:     excludePath,
		excludeContent:  excludeContent,
		needContentText: len(includeContent) > 0 || len(excludeContent) > 0,
		hits:            make(map[string]int),
	}, nil
}

// Active reports whether any pattern is configured.
func (f *Filter) Active() bool {
	return f.includeMode || f.excludeMode
}

// Allows returns true if the archive passes the filter criteria.
func (f *Filter) Allows(path string, content []byte) bool {
	var contentText string
	if f.needContentText {
		contentText = string(content)
	}

	allowed := true
	if f.includeMode {
		allowed = f.matchAny(f.includePath, path) || f.matchAny(f.includeContent, contentText)
	} else if f.excludeMode {
		if f.matchAny(f.excludePath, path) || f.matchAny(f.excludeContent, contentText) {
			allowed = false
		}
	}

	f.mu.Lock()
	f.checked++
	if !allowed {
		f.skipped++
	}
	f.mu.Unlock()

	return allowed
}

// GetStats returns a copy of the pattern hit counters.
func (f *Filter) GetStats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	hits := make(map[string]int, len(f.hits))
	for k, v := range f.hits {
		hits[k] = v
	}

	return Stats{
		IncludePathPatterns:    patternStrings(f.includePath),
		IncludeContentPatterns: patternStrings(f.includeContent),
		ExcludePathPatterns:    patternStrings(f.excludePath),
		ExcludeContentPatterns: patternStrings(f.excludeContent),
		Hits:                   hits,
		Checked:                f.checked,
		Skipped:                f.skipped,
	}
}

func (f *Filter) matchAny(patterns []*regexp.Regexp, text string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(text) {
			f.mu.Lock()
			f.hits[re.String()]++
			f.mu.Unlock()
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func patternStrings(patterns []*regexp.Regexp) []string {
	out := make([]string, 0, len(patterns))
	for _, re := range patterns {
		out = append(out, re.String())
	}
	return out
}
