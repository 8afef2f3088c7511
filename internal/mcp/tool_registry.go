package mcp

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ToolCategory groups tools for discovery.
type ToolCategory string

const (
	CategoryIssues     ToolCategory = "issues"
	CategoryLabels     ToolCategory = "labels"
	CategoryRepos      ToolCategory = "repos"
	CategoryActivity   ToolCategory = "activity"
	CategoryGovernance ToolCategory = "governance"
	CategorySearch     ToolCategory = "search"
)

var (
	ErrToolExists   = errors.New("tool already registered")
	ErrInvalidTool  = errors.New("invalid tool metadata")
	ErrToolNotFound = errors.New("tool not found")
)

// ToolMetadata describes a registered MCP tool.
type ToolMetadata struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    ToolCategory `json:"category"`

	// Governed tools are rate limited and sanitized.
	Governed bool `json:"governed"`

	// DeferLoading marks tools clients should discover through tool_search
	// instead of loading up front.
	DeferLoading bool `json:"defer_loading"`

	Keywords []string `json:"keywords,omitempty"`
}

// ToolRegistry holds metadata for every tool the server exposes.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*ToolMetadata
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolMetadata)}
}

// Register adds a tool. Names must be unique.
func (r *ToolRegistry) Register(tool *ToolMetadata) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTool)
	}
	if tool.Category == "" {
		return fmt.Errorf("%w: %s has no category", ErrInvalidTool, tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name]; ok {
		return fmt.Errorf("%w: %s", ErrToolExists, tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Get returns the metadata for name.
func (r *ToolRegistry) Get(name string) (*ToolMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool, nil
}

// List returns all tools sorted by name.
func (r *ToolRegistry) List() []*ToolMetadata {
	return r.filter(func(*ToolMetadata) bool { return true })
}

func (r *ToolRegistry) ListByCategory(category ToolCategory) []*ToolMetadata {
	return r.filter(func(t *ToolMetadata) bool { return t.Category == category })
}

func (r *ToolRegistry) ListDeferred() []*ToolMetadata {
	return r.filter(func(t *ToolMetadata) bool { return t.DeferLoading })
}

// ListGoverned returns the names of governed tools, sorted.
func (r *ToolRegistry) ListGoverned() []string {
	names := []string{}
	for _, t := range r.filter(func(t *ToolMetadata) bool { return t.Governed }) {
		names = append(names, t.Name)
	}
	return names
}

func (r *ToolRegistry) filter(keep func(*ToolMetadata) bool) []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ToolMetadata, 0, len(r.tools))
	for _, t := range r.tools {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SearchResult is one match from Search.
type SearchResult struct {
	Tool *ToolMetadata `json:"tool"`

	// Score: 3 exact name, 2 name match, 1 description or keyword match.
	Score       int    `json:"score"`
	MatchReason string `json:"match_reason"`
}

// Search matches query case-insensitively against names, descriptions and
// keywords. A query that compiles as a regular expression is also matched
// as one. Results are ordered by score, then name.
func (r *ToolRegistry) Search(query string) []*SearchResult {
	if query == "" {
		return []*SearchResult{}
	}
	q := strings.ToLower(query)
	re, _ := regexp.Compile("(?i)" + query)
	matches := func(s string) bool {
		return strings.Contains(strings.ToLower(s), q) || (re != nil && re.MatchString(s))
	}

	results := []*SearchResult{}
	for _, tool := range r.List() {
		switch {
		case strings.ToLower(tool.Name) == q:
			results = append(results, &SearchResult{Tool: tool, Score: 3, MatchReason: "exact name match"})
		case matches(tool.Name):
			results = append(results, &SearchResult{Tool: tool, Score: 2, MatchReason: "name matches query"})
		case matches(tool.Description):
			results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "description matches query"})
		default:
			for _, kw := range tool.Keywords {
				if matches(kw) {
					results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "keyword matches query"})
					break
				}
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// SearchByCategory restricts Search to one category.
func (r *ToolRegistry) SearchByCategory(query string, category ToolCategory) []*SearchResult {
	out := []*SearchResult{}
	for _, res := range r.Search(query) {
		if res.Tool.Category == category {
			out = append(out, res)
		}
	}
	return out
}
