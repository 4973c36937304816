package api

import (
	"fmt"
	"sort"
	"strings"
)

// ParseCSP renders a Content-Security-Policy header value. The policy is a
// string such as "default-src 'self'; img-src *" or a map of directive to a
// source string or list of sources. Map directives are emitted in sorted order.
func ParseCSP(policy any) (string, error) {
	switch p := policy.(type) {
	case nil:
		return "", nil
	case string:
		return parseCSPString(p), nil
	case map[string]any:
		return parseCSPMap(p)
	case map[string]string:
		converted := make(map[string]any, len(p))
		for k, v := range p {
			converted[k] = v
		}
		return parseCSPMap(converted)
	case map[any]any:
		converted := make(map[string]any, len(p))
		for k, v := range p {
			converted[fmt.Sprint(k)] = v
		}
		return parseCSPMap(converted)
	}
	return "", fmt.Errorf("csp must be a string or a map, got %T", policy)
}

func parseCSPString(policy string) string {
	var parts []string
	for _, part := range strings.Split(policy, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		parts = append(parts, strings.Join(fields, " "))
	}
	return strings.Join(parts, "; ")
}

func parseCSPMap(policy map[string]any) (string, error) {
	directives := make([]string, 0, len(policy))
	for k := range policy {
		directives = append(directives, k)
	}
	sort.Strings(directives)

	parts := make([]string, 0, len(directives))
	for _, directive := range directives {
		sources, err := cspSources(policy[directive])
		if err != nil {
			return "", fmt.Errorf("csp directive %q: %w", directive, err)
		}
		if sources == "" {
			parts = append(parts, directive)
			continue
		}
		parts = append(parts, directive+" "+sources)
	}
	return strings.Join(parts, "; "), nil
}

func cspSources(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case []string:
		return strings.Join(s, " "), nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("source must be a string, got %T", item)
			}
			out = append(out, str)
		}
		return strings.Join(out, " "), nil
	}
	return "", fmt.Errorf("sources must be a string or a list, got %T", v)
}
