// Package workspace loads the fixed set of markdown documents that
// feed system-prompt assembly (personality, user facts, identity,
// long-term memory, daily notes), bootstraps them when missing, and
// applies the "emptiness" heuristic that filters template
// placeholders out of the assembled prompt.
package workspace

import "strings"

// knownPlaceholders lists the literal values the bootstrap templates
// ship with, keyed by the field label they follow. A field carrying
// exactly one of these values (after trimming) is treated as unset.
var knownPlaceholders = map[string]string{
	"Name":     "",
	"Creature": "",
	"Vibe":     "",
	"Emoji":    "",
}

// genericPlaceholders are tokens that mark a field as unset
// regardless of which field they appear under.
var genericPlaceholders = []string{
	"", "tbd", "todo", "n/a", "none", "unknown", "unset",
	"<fill in>", "<your name>", "[fill in]",
}

// isPlaceholder reports whether value should be treated as empty for
// the purposes of prompt assembly.
func isPlaceholder(field, value string) bool {
	v := normalizeValue(value)
	if v == "" {
		return true
	}
	lower := strings.ToLower(v)
	for _, p := range genericPlaceholders {
		if lower == p {
			return true
		}
	}
	if known, ok := knownPlaceholders[field]; ok && lower == strings.ToLower(known) {
		return true
	}
	return false
}

// normalizeValue strips surrounding markdown bold markers, quotes,
// and trailing "// comment" annotations a user might leave in a
// workspace document.
func normalizeValue(v string) string {
	v = strings.TrimSpace(v)
	v = stripMarkdownBold(v)
	v = strings.Trim(v, `"'`)
	if idx := strings.Index(v, "//"); idx >= 0 {
		v = strings.TrimSpace(v[:idx])
	}
	return strings.TrimSpace(v)
}

func stripMarkdownBold(v string) string {
	v = strings.TrimPrefix(v, "**")
	v = strings.TrimSuffix(v, "**")
	return v
}

// ParseFields extracts "- Label: value" lines from a markdown
// document into a label->value map, applying the placeholder
// heuristic so unset fields are omitted.
func ParseFields(doc string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		label := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if isPlaceholder(label, value) {
			continue
		}
		out[label] = normalizeValue(value)
	}
	return out
}

// HasValues reports whether doc carries at least one non-placeholder
// field, used to decide whether a workspace document contributes to
// the assembled system prompt at all.
func HasValues(doc string) bool {
	return len(ParseFields(doc)) > 0
}
