package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mira-ai/sentinel/pkg/models"
)

// dailyLookback bounds how many of the most recent daily-note files
// are folded into the assembled system prompt.
const dailyLookback = 3

// bootstrapPrompt is shown in place of the normal system prompt when
// EnsureWorkspaceFiles reports that it just created workspace
// documents for the first time.
const bootstrapPrompt = `You are being run for the first time. Your workspace documents (personality, user profile, identity, memory) are empty templates. Ask the user a few friendly questions to fill in IDENTITY.md and USER.md before proceeding with their request.`

// Loader reads the fixed workspace document set from a root directory
// and assembles the system prompt consumed by the Memory Controller.
type Loader struct {
	root string
	now  func() time.Time
}

// NewLoader constructs a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{root: dir, now: time.Now}
}

// Bootstrap ensures the default documents exist, returning whether
// any were freshly created.
func (l *Loader) Bootstrap() (BootstrapResult, error) {
	return EnsureWorkspaceFiles(l.root, DefaultBootstrapFiles())
}

func (l *Loader) read(name string) string {
	data, err := os.ReadFile(filepath.Join(l.root, name))
	if err != nil {
		return ""
	}
	return string(data)
}

// recentDaily reads up to dailyLookback dated notes ending today,
// oldest first, skipping days with no file or an empty one.
func (l *Loader) recentDaily() string {
	today := l.now()
	var notes []string
	for i := dailyLookback - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		name := day.Format("2006-01-02") + ".md"
		content := strings.TrimSpace(l.read(filepath.Join(DocDailyDir, name)))
		if content == "" {
			continue
		}
		notes = append(notes, fmt.Sprintf("### %s\n\n%s", day.Format("2006-01-02"), content))
	}
	return strings.Join(notes, "\n\n")
}

// BuildSystemPrompt assembles the system prompt: personality,
// non-placeholder user facts, non-placeholder identity facts,
// long-term memory (if it carries content), recent daily notes (if
// any exist), and the available tool list, in that order. If any
// document is freshly bootstrapped, the bootstrap prompt is returned
// instead.
func (l *Loader) BuildSystemPrompt(tools []models.ToolSchema) (string, error) {
	result, err := l.Bootstrap()
	if err != nil {
		return "", fmt.Errorf("workspace: bootstrap: %w", err)
	}
	if result.Bootstrapped() {
		return bootstrapPrompt, nil
	}

	var b strings.Builder

	if personality := l.read(DocPersonality); personality != "" {
		b.WriteString(personality)
		b.WriteString("\n\n")
	}

	if userFields := ParseFields(l.read(DocUser)); len(userFields) > 0 {
		b.WriteString("## User\n\n")
		writeFields(&b, userFields)
	}

	if idFields := ParseFields(l.read(DocIdentity)); len(idFields) > 0 {
		b.WriteString("## Identity\n\n")
		writeFields(&b, idFields)
	}

	if memory := l.read(DocMemory); HasValues(memory) || hasNonTemplateBody(memory) {
		b.WriteString("## Long-term memory\n\n")
		b.WriteString(memory)
		b.WriteString("\n\n")
	}

	if daily := l.recentDaily(); daily != "" {
		b.WriteString("## Recent daily notes\n\n")
		b.WriteString(daily)
		b.WriteString("\n\n")
	}

	if len(tools) > 0 {
		b.WriteString("## Available tools\n\n")
		for _, t := range tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		}
	}

	return strings.TrimSpace(b.String()), nil
}

func writeFields(b *strings.Builder, fields map[string]string) {
	for label, value := range fields {
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}
	b.WriteString("\n")
}

func hasNonTemplateBody(doc string) bool {
	trimmed := strings.TrimSpace(doc)
	return trimmed != "" && !strings.Contains(trimmed, "(nothing recorded yet)")
}
