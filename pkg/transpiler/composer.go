package transpiler

import (
	"regexp"
	"strings"
)

// skillsKeyPattern matches the skills key line however it is spaced or quoted.
var skillsKeyPattern = regexp.MustCompile(`^([ \t]*)(?:skills|"skills"|'skills')[ \t]*:`)

// Compose renders the chatmode document from the raw frontmatter of the primary
// definition, its body and the resolved skill bodies in declaration order.
func Compose(rawFrontmatter, body string, skillBodies []string) string {
	block := trimBlankLines(stripSkillsKey(rawFrontmatter))

	sections := make([]string, 0, len(skillBodies)+1)
	for _, section := range append([]string{body}, skillBodies...) {
		if trimmed := trimBlankLines(section); trimmed != "" {
			sections = append(sections, trimmed)
		}
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelimiter + "\n")
	sb.WriteString(block)
	sb.WriteString("\n" + frontmatterDelimiter + "\n")
	if len(sections) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(sections, "\n\n"))
		sb.WriteString("\n")
	}

	return sb.String()
}

// stripSkillsKey drops the skills key line, and the lines holding its value,
// from raw frontmatter text. Every other line is kept byte for byte.
func stripSkillsKey(frontmatter string) string {
	lines := strings.SplitAfter(frontmatter, "\n")
	kept := make([]string, 0, len(lines))

	keyIndent := -1
	var pendingBlank []string
	for _, line := range lines {
		content := strings.TrimRight(line, "\r\n")

		if keyIndent >= 0 {
			if strings.TrimSpace(content) == "" {
				pendingBlank = append(pendingBlank, line)
				continue
			}
			if isValueContinuation(content, keyIndent) {
				pendingBlank = nil
				continue
			}
			keyIndent = -1
			kept = append(kept, pendingBlank...)
			pendingBlank = nil
		}

		if m := skillsKeyPattern.FindStringSubmatch(content); m != nil {
			keyIndent = len(m[1])
			continue
		}

		kept = append(kept, line)
	}
	kept = append(kept, pendingBlank...)

	return strings.Join(kept, "")
}

// isValueContinuation reports whether line belongs to the value of a key at
// keyIndent: deeper indentation, or a block sequence item at the same level.
func isValueContinuation(line string, keyIndent int) bool {
	trimmed := strings.TrimLeft(line, " \t")
	indent := len(line) - len(trimmed)
	if indent > keyIndent {
		return true
	}
	return indent == keyIndent && (trimmed == "-" || strings.HasPrefix(trimmed, "- "))
}
