package testutil

import (
	"fmt"
	"strings"
)

// Unindent removes common leading whitespace from a multi-line string,
// allowing for readable, indented HCL snippets in Go tests.
func Unindent(s string) string {
	lines := strings.Split(s, "\n")

	// Remove leading/trailing empty lines that are common with multi-line literals
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}

	if minIndent <= 0 {
		return strings.Join(lines, "\n") + "\n"
	}

	var b strings.Builder
	for _, line := range lines {
		if len(line) >= minIndent {
			b.WriteString(line[minIndent:])
		} else {
			b.WriteString(strings.TrimSpace(line))
		}
		b.WriteRune('\n')
	}
	return b.String()
}

// BundleHCL renders a minimal bundle.hcl. deps are "id" or "id@version".
func BundleHCL(id, version string, processors []string, deps ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "bundle %q {\n  version = %q\n", id, version)
	if len(processors) > 0 {
		quoted := make([]string, len(processors))
		for i, p := range processors {
			quoted[i] = fmt.Sprintf("%q", p)
		}
		fmt.Fprintf(&b, "  processors = [%s]\n", strings.Join(quoted, ", "))
	}
	for _, dep := range deps {
		depID, depVersion, ok := strings.Cut(dep, "@")
		if !ok {
			depVersion = "1.0"
		}
		fmt.Fprintf(&b, "  dependency %q {\n    version = %q\n  }\n", depID, depVersion)
	}
	b.WriteString("}\n")
	return b.String()
}
