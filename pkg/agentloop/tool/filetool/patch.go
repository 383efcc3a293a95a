package filetool

import (
	"fmt"
	"strings"
)

// opKind discriminates a patch file operation.
type opKind string

const (
	opAdd    opKind = "add"
	opDelete opKind = "delete"
	opUpdate opKind = "update"
)

type hunkLineKind byte

const (
	lineContext hunkLineKind = ' '
	lineRemove  hunkLineKind = '-'
	lineAdd     hunkLineKind = '+'
)

type hunkLine struct {
	kind hunkLineKind
	text string
}

type hunk struct {
	contextHint string
	lines       []hunkLine
}

type fileOp struct {
	kind       opKind
	path       string
	movePath   string // opUpdate only, "" if no move
	addContent string // opAdd only
	hunks      []hunk // opUpdate only
}

// parsePatch parses the sentinel patch format from spec §4.8.1.
func parsePatch(text string) ([]fileOp, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "*** Begin Patch" {
		return nil, fmt.Errorf("patch must begin with '*** Begin Patch'")
	}

	var ops []fileOp
	i := 1
	sawEnd := false

	for i < len(lines) {
		line := lines[i]
		switch {
		case strings.TrimSpace(line) == "*** End Patch":
			sawEnd = true
			i++

		case strings.HasPrefix(line, "*** Add File: "):
			path := strings.TrimPrefix(line, "*** Add File: ")
			i++
			var content []string
			for i < len(lines) && strings.HasPrefix(lines[i], "+") {
				content = append(content, strings.TrimPrefix(lines[i], "+"))
				i++
			}
			ops = append(ops, fileOp{kind: opAdd, path: path, addContent: strings.Join(content, "\n")})

		case strings.HasPrefix(line, "*** Delete File: "):
			path := strings.TrimPrefix(line, "*** Delete File: ")
			ops = append(ops, fileOp{kind: opDelete, path: path})
			i++

		case strings.HasPrefix(line, "*** Update File: "):
			path := strings.TrimPrefix(line, "*** Update File: ")
			i++
			op := fileOp{kind: opUpdate, path: path}
			if i < len(lines) && strings.HasPrefix(lines[i], "*** Move to: ") {
				op.movePath = strings.TrimPrefix(lines[i], "*** Move to: ")
				i++
			}
			for i < len(lines) && strings.HasPrefix(lines[i], "@@") {
				h := hunk{contextHint: strings.TrimSpace(strings.TrimPrefix(lines[i], "@@"))}
				i++
				for i < len(lines) && len(lines[i]) > 0 && isHunkBodyLine(lines[i]) {
					h.lines = append(h.lines, hunkLine{kind: hunkLineKind(lines[i][0]), text: lines[i][1:]})
					i++
				}
				op.hunks = append(op.hunks, h)
			}
			ops = append(ops, op)

		case strings.TrimSpace(line) == "":
			i++

		default:
			return nil, fmt.Errorf("unexpected patch line %d: %q", i, line)
		}
	}

	if !sawEnd {
		return nil, fmt.Errorf("patch must end with '*** End Patch'")
	}
	return ops, nil
}

func isHunkBodyLine(line string) bool {
	switch line[0] {
	case ' ', '-', '+':
		return true
	default:
		return false
	}
}

// applyHunk locates the hunk's context+remove subsequence in content and
// replaces it with the context+add subsequence, trying an exact match
// first and a whitespace-normalized match second.
func applyHunk(content string, h hunk) (string, error) {
	var anchor, replacement []string
	for _, l := range h.lines {
		switch l.kind {
		case lineContext:
			anchor = append(anchor, l.text)
			replacement = append(replacement, l.text)
		case lineRemove:
			anchor = append(anchor, l.text)
		case lineAdd:
			replacement = append(replacement, l.text)
		}
	}

	lines := strings.Split(content, "\n")

	idx, err := findSubsequence(lines, anchor, false)
	if err != nil {
		idx, err = findSubsequence(lines, anchor, true)
		if err != nil {
			return "", fmt.Errorf("could not locate hunk %q: %w", h.contextHint, err)
		}
	}

	out := make([]string, 0, len(lines)-len(anchor)+len(replacement))
	out = append(out, lines[:idx]...)
	out = append(out, replacement...)
	out = append(out, lines[idx+len(anchor):]...)
	return strings.Join(out, "\n"), nil
}

func findSubsequence(haystack, needle []string, normalizeWhitespace bool) (int, error) {
	if len(needle) == 0 {
		return 0, nil
	}
	norm := func(s string) string {
		if normalizeWhitespace {
			return strings.Join(strings.Fields(s), " ")
		}
		return s
	}
	target := make([]string, len(needle))
	for i, n := range needle {
		target[i] = norm(n)
	}

	for start := 0; start+len(needle) <= len(haystack); start++ {
		match := true
		for j, t := range target {
			if norm(haystack[start+j]) != t {
				match = false
				break
			}
		}
		if match {
			return start, nil
		}
	}
	return 0, fmt.Errorf("no matching context found")
}
