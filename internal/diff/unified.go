// Package diff renders unified diffs between two texts.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around each change.
const DefaultContext = 3

type opcode struct {
	tag    byte // '=' equal, 'c' change
	a1, a2 int
	b1, b2 int
}

// Unified returns a unified diff of a and b, or "" when they are identical.
// Every emitted line ends with a newline, including a final line that had
// none in the input.
func Unified(fromLabel, toLabel, a, b string, context int) string {
	if a == b {
		return ""
	}
	if context < 0 {
		context = DefaultContext
	}

	aLines, bLines, codes := lineOpcodes(a, b)
	groups := groupOpcodes(codes, context)
	if len(groups) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", fromLabel, toLabel)
	for _, g := range groups {
		first, last := g[0], g[len(g)-1]
		fmt.Fprintf(&sb, "@@ -%s +%s @@\n", formatRange(first.a1, last.a2), formatRange(first.b1, last.b2))
		for _, c := range g {
			if c.tag == '=' {
				writeLines(&sb, ' ', aLines[c.a1:c.a2])
				continue
			}
			writeLines(&sb, '-', aLines[c.a1:c.a2])
			writeLines(&sb, '+', bLines[c.b1:c.b2])
		}
	}
	return sb.String()
}

// lineOpcodes runs a line-mode diff and folds adjacent insertions and
// deletions into single change opcodes.
func lineOpcodes(a, b string) ([]string, []string, []opcode) {
	dmp := diffmatchpatch.New()
	aChars, bChars, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(aChars, bChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var aLines, bLines []string
	var codes []opcode
	for _, d := range diffs {
		lines := splitLines(d.Text)
		if len(lines) == 0 {
			continue
		}
		a1, b1 := len(aLines), len(bLines)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			aLines = append(aLines, lines...)
			bLines = append(bLines, lines...)
		case diffmatchpatch.DiffDelete:
			aLines = append(aLines, lines...)
		case diffmatchpatch.DiffInsert:
			bLines = append(bLines, lines...)
		}
		tag := byte('c')
		if d.Type == diffmatchpatch.DiffEqual {
			tag = '='
		}
		if n := len(codes); n > 0 && tag == 'c' && codes[n-1].tag == 'c' {
			codes[n-1].a2, codes[n-1].b2 = len(aLines), len(bLines)
			continue
		}
		codes = append(codes, opcode{tag: tag, a1: a1, a2: len(aLines), b1: b1, b2: len(bLines)})
	}
	return aLines, bLines, codes
}

// groupOpcodes splits codes into hunks with up to n lines of context,
// merging changes separated by at most 2n unchanged lines.
func groupOpcodes(codes []opcode, n int) [][]opcode {
	if len(codes) == 0 {
		return nil
	}
	codes = append([]opcode(nil), codes...)
	if c := &codes[0]; c.tag == '=' {
		c.a1 = max(c.a1, c.a2-n)
		c.b1 = max(c.b1, c.b2-n)
	}
	if c := &codes[len(codes)-1]; c.tag == '=' {
		c.a2 = min(c.a2, c.a1+n)
		c.b2 = min(c.b2, c.b1+n)
	}

	var groups [][]opcode
	var group []opcode
	for _, c := range codes {
		if c.tag == '=' && c.a2-c.a1 > 2*n {
			group = append(group, opcode{tag: '=', a1: c.a1, a2: min(c.a2, c.a1+n), b1: c.b1, b2: min(c.b2, c.b1+n)})
			groups = append(groups, group)
			group = nil
			c.a1 = max(c.a1, c.a2-n)
			c.b1 = max(c.b1, c.b2-n)
		}
		group = append(group, c)
	}
	if len(group) > 0 && !(len(group) == 1 && group[0].tag == '=') {
		groups = append(groups, group)
	}

	// A leading group made only of context carries no change.
	out := groups[:0]
	for _, g := range groups {
		if hasChange(g) {
			out = append(out, g)
		}
	}
	return out
}

func hasChange(g []opcode) bool {
	for _, c := range g {
		if c.tag != '=' {
			return true
		}
	}
	return false
}

// formatRange renders a hunk range the way unified diff tools do.
func formatRange(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}

// splitLines splits s after each newline, keeping the terminators.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeLines(sb *strings.Builder, prefix byte, lines []string) {
	for _, l := range lines {
		sb.WriteByte(prefix)
		sb.WriteString(l)
		if !strings.HasSuffix(l, "\n") {
			sb.WriteByte('\n')
		}
	}
}
