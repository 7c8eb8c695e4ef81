package experiment

import (
	"path"
	"path/filepath"
	"strings"
)

// CodeBlock is one fenced code segment of a generated reply.
type CodeBlock struct {
	Path    string // Slash-separated, relative to the experiment directory
	Lang    string
	Content string // Always newline-terminated
}

// ParseCodeBlocks extracts the fenced code segments of reply.
//
// A fence header may carry a target path after the language ("```python:src/util.py").
// Untagged blocks go to defaultPath, but only when they are python (or carry no
// language at all); untagged blocks in other languages are ignored. A fence with
// an info string inside an open block closes it and opens the next one.
// Unclosed and empty blocks are dropped. When several blocks target the same
// path the last one wins, keeping the position of the first.
func ParseCodeBlocks(reply, defaultPath string) []CodeBlock {
	var (
		blocks []CodeBlock
		index  = make(map[string]int)
		open   bool
		cur    CodeBlock
		keep   bool
		lines  []string
	)

	flush := func() {
		if open && keep && len(lines) > 0 {
			content := strings.Join(lines, "\n") + "\n"
			if strings.TrimSpace(content) != "" {
				cur.Content = content
				if i, ok := index[cur.Path]; ok {
					blocks[i] = cur
				} else {
					index[cur.Path] = len(blocks)
					blocks = append(blocks, cur)
				}
			}
		}
		open, keep, lines = false, false, nil
	}

	for _, raw := range strings.Split(reply, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			if open {
				lines = append(lines, line)
			}
			continue
		}

		info := strings.TrimSpace(strings.TrimLeft(trimmed, "`"))
		if open {
			flush()
			if info == "" {
				continue
			}
		}

		lang, target := parseInfo(info)
		open = true
		cur = CodeBlock{Lang: lang}
		switch {
		case target != "":
			cur.Path = path.Clean(filepath.ToSlash(target))
			keep = true
		case isPython(lang):
			cur.Path = defaultPath
			keep = true
		}
	}
	return blocks
}

// parseInfo splits "python:src/a.py" into its language and path.
func parseInfo(info string) (lang, target string) {
	if i := strings.IndexByte(info, ':'); i >= 0 {
		return strings.ToLower(strings.TrimSpace(info[:i])), strings.TrimSpace(info[i+1:])
	}
	if fields := strings.Fields(info); len(fields) > 0 {
		return strings.ToLower(fields[0]), ""
	}
	return "", ""
}

func isPython(lang string) bool {
	switch lang {
	case "", "python", "python3", "py":
		return true
	}
	return false
}

// firstBlock returns the content of the block for defaultPath, or of the
// first block when none targets it.
func firstBlock(reply, defaultPath string) (string, bool) {
	blocks := ParseCodeBlocks(reply, defaultPath)
	if len(blocks) == 0 {
		return "", false
	}
	for _, b := range blocks {
		if b.Path == defaultPath {
			return b.Content, true
		}
	}
	return blocks[0].Content, true
}
