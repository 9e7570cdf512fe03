package chat

import (
	"strings"

	"testcrafter/internal/types"
)

// SplitCodeBlocks separates fenced code blocks from prose. A fence without a
// language tag gets defaultLang. An unterminated fence runs to the end.
func SplitCodeBlocks(reply, defaultLang string) (string, []types.CodeBlock) {
	var (
		prose  []string
		code   []string
		blocks []types.CodeBlock
		inCode bool
		lang   string
	)

	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				blocks = append(blocks, types.CodeBlock{Code: strings.Join(code, "\n"), Language: lang})
				code = code[:0]
				inCode = false
				continue
			}
			inCode = true
			lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			if lang == "" {
				lang = defaultLang
			}
			continue
		}
		if inCode {
			code = append(code, line)
		} else {
			prose = append(prose, line)
		}
	}
	if inCode {
		blocks = append(blocks, types.CodeBlock{Code: strings.Join(code, "\n"), Language: lang})
	}

	return strings.TrimSpace(strings.Join(prose, "\n")), blocks
}
