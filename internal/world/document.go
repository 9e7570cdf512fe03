// Package world loads the source documents tests are generated for.
package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"testcrafter/internal/types"
)

// MaxDocumentSize bounds how much source text is sent in a prompt.
const MaxDocumentSize = 512 * 1024

var langMap = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".jsx":   "javascriptreact",
	".ts":    "typescript",
	".tsx":   "typescriptreact",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".php":   "php",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".swift": "swift",
	".scala": "scala",
	".ex":    "elixir",
	".exs":   "elixir",
	".hs":    "haskell",
	".lua":   "lua",
	".r":     "r",
	".sql":   "sql",
	".sh":    "shellscript",
	".bash":  "shellscript",
	".ps1":   "powershell",
}

// extMap is the inverse used when writing test code to disk.
var extMap = map[string]string{
	"go":              ".go",
	"python":          ".py",
	"javascript":      ".js",
	"javascriptreact": ".jsx",
	"typescript":      ".ts",
	"typescriptreact": ".tsx",
	"rust":            ".rs",
	"java":            ".java",
	"kotlin":          ".kt",
	"ruby":            ".rb",
	"php":             ".php",
	"c":               ".c",
	"cpp":             ".cpp",
	"csharp":          ".cs",
	"swift":           ".swift",
	"scala":           ".scala",
	"elixir":          ".exs",
	"haskell":         ".hs",
	"lua":             ".lua",
	"r":               ".r",
	"sql":             ".sql",
	"shellscript":     ".sh",
	"powershell":      ".ps1",
}

// DetectLanguage maps a file path to an editor-style language identifier.
// Unknown extensions yield "plaintext".
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := langMap[ext]; ok {
		return lang
	}
	switch filepath.Base(path) {
	case "Dockerfile", "dockerfile":
		return "dockerfile"
	case "Makefile", "makefile", "GNUmakefile":
		return "makefile"
	}
	return "plaintext"
}

// ExtensionFor returns the file extension for a language identifier, or
// ".txt" when unknown.
func ExtensionFor(languageID string) string {
	if ext, ok := extMap[strings.ToLower(languageID)]; ok {
		return ext
	}
	return ".txt"
}

// LoadDocument reads path into a Document. An empty languageID is detected
// from the extension.
func LoadDocument(path, languageID string) (types.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return types.Document{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return types.Document{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxDocumentSize {
		return types.Document{}, fmt.Errorf("%s is too large (%d bytes, max %d)", path, info.Size(), MaxDocumentSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return types.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if languageID == "" {
		languageID = DetectLanguage(abs)
	}
	return types.Document{Path: abs, LanguageID: languageID, Text: string(data)}, nil
}
