package chat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"testcrafter/internal/logging"
)

// CodeSink receives code the user accepted.
type CodeSink interface {
	Accept(code string) error
}

// WriterSink writes accepted code to w.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

// Accept writes code followed by a newline.
func (s *WriterSink) Accept(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.W, ensureNewline(code)); err != nil {
		return fmt.Errorf("failed to write code: %w", err)
	}
	return nil
}

// FileSink appends accepted code to a file.
type FileSink struct {
	mu   sync.Mutex
	Path string
}

// Accept appends code to the file, creating it if needed.
func (s *FileSink) Accept(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(ensureNewline(code)); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Path, err)
	}
	logging.Chat("accepted code appended to %s (%d bytes)", s.Path, len(code))
	return nil
}

// RejectCode records a rejected suggestion. Nothing else happens.
func RejectCode(code string) {
	logging.Chat("code suggestion rejected (%d bytes)", len(code))
	logging.ChatDebug("rejected code:\n%s", code)
}

func ensureNewline(code string) string {
	if strings.HasSuffix(code, "\n") {
		return code
	}
	return code + "\n"
}
