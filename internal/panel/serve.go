package panel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"testcrafter/internal/logging"
)

// maxLineSize bounds one inbound JSON message.
const maxLineSize = 4 * 1024 * 1024

// JSONEmitter writes each event to w as one JSON line.
func JSONEmitter(w io.Writer) Emitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return func(ev Event) {
		if err := enc.Encode(ev); err != nil {
			logging.Get(logging.CategoryPanel).Warn("failed to write %s event: %v", ev.Type, err)
		}
	}
}

// Serve reads JSON-lines messages from r and dispatches them to ctrl until r
// is exhausted or ctx is cancelled. Malformed lines are reported as error
// events and skipped. Messages are handled one at a time, in order.
func Serve(ctx context.Context, ctrl *Controller, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	ctrl.Welcome()
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			ctrl.sendError(fmt.Sprintf("invalid message: %v", err))
			continue
		}
		// Handle reports its own failures as events.
		_ = ctrl.Handle(ctx, msg)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}
	return ctx.Err()
}
