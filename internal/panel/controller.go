package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"testcrafter/internal/chat"
	"testcrafter/internal/logging"
	"testcrafter/internal/registry"
	"testcrafter/internal/types"
	"testcrafter/internal/watch"
	"testcrafter/internal/world"
)

// Status messages.
const (
	StatusWelcome    = `Welcome to Test Crafter! Enable auto-detect or click "Generate Tests" to get started.`
	StatusGenerating = "Generating tests..."
	StatusGenerated  = "Tests generated successfully"
	StatusRunning    = "Running tests..."
	StatusCompleted  = "Tests completed"
)

// ErrNoEditor is returned when an action needs a file and none is open.
var ErrNoEditor = errors.New("no active editor found")

// msgNoEditor is the panel text for ErrNoEditor.
const msgNoEditor = "No active editor found"

// Archiver persists generations and status changes.
type Archiver interface {
	SaveGeneration(ctx context.Context, gen *types.Generation) error
	UpdateStatuses(ctx context.Context, runID string, tests []types.TestCase) error
}

// Deps wires a Controller.
type Deps struct {
	Store     *registry.Store
	Generator types.TestGenerator
	Runner    types.TestRunner
	Router    *chat.Router
	Archive   Archiver      // optional
	Sink      chat.CodeSink // optional; accepted code is discarded without one
	Debounce  time.Duration
	Emit      Emitter

	// Load reads a file for openFile. nil uses world.LoadDocument.
	Load func(path, languageID string) (types.Document, error)
}

// Controller handles panel messages against one registry store.
type Controller struct {
	store     *registry.Store
	generator types.TestGenerator
	runner    types.TestRunner
	router    *chat.Router
	archive   Archiver
	sink      chat.CodeSink
	load      func(path, languageID string) (types.Document, error)

	conv *chat.Conversation
	auto *watch.AutoDetect

	emitMu sync.Mutex
	emit   Emitter

	unsubscribe func()
}

// NewController creates a controller and subscribes it to the store.
func NewController(deps Deps) *Controller {
	c := &Controller{
		store:     deps.Store,
		generator: deps.Generator,
		runner:    deps.Runner,
		router:    deps.Router,
		archive:   deps.Archive,
		sink:      deps.Sink,
		load:      deps.Load,
		emit:      deps.Emit,
		conv:      chat.NewConversation(),
	}
	if c.store == nil {
		c.store = registry.NewStore()
	}
	if c.runner == nil {
		c.runner = registry.PlaceholderRunner{}
	}
	if c.router == nil {
		c.router = chat.NewRouter(c.generator, nil)
	}
	if c.load == nil {
		c.load = world.LoadDocument
	}

	c.auto = watch.New(watch.Options{
		Debounce: deps.Debounce,
		Trigger: func(ctx context.Context, doc types.Document) {
			_ = c.generate(ctx, doc)
		},
		Status: func(msg string) { c.status(msg, false) },
	})

	c.unsubscribe = c.store.Subscribe(func(tests []types.TestCase) {
		c.send(Event{Type: EventTestsUpdated, Tests: tests})
	})
	return c
}

// Store returns the registry the controller writes to.
func (c *Controller) Store() *registry.Store { return c.store }

// Conversation returns the chat history.
func (c *Controller) Conversation() *chat.Conversation { return c.conv }

// AutoDetect returns the auto-detect watcher.
func (c *Controller) AutoDetect() *watch.AutoDetect { return c.auto }

// Document returns the current document.
func (c *Controller) Document() types.Document { return c.auto.Document() }

// Welcome emits the initial status.
func (c *Controller) Welcome() {
	c.status(StatusWelcome, false)
}

// SetDocument makes doc the current file.
func (c *Controller) SetDocument(doc types.Document) error {
	return c.auto.SetDocument(doc)
}

// Close disposes the panel: auto-detect stops, history and tests are dropped.
func (c *Controller) Close() {
	c.auto.Close()
	c.unsubscribe()
	c.conv.Clear()
	c.store.Clear()
	logging.Panel("panel disposed")
}

// Handle processes one inbound message. Failures are reported to the panel
// as error events and also returned.
func (c *Controller) Handle(ctx context.Context, msg Message) error {
	kind := msg.Kind()
	logging.PanelDebug("Handle: %s", kind)

	switch kind {
	case MsgSendMessage:
		return c.converse(ctx, msg.Message, func(ctx context.Context) (chat.Response, error) {
			return c.router.Respond(ctx, msg.Message, c.auto.Document())
		})

	case MsgAskQuestion:
		return c.converse(ctx, msg.Message, func(ctx context.Context) (chat.Response, error) {
			return c.router.Ask(ctx, c.conv.Messages(), c.auto.Document().LanguageID)
		})

	case MsgGenerateTests:
		doc := c.auto.Document()
		if doc.IsZero() {
			c.sendError(msgNoEditor)
			return ErrNoEditor
		}
		return c.generate(ctx, doc)

	case MsgRunTests, MsgRunAllTests:
		return c.RunTests(ctx)

	case MsgAcceptTest:
		return c.review(ctx, msg.TestID, types.StatusAccepted)

	case MsgRejectTest:
		return c.review(ctx, msg.TestID, types.StatusRejected)

	case MsgToggleAutoDetect:
		if msg.Enabled {
			if err := c.auto.Enable(); err != nil {
				c.sendError("Failed to enable auto-detect: " + err.Error())
				return err
			}
			return nil
		}
		c.auto.Disable()
		return nil

	case MsgAcceptCode:
		return c.acceptCode(msg.Code)

	case MsgRejectCode:
		chat.RejectCode(msg.Code)
		c.send(Event{Type: EventInfo, Message: "Code suggestion rejected"})
		return nil

	case MsgOpenFile:
		doc, err := c.load(msg.Path, msg.LanguageID)
		if err != nil {
			c.sendError("Failed to open file: " + err.Error())
			return err
		}
		return c.auto.SetDocument(doc)

	default:
		err := fmt.Errorf("unknown message type %q", kind)
		c.sendError(err.Error())
		return err
	}
}

// Generate regenerates tests for the current document.
func (c *Controller) Generate(ctx context.Context) error {
	return c.Handle(ctx, Message{Type: MsgGenerateTests})
}

// RunTests runs every held test and reports progress.
func (c *Controller) RunTests(ctx context.Context) error {
	c.status(StatusRunning, true)
	if err := registry.Run(ctx, c.store, c.runner); err != nil {
		c.status("Error: "+err.Error(), false)
		c.sendError("Failed to run tests: " + err.Error())
		return err
	}
	if gen := c.store.Current(); gen != nil {
		c.archiveStatuses(ctx, gen.RunID, gen.Tests)
	}
	c.status(StatusCompleted, false)
	return nil
}

// generate runs one generation. A generation started later wins; results of
// a superseded or cancelled one are discarded without a status change.
func (c *Controller) generate(ctx context.Context, doc types.Document) error {
	ticket := c.store.Begin()
	c.status(StatusGenerating, true)

	gen, err := c.generator.Generate(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			logging.PanelDebug("generation for %s cancelled", doc.Path)
			return ctx.Err()
		}
		c.status("Error: "+err.Error(), false)
		c.sendError("Failed to generate tests: " + err.Error())
		return err
	}

	if !c.store.ReplaceIfCurrent(ticket, gen) {
		return nil
	}
	if c.archive != nil {
		if err := c.archive.SaveGeneration(ctx, gen); err != nil {
			logging.Get(logging.CategoryPanel).Warn("archive save failed: %v", err)
		}
	}
	c.status(StatusGenerated, false)
	return nil
}

func (c *Controller) review(ctx context.Context, id string, status types.Status) error {
	if err := c.store.SetStatus(id, status, ""); err != nil {
		// Unknown IDs are ignored, as with a stale panel.
		logging.PanelDebug("review %s: %v", id, err)
		return nil
	}
	if gen := c.store.Current(); gen != nil {
		if tc, ok := c.store.Get(id); ok {
			c.archiveStatuses(ctx, gen.RunID, []types.TestCase{tc})
		}
	}
	return nil
}

// converse records text as a user message, runs answer and appends its reply.
func (c *Controller) converse(ctx context.Context, text string, answer func(context.Context) (chat.Response, error)) error {
	c.conv.Append(types.RoleUser, text, nil)
	c.send(Event{Type: EventSetTyping, Value: true})
	defer c.send(Event{Type: EventSetTyping, Value: false})

	resp, err := answer(ctx)
	if err != nil {
		c.sendError("Failed to process message: " + err.Error())
		return err
	}

	msg := c.conv.Append(types.RoleAssistant, resp.Text, resp.CodeBlocks)
	c.send(Event{Type: EventReceiveMessage, Chat: &msg})

	if resp.Generation != nil {
		c.store.Replace(resp.Generation)
		if c.archive != nil {
			if err := c.archive.SaveGeneration(ctx, resp.Generation); err != nil {
				logging.Get(logging.CategoryPanel).Warn("archive save failed: %v", err)
			}
		}
	}
	return nil
}

func (c *Controller) acceptCode(code string) error {
	if c.sink == nil {
		c.sendError("Failed to insert code: no output configured")
		return errors.New("no code sink configured")
	}
	if err := c.sink.Accept(code); err != nil {
		c.sendError("Failed to insert code: " + err.Error())
		return err
	}
	c.send(Event{Type: EventInfo, Message: "Code inserted successfully"})
	return nil
}

func (c *Controller) archiveStatuses(ctx context.Context, runID string, tests []types.TestCase) {
	if c.archive == nil || runID == "" {
		return
	}
	if err := c.archive.UpdateStatuses(ctx, runID, tests); err != nil {
		logging.Get(logging.CategoryPanel).Warn("archive update failed: %v", err)
	}
}

func (c *Controller) status(msg string, loading bool) {
	c.send(Event{Type: EventUpdateStatus, Message: msg, Loading: loading})
}

func (c *Controller) sendError(msg string) {
	logging.Get(logging.CategoryPanel).Error("%s", msg)
	c.send(Event{Type: EventError, Message: msg})
}

func (c *Controller) send(ev Event) {
	if c.emit == nil {
		return
	}
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.emit(ev)
}
