package tui

import (
	"fmt"
	"strconv"
	"strings"

	"testcrafter/internal/panel"
	"testcrafter/internal/types"
)

// localAction is handled by the model without the controller.
type localAction int

const (
	actNone localAction = iota
	actQuit
	actHelp
	actToggleTests
	actClear
)

const helpText = `Commands:
  /generate            generate tests for the open file
  /ask <question>      ask the model, with the whole conversation as context
  /run                 run all tests
  /accept <n|id>       accept test n (as listed by /tests) or by ID
  /reject <n|id>       reject a test
  /auto on|off         toggle auto-detect
  /open <path>         open a file
  /insert <n>          accept code block n of the last reply
  /discard <n>         reject code block n of the last reply
  /tests               show or hide the test list
  /clear               clear the transcript
  /quit                exit
Anything else is sent to the assistant.`

// parseInput turns one line of input into a panel message or a local action.
// tests and blocks resolve numeric references.
func parseInput(text string, tests []types.TestCase, blocks []types.CodeBlock) (panel.Message, localAction, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return panel.Message{Type: panel.MsgSendMessage, Message: text}, actNone, nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return panel.Message{}, actQuit, nil
	case "help", "?":
		return panel.Message{}, actHelp, nil
	case "tests":
		return panel.Message{}, actToggleTests, nil
	case "clear":
		return panel.Message{}, actClear, nil
	case "generate":
		return panel.Message{Type: panel.MsgGenerateTests}, actNone, nil
	case "run":
		return panel.Message{Type: panel.MsgRunAllTests}, actNone, nil
	case "accept", "reject":
		id, err := resolveTest(arg, tests)
		if err != nil {
			return panel.Message{}, actNone, err
		}
		kind := panel.MsgAcceptTest
		if strings.EqualFold(name, "reject") {
			kind = panel.MsgRejectTest
		}
		return panel.Message{Type: kind, TestID: id}, actNone, nil
	case "auto":
		switch strings.ToLower(arg) {
		case "on":
			return panel.Message{Type: panel.MsgToggleAutoDetect, Enabled: true}, actNone, nil
		case "off":
			return panel.Message{Type: panel.MsgToggleAutoDetect, Enabled: false}, actNone, nil
		}
		return panel.Message{}, actNone, fmt.Errorf("usage: /auto on|off")
	case "ask":
		if arg == "" {
			return panel.Message{}, actNone, fmt.Errorf("usage: /ask <question>")
		}
		return panel.Message{Type: panel.MsgAskQuestion, Message: arg}, actNone, nil
	case "open":
		if arg == "" {
			return panel.Message{}, actNone, fmt.Errorf("usage: /open <path>")
		}
		return panel.Message{Type: panel.MsgOpenFile, Path: arg}, actNone, nil
	case "insert", "discard":
		block, err := resolveBlock(arg, blocks)
		if err != nil {
			return panel.Message{}, actNone, err
		}
		kind := panel.MsgAcceptCode
		if strings.EqualFold(name, "discard") {
			kind = panel.MsgRejectCode
		}
		return panel.Message{Type: kind, Code: block.Code}, actNone, nil
	}
	return panel.Message{}, actNone, fmt.Errorf("unknown command /%s (try /help)", name)
}

func resolveTest(arg string, tests []types.TestCase) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("a test number or ID is required")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(tests) {
			return "", fmt.Errorf("no test #%d (have %d)", n, len(tests))
		}
		return tests[n-1].ID, nil
	}
	return arg, nil
}

func resolveBlock(arg string, blocks []types.CodeBlock) (types.CodeBlock, error) {
	if len(blocks) == 0 {
		return types.CodeBlock{}, fmt.Errorf("the last reply has no code blocks")
	}
	n := 1
	if arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil {
			return types.CodeBlock{}, fmt.Errorf("invalid block number %q", arg)
		}
		n = parsed
	}
	if n < 1 || n > len(blocks) {
		return types.CodeBlock{}, fmt.Errorf("no code block #%d (have %d)", n, len(blocks))
	}
	return blocks[n-1], nil
}
