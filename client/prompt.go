package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gookit/color"
)

var (
	messageStyle  = color.New(color.FgGreen)
	typingStyle   = color.New(color.FgGray)
	presenceStyle = color.New(color.FgCyan)
	errorStyle    = color.New(color.FgRed, color.OpBold)
)

type event struct {
	Token    string `json:"token"`
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	Receiver int64  `json:"receiver,omitempty"`
}

// prompt turns terminal lines into events for the current receiver.
type prompt struct {
	token    string
	receiver int64
}

func newPrompt(token string, receiver int64) *prompt {
	return &prompt{token: token, receiver: receiver}
}

func (p *prompt) join() event { return event{Token: p.token, Type: "join"} }

func (p *prompt) exit() event { return event{Token: p.token, Type: "exit"} }

// handle returns the event to send, if any, and whether the client should stop.
func (p *prompt) handle(line string) (*event, bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil, false, nil
	case line == "/quit":
		e := p.exit()
		return &e, true, nil
	case line == "/typing":
		return &event{Token: p.token, Type: "typing"}, false, nil
	case strings.HasPrefix(line, "/to"):
		id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "/to")), 10, 64)
		if err != nil || id <= 0 {
			return nil, false, fmt.Errorf("usage: /to <user id>")
		}
		p.receiver = id
		return nil, false, nil
	case strings.HasPrefix(line, "/"):
		return nil, false, fmt.Errorf("unknown command %s", strings.Fields(line)[0])
	}
	if p.receiver == 0 {
		return nil, false, fmt.Errorf("pick a receiver first with /to <user id>")
	}
	return &event{Token: p.token, Type: "message", Message: line, Receiver: p.receiver}, false, nil
}

func render(payload []byte) string {
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return string(payload)
	}
	switch f.Type {
	case "message":
		return messageStyle.Sprintf("[%s -> %s] %s", f.Sender, f.Receiver, f.Message)
	case "typing":
		return typingStyle.Sprintf("%s is typing...", f.Sender)
	case "join":
		return presenceStyle.Sprintf("%s joined", f.Username)
	case "exit":
		return presenceStyle.Sprintf("%s left", f.Username)
	default:
		return errorStyle.Sprintf("%s: %s", f.Type, f.Message)
	}
}
