// Package chat models what the transport hands to the core and what it
// expects back.
package chat

import (
	"strconv"
	"strings"
)

type Kind string

const (
	KindCommand Kind = "command"
	KindText    Kind = "text"
	KindButton  Kind = "button"
)

type Forward struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Context describes the chat the action came from.
type Context struct {
	ID            int64  `json:"id"`
	Type          string `json:"type"`
	SenderIsAdmin bool   `json:"sender_is_admin"`
}

func (c Context) Group() bool { return c.Type == "group" || c.Type == "supergroup" }

type Action struct {
	ActorID     int64    `json:"actor_id"`
	DisplayName string   `json:"display_name"`
	Kind        Kind     `json:"kind"`
	Command     string   `json:"command,omitempty"`
	Args        []string `json:"args,omitempty"`
	Text        string   `json:"text,omitempty"`
	Payload     string   `json:"payload,omitempty"`
	ForwardFrom *Forward `json:"forward_from,omitempty"`
	Chat        Context  `json:"chat"`
	MessageID   int64    `json:"message_id,omitempty"`
}

// Normalize turns "/name@bot arg" text into a command action and lower-cases
// command names.
func (a Action) Normalize() Action {
	if a.Kind == "" {
		a.Kind = KindText
	}
	if a.Kind == KindText && strings.HasPrefix(strings.TrimSpace(a.Text), "/") {
		fields := strings.Fields(strings.TrimSpace(a.Text))
		a.Kind = KindCommand
		a.Command = fields[0]
		a.Args = fields[1:]
	}
	if a.Kind == KindCommand {
		name := strings.TrimPrefix(a.Command, "/")
		if i := strings.IndexByte(name, '@'); i >= 0 {
			name = name[:i]
		}
		a.Command = strings.ToLower(name)
	}
	return a
}

func Command(actor int64, name string, args ...string) Action {
	return Action{ActorID: actor, Kind: KindCommand, Command: name, Args: args}
}

func Text(actor int64, text string) Action {
	return Action{ActorID: actor, Kind: KindText, Text: text}
}

func Press(actor int64, payload string, messageID int64) Action {
	return Action{ActorID: actor, Kind: KindButton, Payload: payload, MessageID: messageID}
}

type Button struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

type Mode string

const (
	ModeReply Mode = "reply"
	ModeEdit  Mode = "edit"
)

type Response struct {
	Text      string     `json:"text"`
	ParseMode string     `json:"parse_mode,omitempty"`
	Buttons   [][]Button `json:"buttons,omitempty"`
	Menu      [][]string `json:"menu,omitempty"`
	Mode      Mode       `json:"mode"`
	MessageID int64      `json:"message_id,omitempty"`
}

func Reply(text string) Response { return Response{Text: text, ParseMode: "HTML", Mode: ModeReply} }

func (r Response) WithButtons(rows [][]Button) Response {
	r.Buttons = rows
	return r
}

func (r Response) WithMenu(rows [][]string) Response {
	r.Menu = rows
	return r
}

// Responder decides how a result reaches the user: as a new message or by
// replacing the message that carried the pressed button.
type Responder interface {
	Respond(text string, buttons [][]Button) Response
}

type ReplyResponder struct{}

func (ReplyResponder) Respond(text string, buttons [][]Button) Response {
	return Reply(text).WithButtons(buttons)
}

type EditResponder struct{ MessageID int64 }

func (e EditResponder) Respond(text string, buttons [][]Button) Response {
	r := Reply(text).WithButtons(buttons)
	r.Mode = ModeEdit
	r.MessageID = e.MessageID
	return r
}

// ResponderFor edits the originating message for button presses and replies
// otherwise.
func ResponderFor(a Action) Responder {
	if a.Kind == KindButton && a.MessageID != 0 {
		return EditResponder{MessageID: a.MessageID}
	}
	return ReplyResponder{}
}

// Payload encodes a button payload as "prefix:arg".
func Payload(prefix string, arg any) string {
	switch v := arg.(type) {
	case int64:
		return prefix + ":" + strconv.FormatInt(v, 10)
	case int:
		return prefix + ":" + strconv.Itoa(v)
	case string:
		return prefix + ":" + v
	}
	return prefix
}

// SplitPayload is the inverse of Payload.
func SplitPayload(p string) (prefix, arg string) {
	prefix, arg, _ = strings.Cut(p, ":")
	return prefix, arg
}
