package main

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

type commandKind int

const (
	cmdSay commandKind = iota
	cmdLang
	cmdTranslate
	cmdRole
	cmdLog
	cmdStatus
	cmdReconnect
	cmdHelp
	cmdQuit
)

type command struct {
	kind commandKind
	text string
	lang chat.Language
	role chat.Role
	on   bool
}

const helpText = `commands:
  /lang <en|hi|fr|bn|mr>   change your display language
  /translate <on|off>      request translation for your outgoing messages
  /role <A|B>              switch participant
  /log                     print the conversation so far
  /status                  show connection state
  /reconnect               retry after the connection dropped
  /quit                    leave
anything else is sent as a chat message`

// parseCommand 解析一行输入；不以 / 开头的内容视为聊天消息。
func parseCommand(line string) (command, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return command{kind: cmdSay, text: trimmed}, nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(trimmed, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "lang":
		lang, err := chat.ParseLanguage(strings.ToLower(arg))
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdLang, lang: lang}, nil
	case "translate":
		switch strings.ToLower(arg) {
		case "on":
			return command{kind: cmdTranslate, on: true}, nil
		case "off":
			return command{kind: cmdTranslate, on: false}, nil
		}
		return command{}, fmt.Errorf("usage: /translate on|off")
	case "role":
		role, err := chat.ParseRole(strings.ToUpper(arg))
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdRole, role: role}, nil
	case "log":
		return command{kind: cmdLog}, nil
	case "status":
		return command{kind: cmdStatus}, nil
	case "reconnect":
		return command{kind: cmdReconnect}, nil
	case "help", "?":
		return command{kind: cmdHelp}, nil
	case "quit", "exit":
		return command{kind: cmdQuit}, nil
	}
	return command{}, fmt.Errorf("unknown command /%s, try /help", name)
}
