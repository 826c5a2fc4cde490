package terminal

import "strings"

// CommandKind identifies a slash command
type CommandKind int

const (
	// CmdNone means the line is a chat message
	CmdNone CommandKind = iota
	CmdSessions
	CmdSwitch
	CmdNew
	CmdHistory
	CmdSummary
	CmdRefresh
	CmdClear
	CmdHelp
	CmdExit
	CmdUnknown
)

// Command is a parsed input line
type Command struct {
	Kind CommandKind
	Name string
	Args []string
}

var commandNames = map[string]CommandKind{
	"sessions": CmdSessions,
	"ls":       CmdSessions,
	"switch":   CmdSwitch,
	"s":        CmdSwitch,
	"new":      CmdNew,
	"history":  CmdHistory,
	"summary":  CmdSummary,
	"refresh":  CmdRefresh,
	"clear":    CmdClear,
	"help":     CmdHelp,
	"?":        CmdHelp,
	"exit":     CmdExit,
	"quit":     CmdExit,
}

// ParseCommand classifies an input line. Lines that do not start with a
// slash are chat messages and keep their original text.
func ParseCommand(input string) Command {
	trimmed := strings.TrimSpace(input)
	if trimmed == "exit" || trimmed == "quit" {
		return Command{Kind: CmdExit, Name: trimmed}
	}
	if !strings.HasPrefix(trimmed, "/") || trimmed == "/" {
		return Command{Kind: CmdNone}
	}

	fields := strings.Fields(trimmed[1:])
	name := strings.ToLower(fields[0])
	kind, ok := commandNames[name]
	if !ok {
		kind = CmdUnknown
	}
	return Command{Kind: kind, Name: name, Args: fields[1:]}
}
