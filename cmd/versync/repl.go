package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/drpcorg/versync/journal"
	"github.com/ergochat/readline"
)

// REPL inspects diff journals.
type REPL struct {
	j  *journal.Journal
	rl *readline.Instance
}

var ErrNotOpen = errors.New("no journal open")

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("open"),
	readline.PcItem("close"),
	readline.PcItem("streams"),
	readline.PcItem("list"),
	readline.PcItem("show"),
	readline.PcItem("truncate"),
	readline.PcItem("stats"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func (repl *REPL) Open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◇ ",
		HistoryFile:     ".versync_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.j != nil {
		_ = repl.j.Close()
		repl.j = nil
	}
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

// REPL reads and runs one command.
func (repl *REPL) REPL() (err error) {
	var line string
	line, err = repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}
	return repl.Run(line)
}

func (repl *REPL) Run(line string) (err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "open":
		err = repl.CommandOpen(args)
	case "close":
		err = repl.CommandClose(args)
	case "streams":
		err = repl.CommandStreams(args)
	case "ls", "list":
		err = repl.CommandList(args)
	case "cat", "show":
		err = repl.CommandShow(args)
	case "truncate":
		err = repl.CommandTruncate(args)
	case "stats":
		err = repl.CommandStats(args)
	case "help":
		repl.CommandHelp()
	case "exit", "quit":
		if repl.j != nil {
			err = repl.CommandClose(nil)
		}
		if err == nil {
			err = io.EOF
		}
	default:
		_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
	}
	return
}
