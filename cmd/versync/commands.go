package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/drpcorg/versync/journal"
	"github.com/drpcorg/versync/protocol"
)

var HelpOpen = errors.New("open path/to/journal")

func (repl *REPL) CommandOpen(args []string) (err error) {
	if len(args) != 1 {
		return HelpOpen
	}
	if repl.j != nil {
		_ = repl.j.Close()
		repl.j = nil
	}
	repl.j, err = journal.Open(args[0], journal.Options{})
	if err == nil {
		fmt.Printf("journal %s opened, id %s\n", args[0], repl.j.ID())
	}
	return
}

func (repl *REPL) CommandClose(args []string) (err error) {
	if repl.j == nil {
		return ErrNotOpen
	}
	err = repl.j.Close()
	repl.j = nil
	if err == nil {
		fmt.Printf("journal closed\n")
	}
	return
}

func (repl *REPL) CommandStreams(args []string) error {
	if repl.j == nil {
		return ErrNotOpen
	}
	names, err := repl.j.Streams()
	for _, name := range names {
		last, _ := repl.j.Last(name)
		fmt.Printf("%s\t%d\n", name, last)
	}
	return err
}

func parseVersion(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

var HelpList = errors.New("list stream [from [to]]")

func (repl *REPL) CommandList(args []string) (err error) {
	if repl.j == nil {
		return ErrNotOpen
	}
	if len(args) < 1 || len(args) > 3 {
		return HelpList
	}
	from, to := uint64(0), uint64(math.MaxUint64)
	if len(args) > 1 {
		if from, err = parseVersion(args[1]); err != nil {
			return HelpList
		}
	}
	if len(args) > 2 {
		if to, err = parseVersion(args[2]); err != nil {
			return HelpList
		}
	}
	return repl.j.Range(args[0], from, to, func(pkt protocol.DiffPacket) error {
		fmt.Println(pkt.String())
		return nil
	})
}

var HelpShow = errors.New("show stream version")

// CommandShow prints the diff of the packet ending at the version.
func (repl *REPL) CommandShow(args []string) error {
	if repl.j == nil {
		return ErrNotOpen
	}
	if len(args) != 2 {
		return HelpShow
	}
	to, err := parseVersion(args[1])
	if err != nil || to == 0 {
		return HelpShow
	}
	found := false
	err = repl.j.Range(args[0], to-1, to, func(pkt protocol.DiffPacket) error {
		found = true
		diff, err := protocol.DecodeDiff(pkt.Body)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(diff, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\n", pkt.String(), out)
		return nil
	})
	if err == nil && !found {
		_, _ = fmt.Fprintf(os.Stderr, "no packet %s@%d\n", args[0], to)
	}
	return err
}

var HelpTruncate = errors.New("truncate stream version")

func (repl *REPL) CommandTruncate(args []string) error {
	if repl.j == nil {
		return ErrNotOpen
	}
	if len(args) != 2 {
		return HelpTruncate
	}
	upTo, err := parseVersion(args[1])
	if err != nil {
		return HelpTruncate
	}
	return repl.j.Truncate(args[0], upTo)
}

func (repl *REPL) CommandStats(args []string) error {
	if repl.j == nil {
		return ErrNotOpen
	}
	fmt.Println(repl.j.Metrics().String())
	return nil
}

func (repl *REPL) CommandHelp() {
	for _, help := range []error{HelpOpen, HelpList, HelpShow, HelpTruncate} {
		fmt.Println(help.Error())
	}
	fmt.Println("streams\nstats\nclose\nexit")
}
