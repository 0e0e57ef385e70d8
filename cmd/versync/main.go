package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	repl := REPL{}
	if err := repl.Open(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	var err error
	if len(os.Args) > 1 {
		err = repl.CommandOpen(os.Args[1:2])
	}
	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
		}
		err = repl.REPL()
	}
	_ = repl.Close()
}
