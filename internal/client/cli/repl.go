package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Add(ctx context.Context) error
	List(ctx context.Context) error
	Import(ctx context.Context, background bool) error
	ShowProgress(ctx context.Context) error
	ResetProgress(ctx context.Context) error
	Clear(ctx context.Context) error
	PasteEmail(ctx context.Context) error
	ImportMbox(ctx context.Context, path string) error
	Delete(ctx context.Context, clientID string) error
	SetToken(ctx context.Context) error
	Ping(ctx context.Context) error
}

const helpText = "Available commands: add, (l)ist, import [bg], progress, reset, clear, paste, mbox <file>, " +
	"delete <clientId>, token, ping, exit"

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
//	add             queue a transaction typed in by hand
//	list            show unsynced records
//	import [bg]     upload the queue, optionally in the background
//	progress        show the state of the current or last import
//	reset           forget the last import outcome
//	clear           drop records the server already accepted
//	paste           capture a pasted bank alert e-mail
//	mbox <file>     capture every alert in an mbox export
//	delete <id>     drop an unsynced record by client id
//	token           set the access token (hidden input)
//	ping            check the server
//
// Handlers report their own errors; the REPL only prints them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("finsync %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "add":
			cmdErr = a.Add(ctx)

		case "l", "list":
			cmdErr = a.List(ctx)

		case "import", "sync":
			cmdErr = a.Import(ctx, len(args) > 0 && args[0] == "bg")

		case "progress":
			cmdErr = a.ShowProgress(ctx)

		case "reset":
			cmdErr = a.ResetProgress(ctx)

		case "clear":
			cmdErr = a.Clear(ctx)

		case "paste":
			cmdErr = a.PasteEmail(ctx)

		case "mbox":
			if len(args) == 0 {
				printlnFn("Usage: mbox <file>")
				continue
			}
			cmdErr = a.ImportMbox(ctx, strings.Join(args, " "))

		case "delete":
			if len(args) == 0 {
				printlnFn("Usage: delete <clientId>")
				continue
			}
			cmdErr = a.Delete(ctx, args[0])

		case "token":
			cmdErr = a.SetToken(ctx)

		case "ping":
			cmdErr = a.Ping(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
	}
}
