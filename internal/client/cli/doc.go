// Package cli provides the interactive finsync command-line client.
//
// It wires configuration, the local queue, the import engine and an
// interactive REPL. Records are captured offline (typed in, pasted from a
// bank alert or read from an mbox export) and uploaded with "import" once
// the server is reachable. A background watcher pings the server and flips
// the prompt between online and offline.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
