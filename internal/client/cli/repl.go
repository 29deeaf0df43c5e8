package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Me(ctx context.Context) error
	Fetch(ctx context.Context, key, path string) error
	Logout(ctx context.Context) error
}

// runREPL reads one command per line and dispatches it to a. The loop exits
// on scanner EOF or when the user types "exit" or "quit". Handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("emo%s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, fetch <key> [file], logout, exit")
			} else {
				printlnFn("Available commands: register, login, fetch <key> [file], exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "me":
			_ = a.Me(ctx)

		case "fetch":
			if len(args) == 0 {
				printlnFn("Usage: fetch <key> [file]")
				continue
			}
			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			_ = a.Fetch(ctx, args[0], path)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
