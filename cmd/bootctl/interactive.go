package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// confirmDestructive gates a hard-to-reverse simulator operation (forcing
// a REJECTED record outside the normal attempt-exhaustion path) behind an
// interactive yes/no prompt, the same pattern the teacher's cmd/cli uses
// term.IsTerminal to gate interactive password entry. A non-terminal
// stdin (scripted/CI use) is treated as "no" unless --force was passed.
func confirmDestructive(action string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s — are you sure? (yes/no): ", action)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
