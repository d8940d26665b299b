package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"openenterprise/dualbank/config"
)

// repl is the interactive command loop for one device directory, modeled
// on the teacher lineage's liner-based REPL command loop but driving a
// local simulated device instead of a telnet console.
type repl struct {
	dir     string
	profile config.Profile
	dev     *Device
	liner   *liner.State
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bootctl_history")
}

// runREPL opens (or offers to initialize) the device directory and starts
// the interactive loop.
func runREPL(dir string, profile config.Profile) error {
	dev, err := OpenDevice(dir, profile)
	if err != nil {
		fmt.Printf("no initialized device at %s yet (%v)\n", dir, err)
		fmt.Print("initialize a new one with a factory image now? (path, or blank to abort): ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		path := strings.TrimSpace(line)
		if path == "" {
			return fmt.Errorf("aborted: no device to drive")
		}
		dev, err = InitDevice(dir, profile)
		if err != nil {
			return err
		}
		if err := cmdInit(dir, path, dev); err != nil {
			return err
		}
	}

	r := &repl{dir: dir, profile: profile, dev: dev}
	return r.run()
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()
	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFilePath()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("bootctl repl - %s\n", r.dir)
	fmt.Println("Type 'help' for commands, 'exit' to quit.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("bootctl> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nbye")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		if cmd == "exit" || cmd == "quit" || cmd == "q" {
			fmt.Println("bye")
			break
		}
		if err := r.dispatch(cmd, args); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}

	r.saveHistory()
	return nil
}

func (r *repl) dispatch(cmd string, args []string) error {
	vw := vectorWindow(r.profile)
	switch cmd {
	case "help", "?":
		r.printHelp()
		return nil
	case "status":
		return cmdStatus(r.dev)
	case "boot":
		return cmdBoot(r.dev, vw, newLogger(false))
	case "confirm":
		return cmdConfirm(r.dev)
	case "reject":
		if !confirmDestructive("force-reject the active image") {
			return fmt.Errorf("aborted")
		}
		return cmdReject(r.dev)
	case "ingest":
		if len(args) < 1 {
			return fmt.Errorf("usage: ingest <image-file>")
		}
		return cmdIngest(r.dev, args[0])
	case "inspect":
		if len(args) < 1 {
			return fmt.Errorf("usage: inspect <image-file>")
		}
		return cmdInspect(args[0], vw)
	case "make-image":
		if len(args) < 1 {
			return fmt.Errorf("usage: make-image <out.img> [major] [minor] [patch] [size]")
		}
		major, minor, patch, size := uint16(1), uint16(0), uint16(0), 4096
		if len(args) > 1 {
			major = parseUint16(args[1])
		}
		if len(args) > 2 {
			minor = parseUint16(args[2])
		}
		if len(args) > 3 {
			patch = parseUint16(args[3])
		}
		if len(args) > 4 {
			if n, err := strconv.Atoi(args[4]); err == nil {
				size = n
			}
		}
		return cmdMakeImage(args[0], major, minor, patch, size, vw)
	case "clear", "cls":
		fmt.Print("\033[H\033[2J")
		return nil
	default:
		return fmt.Errorf("unknown command %q (type 'help')", cmd)
	}
}

func parseUint16(s string) uint16 {
	n, _ := strconv.ParseUint(s, 10, 16)
	return uint16(n)
}

func (r *repl) printHelp() {
	fmt.Println("commands:")
	fmt.Println("  status                               dump both slots and the swap bit")
	fmt.Println("  boot                                  run one boot.Engine decision cycle")
	fmt.Println("  confirm                               confirm the active image")
	fmt.Println("  reject                                force-reject the active image (test only)")
	fmt.Println("  ingest <image-file>                   program the inactive slot")
	fmt.Println("  inspect <image-file>                  validate a raw image file")
	fmt.Println("  make-image <out> [maj min pat size]   build a synthetic test image")
	fmt.Println("  clear                                 clear the screen")
	fmt.Println("  exit                                  leave the REPL")
}

func (r *repl) saveHistory() {
	path := historyFilePath()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f)
		f.Close()
	}
}

func (r *repl) completer(line string) []string {
	names := []string{"status", "boot", "confirm", "reject", "ingest", "inspect", "make-image", "clear", "exit", "help"}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, line) {
			out = append(out, n)
		}
	}
	return out
}
