// Command bootctl is an operator/test-bench CLI for the dual-bank
// rollback core: it drives a simulated two-bank flash image
// (flash.Sim + bankswap.Sim) through exactly the same packages
// (imagehdr, trailer, boot, confirm, ingest) a real bootloader and
// application use, so the whole state machine can be exercised from a
// shell without hardware. It is not the out-of-scope transport
// collaborator named in spec.md §1 — every subcommand takes a local image
// file, never a network source.
package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"openenterprise/dualbank/config"
	"openenterprise/dualbank/telemetry"
	"openenterprise/dualbank/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("missing command")
	}

	cmd := args[0]
	rest := args[1:]

	if cmd == "version" {
		fmt.Printf("bootctl %s (%s, %s) marker=%s\n", version.Version, version.GitSHA, version.BuildDate, version.BuildMarker)
		return nil
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	profilePath := fs.String("profile", "", "path to a board profile override (JWCC); default geometry otherwise")
	verbose := fs.BoolP("verbose", "v", false, "lower the log level to debug (decisions are logged at info)")

	switch cmd {
	case "inspect":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 1, func(a []string) error {
			profile, err := loadProfile(*profilePath)
			if err != nil {
				return err
			}
			return cmdInspect(a[0], vectorWindow(profile))
		})

	case "make-image":
		major := fs.Uint16("major", 1, "image major version")
		minor := fs.Uint16("minor", 0, "image minor version")
		patch := fs.Uint16("patch", 0, "image patch version")
		size := fs.Int("size", 4096, "synthetic body size in bytes")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 1, func(a []string) error {
			profile, err := loadProfile(*profilePath)
			if err != nil {
				return err
			}
			return cmdMakeImage(a[0], *major, *minor, *patch, *size, vectorWindow(profile))
		})

	case "init":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 2, func(a []string) error {
			profile, err := loadProfile(*profilePath)
			if err != nil {
				return err
			}
			d, err := InitDevice(a[0], profile)
			if err != nil {
				return err
			}
			return cmdInit(a[0], a[1], d)
		})

	case "ingest":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 2, func(a []string) error {
			d, err := openDeviceArg(a[0], *profilePath)
			if err != nil {
				return err
			}
			return cmdIngest(d, a[1])
		})

	case "boot":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 1, func(a []string) error {
			d, err := openDeviceArg(a[0], *profilePath)
			if err != nil {
				return err
			}
			return cmdBoot(d, vectorWindow(d.Profile), newLogger(*verbose))
		})

	case "confirm":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 1, func(a []string) error {
			d, err := openDeviceArg(a[0], *profilePath)
			if err != nil {
				return err
			}
			return cmdConfirm(d)
		})

	case "reject":
		force := fs.Bool("force", false, "skip the interactive confirmation prompt")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 1, func(a []string) error {
			if !*force && !confirmDestructive("force-reject the active image") {
				return fmt.Errorf("aborted")
			}
			d, err := openDeviceArg(a[0], *profilePath)
			if err != nil {
				return err
			}
			return cmdReject(d)
		})

	case "status":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 1, func(a []string) error {
			d, err := openDeviceArg(a[0], *profilePath)
			if err != nil {
				return err
			}
			return cmdStatus(d)
		})

	case "repl":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return withArgs(fs, 1, func(a []string) error {
			profile, err := loadProfile(*profilePath)
			if err != nil {
				return err
			}
			return runREPL(a[0], profile)
		})

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// withArgs checks the flag set's remaining positional args before running
// fn, keeping each case's arity check in one place.
func withArgs(fs *flag.FlagSet, want int, fn func([]string) error) error {
	a := fs.Args()
	if len(a) < want {
		return fmt.Errorf("command %q needs %d argument(s), got %d", fs.Name(), want, len(a))
	}
	return fn(a)
}

func loadProfile(path string) (config.Profile, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func openDeviceArg(dir, profilePath string) (*Device, error) {
	profile, err := loadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	return OpenDevice(dir, profile)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	ring := telemetry.NewRing(256)
	h := telemetry.NewSlogHandler(os.Stderr, ring, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func printUsage() {
	fmt.Println("bootctl - dual-bank rollback test bench")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bootctl make-image [--major M --minor N --patch P --size B] <out.img>")
	fmt.Println("  bootctl inspect <image-file>")
	fmt.Println("  bootctl init <device-dir> <factory-image>")
	fmt.Println("  bootctl ingest <device-dir> <image-file>")
	fmt.Println("  bootctl boot [-v] <device-dir>")
	fmt.Println("  bootctl confirm <device-dir>")
	fmt.Println("  bootctl reject [--force] <device-dir>")
	fmt.Println("  bootctl status <device-dir>")
	fmt.Println("  bootctl repl <device-dir>")
	fmt.Println("  bootctl version")
	fmt.Println()
	fmt.Println("All device subcommands accept --profile <file> to override the")
	fmt.Println("embedded default board geometry.")
}
