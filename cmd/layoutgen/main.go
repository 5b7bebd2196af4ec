// layoutgen writes and checks universe seed layouts.
//
// Usage:
//
//	go run ./cmd/layoutgen <command> [flags]
//
// Commands: grid, check
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/universe/internal/data"
)

func printUsage() {
	fmt.Println("Usage: layoutgen <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  grid    write a synthetic layout (-roots, -children, -entities, -out)")
	fmt.Println("  check   validate a layout file and print its counts (-in)")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	commands := map[string]func([]string) error{
		"grid":  runGrid,
		"check": runCheck,
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func runGrid(args []string) error {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	roots := fs.Int("roots", 4, "root chunks")
	children := fs.Int("children", 8, "leaf chunks per root")
	entities := fs.Int("entities", 16, "entities per leaf chunk")
	out := fs.String("out", filepath.Join("data", "yaml", "universe.yaml"), "output file")
	_ = fs.Parse(args)

	if *roots < 0 || *children < 0 || *entities < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	l := data.GridLayout(*roots, *children, *entities)
	if err := l.Validate(); err != nil {
		return err
	}
	comment := fmt.Sprintf("# generated by layoutgen: %d roots x %d children x %d entities",
		*roots, *children, *entities)
	if err := writeYAML(*out, l, comment); err != nil {
		return err
	}
	chunks, ents := l.Counts()
	fmt.Printf("wrote %s (%d chunks, %d entities)\n", *out, chunks, ents)
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	in := fs.String("in", filepath.Join("data", "yaml", "universe.yaml"), "layout file")
	_ = fs.Parse(args)

	l, err := data.LoadLayout(*in)
	if err != nil {
		return err
	}
	chunks, ents := l.Counts()
	fmt.Printf("%s: ok (%d roots, %d chunks, %d entities)\n", *in, len(l.Roots), chunks, ents)
	return nil
}

func writeYAML(path string, l *data.Layout, comment string) error {
	out, err := l.Marshal()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if comment != "" {
		fmt.Fprintln(f, comment)
		fmt.Fprintln(f)
	}
	_, err = f.Write(out)
	return err
}
