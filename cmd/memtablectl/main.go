// Command memtablectl is an interactive CLI for exercising a mutable table
// host: put, get, remove, flush into a segment, and scan a flushed segment
// back, all against one named tree at a time.
//
// Usage:
//
//	memtablectl [flags]
//
// Flags:
//
//	-c, --config string   Path to a JSONC host config file (default "memtable.jsonc")
//	-t, --tree string     Initial tree name (default "default")
//
// Commands (in REPL):
//
//	put <key> <payload>   Insert or update an entry
//	get <key>             Retrieve an entry by key
//	del <key>             Tombstone an entry
//	use <tree>            Switch the active tree, creating it if needed
//	flush                 Flush the active tree to a new segment file
//	scan <segment-path>   Print every value in a flushed segment, in order
//	len                   Count buffered keys (tombstones included) in the active tree
//	stat                  Show cumulative counters for the active tree
//	bulk <count>          Insert count sequentially-keyed entries
//	help                  Show this help
//	exit / quit / q       Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/olivine-db/lsmtable/internal/host"
	"github.com/olivine-db/lsmtable/internal/segment"
)

// entry is the value type memtablectl stores: a string key, a string
// payload, and a tombstone marker.
type entry struct {
	Key       string
	Payload   string
	Tombstone bool
}

// entryDescriptor implements lsm.Descriptor[string, entry] by comparing
// keys lexically.
type entryDescriptor struct{}

func (entryDescriptor) KeyOf(v entry) string      { return v.Key }
func (entryDescriptor) Compare(a, b string) int   { return strings.Compare(a, b) }
func (entryDescriptor) TombstoneOf(k string) entry { return entry{Key: k, Tombstone: true} }
func (entryDescriptor) IsTombstone(v entry) bool  { return v.Tombstone }

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "memtable.jsonc", "path to a JSONC host config file")
	initialTree := pflag.StringP("tree", "t", "default", "initial tree name")
	pflag.Parse()

	cfg, err := host.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	h, err := host.New[string, entry](entryDescriptor{}, cfg)
	if err != nil {
		return fmt.Errorf("creating host: %w", err)
	}

	if _, err := h.Tree(*initialTree); err != nil {
		return fmt.Errorf("creating tree %q: %w", *initialTree, err)
	}

	repl := &repl{host: h, tree: *initialTree, cfg: cfg}

	return repl.run()
}

// repl is the interactive command loop: a liner-backed prompt with history,
// a flat switch over whitespace-split commands, and plain stdout/stderr
// output.
type repl struct {
	host *host.Host[string, entry]
	tree string
	cfg  host.Config

	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".memtablectl_history")
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("memtablectl (segment_dir=%s, tree=%s)\n", r.cfg.SegmentDir, r.tree)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt(fmt.Sprintf("memtablectl[%s]> ", r.tree))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")

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
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "put":
			r.cmdPut(args)

		case "get":
			r.cmdGet(args)

		case "del", "remove":
			r.cmdDel(args)

		case "use":
			r.cmdUse(args)

		case "flush":
			r.cmdFlush(args)

		case "scan":
			r.cmdScan(args)

		case "len":
			r.cmdLen(args)

		case "stat":
			r.cmdStat(args)

		case "bulk":
			r.cmdBulk(args)

		default:
			fmt.Printf("unknown command: %s (type 'help')\n", cmd)
		}
	}

	return nil
}

func (r *repl) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}

	f, err := os.Create(path) //nolint:gosec // history file path is fixed
	if err != nil {
		return
	}
	defer f.Close()

	r.liner.WriteHistory(f)
}

func (r *repl) completer(line string) []string {
	commands := []string{"put", "get", "del", "use", "flush", "scan", "len", "stat", "bulk", "help", "exit", "quit"}

	var matches []string

	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			matches = append(matches, c)
		}
	}

	return matches
}

func (r *repl) printHelp() {
	fmt.Println(`Commands:
  put <key> <payload>   Insert or update an entry
  get <key>             Retrieve an entry by key
  del <key>             Tombstone an entry
  use <tree>            Switch the active tree, creating it if needed
  flush                 Flush the active tree to a new segment file
  scan <segment-path>   Print every value in a flushed segment, in order
  len                   Count buffered keys (tombstones included) in the active tree
  stat                  Show cumulative counters for the active tree
  bulk <count>          Insert count sequentially-keyed entries
  help                  Show this help
  exit / quit / q       Exit`)
}

func (r *repl) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: put <key> <payload>")
		return
	}

	key, payload := args[0], strings.Join(args[1:], " ")

	if err := r.host.Commit(r.tree, []entry{{Key: key, Payload: payload}}); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println("ok")
}

func (r *repl) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: get <key>")
		return
	}

	v, ok := r.host.Get(r.tree, args[0])
	if !ok {
		fmt.Println("(not found)")
		return
	}

	if v.Tombstone {
		fmt.Println("(tombstone)")
		return
	}

	fmt.Println(v.Payload)
}

func (r *repl) cmdDel(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: del <key>")
		return
	}

	if err := r.host.Commit(r.tree, []entry{{Key: args[0], Tombstone: true}}); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println("ok")
}

func (r *repl) cmdUse(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: use <tree>")
		return
	}

	if _, err := r.host.Tree(args[0]); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	r.tree = args[0]
	fmt.Printf("switched to tree %q\n", r.tree)
}

func (r *repl) cmdFlush(_ []string) {
	seg, err := r.host.Flush(r.tree)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Printf("flushed %d values to %s\n", seg.Count, seg.Path)
}

func (r *repl) cmdScan(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: scan <segment-path>")
		return
	}

	values, err := segment.Read[entry](args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	for _, v := range values {
		if v.Tombstone {
			fmt.Printf("%s\t(tombstone)\n", v.Key)
			continue
		}

		fmt.Printf("%s\t%s\n", v.Key, v.Payload)
	}
}

func (r *repl) cmdLen(_ []string) {
	tree, err := r.host.Tree(r.tree)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println(tree.Count())
}

func (r *repl) cmdStat(_ []string) {
	tree, err := r.host.Tree(r.tree)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	stats := tree.Stats()
	fmt.Printf("puts=%d flushes=%d values_flushed=%d buffered=%d\n", stats.Puts, stats.Flushes, stats.ValuesFlushed, tree.Count())
}

func (r *repl) cmdBulk(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: bulk <count>")
		return
	}

	count, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	batch := make([]entry, 0, count)

	for i := 0; i < count; i++ {
		batch = append(batch, entry{Key: fmt.Sprintf("key-%08d", i), Payload: fmt.Sprintf("payload-%d", i)})

		// Commit in chunks no larger than a single commit's worth, since a
		// single Commit batch larger than value_count_max is rejected.
		if len(batch) == r.cfg.CommitCountMax || i == count-1 {
			if err := r.host.Commit(r.tree, batch); err != nil {
				fmt.Printf("error: %v\n", err)
				return
			}

			batch = batch[:0]
		}
	}

	fmt.Printf("inserted %d entries\n", count)
}
