// Command mergeindex-shell is an interactive REPL for driving a
// MergeIndex by hand: register sources, feed pages, trigger failures,
// and drain the merged rowset, useful for poking at the engine's
// behavior without wiring a real transport.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/kartikbazzad/mergeindex/internal/config"
	"github.com/kartikbazzad/mergeindex/internal/logger"
	"github.com/kartikbazzad/mergeindex/internal/mergeindex"
	"github.com/kartikbazzad/mergeindex/internal/types"
)

const prompt = "mergeindex> "

func main() {
	log := logger.Default()
	cfg := config.Load()

	mi := mergeindex.New(mergeindex.Options{
		Variant:       mergeindex.Sorted,
		Comparator:    func(a, b types.Row) int { return bytes.Compare(a.Key, b.Key) },
		CacheCapacity: cfg.MaxFetchSize,
		Logger:        log,
	})
	defer mi.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("mergeindex shell. Type .help for commands.")
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return
			}
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if execute(mi, input) {
			return
		}
	}
}

// execute runs one command line and reports whether the shell should exit.
func execute(mi *mergeindex.MergeIndex, input string) bool {
	fields := strings.Fields(input)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ".help":
		printHelp()
	case ".exit", ".quit":
		return true
	case ".register":
		cmdRegister(mi, args)
	case ".page":
		cmdPage(mi, args)
	case ".fail":
		cmdFail(mi, args)
	case ".failsource":
		cmdFailSource(mi, args)
	case ".find":
		cmdFind(mi)
	case ".rowcount":
		fmt.Println(mi.RowCount())
	default:
		fmt.Printf("unknown command: %s (try .help)\n", cmd)
	}
	return false
}

func printHelp() {
	fmt.Print(`commands:
  .register <sourceID>                register a contributing source
  .page <sourceID> <allRows|-> <k1,k2,...>
                                       admit a page of rows (keys are single bytes)
  .fail <message>                     fail the whole index
  .failsource <sourceID> <message>    fail a single source (fails the whole index)
  .find                               drain and print the merged rowset
  .rowcount                           print expected rows (sum of allRows seen)
  .exit                               leave the shell
`)
}

func cmdRegister(mi *mergeindex.MergeIndex, args []string) {
	id, err := parseSource(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := mi.RegisterSource(id); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("registered source %d\n", id)
}

func cmdPage(mi *mergeindex.MergeIndex, args []string) {
	if len(args) < 3 {
		fmt.Println(".page <sourceID> <allRows|-> <k1,k2,...>")
		return
	}
	id, err := parseSource(args[:1])
	if err != nil {
		fmt.Println(err)
		return
	}

	var allRows *int
	if args[1] != "-" {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Printf("bad allRows %q: %v\n", args[1], err)
			return
		}
		allRows = &n
	}

	keys := strings.Split(args[2], ",")
	rows := make([]types.Row, 0, len(keys))
	for _, k := range keys {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || n < 0 || n > 255 {
			fmt.Printf("bad key %q: must be 0-255\n", k)
			return
		}
		rows = append(rows, types.Row{Key: []byte{byte(n)}})
	}

	if err := mi.AddPage(types.NewResultPage(id, rows, allRows, nil)); err != nil {
		fmt.Printf("AddPage: %v\n", err)
		return
	}
	fmt.Printf("admitted %d rows from source %d\n", len(rows), id)
}

func cmdFail(mi *mergeindex.MergeIndex, args []string) {
	msg := "shell-triggered failure"
	if len(args) > 0 {
		msg = strings.Join(args, " ")
	}
	mi.Fail(fmt.Errorf("%s", msg))
	fmt.Println("index failed")
}

func cmdFailSource(mi *mergeindex.MergeIndex, args []string) {
	if len(args) < 1 {
		fmt.Println(".failsource <sourceID> <message>")
		return
	}
	id, err := parseSource(args[:1])
	if err != nil {
		fmt.Println(err)
		return
	}
	msg := "shell-triggered source failure"
	if len(args) > 1 {
		msg = strings.Join(args[1:], " ")
	}
	mi.FailSource(id, fmt.Errorf("%s", msg))
	fmt.Printf("source %d failed\n", id)
}

func cmdFind(mi *mergeindex.MergeIndex) {
	ctx := context.Background()
	cur, err := mi.Find(ctx, nil, nil)
	if err != nil {
		fmt.Printf("Find: %v\n", err)
		return
	}
	n := 0
	for cur.Next(ctx) {
		fmt.Printf("row %d: key=%v\n", n, cur.Row().Key)
		n++
	}
	if err := cur.Err(); err != nil {
		fmt.Printf("query failed: %v\n", err)
		return
	}
	fmt.Printf("%d rows\n", n)
}

func parseSource(args []string) (types.SourceID, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing source id")
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad source id %q: %w", args[0], err)
	}
	return types.SourceID(n), nil
}
