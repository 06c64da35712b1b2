package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/StratumDB/stratum/pkg/codec"
	"github.com/StratumDB/stratum/pkg/common/log"
	"github.com/StratumDB/stratum/pkg/db"
	"github.com/StratumDB/stratum/pkg/kv"
	"github.com/StratumDB/stratum/pkg/store"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".open"),
	readline.PcItem(".close"),
	readline.PcItem(".exit"),
	readline.PcItem(".stats"),
	readline.PcItem("USE"),
	readline.PcItem("GET"),
	readline.PcItem("SNAPSHOT"),
	readline.PcItem("ADD"),
	readline.PcItem("PUT",
		readline.PcItem("MERGE"),
	),
	readline.PcItem("UPDATE"),
	readline.PcItem("DELETE"),
	readline.PcItem("SCAN"),
)

const helpText = `
Stratum (stratum) - A transactional record store.

Usage:
  stratum [options] [database_path]  - Start with an optional database path

Options:
  -log-level string       - Log level: debug, info, warn, error (default "info")
  -compression string     - Record compression: none, snappy, zstd (default "snappy")

Commands (interactive mode only):
  .help                   - Show this help message
  .open PATH              - Open a database at PATH
  .close                  - Close the current database
  .exit                   - Exit the program
  .stats                  - Show database statistics

  USE store               - Select the record store for subsequent commands

  ADD key value           - Add a record if the key is absent
  PUT key value           - Store a record, replacing any existing value
  PUT MERGE key value     - Store a record, merging into any existing value
  UPDATE key value        - Merge into an existing record; absent keys are skipped
  GET key [key ...]       - Show record values ("<nil>" for absent keys)
  SNAPSHOT key [key ...]  - Show record values with their revisions
  DELETE key [key ...]    - Delete records, reporting which keys existed

  SCAN                    - List every record in the current store in key order
  SCAN prefix             - List records whose key starts with prefix

Values are parsed as JSON when possible, otherwise taken as plain strings.
`

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Stratum - A transactional record store\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: stratum [options] [database_path]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nFor interactive commands, start stratum and type .help\n")
	}

	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	compression := flag.String("compression", "snappy", "Record compression: none, snappy, zstd")
	flag.Parse()

	logger := log.New(log.WithLevel(log.ParseLevel(*logLevel)))

	comp, err := parseCompression(*compression)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	var dbPath string
	if flag.NArg() > 0 {
		dbPath = flag.Arg(0)
	}

	var database *db.DB
	if dbPath != "" {
		database, err = openDB(dbPath, comp, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %s\n", err)
			os.Exit(1)
		}
		defer database.Close()
	}

	runInteractive(database, dbPath, comp, logger)
}

func parseCompression(name string) (codec.Compression, error) {
	switch strings.ToLower(name) {
	case "none":
		return codec.NoCompression, nil
	case "snappy":
		return codec.Snappy, nil
	case "zstd":
		return codec.Zstd, nil
	default:
		return codec.NoCompression, fmt.Errorf("unknown compression %q", name)
	}
}

func openDB(path string, comp codec.Compression, logger log.Logger) (*db.DB, error) {
	cfg := db.DefaultConfig(path)
	cfg.Compression = comp
	cfg.Logger = logger
	return db.Open(cfg)
}

// parseValue interprets a value argument as JSON, falling back to a plain
// string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func renderValue(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}

// runInteractive starts the interactive CLI mode
func runInteractive(database *db.DB, dbPath string, comp codec.Compression, logger log.Logger) {
	fmt.Println("Stratum (stratum) version 1.0.0")
	fmt.Println("Enter .help for usage hints.")

	ctx := context.Background()
	current := "records"

	historyFile := filepath.Join(os.TempDir(), ".stratum_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "stratum> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		if dbPath != "" {
			rl.SetPrompt(fmt.Sprintf("stratum:%s/%s> ", dbPath, current))
		} else {
			rl.SetPrompt("stratum> ")
		}

		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					break
				}
				continue
			} else if readErr == io.EOF {
				fmt.Println("Goodbye!")
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", readErr)
			continue
		}

		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToUpper(parts[0])

		// Special dot commands
		if strings.HasPrefix(cmd, ".") {
			switch strings.ToLower(cmd) {
			case ".help":
				fmt.Print(helpText)

			case ".open":
				if len(parts) < 2 {
					fmt.Println("Error: Missing path argument")
					continue
				}
				if database != nil {
					database.Close()
				}
				dbPath = parts[1]
				database, err = openDB(dbPath, comp, logger)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error opening database: %s\n", err)
					dbPath = ""
					database = nil
					continue
				}
				fmt.Printf("Database opened at %s\n", dbPath)

			case ".close":
				if database == nil {
					fmt.Println("No database open")
					continue
				}
				if err := database.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Error closing database: %s\n", err)
				} else {
					fmt.Printf("Database %s closed\n", dbPath)
					database = nil
					dbPath = ""
				}

			case ".exit":
				if database != nil {
					database.Close()
				}
				fmt.Println("Goodbye!")
				return

			case ".stats":
				if database == nil {
					fmt.Println("No database open")
					continue
				}
				printStats(database.GetStats())

			default:
				fmt.Printf("Unknown command: %s\n", cmd)
			}
			continue
		}

		if cmd == "USE" {
			if len(parts) < 2 {
				fmt.Println("Error: USE requires a store name")
				continue
			}
			current = parts[1]
			fmt.Printf("Using store %s\n", current)
			continue
		}

		if database == nil {
			fmt.Println("Error: No database open")
			continue
		}

		records := store.NewStore[string, any](current)

		switch cmd {
		case "ADD":
			if len(parts) < 3 {
				fmt.Println("Error: ADD requires key and value arguments")
				continue
			}
			value := parseValue(strings.Join(parts[2:], " "))
			added, err := records.Records(parts[1:2]).Add(ctx, database, []any{value})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error adding record: %s\n", err)
			} else if added[0] == nil {
				fmt.Println("Key already exists, record unchanged")
			} else {
				fmt.Println("Record added")
			}

		case "PUT":
			args := parts[1:]
			merge := false
			if len(args) > 0 && strings.ToUpper(args[0]) == "MERGE" {
				merge = true
				args = args[1:]
			}
			if len(args) < 2 {
				fmt.Println("Error: PUT requires key and value arguments")
				continue
			}
			value := parseValue(strings.Join(args[1:], " "))
			var opts []store.PutOption
			if merge {
				opts = append(opts, store.WithMerge())
			}
			stored, err := records.Records(args[0:1]).Put(ctx, database, []any{value}, opts...)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error putting record: %s\n", err)
			} else {
				fmt.Printf("%s\n", renderValue(stored[0]))
			}

		case "UPDATE":
			if len(parts) < 3 {
				fmt.Println("Error: UPDATE requires key and value arguments")
				continue
			}
			value := parseValue(strings.Join(parts[2:], " "))
			updated, err := records.Records(parts[1:2]).Update(ctx, database, []any{value})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error updating record: %s\n", err)
			} else if updated[0] == nil {
				fmt.Println("Key not found, record unchanged")
			} else {
				fmt.Printf("%s\n", renderValue(*updated[0]))
			}

		case "GET":
			if len(parts) < 2 {
				fmt.Println("Error: GET requires at least one key argument")
				continue
			}
			values, err := records.Records(parts[1:]).Get(ctx, database)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting records: %s\n", err)
				continue
			}
			for i, v := range values {
				if v == nil {
					fmt.Printf("%s: <nil>\n", parts[1+i])
				} else {
					fmt.Printf("%s: %s\n", parts[1+i], renderValue(*v))
				}
			}

		case "SNAPSHOT":
			if len(parts) < 2 {
				fmt.Println("Error: SNAPSHOT requires at least one key argument")
				continue
			}
			snaps, err := records.Records(parts[1:]).GetSnapshots(ctx, database)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting snapshots: %s\n", err)
				continue
			}
			for i, s := range snaps {
				if s == nil {
					fmt.Printf("%s: <nil>\n", parts[1+i])
				} else {
					fmt.Printf("%s@%d: %s\n", parts[1+i], s.Revision(), renderValue(s.Value()))
				}
			}

		case "DELETE":
			if len(parts) < 2 {
				fmt.Println("Error: DELETE requires at least one key argument")
				continue
			}
			deleted, err := records.Records(parts[1:]).Delete(ctx, database)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error deleting records: %s\n", err)
				continue
			}
			count := 0
			for _, k := range deleted {
				if k != nil {
					count++
				}
			}
			fmt.Printf("%d of %d records deleted\n", count, len(deleted))

		case "SCAN":
			var prefix []byte
			if len(parts) > 1 {
				prefix = []byte(parts[1])
			}
			count := 0
			err := database.View(ctx, func(tx kv.Tx) error {
				bucket, err := tx.Bucket([]byte(current))
				if err != nil {
					return err
				}
				cursor, err := bucket.Cursor()
				if err != nil {
					return err
				}
				for k, v := cursor.Seek(prefix); k != nil; k, v = cursor.Next() {
					if prefix != nil && !strings.HasPrefix(string(k), string(prefix)) {
						break
					}
					rev, payload, err := database.Codec().Decode(v)
					if err != nil {
						return err
					}
					fmt.Printf("%s@%d: %s\n", k, rev, payload)
					count++
				}
				return nil
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error scanning store: %s\n", err)
				continue
			}
			fmt.Printf("%d records found\n", count)

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

// printStats renders the combined database statistics
func printStats(stats map[string]interface{}) {
	getUint64 := func(key string) uint64 {
		switch v := stats[key].(type) {
		case uint64:
			return v
		case int64:
			return uint64(v)
		case int:
			return uint64(v)
		}
		return 0
	}

	fmt.Println("Operations:")
	for _, op := range []string{"add", "put", "update", "delete", "get", "snapshot"} {
		if n := getUint64(op + "_ops"); n > 0 {
			fmt.Printf("  %-9s %d\n", op, n)
		}
	}

	fmt.Println("Transactions:")
	fmt.Printf("  started   %d\n", getUint64("tx_started"))
	fmt.Printf("  completed %d\n", getUint64("tx_completed"))
	fmt.Printf("  aborted   %d\n", getUint64("tx_aborted"))

	for _, op := range []string{"add", "put", "update", "delete", "get", "snapshot"} {
		latency, ok := stats[op+"_latency"].(map[string]interface{})
		if !ok {
			continue
		}
		if avgNs, ok := latency["avg_ns"].(uint64); ok {
			fmt.Printf("Latency (%s avg): %.2f ms\n", op, float64(avgNs)/float64(time.Millisecond))
		}
	}

	if errorsMap, ok := stats["errors"].(map[string]uint64); ok && len(errorsMap) > 0 {
		fmt.Println("Errors:")
		for errType, count := range errorsMap {
			fmt.Printf("  %s: %d\n", errType, count)
		}
	}
}
