package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/dgraph-io/badger/v4"
)

// Dumps the badger store (listing cooldowns and processed order hashes)
// for debugging. Cooldown values are big-endian unix timestamps.
func main() {
	dbPath := flag.String("d", "./db/badger", "Path to the badger directory")
	outputMode := flag.String("o", "console", "Output mode: 'console' or 'file'")
	outputFile := flag.String("f", "dump.txt", "Output file (if mode is 'file')")
	flag.Parse()

	var out *os.File
	var err error

	if *outputMode == "file" {
		out, err = os.Create(*outputFile)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer out.Close()
	} else {
		out = os.Stdout
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath))
	if err != nil {
		log.Fatalf("Failed to open BadgerDB: %v", err)
	}
	defer db.Close()

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			keyStr := string(item.Key())

			err := item.Value(func(val []byte) error {
				fmt.Fprintf(out, "Key: %s\n", keyStr)

				switch {
				case strings.HasPrefix(keyStr, "cooldown:") && len(val) == 8:
					ts := int64(binary.BigEndian.Uint64(val))
					fmt.Fprintf(out, "  Listed at: %s\n", time.Unix(ts, 0).UTC().Format(time.RFC3339))
				case strings.HasPrefix(keyStr, "order:"):
					fmt.Fprintf(out, "  Processed order marker\n")
				case len(val) == 8:
					fmt.Fprintf(out, "  Value (uint64): %d\n", binary.BigEndian.Uint64(val))
				case isPrintable(val):
					fmt.Fprintf(out, "  Value (String): %s\n", string(val))
				default:
					fmt.Fprintf(out, "  Value (Hex): %s\n", hex.EncodeToString(val))
				}

				if item.ExpiresAt() > 0 {
					fmt.Fprintf(out, "  Expires: %s\n", time.Unix(int64(item.ExpiresAt()), 0).UTC().Format(time.RFC3339))
				}
				fmt.Fprintln(out, "-------------------------")
				return nil
			})
			if err != nil {
				fmt.Fprintf(out, "  [ERROR] Could not read value: %v\n", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error while iterating: %v", err)
	}

	fmt.Println("Dump complete.")
}

func isPrintable(data []byte) bool {
	for _, b := range data {
		if !unicode.IsPrint(rune(b)) {
			return false
		}
	}
	return len(data) > 0
}
