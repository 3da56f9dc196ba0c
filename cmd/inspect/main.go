package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"guild-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	limit := flag.Int("limit", 0, "Maximum number of messages, 0 for all")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if err := dump(db, os.Stdout, *limit); err != nil {
		log.Fatal(err)
	}
}

// dump prints the stored messages oldest first.
func dump(db *badger.DB, w io.Writer, limit int) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Time", "ID", "Sender", "Username", "Scope", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(repositories.MessagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && count >= limit {
				return nil
			}
			item := it.Item()
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				msg, err := repositories.DecodeMessage(v)
				if err != nil {
					fmt.Fprintf(w, "Error decoding key %s: %v\n", rawKey, err)
					return nil
				}

				scope := "all"
				if msg.ClanID != nil {
					scope = "clan:" + *msg.ClanID
				}
				if msg.RecipientID != nil {
					scope = "to:" + *msg.RecipientID
				}

				table.Append([]string{
					rawKey,
					msg.CreatedAt.Format("15:04:05"),
					msg.ID.String()[:8],
					msg.SenderID,
					msg.Username,
					scope,
					msg.Content,
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	return nil
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Log truncate required") {
			// A write open truncates the log, then we go back to read-only.
			repaired, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil).WithBypassLockGuard(true))
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = repaired.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
