package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"peerdesk/domain"
	"peerdesk/repositories"
)

func main() {
	dbPath := flag.String("db", "./peerdesk-data", "Path to badger DB")
	prefix := flag.String("prefix", "chat:", "Prefix to scan (chat: or ws:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Session", "Sender", "Detail"})
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

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				switch {
				case strings.HasPrefix(rawKey, "chat:"):
					var entry repositories.ChatEntry
					if err := json.Unmarshal(v, &entry); err != nil {
						fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
						return nil
					}
					table.Append([]string{
						rawKey,
						"CHAT",
						entry.At.Format("15:04:05"),
						entry.Code,
						entry.Sender,
						truncateDetail(entry.Text),
					})
				case strings.HasPrefix(rawKey, "ws:"):
					var snap domain.WorkspaceData
					if err := json.Unmarshal(v, &snap); err != nil {
						fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
						return nil
					}
					table.Append([]string{
						rawKey,
						"SNAPSHOT",
						"",
						strings.TrimPrefix(rawKey, "ws:"),
						snap.HostName,
						fmt.Sprintf("%d files, active=%s", len(snap.Files), snap.ActiveFile),
					})
				default:
					table.Append([]string{rawKey, "RAW", "", "", "", fmt.Sprintf("%d bytes", len(v))})
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func truncateDetail(s string) string {
	if len(s) > 60 {
		return s[:60] + "…"
	}
	return s
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
