package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	var (
		dbPath string
		prefix string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump stored records of a stopped hub",
		Long: `inspect opens the badger directory read-only and prints every record
under a key prefix: order:, reservation:, chat:session:, chat:msg:<session>:, notif:<user>:`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := badger.Open(badger.DefaultOptions(dbPath).WithReadOnly(true).WithLogger(nil))
			if err != nil {
				return fmt.Errorf("open badger at %s: %w", dbPath, err)
			}
			defer db.Close()
			return inspect(db, cmd.OutOrStdout(), prefix, limit)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "path to the badger directory (BADGER_FILEPATH of the hub)")
	cmd.Flags().StringVar(&prefix, "prefix", "order:", "key prefix to scan")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows printed")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func inspect(db *badger.DB, w io.Writer, prefix string, limit int) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Kind", "Status", "Created", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p) && rows < limit; it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				table.Append(recordRow(key, v))
				return nil
			})
			if err != nil {
				return err
			}
			rows++
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	fmt.Fprintf(w, "\n%d record(s) under %q\n", rows, prefix)
	return nil
}

// recordRow summarises one stored JSON record. Values that do not decode
// are still listed so a corrupted key stays visible.
func recordRow(key string, value []byte) []string {
	kind, _, _ := strings.Cut(key, ":")
	var record map[string]any
	if err := json.Unmarshal(value, &record); err != nil {
		return []string{key, kind, "", "", fmt.Sprintf("undecodable: %v", err)}
	}
	field := func(name string) string {
		if v, ok := record[name]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	detail := field("content")
	if detail == "" {
		detail = field("title")
	}
	if detail == "" {
		detail = field("customerId")
	}
	return []string{key, kind, field("status"), field("createdAt"), truncate(detail, 60)}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
