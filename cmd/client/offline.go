package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Emperor-Koala/ekreader/internal/client/offline"
)

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <book-id>",
		Short: "Download a book for offline reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := cli.catalog.Book(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			err = cli.offline.Download(cmd.Context(), *book, func(p offline.Progress) {
				if p.Total <= 0 {
					return
				}
				pct := int(p.Written * 100 / p.Total)
				// The final 100% tick is dropped; the bar resets on settle.
				if pct >= 100 {
					return
				}
				fmt.Fprintf(os.Stderr, "\rDownloading... %3d%%", pct)
			})
			fmt.Fprint(os.Stderr, "\r\033[K")
			if err != nil {
				return err
			}

			fmt.Printf("Downloaded %q\n", book.Metadata.Title)
			return nil
		},
	}
}

func newOfflineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Manage downloaded books",
	}
	cmd.AddCommand(newOfflineListCmd(), newOfflineDeleteCmd())
	return cmd
}

func newOfflineListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List downloaded books",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			records, err := cli.offline.List()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No downloaded books")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSERIES")
			for _, record := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", record.Book.ID, record.Book.Metadata.Title, record.Book.SeriesTitle)
			}
			return w.Flush()
		},
	}
}

func newOfflineDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Remove a downloaded book",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			records, err := cli.offline.List()
			if err != nil {
				return err
			}
			for _, record := range records {
				if record.Book.ID == args[0] {
					if err := cli.offline.Delete(record.Book); err != nil {
						return err
					}
					fmt.Printf("Deleted %q\n", record.Book.Metadata.Title)
					return nil
				}
			}
			// Deleting a book that was never downloaded is not an error.
			fmt.Println("Book is not downloaded")
			return nil
		},
	}
}
