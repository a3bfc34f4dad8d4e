package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Emperor-Koala/ekreader/internal/client/offline"
	"github.com/Emperor-Koala/ekreader/internal/models"
)

func newLibrariesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "List libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			libraries, err := cli.catalog.Libraries(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, library := range libraries {
				fmt.Fprintf(w, "%s\t%s\n", library.ID, library.Name)
			}
			return w.Flush()
		},
	}
}

func newSeriesCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "series",
		Short: "List recently added series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := cli.catalog.RecentSeries(cmd.Context(), page)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tBOOKS")
			for _, series := range result.Content {
				fmt.Fprintf(w, "%s\t%s\t%d\n", series.ID, series.Metadata.Title, series.BooksCount)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printPageFooter(result.Pageable.PageNumber, result.TotalPages, result.Last)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	return cmd
}

func newBooksCmd() *cobra.Command {
	var (
		page      int
		reading   bool
		libraryID string
		seriesID  string
	)
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List books (recently added by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				result *models.Page[models.Book]
				err    error
			)
			switch {
			case reading:
				result, err = cli.catalog.KeepReading(ctx, page)
			case libraryID != "":
				result, err = cli.catalog.LibraryBooks(ctx, libraryID, page)
			case seriesID != "":
				result, err = cli.catalog.SeriesBooks(ctx, seriesID, page)
			default:
				result, err = cli.catalog.RecentBooks(ctx, page)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSERIES\tSIZE")
			for _, book := range result.Content {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", book.ID, book.Metadata.Title, book.SeriesTitle, book.Size)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printPageFooter(result.Pageable.PageNumber, result.TotalPages, result.Last)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().BoolVar(&reading, "reading", false, "books currently in progress")
	cmd.Flags().StringVar(&libraryID, "library", "", "books of one library")
	cmd.Flags().StringVar(&seriesID, "series", "", "books of one series")
	cmd.MarkFlagsMutuallyExclusive("reading", "library", "series")
	return cmd
}

func newBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "book <book-id>",
		Short: "Show a book and its offline state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := cli.catalog.Book(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s\n", book.Metadata.Title)
			if len(book.Metadata.Authors) > 0 {
				fmt.Printf("By %s\n", joinAuthors(book.Metadata.Authors))
			}
			fmt.Printf("Series: %s  Number: %s  Size: %s\n", book.SeriesTitle, book.Metadata.Number, book.Size)
			if book.Metadata.Summary != "" {
				fmt.Printf("\n%s\n", book.Metadata.Summary)
			}

			presence, err := cli.offline.Presence(*book)
			if err != nil {
				cli.log.Warn("offline presence check failed")
				presence = offline.PresenceUnknown
			}
			switch presence {
			case offline.PresenceDownloaded:
				fmt.Println("\nDownloaded for offline reading")
			case offline.PresenceNotDownloaded:
				fmt.Println("\nNot downloaded")
			}
			return nil
		},
	}
}

func joinAuthors(authors []models.Author) string {
	names := make([]string, len(authors))
	for i, author := range authors {
		names[i] = author.Name
	}
	return strings.Join(names, ", ")
}

func printPageFooter(page, totalPages int, last bool) {
	if last {
		fmt.Printf("Page %d of %d (last)\n", page+1, totalPages)
		return
	}
	fmt.Printf("Page %d of %d\n", page+1, totalPages)
}
