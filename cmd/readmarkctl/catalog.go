// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/models"
)

const importBatchSize = 500

// Column headers of the library system's catalog export. 序号 (row number)
// is present in the export and ignored.
const (
	colTitle     = "题名"
	colAuthor    = "责任者"
	colPublisher = "出版社"
	colCallNo    = "索书号"
	colISBN      = "标准号"
	colYear      = "出版年"
	colSummary   = "简介"
)

var requiredColumns = []string{colTitle, colCallNo}

// catalogReader yields books from a catalog export.
type catalogReader struct {
	r       *csv.Reader
	columns map[string]int
	line    int
	skipped int
}

func newCatalogReader(in io.Reader) (*catalogReader, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q in header", name)
		}
	}
	return &catalogReader{r: r, columns: columns, line: 1}, nil
}

func (c *catalogReader) field(record []string, name string) string {
	i, ok := c.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Next returns the next importable book. Rows without a title or call number
// are counted in skipped. It returns io.EOF at the end of input.
func (c *catalogReader) Next() (models.Book, error) {
	for {
		record, err := c.r.Read()
		if err != nil {
			return models.Book{}, err
		}
		c.line++

		b := models.Book{
			Title:     c.field(record, colTitle),
			Author:    c.field(record, colAuthor),
			Publisher: c.field(record, colPublisher),
			CallNo:    c.field(record, colCallNo),
			ISBN:      c.field(record, colISBN),
			Year:      c.field(record, colYear),
			Summary:   c.field(record, colSummary),
		}
		if b.Title == "" || b.CallNo == "" {
			c.skipped++
			continue
		}
		return b, nil
	}
}

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the book catalog",
	}

	var dryRun bool
	importCmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import books from the library system's CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			books, err := newCatalogReader(f)
			if err != nil {
				return err
			}

			var insert func([]models.Book) (int, error)
			if dryRun {
				insert = func(batch []models.Book) (int, error) { return len(batch), nil }
			} else {
				db, err := a.database()
				if err != nil {
					return err
				}
				insert = func(batch []models.Book) (int, error) {
					return db.InsertBooks(cmd.Context(), batch)
				}
			}

			total, err := importBooks(books, insert)
			if !dryRun {
				trail, terr := a.auditTrail(cmd.Context())
				if terr != nil {
					return terr
				}
				trail.CatalogImported(operatorActor, args[0], total, books.skipped, err)
			}
			if err != nil {
				return err
			}
			logging.Info().
				Int("imported", total).
				Int("skipped", books.skipped).
				Bool("dry_run", dryRun).
				Str("file", args[0]).
				Msg("Catalog import finished")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d books, skipped %d rows\n", total, books.skipped)
			return err
		},
	}
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the file without writing to the database")

	cmd.AddCommand(importCmd)
	return cmd
}

// importBooks drains books in batches of importBatchSize.
func importBooks(books *catalogReader, insert func([]models.Book) (int, error)) (int, error) {
	total := 0
	batch := make([]models.Book, 0, importBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := insert(batch)
		if err != nil {
			return fmt.Errorf("insert books before line %d: %w", books.line, err)
		}
		total += n
		batch = batch[:0]
		return nil
	}

	for {
		b, err := books.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("line %d: %w", books.line+1, err)
		}
		batch = append(batch, b)
		if len(batch) == importBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	return total, flush()
}
