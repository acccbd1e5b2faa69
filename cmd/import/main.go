// Command import converts a directory of markdown notes into journal
// entries. Each note carries TOML front matter between %%% delimiters with
// at least a date; the markdown body becomes the entry's content, passed
// through the document model so storage only ever sees the persistent
// form.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/db"
	"github.com/daybookhq/daybook/internal/document"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/repository"
	"github.com/daybookhq/daybook/internal/util"
	"github.com/daybookhq/daybook/internal/util/compression"
)

func main() {
	dir := flag.String("dir", ".", "directory of markdown notes to import")
	dbPath := flag.String("db", "daybook.db", "path to the journal database")
	owner := flag.String("owner", "admin", "owner recorded on imported entries")
	flag.Parse()

	if err := config.LoadConfig("config.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	sqlite := db.NewSQLite(*dbPath)
	if err := sqlite.InitDB(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		os.Exit(1)
	}
	defer sqlite.Close()

	repo := repository.NewDBEntryRepository(sqlite)

	notes, err := filepath.Glob(filepath.Join(*dir, "*.md"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing notes: %v\n", err)
		os.Exit(1)
	}
	archived, err := filepath.Glob(filepath.Join(*dir, "*.md.gz"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing archived notes: %v\n", err)
		os.Exit(1)
	}
	notes = append(notes, archived...)

	imported := 0
	for _, note := range notes {
		if err := importNote(repo, note, *owner); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", note, err)
			continue
		}
		imported++
	}
	fmt.Printf("Imported %d of %d notes\n", imported, len(notes))
}

func importNote(repo repository.EntryRepository, path, owner string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".gz") {
		raw, err = compression.GzipCompressor{}.Decompress(raw)
		if err != nil {
			return fmt.Errorf("decompressing note: %w", err)
		}
	}

	fm, err := util.GetFrontMatter(raw)
	if err != nil {
		return fmt.Errorf("front matter: %w", err)
	}
	if fm.Date.IsZero() {
		return fmt.Errorf("front matter has no date")
	}

	body := raw[fm.Consumed:]
	rendered := markdown.ToHTML(body, parser.NewWithExtensions(parser.CommonExtensions), mdhtml.NewRenderer(mdhtml.RendererOptions{}))

	// Re-serialize through the document model: only whitelisted markup
	// survives the import.
	doc, err := document.Parse(string(rendered))
	if err != nil {
		return fmt.Errorf("parsing rendered note: %w", err)
	}

	entry := repo.NewEntry()
	entry.Title = strings.TrimSpace(fm.Title)
	entry.Date = fm.Date.Format("2006-01-02")
	if fm.Timezone != "" {
		entry.Timezone = fm.Timezone
	}
	entry.Body = []byte(doc.Serialize())
	entry.Owner = model.UserID(owner)

	return repo.SaveEntry(entry)
}
