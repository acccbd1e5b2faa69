// Command scrub re-serializes every stored entry through the document
// model. Useful after a whitelist change: anything the current model does
// not recognize as persistent content is dropped, and derived markup from
// older builds dissolves.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/db"
	"github.com/daybookhq/daybook/internal/document"
	"github.com/daybookhq/daybook/internal/repository"
)

func main() {
	dbPath := flag.String("db", "daybook.db", "path to the journal database")
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
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

	entries, _, err := repo.GetEntries()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading entries: %v\n", err)
		os.Exit(1)
	}

	changed := 0
	for _, entry := range entries {
		doc, err := document.Parse(string(entry.Body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", entry.ID, err)
			continue
		}

		clean := doc.Serialize()
		if clean == string(entry.Body) {
			continue
		}

		changed++
		if *dryRun {
			fmt.Printf("Would scrub %s (%s)\n", entry.ID, entry.Date)
			continue
		}

		_, err = repo.UpdateEntry(entry.ID, repository.EntryUpdate{
			Body:     []byte(clean),
			Title:    entry.Title,
			Date:     entry.Date,
			Timezone: entry.Timezone,
		}, entry.Version)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error scrubbing %s: %v\n", entry.ID, err)
			continue
		}
		fmt.Printf("Scrubbed %s (%s)\n", entry.ID, entry.Date)
	}

	fmt.Printf("%d of %d entries needed scrubbing\n", changed, len(entries))
}
