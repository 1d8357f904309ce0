package sqlite

import (
	"database/sql"
	"fmt"
)

// Record is an analysis record as the index sees it.
type Record struct {
	Slug        string
	Description string
	Source      string
	SourceID    string
	Status      string
}

// BacklogEntry is a backlog index line with the slug its description maps to.
type BacklogEntry struct {
	Number      string
	Description string
	Slug        string
	Status      string
}

// Load replaces the index contents with records and entries in one
// transaction. The first backlog entry whose slug matches a record attaches
// its item number to that record; other entries become record-less items
// keyed by number.
func (ix *Index) Load(records []Record, entries []BacklogEntry) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM items"); err != nil {
		return fmt.Errorf("clearing items: %w", err)
	}
	if err := insertRecords(tx, records); err != nil {
		return err
	}
	if err := insertEntries(tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

func insertRecords(tx *sql.Tx, records []Record) error {
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO items (slug, number, description, source, source_id, status, has_record)
VALUES (?, NULL, ?, ?, ?, ?, 1)`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Slug, r.Description, r.Source, nullable(r.SourceID), r.Status); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.Slug, err)
		}
	}
	return nil
}

func insertEntries(tx *sql.Tx, entries []BacklogEntry) error {
	attach, err := tx.Prepare(`UPDATE items SET number = ? WHERE slug = ? AND has_record = 1 AND number IS NULL`)
	if err != nil {
		return fmt.Errorf("preparing backlog update: %w", err)
	}
	defer attach.Close()
	insert, err := tx.Prepare(`INSERT OR IGNORE INTO items (slug, number, description, source, source_id, status, has_record)
VALUES (?, ?, ?, 'manual', NULL, ?, 0)`)
	if err != nil {
		return fmt.Errorf("preparing backlog insert: %w", err)
	}
	defer insert.Close()

	for _, e := range entries {
		res, err := attach.Exec(e.Number, e.Slug)
		if err != nil {
			return fmt.Errorf("attaching item %s: %w", e.Number, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			continue
		}
		if _, err := insert.Exec(e.Slug, e.Number, e.Description, e.Status); err != nil {
			return fmt.Errorf("inserting item %s: %w", e.Number, err)
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
