package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Index is an in-memory SQLite database of backlog items.
type Index struct {
	db *sql.DB
}

// Item is one row of the index.
type Item struct {
	Slug        string `json:"slug"`
	Number      string `json:"number,omitempty"`
	Description string `json:"description"`
	Source      string `json:"source"`
	SourceID    string `json:"source_id,omitempty"`
	Status      string `json:"status"`
	HasRecord   bool   `json:"has_record"`
}

// Open creates an empty in-memory index.
func Open() (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Index{db: db}, nil
}

// Close releases the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

const selectItems = `SELECT slug, COALESCE(number, ''), description, source, COALESCE(source_id, ''), status, has_record FROM items`

// BySlug returns the items whose slug equals slug, the record first.
func (ix *Index) BySlug(slug string) ([]Item, error) {
	return ix.query(selectItems+` WHERE slug = ? ORDER BY has_record DESC, number`, slug)
}

// BySlugPartial returns items whose slug contains fragment.
func (ix *Index) BySlugPartial(fragment string) ([]Item, error) {
	if fragment == "" {
		return nil, nil
	}
	return ix.query(selectItems+` WHERE slug LIKE ? ESCAPE '\' ORDER BY slug, number`, "%"+escapeLike(fragment)+"%")
}

// ByNumber returns the item carrying backlog number.
func (ix *Index) ByNumber(number string) ([]Item, error) {
	return ix.query(selectItems+` WHERE number = ?`, number)
}

// BySourceID returns items whose tracker id matches, ignoring case.
func (ix *Index) BySourceID(id string) ([]Item, error) {
	return ix.query(selectItems+` WHERE source_id = ? COLLATE NOCASE ORDER BY slug`, id)
}

// Fuzzy returns items whose description contains every word of text,
// ignoring case.
func (ix *Index) Fuzzy(text string) ([]Item, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, nil
	}
	conds := make([]string, len(words))
	args := make([]any, len(words))
	for i, w := range words {
		conds[i] = `instr(lower(description), ?) > 0`
		args[i] = w
	}
	return ix.query(selectItems+` WHERE `+strings.Join(conds, " AND ")+` ORDER BY slug, number`, args...)
}

// All returns every item ordered by slug.
func (ix *Index) All() ([]Item, error) {
	return ix.query(selectItems + ` ORDER BY slug, number`)
}

func (ix *Index) query(q string, args ...any) ([]Item, error) {
	rows, err := ix.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var hasRecord int
		if err := rows.Scan(&it.Slug, &it.Number, &it.Description, &it.Source, &it.SourceID, &it.Status, &hasRecord); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.HasRecord = hasRecord == 1
		items = append(items, it)
	}
	return items, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
