// Package sqlite is the query engine behind backlog item resolution. The
// analysis records and the backlog index stay the source of truth; each
// resolution loads them into an in-memory SQLite database and queries it.
package sqlite

// Schema DDL.
const (
	createItems = `CREATE TABLE items (
    id INTEGER PRIMARY KEY,
    slug TEXT NOT NULL,
    number TEXT,
    description TEXT NOT NULL,
    source TEXT NOT NULL,
    source_id TEXT,
    status TEXT NOT NULL,
    has_record INTEGER NOT NULL
);`

	// A record owns its slug; backlog lines are keyed by item number, so two
	// lines whose descriptions slugify alike both stay in the index.
	idxItemsRecordSlug = `CREATE UNIQUE INDEX idx_items_record_slug ON items(slug) WHERE has_record = 1;`
	idxItemsSlug       = `CREATE INDEX idx_items_slug ON items(slug);`
	idxItemsNumber     = `CREATE UNIQUE INDEX idx_items_number ON items(number) WHERE number IS NOT NULL;`
	idxItemsSourceID   = `CREATE INDEX idx_items_source_id ON items(source_id COLLATE NOCASE);`
)

// schemaDDL lists the statements run on a fresh database, in order.
var schemaDDL = []string{
	createItems,
	idxItemsRecordSlug,
	idxItemsSlug,
	idxItemsNumber,
	idxItemsSourceID,
}
