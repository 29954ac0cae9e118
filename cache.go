package sheetpipe

import (
	"sort"
	"sync"
)

// Catalog holds the latest loaded table for each logical source name.
// Putting a table under an existing name drops the superseded one.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewCatalog creates an empty Catalog
func NewCatalog() *Catalog {
	return &Catalog{
		tables: make(map[string]*Table),
	}
}

// Put stores a copy of the table under name, replacing any previous load.
func (c *Catalog) Put(name string, table *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables[name] = table.Clone()
}

// Get returns a copy of the named table.
func (c *Catalog) Get(name string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table, ok := c.tables[name]
	if !ok {
		return nil, false
	}
	// Return a copy to prevent external modification
	return table.Clone(), true
}

// Names returns the stored names in sorted order
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete removes a table
func (c *Catalog) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tables, name)
}

// Len returns the number of tables
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.tables)
}

// Clear removes all tables
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables = make(map[string]*Table)
}
