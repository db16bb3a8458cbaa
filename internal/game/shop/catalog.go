// Package shop provides the item catalog and purchase flow.
package shop

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Item is one purchasable catalog entry.
type Item struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Price       int    `yaml:"price"`
	Description string `yaml:"description"`
}

// ErrItemNotFound is returned when a purchase names an unknown item.
var ErrItemNotFound = errors.New("item not found")

// yamlCatalogFile is the top-level YAML structure for the shop catalog.
type yamlCatalogFile struct {
	Items []Item `yaml:"items"`
}

// Catalog is the immutable set of purchasable items, loaded once at startup.
type Catalog struct {
	items  map[string]Item
	sorted []Item
}

// LoadCatalog reads and validates the shop catalog YAML file.
//
// Precondition: path must point to a valid YAML catalog file.
// Postcondition: Returns a validated Catalog or a non-nil error.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shop catalog %s: %w", path, err)
	}
	return LoadCatalogFromBytes(data)
}

// LoadCatalogFromBytes parses and validates a catalog from YAML bytes.
//
// Postcondition: Every item has a unique non-empty id and a non-negative price.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var file yamlCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing shop catalog YAML: %w", err)
	}

	c := &Catalog{items: make(map[string]Item, len(file.Items))}
	for _, item := range file.Items {
		if item.ID == "" {
			return nil, errors.New("shop item with empty id")
		}
		if item.Name == "" {
			return nil, fmt.Errorf("shop item %q has no name", item.ID)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("shop item %q has negative price %d", item.ID, item.Price)
		}
		if _, dup := c.items[item.ID]; dup {
			return nil, fmt.Errorf("duplicate shop item id %q", item.ID)
		}
		c.items[item.ID] = item
		c.sorted = append(c.sorted, item)
	}
	return c, nil
}

// Get returns the item with the given id.
//
// Postcondition: Returns (item, true) when the id is in the catalog.
func (c *Catalog) Get(id string) (Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

// List returns all items in catalog file order.
func (c *Catalog) List() []Item {
	out := make([]Item, len(c.sorted))
	copy(out, c.sorted)
	return out
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.items)
}
