// Package categorize maps merchants to spending categories.
//
// The table is embedded YAML decoded once per process. Lookups are exact on
// the normalized merchant name; anything unknown lands in core.FallbackCategory.
package categorize

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"nudgify/internal/core"
)

//go:embed categories.yaml
var defaultTable []byte

type tableFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// Categorizer is read-only after construction and safe for concurrent use.
type Categorizer struct {
	byMerchant map[string]string
	labels     []string
}

var (
	defaultOnce sync.Once
	defaultCat  *Categorizer
)

// Default returns the process-wide categorizer built from the embedded table.
func Default() *Categorizer {
	defaultOnce.Do(func() {
		c, err := Parse(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("categorize: embedded table: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Parse decodes a YAML table of the form `categories: {Label: [merchants...]}`.
func Parse(data []byte) (*Categorizer, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode category table: %w", err)
	}
	table := make(map[string]string)
	for raw, merchants := range f.Categories {
		label := core.Normalize(raw)
		for _, m := range merchants {
			key := core.Normalize(m)
			if prev, ok := table[key]; ok && prev != label {
				return nil, fmt.Errorf("merchant %q listed under both %q and %q", key, prev, label)
			}
			table[key] = label
		}
	}
	return New(table), nil
}

// New builds a categorizer from merchant → category pairs. Keys and labels
// are normalized; the input map is not retained.
func New(table map[string]string) *Categorizer {
	c := &Categorizer{byMerchant: make(map[string]string, len(table))}
	seen := map[string]struct{}{}
	for merchant, label := range table {
		label = core.Normalize(label)
		c.byMerchant[core.Normalize(merchant)] = label
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			c.labels = append(c.labels, label)
		}
	}
	sort.Strings(c.labels)
	return c
}

// Category returns the label for merchant, or core.FallbackCategory.
func (c *Categorizer) Category(merchant string) string {
	if label, ok := c.byMerchant[core.Normalize(merchant)]; ok {
		return label
	}
	return core.FallbackCategory
}

// Apply returns copies of txns with Category filled in where it is empty.
// A category supplied by the source is never overwritten.
func (c *Categorizer) Apply(txns []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txns))
	for i, tx := range txns {
		if tx.Category == "" {
			tx.Category = c.Category(tx.Merchant)
		}
		out[i] = tx
	}
	return out
}

// Categories lists the known categories plus the fallback, sorted.
func (c *Categorizer) Categories() []string {
	out := append([]string(nil), c.labels...)
	return append(out, core.FallbackCategory)
}

// Table returns a copy of the merchant → category mapping.
func (c *Categorizer) Table() map[string]string {
	out := make(map[string]string, len(c.byMerchant))
	for k, v := range c.byMerchant {
		out[k] = v
	}
	return out
}
