// Package sku issues unique 5-digit SKUs for products that don't carry one.
// Uniqueness holds across all processes sharing the registry file: every
// allocation re-reads the registry under an advisory file lock, so two
// collectors running at once never issue the same SKU.
package sku

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/gofrs/flock"
)

// DefaultStart is the first SKU number ever issued.
const DefaultStart = 50000

// registry is the persisted file shape.
type registry struct {
	UsedSKUs    []string `json:"used_skus"`
	NextAutoSKU int      `json:"next_auto_sku"`
}

// Generator allocates unique SKU strings backed by a shared registry file.
type Generator struct {
	registryFile string
	start        int

	mu   sync.Mutex
	lock *flock.Flock
}

// NewGenerator creates a generator over the given registry file, creating
// the parent directory if needed.
func NewGenerator(registryFile string) (*Generator, error) {
	if err := os.MkdirAll(filepath.Dir(registryFile), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create registry dir: %w", err)
	}
	return &Generator{
		registryFile: registryFile,
		start:        DefaultStart,
		lock:         flock.New(registryFile + ".lock"),
	}, nil
}

// Next allocates and persists one unique SKU.
func (g *Generator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.lock.Lock(); err != nil {
		return "", fmt.Errorf("cannot lock registry: %w", err)
	}
	defer g.lock.Unlock()

	reg, err := g.load()
	if err != nil {
		return "", err
	}

	used := make(map[string]bool, len(reg.UsedSKUs))
	highest := g.start - 1
	for _, s := range reg.UsedSKUs {
		used[s] = true
		if n, err := strconv.Atoi(s); err == nil && n > highest {
			highest = n
		}
	}

	candidate := reg.NextAutoSKU
	if candidate < highest+1 {
		candidate = highest + 1
	}
	if candidate < g.start {
		candidate = g.start
	}
	for used[strconv.Itoa(candidate)] {
		candidate++
	}

	skuStr := strconv.Itoa(candidate)
	reg.UsedSKUs = append(reg.UsedSKUs, skuStr)
	reg.NextAutoSKU = candidate + 1

	if err := g.save(reg); err != nil {
		return "", err
	}
	return skuStr, nil
}

// load reads the registry, starting fresh when the file is missing or
// corrupted.
func (g *Generator) load() (*registry, error) {
	data, err := os.ReadFile(g.registryFile)
	if os.IsNotExist(err) {
		return &registry{NextAutoSKU: g.start}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read registry: %w", err)
	}

	var reg registry
	if err := json.Unmarshal(data, &reg); err != nil {
		// Corrupted registry: start fresh rather than blocking allocation.
		return &registry{NextAutoSKU: g.start}, nil
	}
	if reg.NextAutoSKU == 0 {
		reg.NextAutoSKU = g.start
	}
	return &reg, nil
}

func (g *Generator) save(reg *registry) error {
	sort.Strings(reg.UsedSKUs)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	tmp := g.registryFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cannot write registry: %w", err)
	}
	return os.Rename(tmp, g.registryFile)
}
