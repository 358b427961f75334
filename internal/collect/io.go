package collect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cambridge-collector/internal/types"
)

// LoadRecords reads the input record list (a JSON array).
func LoadRecords(path string) ([]types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []types.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// outputSet is the output products keyed by title, in stable order:
// existing products keep their position, new ones append.
type outputSet struct {
	order   []string
	byTitle map[string]types.Product
}

func (o *outputSet) has(title string) bool {
	_, ok := o.byTitle[title]
	return ok
}

func (o *outputSet) set(title string, product types.Product) {
	if !o.has(title) {
		o.order = append(o.order, title)
	}
	o.byTitle[title] = product
}

func (o *outputSet) products() []types.Product {
	products := make([]types.Product, 0, len(o.order))
	for _, title := range o.order {
		products = append(products, o.byTitle[title])
	}
	return products
}

// loadOutput reads a prior output file so skip mode and incremental saves
// can extend it. A missing file yields an empty set.
func loadOutput(path string) (*outputSet, error) {
	out := &outputSet{byTitle: make(map[string]types.Product)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}

	var prior types.Output
	if err := json.Unmarshal(data, &prior); err != nil {
		return nil, fmt.Errorf("existing output is not valid JSON: %w", err)
	}

	for _, p := range prior.Products {
		out.set(p.Title, p)
	}
	return out, nil
}

// saveOutput writes the output file atomically.
func saveOutput(path string, out *outputSet) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(types.Output{Products: out.products()}, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// report accumulates per-family warnings and failures for the run report
// written alongside the output file.
type report struct {
	GeneratedAt string              `json:"generated_at"`
	Warnings    map[string][]string `json:"warnings"`
	Failures    map[string]string   `json:"failures"`
}

func newReport() *report {
	return &report{
		Warnings: make(map[string][]string),
		Failures: make(map[string]string),
	}
}

func (r *report) warn(title string, warnings []string) {
	r.Warnings[title] = append(r.Warnings[title], warnings...)
}

func (r *report) failure(title, reason string) {
	r.Failures[title] = reason
}

func (r *report) empty() bool {
	return len(r.Warnings) == 0 && len(r.Failures) == 0
}

// save writes the report, or removes a stale one when the run was clean.
func (r *report) save(path string) error {
	if r.empty() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// reportPath derives the report file name from the output file name,
// e.g. products.json -> products_report.json.
func reportPath(outputFile string) string {
	base := strings.TrimSuffix(outputFile, filepath.Ext(outputFile))
	return base + "_report.json"
}
