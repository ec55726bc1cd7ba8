// Command batch_report finalizes a directory of draft reports and writes the
// finalized JSON plus the rendered HTML for each one.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"dpr_engine/pkg/core/assumption"
	"dpr_engine/pkg/core/projection"
	"dpr_engine/pkg/core/report"
	"dpr_engine/pkg/core/scheme"
	"dpr_engine/pkg/core/store"
	"dpr_engine/pkg/core/utils"

	"github.com/joho/godotenv"
)

var errUsage = errors.New("usage")

// Outcome of one draft
type Outcome struct {
	File    string   `json:"file"`
	ID      string   `json:"id,omitempty"`
	Status  string   `json:"status"`
	Missing []string `json:"missingSections,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("[WARNING] .env not found, using environment variables")
	}
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("batch_report", flag.ContinueOnError)
	in := fs.String("in", "", "Directory of draft reports (.json or .hjson)")
	outDir := fs.String("out", "batch_data/reports", "Output directory")
	years := fs.Int("years", projection.DefaultYears, "Projection years")
	workers := fs.Int("workers", 4, "Parallel workers")
	kbFile := fs.String("knowledge", "", "Scheme knowledge base YAML (built-in when empty)")
	overrides := fs.String("assumptions", os.Getenv("DPR_ASSUMPTIONS_FILE"), "Hjson assumption overrides file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("%w: -in is required", errUsage)
	}
	if *workers < 1 {
		*workers = 1
	}

	kb := scheme.Default()
	if *kbFile != "" {
		loaded, err := scheme.Load(*kbFile)
		if err != nil {
			return err
		}
		kb = loaded
	}

	files, err := draftFiles(*in)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return err
	}

	fmt.Fprintf(out, "[BATCH] %d draft(s) from %s\n", len(files), *in)
	start := time.Now()

	b := &batch{kb: kb, outDir: *outDir, years: *years, overrides: *overrides}
	results := make([]Outcome, len(files))
	drafts := make([]*report.ProjectReport, len(files))

	// ids decide the output file names, so they are checked before any worker writes
	seen := map[string]string{"summary": "summary.json"}
	for i, f := range files {
		results[i] = Outcome{File: filepath.Base(f)}
		r, err := readDraft(f)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].ID = r.ID
		if first, ok := seen[r.ID]; ok {
			results[i].Error = fmt.Sprintf("duplicate id %q, already used by %s", r.ID, first)
			continue
		}
		seen[r.ID] = results[i].File
		drafts[i] = r
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, *workers)
	for i, r := range drafts {
		if r == nil {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, r *report.ProjectReport) {
			defer wg.Done()
			defer func() { <-sem }()
			b.process(r, &results[i])
		}(i, r)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Fprintf(out, "[BATCH] %s: FAILED %s\n", r.File, r.Error)
			continue
		}
		fmt.Fprintf(out, "[BATCH] %s: %s %s\n", r.File, r.ID, r.Status)
	}
	fmt.Fprintf(out, "[BATCH] done in %v, %d ok, %d failed\n", time.Since(start).Round(time.Millisecond), len(results)-failed, failed)

	summary, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*outDir, "summary.json"), summary, 0644); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d report(s) failed", failed, len(results))
	}
	return nil
}

func draftFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".hjson":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

type batch struct {
	kb        *scheme.KnowledgeBase
	outDir    string
	years     int
	overrides string
}

func (b *batch) process(r *report.ProjectReport, res *Outcome) {
	if err := b.finalize(r); err != nil {
		res.Error = err.Error()
		return
	}
	res.Status = string(r.Status)

	rules, err := b.kb.GetRules(r.Scheme)
	if err != nil {
		res.Error = err.Error()
		return
	}
	html, err := report.RenderHTML(r, rules)
	if err != nil {
		res.Error = err.Error()
		return
	}
	if res.Missing, err = report.VerifyMandatorySections(html, rules); err != nil {
		res.Error = err.Error()
		return
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		res.Error = err.Error()
		return
	}
	if err := os.WriteFile(filepath.Join(b.outDir, r.ID+".json"), data, 0644); err != nil {
		res.Error = err.Error()
		return
	}
	if err := os.WriteFile(filepath.Join(b.outDir, r.ID+".html"), []byte(html), 0644); err != nil {
		res.Error = err.Error()
	}
}

// readDraft decodes a draft; the id defaults to the file name and must be a
// valid file name itself
func readDraft(path string) (*report.ProjectReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r report.ProjectReport
	if err := utils.DecodeLenient(raw, &r); err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}
	if r.ID == "" {
		r.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := store.ValidateID(r.ID); err != nil {
		return nil, err
	}
	if r.Status == "" {
		r.Status = report.StatusDraft
	}
	return &r, nil
}

func (b *batch) finalize(r *report.ProjectReport) error {
	a := assumption.Preset(r.Industry)
	if b.overrides != "" {
		var err error
		if a, err = assumption.LoadOverrides(a, b.overrides); err != nil {
			return err
		}
	}
	return report.NewFinalizer(b.kb, a).Finalize(r, b.years)
}
