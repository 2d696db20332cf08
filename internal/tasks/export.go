package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/songbook/internal/formatter"
	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/services"
	"github.com/desertthunder/songbook/internal/shared"
	"golang.org/x/time/rate"
)

// ExportOpts contains configuration for exporting collections to disk.
type ExportOpts struct {
	Format     string                      // json, csv, markdown, txt
	OutputDir  string                      // default: songbook_export_{epoch}
	NumWorkers int                         // concurrent writers (default: 2)
	RateLimit  float64                     // catalog requests per second (default: 5)
	CoverURL   func(models.Entry) string   // resolves artwork for markdown covers
	Warn       func(msg string, kv ...any) // non-fatal problems, e.g. a missing cover
}

// ExportJob is one fetched collection waiting to be written.
type ExportJob struct {
	Collection models.Collection
	Export     *formatter.CollectionExport
}

// CollectionExportResult is the outcome for one collection.
type CollectionExportResult struct {
	Collection models.Collection
	Count      int
	Success    bool
	Files      []string
	Error      error
}

// ExportResult summarizes an [Export] run.
type ExportResult struct {
	Total           int
	Successful      int
	Failed          int
	OutputDirectory string
	ManifestPath    string
	Results         []CollectionExportResult
}

// Export fetches each collection and writes it with a small worker pool, then writes export_manifest.json.
//
// A collection that fails to fetch or write is recorded in the result; only setup and manifest
// failures are returned as errors.
func Export(
	ctx context.Context,
	catalog services.Catalog,
	collections []models.Collection,
	opts ExportOpts,
	prog chan<- ProgressUpdate,
) (*ExportResult, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("songbook_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > len(collections) && len(collections) > 0 {
		opts.NumWorkers = len(collections)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		Total:           len(collections),
		OutputDirectory: opts.OutputDir,
		Results:         make([]CollectionExportResult, 0, len(collections)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan ExportJob, len(collections))
	results := make(chan CollectionExportResult, len(collections))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, c := range collections {
			if ctx.Err() != nil {
				return
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			entries, err := catalog.Entries(ctx, c)
			if err != nil {
				results <- CollectionExportResult{
					Collection: c,
					Error:      fmt.Errorf("failed to fetch collection: %w", err),
				}
				continue
			}

			jobs <- ExportJob{Collection: c, Export: formatter.NewCollectionExport(c, entries)}
			sendProgress(prog, exportingUpdate(i+1, len(collections), c))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Successful++
			sendProgress(prog, exportCompletedUpdate(completed, len(collections), res.Collection, len(res.Files)))
		} else {
			result.Failed++
			sendProgress(prog, exportFailedUpdate(completed, len(collections), res.Collection, res.Error))
		}
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Collection < result.Results[j].Collection
	})

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifestFor(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func manifestFor(r *ExportResult, format string) formatter.Manifest {
	m := formatter.Manifest{
		Format:     format,
		ExportedAt: time.Now().UTC(),
		Successful: r.Successful,
		Failed:     r.Failed,
	}
	for _, res := range r.Results {
		e := formatter.ManifestEntry{Collection: res.Collection, Count: res.Count, Files: res.Files, Status: "success"}
		if !res.Success {
			e.Status = "failed"
			if res.Error != nil {
				e.Error = res.Error.Error()
			}
		}
		m.Entries = append(m.Entries, e)
	}
	return m
}

func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan ExportJob,
	results chan<- CollectionExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			results <- CollectionExportResult{Collection: job.Collection, Error: ctx.Err()}
			continue
		}
		results <- exportCollection(ctx, job, opts)
	}
}

func exportCollection(ctx context.Context, j ExportJob, opts ExportOpts) CollectionExportResult {
	result := CollectionExportResult{
		Collection: j.Collection,
		Count:      len(j.Export.Entries),
		Files:      []string{},
	}
	base := filepath.Join(opts.OutputDir, string(j.Collection))

	switch opts.Format {
	case formatter.FormatCSV:
		res, err := formatter.WriteCSVExport(j.Export, base)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{res.EntriesFile, res.MetadataFile}

	case formatter.FormatMarkdown:
		mdOpts := formatter.MarkdownOpts{Warn: opts.Warn}
		if opts.CoverURL != nil && len(j.Export.Entries) > 0 {
			mdOpts.ImageURL = opts.CoverURL(j.Export.Entries[0])
		}
		res, err := formatter.WriteMarkdownExport(ctx, j.Export, base, mdOpts)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = res.Files

	case formatter.FormatText:
		path, err := formatter.WriteTextExport(j.Export, base+".txt")
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		path, err := formatter.WriteJSONExport(j.Export, base+".json")
		if err != nil {
			result.Error = err
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}
