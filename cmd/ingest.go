package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/hfarouk/docdex/internal/ingest"
	"github.com/hfarouk/docdex/internal/progress"
	"github.com/hfarouk/docdex/internal/walker"
)

var ingestProcess bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path, directory, or glob]...",
	Short: "Upload documents into the knowledge base",
	Long: `Stores the given files and enqueues an index job for each. Arguments may
be file paths, directories (walked recursively for supported documents),
or globs (** is supported, e.g. 'docs/**/*.pdf'). Files already in the
knowledge base are reported as duplicates and skipped.

By default the files only get queued; pass --process to also run the
indexing jobs to completion before exiting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestProcess, "process", false, "run the index jobs before exiting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	reporter := progress.NewReporter()
	reporter.Start("Ingesting documents", len(paths))

	var results []*ingest.Result
	for i, p := range paths {
		reporter.Update(i+1, filepath.Base(p))
		res, err := a.ingest.IngestPath(ctx, p)
		if err != nil {
			reporter.Finish()
			return fmt.Errorf("ingesting %s: %w", p, err)
		}
		results = append(results, res)
	}
	reporter.Finish()

	var ok, dup, failed int
	for _, r := range results {
		switch r.Status {
		case "ok":
			ok++
		case "duplicate":
			dup++
		default:
			failed++
			fmt.Fprintf(os.Stderr, "  %s: %s\n", r.Filename, r.Message)
		}
	}
	fmt.Printf("Queued %d document(s), %d duplicate(s), %d error(s)\n", ok, dup, failed)

	if ingestProcess && ok > 0 {
		fmt.Println("Processing index jobs...")
		w := a.newWorker()
		for {
			worked, err := w.RunOnce(ctx)
			if err != nil {
				return fmt.Errorf("processing jobs: %w", err)
			}
			if !worked {
				break
			}
		}
		fmt.Println("Indexing complete")
	}
	return nil
}

// expandArgs resolves each argument as a literal path or a glob pattern
// and returns the deduplicated, sorted file list.
func expandArgs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil {
			if !info.IsDir() {
				add(arg)
				continue
			}
			files, err := walker.Walk(walker.Config{RootDir: arg})
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f.Path)
			}
			continue
		}
		base, pattern := doublestar.SplitPattern(filepath.ToSlash(arg))
		matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		for _, m := range matches {
			add(filepath.Join(base, m))
		}
	}

	sort.Strings(paths)
	return paths, nil
}
