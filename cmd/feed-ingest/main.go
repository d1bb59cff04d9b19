// Command feed-ingest validates gzipped product-feed exports and loads
// them into PostgreSQL for the postgres catalog source.
//
// Product ids must be unique across the whole feed set. Feeds can be
// far larger than memory, so the check runs in passes: per-file bloom
// filters find candidate duplicates cheaply, then only the candidates
// are counted exactly. A feed set with real duplicates is rejected
// before anything touches the database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"sort"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/stitchline/catalog-api/internal/catalog"
	"github.com/stitchline/catalog-api/internal/feed"
	"github.com/stitchline/catalog-api/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	maxReported   = 10
)

// fileResult holds candidate duplicate ids found in a single file
// during pass 2, as a bitmask of the files each id may appear in.
type fileResult struct {
	candidates map[int]uint
}

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: feed-ingest [flags] feed1.json.gz [feed2.json.gz ...]")
		os.Exit(1)
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, databaseURL); err != nil {
		slog.Error("feed ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("feed ingest completed successfully")
}

func run(ctx context.Context, files []string, databaseURL string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: per-file bloom filters, plus within-file candidates.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, inFileCandidates, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: ids whose bloom membership spans two or more files.
	slog.Info("pass 2: finding cross-file candidates")

	crossFileCandidates, err := findCrossFileCandidates(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find cross-file candidates")
	}

	candidates := make(map[int]struct{}, len(inFileCandidates)+len(crossFileCandidates))
	for id := range inFileCandidates {
		candidates[id] = struct{}{}
	}
	for id := range crossFileCandidates {
		candidates[id] = struct{}{}
	}

	// Pass 3: exact counts for the candidates only, to weed out bloom
	// false positives.
	if len(candidates) > 0 {
		slog.Info("pass 3: verifying candidates", slog.Int("candidates", len(candidates)))

		duplicates, err := verifyDuplicates(ctx, files, candidates)
		if err != nil {
			return errors.Wrap(err, "verify candidates")
		}
		if len(duplicates) > 0 {
			return errors.Errorf("feed violates id uniqueness: %d duplicate ids (sample %v)",
				len(duplicates), sample(duplicates, maxReported))
		}
	}

	// Decode everything and swap the products table.
	slog.Info("loading feed into database")

	products, err := decodeFeeds(ctx, files)
	if err != nil {
		return errors.Wrap(err, "decode feeds")
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewCatalogRepository(pool)
	if err := repo.ReplaceAll(ctx, products); err != nil {
		return errors.Wrap(err, "write products")
	}

	slog.Info("products written", slog.Int("count", len(products)))
	return nil
}

// buildBloomFilters creates one bloom filter per file concurrently. Ids
// the filter has already seen within the same file come back as
// candidates (possible false positives, verified later).
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, map[int]struct{}, error) {
	filters := make([]*bloom.BloomFilter, len(files))
	candidatesPerFile := make([]map[int]struct{}, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters, candidatesPerFile))
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := make(map[int]struct{})
	for _, c := range candidatesPerFile {
		for id := range c {
			merged[id] = struct{}{}
		}
	}
	return filters, merged, nil
}

func buildFilterForFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	candidates []map[int]struct{},
) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		seenTwice := make(map[int]struct{})
		var count uint64

		err := streamFeedFile(ctx, path, func(p catalog.Product) {
			if filter.TestAndAddString(strconv.Itoa(p.ID)) {
				seenTwice[p.ID] = struct{}{}
			}
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress", slog.Int("file", idx+1), slog.Uint64("products", count))
			}
		})
		if err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_products", count),
			slog.Int("in_file_candidates", len(seenTwice)),
		)

		filters[idx] = filter
		candidates[idx] = seenTwice
		return nil
	}
}

// findCrossFileCandidates re-streams each file and checks ids against
// the OTHER files' bloom filters. An id whose membership mask spans two
// or more files is a candidate duplicate.
func findCrossFileCandidates(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[int]struct{}, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[int]uint)
	for _, r := range results {
		for id, mask := range r.candidates {
			merged[id] |= mask
		}
	}

	candidates := make(map[int]struct{})
	for id, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			candidates[id] = struct{}{}
		}
	}
	return candidates, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[int]uint)
		fileBit := uint(1) << uint(idx)

		err := streamFeedFile(ctx, path, func(p catalog.Product) {
			id := strconv.Itoa(p.ID)
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(id) {
					candidates[p.ID] |= fileBit | uint(1)<<uint(j)
					break
				}
			}
		})
		if err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// verifyDuplicates counts exact occurrences of candidate ids across
// every file and returns those that really appear more than once.
func verifyDuplicates(ctx context.Context, files []string, candidates map[int]struct{}) ([]int, error) {
	counts := make(map[int]int, len(candidates))

	for _, path := range files {
		err := streamFeedFile(ctx, path, func(p catalog.Product) {
			if _, ok := candidates[p.ID]; ok {
				counts[p.ID]++
			}
		})
		if err != nil {
			return nil, err
		}
	}

	var duplicates []int
	for id, n := range counts {
		if n > 1 {
			duplicates = append(duplicates, id)
		}
	}
	sort.Ints(duplicates)
	return duplicates, nil
}

// decodeFeeds fully decodes every file, in order, into one catalog.
func decodeFeeds(ctx context.Context, files []string) ([]catalog.Product, error) {
	var products []catalog.Product
	for _, path := range files {
		err := streamFeedFile(ctx, path, func(p catalog.Product) {
			products = append(products, p)
		})
		if err != nil {
			return nil, err
		}
	}
	return products, nil
}

// streamFeedFile opens a gzip-compressed feed and calls fn for each
// decoded product record.
func streamFeedFile(ctx context.Context, path string, fn func(catalog.Product)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	d := jx.Decode(gz, 64<<10)
	err = feed.DecodeStream(d, func(p catalog.Product) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(p)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func sample(ids []int, n int) []int {
	if len(ids) <= n {
		return ids
	}
	return ids[:n]
}
