package enrich

import (
	"context"
	"sync"

	"starmark/pkg/github"
	"starmark/pkg/httputil"
	"starmark/pkg/markdown"
	"starmark/pkg/observability"
)

// maxWorkers bounds the fetch pool regardless of reference count.
const maxWorkers = 10

// extractReferences collects every distinct candidate URL that resolves to
// a repository reference. Deduplication is by the literal URL string, so two
// spellings of the same repository fetch twice but annotate consistently.
func extractReferences(doc *markdown.Document) map[string]github.Ref {
	refs := make(map[string]github.Ref)
	doc.EachLink(func(l *markdown.Link) {
		if _, seen := refs[l.Destination]; seen {
			return
		}
		if ref, ok := github.ParseRepoURL(l.Destination); ok {
			refs[l.Destination] = ref
		}
	})
	return refs
}

type refJob struct {
	url string
	ref github.Ref
}

// fetchAll resolves metadata for every reference under a bounded worker
// pool. Each URL gets its own retry budget; a reference whose fetch fails is
// logged and skipped so one bad repository never poisons the run.
func (e *Engine) fetchAll(ctx context.Context, refs map[string]github.Ref) (map[string]*github.RepoInfo, int) {
	records := make(map[string]*github.RepoInfo, len(refs))
	if len(refs) == 0 {
		return records, 0
	}

	observability.Engine().OnFetchStart(ctx, len(refs))
	start := e.opts.Now()

	jobs := make(chan refJob, len(refs))
	for url, ref := range refs {
		jobs <- refJob{url: url, ref: ref}
	}
	close(jobs)

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed int
	)
	for range min(maxWorkers, len(refs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := httputil.Backoff{
				MaxAttempts: e.opts.MaxAttempts,
				MaxWait:     e.opts.MaxWait,
				Sleep:       e.opts.Sleep,
			}
			for job := range jobs {
				if ctx.Err() != nil {
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				var info *github.RepoInfo
				err := backoff.Do(ctx, func() error {
					var err error
					info, err = e.opts.Fetcher.FetchRepo(ctx, job.ref)
					return err
				})
				if err != nil {
					e.opts.Logger.Warn("metadata fetch failed",
						"repo", job.ref.String(), "error", err)
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				records[job.url] = info
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	observability.Engine().OnFetchComplete(ctx, len(records), failed, e.opts.Now().Sub(start))
	return records, failed
}
