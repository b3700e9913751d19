package verifier

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/davidahmann/jadegate/core/manifest"
	"github.com/davidahmann/jadegate/core/schema/v1/skill"
)

const DefaultWorkers = 4

// FileResult pairs a path with either its verification result or the
// fatal error that kept the pipeline from starting.
type FileResult struct {
	Path   string
	Result skill.ValidationResult
	Err    error
}

func (r FileResult) OK() bool {
	return r.Err == nil && r.Result.Valid
}

// VerifyFiles reads and verifies each path with at most workers running at
// once. Results keep argument order. Only cancellation aborts the batch;
// per-file read and parse failures land in FileResult.Err.
func (v *Verifier) VerifyFiles(ctx context.Context, paths []string, workers int) ([]FileResult, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	results := make([]FileResult, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = v.verifyFile(path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (v *Verifier) verifyFile(path string) FileResult {
	m, err := manifest.ReadFile(path)
	if err != nil {
		v.logger.Debug("manifest not loaded", "path", path, "error", err)
		return FileResult{Path: path, Err: err}
	}
	return FileResult{Path: path, Result: v.Verify(m)}
}
