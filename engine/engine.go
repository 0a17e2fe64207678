package engine

// Ties the pipeline together: parse -> resolve -> fetch -> package.
// This is the single entry point external orchestration uses - the
// CLI is a thin shim over it.

import (
	"context"

	errors "github.com/go-errors/errors"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/cache"
	"www.velocidex.com/golang/packrat/config"
	"www.velocidex.com/golang/packrat/fetcher"
	"www.velocidex.com/golang/packrat/inventory"
	"www.velocidex.com/golang/packrat/logging"
	"www.velocidex.com/golang/packrat/packager"
)

type BuildStatus int

const (
	BuildFailed BuildStatus = iota
	BuildSuccess

	// Best effort build which dropped some artifacts.
	BuildPartial
)

type BuildRequest struct {
	// Requested artifact identifiers, in request order.
	Artifacts []string

	OutputPath string

	// Continue past tool failures and ship what we can.
	BestEffort bool

	// Artifact parameter overrides, recorded verbatim in the
	// manifest.
	Parameters map[string]string
}

type BuildResponse struct {
	Status       BuildStatus
	ManifestPath string
	Fingerprint  string

	// Artifacts dropped in best effort mode because a tool they
	// need failed terminally.
	DroppedArtifacts []string

	// Tool identifier -> terminal error.
	Failed map[string]error
}

type Engine struct {
	config_obj *config.Config
	repository *artifacts.Repository
	cache      *cache.ToolCache

	Fetcher *fetcher.Fetcher
	Builder *packager.Builder
}

func NewEngine(config_obj *config.Config,
	repository *artifacts.Repository) (*Engine, error) {

	tool_cache, err := cache.NewToolCache(config_obj)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config_obj: config_obj,
		repository: repository,
		cache:      tool_cache,
		Fetcher:    fetcher.NewFetcher(config_obj, tool_cache),
		Builder:    packager.NewBuilder(config_obj),
	}, nil
}

func (self *Engine) Repository() *artifacts.Repository {
	return self.repository
}

// Build a self contained offline package for the requested artifact
// set. Definition errors (conflicts, unknown artifacts) abort before
// anything is written. Fetch failures follow the requested mode:
// fail fast aborts the batch, best effort drops the affected
// artifacts and reports them.
func (self *Engine) Build(ctx context.Context,
	request *BuildRequest) (*BuildResponse, error) {

	logger := logging.GetLogger(self.config_obj, &logging.GenericComponent)

	if len(request.Artifacts) == 0 {
		return nil, errors.New("no artifacts requested")
	}

	resolver, err := inventory.NewResolver(self.repository)
	if err != nil {
		return nil, err
	}

	set, err := resolver.Resolve(request.Artifacts)
	if err != nil {
		return nil, err
	}

	logger.Info("Resolved %v artifacts to %v tools",
		len(set.Artifacts), len(set.Tools))

	fetch_result, err := self.Fetcher.Fetch(ctx, set,
		fetcher.Options{BestEffort: request.BestEffort})
	if err != nil {
		return &BuildResponse{
			Status: BuildFailed,
			Failed: fetch_result.Failed,
		}, err
	}

	dropped := []string{}
	if len(fetch_result.Failed) > 0 {
		set, dropped = set.WithoutFailedTools(fetch_result.Failed)
		if len(set.Artifacts) == 0 {
			return &BuildResponse{
				Status:           BuildFailed,
				DroppedArtifacts: dropped,
				Failed:           fetch_result.Failed,
			}, errors.New("all requested artifacts failed")
		}

		for _, name := range dropped {
			logger.Warn("Dropping artifact %v: a required tool failed", name)
		}
	}

	pkg, err := self.Builder.Build(ctx, request.OutputPath, set,
		fetch_result.Entries, request.Parameters)
	if err != nil {
		return &BuildResponse{
			Status:           BuildFailed,
			DroppedArtifacts: dropped,
			Failed:           fetch_result.Failed,
		}, err
	}

	status := BuildSuccess
	if len(dropped) > 0 || len(fetch_result.Failed) > 0 {
		status = BuildPartial
	}

	return &BuildResponse{
		Status:           status,
		ManifestPath:     pkg.ManifestPath(),
		Fingerprint:      pkg.Manifest.Fingerprint,
		DroppedArtifacts: dropped,
		Failed:           fetch_result.Failed,
	}, nil
}
