package fetcher

// Downloads the resolved tool set with bounded concurrency. Tools
// already present and verified in the cache are reused. A transient
// network failure is retried with backoff; a hash mismatch is
// terminal immediately - retrying a mismatch would just mask a
// compromised or stale mirror.

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	humanize "github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/cache"
	"www.velocidex.com/golang/packrat/config"
	"www.velocidex.com/golang/packrat/inventory"
	"www.velocidex.com/golang/packrat/logging"
	"www.velocidex.com/golang/packrat/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	// Continue past terminal failures and report them, instead of
	// aborting the whole batch on the first one.
	BestEffort bool
}

type Result struct {
	// Tool identifier -> verified cache entry.
	Entries map[string]*cache.Entry

	// Tool identifier -> terminal error.
	Failed map[string]error
}

type Fetcher struct {
	config_obj *config.Config
	cache      *cache.ToolCache

	// Swapped out by tests.
	Client HTTPClient
	Clock  utils.Clock
}

func NewFetcher(config_obj *config.Config,
	tool_cache *cache.ToolCache) *Fetcher {

	timeout := time.Duration(config_obj.HttpTimeoutSec) * time.Second

	return &Fetcher{
		config_obj: config_obj,
		cache:      tool_cache,
		Clock:      utils.RealClock{},
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   300 * time.Second,
					KeepAlive: 300 * time.Second,
				}).DialContext,
				MaxIdleConns:          100,
				IdleConnTimeout:       300 * time.Second,
				TLSHandshakeTimeout:   100 * time.Second,
				ExpectContinueTimeout: 10 * time.Second,
				ResponseHeaderTimeout: 100 * time.Second,
			},
		},
	}
}

// Fetch materializes every tool in the set. Package assembly only
// proceeds once this returns - it is a barrier, not a stream. In fail
// fast mode the first terminal failure stops new downloads from
// starting (in-flight ones drain) and is returned as the batch error.
func (self *Fetcher) Fetch(ctx context.Context,
	set *inventory.ResolvedToolSet, opts Options) (*Result, error) {

	result := &Result{
		Entries: make(map[string]*cache.Entry),
		Failed:  make(map[string]error),
	}

	sub_ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var first_err error

	pool := pond.NewPool(int(self.config_obj.Concurrency))

	for _, name := range set.ToolNames() {
		tool := set.Tools[name]

		pool.Submit(func() {
			// Once the batch is aborted, queued tasks become
			// no-ops.
			if sub_ctx.Err() != nil {
				return
			}

			entry, err := self.fetchTool(sub_ctx, tool)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				result.Failed[tool.Name] = err
				if first_err == nil {
					first_err = err
				}
				if !opts.BestEffort {
					cancel()
				}
				return
			}

			result.Entries[tool.Name] = entry
		})
	}

	pool.StopAndWait()

	if !opts.BestEffort && first_err != nil {
		return result, first_err
	}

	return result, nil
}

func (self *Fetcher) fetchTool(ctx context.Context,
	tool *artifacts.ToolDefinition) (*cache.Entry, error) {

	logger := logging.GetLogger(self.config_obj, &logging.FetcherComponent)

	entry, err := self.cache.Lookup(tool.Name, tool.ExpectedHash)
	if err == nil {
		logger.Debug("Tool %v already cached (%v)",
			tool.Name, humanize.Bytes(uint64(entry.Size)))
		return entry, nil
	}

	// A corrupt cached blob is a verification failure, not a miss.
	var mismatch *cache.HashMismatchError
	if errors.As(err, &mismatch) {
		return nil, err
	}

	if tool.Url == "" {
		return nil, &DownloadError{
			Tool: tool.Name,
			Err:  errors.New("tool has no url defined and is not in the cache"),
		}
	}

	data, err := self.download(ctx, tool)
	if err != nil {
		return nil, err
	}

	if tool.Size > 0 && int64(len(data)) != tool.Size {
		logger.Warn("Tool %v: downloaded %v bytes but definition declares %v",
			tool.Name, len(data), tool.Size)
	}

	// The cache verifies the bytes against the expected hash before
	// anything is persisted.
	entry, err = self.cache.Store(tool.Name, data, tool)
	if err != nil {
		return nil, err
	}

	logger.Info("Downloaded tool %v from %v (%v)",
		tool.Name, tool.Url, humanize.Bytes(uint64(entry.Size)))

	return entry, nil
}

func (self *Fetcher) download(ctx context.Context,
	tool *artifacts.ToolDefinition) ([]byte, error) {

	logger := logging.GetLogger(self.config_obj, &logging.FetcherComponent)

	retries := 0
	for {
		data, resp, err := self.downloadOnce(ctx, tool)
		if err == nil && resp.StatusCode == http.StatusOK {
			if retries > 0 {
				logger.Info("Retry of %v successful", tool.Name)
			}
			return data, nil
		}

		retry, _ := retryablehttp.ErrorPropagatedRetryPolicy(ctx, resp, err)
		if retry && retries < int(self.config_obj.RetryCount) {
			retries++
			wait := retryablehttp.DefaultBackoff(
				1*time.Second, 30*time.Second, retries, resp)
			logger.Warn("Transient failure fetching %v, will retry #%v in %v: %v",
				tool.Name, retries, wait, downloadFailure(resp, err))
			self.Clock.Sleep(wait)
			continue
		}

		return nil, &DownloadError{
			Tool: tool.Name,
			Url:  tool.Url,
			Err:  downloadFailure(resp, err),
		}
	}
}

func (self *Fetcher) downloadOnce(ctx context.Context,
	tool *artifacts.ToolDefinition) ([]byte, *http.Response, error) {

	request, err := http.NewRequestWithContext(ctx, "GET", tool.Url, nil)
	if err != nil {
		return nil, nil, err
	}
	request.Header.Set("User-Agent", self.config_obj.UserAgent)

	resp, err := self.Client.Do(request)
	if err != nil {
		return nil, resp, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp, nil
	}

	data, err := utils.ReadAllWithLimit(
		resp.Body, self.config_obj.MaxToolSize)
	if err != nil {
		return nil, resp, err
	}

	return data, resp, nil
}

func downloadFailure(resp *http.Response, err error) error {
	if err != nil {
		return err
	}
	if resp != nil {
		status := resp.Status
		if status == "" {
			status = fmt.Sprintf("%v %v", resp.StatusCode,
				http.StatusText(resp.StatusCode))
		}
		return fmt.Errorf("http error: %v", status)
	}
	return errors.New("unknown download failure")
}
