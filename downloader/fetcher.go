package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"videoripper/internal"
	"videoripper/utils"
)

// FetcherConfig controls the attempt budget of a ResourceFetcher
type FetcherConfig struct {
	Retries int
	Timeout time.Duration
	Backoff *utils.RetryConfig
}

// DefaultFetcherConfig returns five attempts of ten seconds each with no pause
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Retries: 5,
		Timeout: 10 * time.Second,
		Backoff: utils.DefaultRetryConfig(),
	}
}

// ResourceFetcher downloads one media reference into an identifier directory.
// A file that is already present is never fetched again.
type ResourceFetcher struct {
	httpClient *utils.HTTPClient
	profile    internal.ProviderProfile
	fileOps    *utils.FileOperations
	config     FetcherConfig
}

// NewResourceFetcher creates a fetcher for the given profile
func NewResourceFetcher(httpClient *utils.HTTPClient, profile internal.ProviderProfile, config FetcherConfig) *ResourceFetcher {
	if config.Retries <= 0 {
		config.Retries = DefaultFetcherConfig().Retries
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultFetcherConfig().Timeout
	}
	if config.Backoff == nil {
		config.Backoff = utils.DefaultRetryConfig()
	}

	return &ResourceFetcher{
		httpClient: httpClient,
		profile:    profile,
		fileOps:    utils.NewFileOperations(),
		config:     config,
	}
}

var _ internal.Fetcher = (*ResourceFetcher)(nil)

// Destination returns the file a reference is stored in
func (f *ResourceFetcher) Destination(ref internal.MediaReference, dir string) string {
	return filepath.Join(dir, string(ref)+f.profile.FileExtension)
}

// Fetch retrieves ref into dir. Access denial stops at the first attempt; any
// other failure is retried until the budget is spent. A failed fetch leaves no
// file behind.
func (f *ResourceFetcher) Fetch(ctx context.Context, ref internal.MediaReference, dir string) (internal.DownloadOutcome, error) {
	dest := f.Destination(ref, dir)
	if f.fileOps.FileExists(dest) {
		internal.LogDebug("%s already exists, skipping", dest)
		return internal.OutcomeSkipped, nil
	}

	playURL := f.playURL(ref)
	internal.LogInfo("Downloading %s from %s", filepath.Base(dest), playURL)

	var lastErr error
	attempts := 0
	for attempts < f.config.Retries {
		if attempts > 0 {
			if err := f.config.Backoff.Wait(ctx, attempts); err != nil {
				lastErr = err
				break
			}
		}
		attempts++

		err := f.attempt(ctx, ref, dest)
		if err == nil {
			return internal.OutcomeSuccess, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if !internal.IsRetryable(err) {
			f.cleanup(dest)
			if internal.IsErrorType(err, internal.ErrAccessDenied) {
				internal.LogWarn("Access denied when retrieving %s", playURL)
			}
			return internal.OutcomeFailed, err
		}
		internal.LogDebug("attempt %d/%d for %s failed: %v", attempts, f.config.Retries, ref, err)
	}

	f.cleanup(dest)

	failure := internal.NewRetriesExhaustedError(playURL, attempts, lastErr)
	internal.LogError("Failed to retrieve %s from %s", filepath.Base(dest), playURL)
	return internal.OutcomeFailed, failure
}

// attempt performs one bounded request and commits the body on success
func (f *ResourceFetcher) attempt(ctx context.Context, ref internal.MediaReference, dest string) error {
	attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	resp, err := f.httpClient.Get(attemptCtx, f.profile.PlayURL, f.profile.PlayQuery(ref), nil)
	if classified := utils.ClassifyResponse(resp, err); classified != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return classified
	}
	defer resp.Body.Close()

	file, err := f.fileOps.CreatePartialFile(dest)
	if err != nil {
		return stagingError("cannot create partial file", dest, err)
	}

	written, copyErr := f.fileOps.CopyToFile(file, resp.Body)
	closeErr := file.Close()

	if copyErr != nil {
		return internal.NewTransientError(resp.StatusCode, "body transfer interrupted", copyErr)
	}
	if closeErr != nil {
		return stagingError("cannot close partial file", dest, closeErr)
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return internal.NewTransientError(resp.StatusCode,
			fmt.Sprintf("short body: got %d of %d bytes", written, resp.ContentLength), nil)
	}

	if err := f.fileOps.CommitPartialFile(dest); err != nil {
		return stagingError("cannot commit downloaded file", dest, err)
	}
	return nil
}

// stagingError reports a local I/O failure of one attempt. Like a network
// failure it discards the attempt and leaves the retry budget to decide.
func stagingError(message, path string, cause error) *internal.CrawlError {
	return internal.NewTransientError(0, message, cause).WithContext("path", path)
}

// cleanup removes the staging file; the destination only ever appears
// through a successful commit
func (f *ResourceFetcher) cleanup(dest string) {
	if err := f.fileOps.RemoveIfExists(f.fileOps.PartPath(dest)); err != nil {
		internal.LogWarn("failed to remove partial file for %s: %v", dest, err)
	}
}

func (f *ResourceFetcher) playURL(ref internal.MediaReference) string {
	return f.profile.PlayURL + "?" + f.profile.PlayQuery(ref).Encode()
}
