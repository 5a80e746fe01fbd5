package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"videoripper/internal"
	"videoripper/utils"
)

// ResolverConfig bounds the requests made while resolving an identifier
type ResolverConfig struct {
	// PageRetries is the number of attempts per lookup or page request
	PageRetries int
	Timeout     time.Duration
	Backoff     *utils.RetryConfig
}

// DefaultResolverConfig returns five attempts of ten seconds per request
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		PageRetries: 5,
		Timeout:     10 * time.Second,
		Backoff:     utils.DefaultRetryConfig(),
	}
}

// PaginatedResolver looks an identifier up and walks its media listing
// page by page, following the cursor returned by each page
type PaginatedResolver struct {
	httpClient *utils.HTTPClient
	profile    internal.ProviderProfile
	metadata   internal.MetadataWriter
	config     ResolverConfig
	now        func() time.Time
}

// lookupResponse is the search result; only the first entry is used
type lookupResponse struct {
	UserList      []lookupEntry `json:"user_list"`
	ChallengeList []lookupEntry `json:"challenge_list"`
}

type lookupEntry struct {
	UserInfo      map[string]interface{} `json:"user_info"`
	ChallengeInfo map[string]interface{} `json:"challenge_info"`
}

// listingEntry is one post of a listing page
type listingEntry struct {
	Video *struct {
		PlayAddr *struct {
			URI string `json:"uri"`
		} `json:"play_addr"`
	} `json:"video"`
}

// NewPaginatedResolver creates a resolver. metadata may be nil.
func NewPaginatedResolver(httpClient *utils.HTTPClient, profile internal.ProviderProfile, metadata internal.MetadataWriter, config ResolverConfig) *PaginatedResolver {
	if config.PageRetries <= 0 {
		config.PageRetries = DefaultResolverConfig().PageRetries
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultResolverConfig().Timeout
	}
	if config.Backoff == nil {
		config.Backoff = utils.DefaultRetryConfig()
	}

	return &PaginatedResolver{
		httpClient: httpClient,
		profile:    profile,
		metadata:   metadata,
		config:     config,
		now:        time.Now,
	}
}

var _ internal.Resolver = (*PaginatedResolver)(nil)

// ResolveAll returns the provider key of id and every media reference listed
// for it, in page order. An identifier the provider does not know yields a
// Resolution without a key. Page failures end the walk early and keep the
// references gathered so far; only cancellation is reported as an error.
func (r *PaginatedResolver) ResolveAll(ctx context.Context, id internal.Identifier, dir string) (*internal.Resolution, error) {
	record, key, err := r.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return &internal.Resolution{}, nil
	}

	if r.metadata != nil {
		if err := r.metadata.WriteSnapshot(dir, id, key, record); err != nil {
			logFailure(err)
		}
	}

	refs, err := r.walk(ctx, id, key)
	return &internal.Resolution{Key: key, References: refs}, err
}

// Lookup searches the provider for id and returns its record and key. Both
// are empty when nothing matches.
func (r *PaginatedResolver) Lookup(ctx context.Context, id internal.Identifier) (map[string]interface{}, string, error) {
	source := id.Kind.Source()
	endpoint := r.profile.SearchEndpoint(source)

	var result lookupResponse
	err := r.withRetries(ctx, endpoint, func() error {
		query := r.profile.SearchQuery(id.Name, source, r.now())
		body, err := r.get(ctx, endpoint, query, r.profile.SearchHeaders)
		if err != nil {
			return err
		}
		result = lookupResponse{}
		return decodeJSON(endpoint, body, &result)
	})
	if err != nil {
		return nil, "", err
	}

	var record map[string]interface{}
	var keyField string
	switch id.Kind {
	case internal.KindCollection:
		keyField = "cid"
		if len(result.ChallengeList) > 0 {
			record = result.ChallengeList[0].ChallengeInfo
		}
	default:
		keyField = "uid"
		if len(result.UserList) > 0 {
			record = result.UserList[0].UserInfo
		}
	}

	key := stringValue(record[keyField])
	if key == "" {
		return nil, "", nil
	}
	return record, key, nil
}

// walk follows the listing cursor until the provider reports no more pages
func (r *PaginatedResolver) walk(ctx context.Context, id internal.Identifier, key string) ([]internal.MediaReference, error) {
	variant := r.profile.Variant(id.Kind)

	var refs []internal.MediaReference
	seen := make(map[internal.MediaReference]struct{})
	cursor := ""

	for pageNum := 1; ; pageNum++ {
		page, err := r.FetchPage(ctx, variant, key, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return refs, ctx.Err()
			}
			internal.LogWarn("stopping at page %d of %s, keeping %d references", pageNum, id, len(refs))
			logFailure(err)
			return refs, nil
		}

		for _, ref := range page.References {
			if _, dup := seen[ref]; dup {
				internal.LogDebug("duplicate reference %s on page %d of %s", ref, pageNum, id)
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
		internal.LogDebug("page %d of %s: %d references, has_more=%t, cursor=%q",
			pageNum, id, len(page.References), page.HasMore, page.Cursor)

		if !page.HasMore || page.Cursor == "" || page.Cursor == "0" {
			return refs, nil
		}
		cursor = page.Cursor
	}
}

// FetchPage requests one listing page, retrying transport and encoding
// failures. A page with an entry lacking its media reference is rejected
// as a whole.
func (r *PaginatedResolver) FetchPage(ctx context.Context, variant internal.ListingVariant, key, cursor string) (*internal.Page, error) {
	var page *internal.Page
	err := r.withRetries(ctx, variant.URL, func() error {
		body, err := r.get(ctx, variant.URL, variant.ListingQuery(key, cursor), r.profile.ListingHeaders)
		if err != nil {
			return err
		}
		page, err = decodePage(variant, body)
		return err
	})
	return page, err
}

// decodePage extracts references, the continuation flag and the next cursor
func decodePage(variant internal.ListingVariant, body []byte) (*internal.Page, error) {
	var raw map[string]json.RawMessage
	if err := decodeJSON(variant.URL, body, &raw); err != nil {
		return nil, err
	}

	// The body is valid JSON from here on, so a shape mismatch is structural
	var entries []json.RawMessage
	if list, ok := raw["aweme_list"]; ok {
		if err := json.Unmarshal(list, &entries); err != nil {
			return nil, internal.NewCrawlError(0, "aweme_list is not a list", internal.ErrStructuralDecoding).
				WithCause(err).
				WithURL(variant.URL)
		}
	}

	page := &internal.Page{
		References: make([]internal.MediaReference, 0, len(entries)),
		HasMore:    flagValue(raw["has_more"]),
		Cursor:     stringValue(rawValue(raw[variant.CursorField])),
	}

	for i, data := range entries {
		var entry listingEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, internal.NewStructuralDecodingError("video.play_addr.uri", i).WithCause(err)
		}
		if entry.Video == nil || entry.Video.PlayAddr == nil || entry.Video.PlayAddr.URI == "" {
			return nil, internal.NewStructuralDecodingError("video.play_addr.uri", i)
		}
		page.References = append(page.References, internal.MediaReference(entry.Video.PlayAddr.URI))
	}

	return page, nil
}

// get performs one bounded request and returns the body of a 2xx response
func (r *PaginatedResolver) get(ctx context.Context, endpoint string, query url.Values, headers map[string]string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	resp, err := r.httpClient.Get(reqCtx, endpoint, query, headers)
	if classified := utils.ClassifyResponse(resp, err); classified != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, classified
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internal.NewTransientError(resp.StatusCode, "failed to read response body", err)
	}
	return body, nil
}

// withRetries runs fn up to PageRetries times while it fails with a
// retryable error
func (r *PaginatedResolver) withRetries(ctx context.Context, endpoint string, fn func() error) error {
	var lastErr error
	attempts := 0
	for attempts < r.config.PageRetries {
		if attempts > 0 {
			if err := r.config.Backoff.Wait(ctx, attempts); err != nil {
				return err
			}
		}
		attempts++

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !internal.IsRetryable(lastErr) {
			return lastErr
		}
		internal.LogDebug("request %d/%d to %s failed: %v", attempts, r.config.PageRetries, endpoint, lastErr)
	}
	return internal.NewRetriesExhaustedError(endpoint, attempts, lastErr)
}

// decodeJSON decodes a UTF-8 JSON document, keeping numbers verbatim
func decodeJSON(endpoint string, data []byte, v interface{}) error {
	if !utf8.Valid(data) {
		return internal.NewEncodingError(endpoint, errors.New("response is not valid UTF-8"))
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return internal.NewEncodingError(endpoint, err)
	}
	return nil
}

// rawValue decodes a raw JSON field into a plain value
func rawValue(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&v); err != nil {
		return nil
	}
	return v
}

// flagValue reads a flag sent as 1/0, true/false or their string forms
func flagValue(raw json.RawMessage) bool {
	switch v := rawValue(raw).(type) {
	case bool:
		return v
	case json.Number:
		n, err := v.Int64()
		return err == nil && n != 0
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

// stringValue renders a key or cursor value, which the provider sends as
// either a string or a number
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// logFailure logs err at the severity its classification calls for
func logFailure(err error) {
	var crawlErr *internal.CrawlError
	if errors.As(err, &crawlErr) {
		internal.LogCrawlError(crawlErr)
		return
	}
	internal.LogError("%v", err)
}
