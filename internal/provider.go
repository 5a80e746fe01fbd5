package internal

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ListingVariant describes the paginated media-list endpoint for one kind
type ListingVariant struct {
	URL      string
	KeyParam string
	PageSize int

	// The request parameter and the response continuation field are named
	// independently; the response field is authoritative.
	CursorParam   string
	CursorField   string
	InitialCursor string

	Params map[string]string
}

// ProviderProfile is the fixed set of endpoints, headers and parameters used
// to talk to the provider. Build it once and treat it as read-only.
type ProviderProfile struct {
	SearchURL     string
	SearchHeaders map[string]string
	SearchParams  map[string]string
	SourceParams  map[string]map[string]string

	ListingHeaders map[string]string
	Account        ListingVariant
	Collection     ListingVariant

	PlayURL       string
	PlayParams    map[string]string
	FileExtension string
}

// DefaultProviderProfile returns the profile of the public mobile API
func DefaultProviderProfile() ProviderProfile {
	return ProviderProfile{
		SearchURL: "https://api.amemv.com/aweme/v1",
		SearchHeaders: map[string]string{
			"Host":       "api.amemv.com",
			"User-Agent": "Aweme/1.7.6 (iPhone; iOS 11.3; Scale/3.00)",
		},
		SearchParams: map[string]string{
			"iid":             "26666102238",
			"device_id":       "46166717995",
			"os_api":          "18",
			"app_name":        "aweme",
			"channel":         "App Store",
			"idfa":            "00000000-0000-0000-0000-000000000000",
			"device_platform": "iphone",
			"build_number":    "17603",
			"vid":             "2ED370A7-F09C-4C9E-90F5-872D57F3127C",
			"openudid":        "20dae85eeac1da35a69e2a0ffeaeef41c78a2e97",
			"device_type":     "iPhone8,2",
			"app_version":     "1.7.6",
			"version_code":    "1.7.6",
			"os_version":      "11.3",
			"screen_width":    "1242",
			"aid":             "1128",
			"ac":              "WIFI",
			"count":           "20",
			"cursor":          "0",
		},
		SourceParams: map[string]map[string]string{
			"discover": {
				"search_source": "discover",
				"type":          "1",
				"mas":           "00a49d57e900796603a0887771255f2c2c8351009ce265bf1f2eb8",
				"as":            "a1f580bcf1afba41976207",
			},
			"challenge": {
				"iid":           "28175672430",
				"search_source": "challenge",
				"mas":           "008c37d4eaf9b158c3d1b7e3fc0d66008dc45306aae0ff5380d6a8",
				"as":            "a1c5600cb7576a7e273418",
			},
		},

		// Accept-Encoding is left to net/http so gzip stays transparent
		ListingHeaders: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language":           "zh-CN,zh;q=0.9",
			"Cache-Control":             "max-age=0",
			"Upgrade-Insecure-Requests": "1",
			"User-Agent":                "Mozilla/5.0 (iPhone; CPU iPhone OS 11_0 like Mac OS X) AppleWebKit/604.1.38 (KHTML, like Gecko) Version/11.0 Mobile/15A372 Safari/604.1",
		},
		Account: ListingVariant{
			URL:           "https://www.douyin.com/aweme/v1/aweme/post/",
			KeyParam:      "user_id",
			PageSize:      21,
			CursorParam:   "max_cursor",
			CursorField:   "max_cursor",
			InitialCursor: "0",
			Params: map[string]string{
				"aid": "1128",
			},
		},
		Collection: ListingVariant{
			URL:           "https://www.iesdouyin.com/aweme/v1/challenge/aweme/",
			KeyParam:      "ch_id",
			PageSize:      9,
			CursorParam:   "cursor",
			CursorField:   "cursor",
			InitialCursor: "0",
			Params: map[string]string{
				"aid":                  "1128",
				"screen_limit":         "3",
				"download_click_limit": "3",
			},
		},

		PlayURL: "https://aweme.snssdk.com/aweme/v1/play/",
		PlayParams: map[string]string{
			"line":            "0",
			"ratio":           "720p",
			"media_type":      "4",
			"vr_type":         "0",
			"test_cdn":        "None",
			"improve_bitrate": "0",
		},
		FileExtension: ".mp4",
	}
}

// Variant returns the listing variant for a kind
func (p ProviderProfile) Variant(kind Kind) ListingVariant {
	if kind == KindCollection {
		return p.Collection
	}
	return p.Account
}

// SearchEndpoint returns the lookup URL for a search source
func (p ProviderProfile) SearchEndpoint(source string) string {
	return strings.TrimSuffix(p.SearchURL, "/") + "/" + source + "/search/"
}

// SearchQuery builds the lookup query for a keyword
func (p ProviderProfile) SearchQuery(keyword, source string, now time.Time) url.Values {
	q := url.Values{}
	for k, v := range p.SearchParams {
		q.Set(k, v)
	}
	for k, v := range p.SourceParams[source] {
		q.Set(k, v)
	}
	q.Set("keyword", keyword)
	q.Set("ts", strconv.FormatInt(now.Unix(), 10))
	return q
}

// ListingQuery builds the page request for a resolved key and cursor
func (v ListingVariant) ListingQuery(key, cursor string) url.Values {
	q := url.Values{}
	for k, val := range v.Params {
		q.Set(k, val)
	}
	q.Set(v.KeyParam, key)
	q.Set("count", strconv.Itoa(v.PageSize))
	if cursor == "" {
		cursor = v.InitialCursor
	}
	q.Set(v.CursorParam, cursor)
	return q
}

// PlayQuery builds the retrieval query for a media reference
func (p ProviderProfile) PlayQuery(ref MediaReference) url.Values {
	q := url.Values{}
	for k, v := range p.PlayParams {
		q.Set(k, v)
	}
	q.Set("video_id", string(ref))
	return q
}
