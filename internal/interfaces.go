package internal

import "context"

// Resolver turns an identifier into its provider key and media references
type Resolver interface {
	ResolveAll(ctx context.Context, id Identifier, dir string) (*Resolution, error)
}

// Fetcher retrieves one media reference into a directory
type Fetcher interface {
	Fetch(ctx context.Context, ref MediaReference, dir string) (DownloadOutcome, error)
}

// MetadataWriter persists the lookup record of a resolved identifier
type MetadataWriter interface {
	WriteSnapshot(dir string, id Identifier, key string, record map[string]interface{}) error
}

// Progress reports per-identifier download progress
type Progress interface {
	Start(label string, total int)
	Increment(outcome DownloadOutcome)
	Finish()
}
