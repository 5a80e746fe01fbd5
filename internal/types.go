package internal

import "strings"

// Kind discriminates account identifiers from tag collections
type Kind int

const (
	KindAccount Kind = iota
	KindCollection
)

// CollectionMarker prefixes an input token naming a tag collection
const CollectionMarker = "#"

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Source returns the search source used to look up this kind
func (k Kind) Source() string {
	if k == KindCollection {
		return "challenge"
	}
	return "discover"
}

// Identifier names an account or a tag collection to crawl
type Identifier struct {
	Raw  string
	Name string
	Kind Kind
}

// ParseIdentifier turns a raw input token into an Identifier. A leading
// CollectionMarker marks a collection.
func ParseIdentifier(token string) (Identifier, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Identifier{}, NewValidationError("identifier", "identifier cannot be empty")
	}

	if strings.HasPrefix(raw, CollectionMarker) {
		name := strings.TrimSpace(strings.TrimPrefix(raw, CollectionMarker))
		if name == "" {
			return Identifier{}, NewValidationErrorWithValue("identifier", "collection name cannot be empty", raw)
		}
		return Identifier{Raw: raw, Name: name, Kind: KindCollection}, nil
	}

	return Identifier{Raw: raw, Name: raw, Kind: KindAccount}, nil
}

// DirName is the name of the identifier's directory under the download root
func (id Identifier) DirName() string {
	if id.Kind == KindCollection {
		return CollectionMarker + id.Name
	}
	return id.Name
}

// String returns the canonical form of the identifier, the same as its
// directory name. Raw keeps the token as the user wrote it.
func (id Identifier) String() string {
	return id.DirName()
}

// MediaReference identifies one downloadable resource
type MediaReference string

// Page is the result of one listing request
type Page struct {
	References []MediaReference
	Cursor     string
	HasMore    bool
}

// Resolution is the outcome of resolving one identifier. An empty Key means
// the provider had no match for the identifier.
type Resolution struct {
	Key        string
	References []MediaReference
}

// Found reports whether the lookup matched anything
func (r *Resolution) Found() bool {
	return r != nil && r.Key != ""
}

// WorkItem is one queued download
type WorkItem struct {
	Reference MediaReference
	Dir       string
}

// DownloadOutcome is the terminal state of a WorkItem
type DownloadOutcome int

const (
	OutcomeSuccess DownloadOutcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// String returns the string representation of the outcome
func (o DownloadOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
