package internal

import (
	"testing"
	"time"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		token   string
		name    string
		kind    Kind
		dir     string
		wantErr bool
	}{
		{token: "12345", name: "12345", kind: KindAccount, dir: "12345"},
		{token: "  12345 ", name: "12345", kind: KindAccount, dir: "12345"},
		{token: "#dance", name: "dance", kind: KindCollection, dir: "#dance"},
		{token: "# dance", name: "dance", kind: KindCollection, dir: "#dance"},
		{token: "", wantErr: true},
		{token: "#", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			id, err := ParseIdentifier(tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.token)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id.Name != tt.name || id.Kind != tt.kind || id.DirName() != tt.dir {
				t.Errorf("ParseIdentifier(%q) = %+v (dir %q)", tt.token, id, id.DirName())
			}
		})
	}
}

func TestIdentifier_StringIsCanonical(t *testing.T) {
	tests := []struct {
		token   string
		wantRaw string
		want    string
	}{
		{" 12345 ", "12345", "12345"},
		{"#dance", "#dance", "#dance"},
		{"#  dance ", "#  dance", "#dance"},
	}

	for _, tt := range tests {
		id, err := ParseIdentifier(tt.token)
		if err != nil {
			t.Fatalf("ParseIdentifier(%q) failed: %v", tt.token, err)
		}
		if id.Raw != tt.wantRaw {
			t.Errorf("ParseIdentifier(%q).Raw = %q, want %q", tt.token, id.Raw, tt.wantRaw)
		}
		if id.String() != tt.want || id.String() != id.DirName() {
			t.Errorf("ParseIdentifier(%q).String() = %q, want %q matching DirName", tt.token, id.String(), tt.want)
		}
	}
}

func TestKindSource(t *testing.T) {
	if KindAccount.Source() != "discover" {
		t.Errorf("account source = %q", KindAccount.Source())
	}
	if KindCollection.Source() != "challenge" {
		t.Errorf("collection source = %q", KindCollection.Source())
	}
}

func TestDownloadOutcome_String(t *testing.T) {
	tests := map[DownloadOutcome]string{
		OutcomeSuccess: "success",
		OutcomeSkipped: "skipped",
		OutcomeFailed:  "failed",
	}
	for outcome, want := range tests {
		if outcome.String() != want {
			t.Errorf("%d.String() = %q, want %q", outcome, outcome.String(), want)
		}
	}
}

func TestProviderProfile_Queries(t *testing.T) {
	profile := DefaultProviderProfile()
	now := time.Unix(1700000000, 0)

	discover := profile.SearchQuery("12345", "discover", now)
	if discover.Get("keyword") != "12345" || discover.Get("search_source") != "discover" {
		t.Errorf("unexpected discover query: %v", discover)
	}
	if discover.Get("ts") != "1700000000" {
		t.Errorf("ts = %q", discover.Get("ts"))
	}
	if discover.Get("iid") != "26666102238" {
		t.Errorf("discover iid = %q", discover.Get("iid"))
	}

	challenge := profile.SearchQuery("dance", "challenge", now)
	if challenge.Get("iid") != "28175672430" || challenge.Get("type") != "" {
		t.Errorf("unexpected challenge query: %v", challenge)
	}

	if profile.SearchEndpoint("challenge") != "https://api.amemv.com/aweme/v1/challenge/search/" {
		t.Errorf("unexpected search endpoint %q", profile.SearchEndpoint("challenge"))
	}

	listing := profile.Variant(KindAccount).ListingQuery("777", "")
	if listing.Get("user_id") != "777" || listing.Get("max_cursor") != "0" || listing.Get("count") != "21" {
		t.Errorf("unexpected account listing query: %v", listing)
	}

	next := profile.Variant(KindCollection).ListingQuery("888", "18")
	if next.Get("ch_id") != "888" || next.Get("cursor") != "18" || next.Get("count") != "9" {
		t.Errorf("unexpected collection listing query: %v", next)
	}

	play := profile.PlayQuery("v0200f")
	if play.Get("video_id") != "v0200f" || play.Get("ratio") != "720p" {
		t.Errorf("unexpected play query: %v", play)
	}
}

func TestProviderProfile_QueriesDoNotShareState(t *testing.T) {
	profile := DefaultProviderProfile()
	first := profile.Variant(KindAccount).ListingQuery("1", "50")
	second := profile.Variant(KindAccount).ListingQuery("1", "")

	if first.Get("max_cursor") != "50" || second.Get("max_cursor") != "0" {
		t.Errorf("listing queries leaked cursor state: %v / %v", first, second)
	}
	if profile.Account.Params["max_cursor"] != "" {
		t.Error("profile parameters must not be mutated by query building")
	}
}
