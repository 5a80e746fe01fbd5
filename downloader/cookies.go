package downloader

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"videoripper/internal"
)

// httpOnlyPrefix marks HttpOnly cookies in browser exports of the Netscape format
const httpOnlyPrefix = "#HttpOnly_"

// CookieStore holds the session cookies sent with provider requests
type CookieStore struct {
	cookieStore map[string]*http.Cookie
	mutex       sync.RWMutex
	now         func() time.Time
}

// NewCookieStore creates an empty store
func NewCookieStore() *CookieStore {
	return &CookieStore{
		cookieStore: make(map[string]*http.Cookie),
		now:         time.Now,
	}
}

// LoadCookies replaces the store's content with the cookies of a
// Netscape-format file. Expired cookies are dropped.
func (s *CookieStore) LoadCookies(path string) ([]*http.Cookie, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, internal.NewValidationErrorWithValue("cookies", "failed to open cookie file", path).
			WithContext("error", err.Error())
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.clearCookies()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		httpOnly := strings.HasPrefix(line, httpOnlyPrefix)
		if httpOnly {
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cookie, err := parseNetscapeCookieLine(line)
		if err != nil {
			return nil, fmt.Errorf("invalid cookie format at line %d: %w", lineNum, err)
		}
		cookie.HttpOnly = httpOnly

		if !cookie.Expires.IsZero() && cookie.Expires.Before(s.now()) {
			internal.LogDebug("skipping expired cookie %s", cookie.Name)
			continue
		}

		s.cookieStore[cookie.Name] = cookie
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading cookie file: %w", err)
	}

	internal.LogDebug("loaded %d cookies from %s", len(s.cookieStore), path)
	return s.cookiesLocked(), nil
}

// Cookies returns the stored cookies ordered by name
func (s *CookieStore) Cookies() []*http.Cookie {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.cookiesLocked()
}

func (s *CookieStore) cookiesLocked() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(s.cookieStore))
	for _, cookie := range s.cookieStore {
		cookies = append(cookies, cookie)
	}
	sort.Slice(cookies, func(i, j int) bool { return cookies[i].Name < cookies[j].Name })
	return cookies
}

// parseNetscapeCookieLine parses a single line from Netscape cookie format
// Format: domain	flag	path	secure	expiration	name	value
func parseNetscapeCookieLine(line string) (*http.Cookie, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return nil, fmt.Errorf("expected 7 fields, got %d", len(fields))
	}

	var expires time.Time
	if fields[4] != "0" {
		timestamp, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expiration timestamp: %w", err)
		}
		expires = time.Unix(timestamp, 0)
	}

	if fields[5] == "" {
		return nil, fmt.Errorf("cookie name is empty")
	}

	return &http.Cookie{
		Domain:  fields[0],
		Path:    fields[2],
		Secure:  fields[3] == "TRUE",
		Expires: expires,
		Name:    fields[5],
		Value:   fields[6],
	}, nil
}

// clearCookies drops all stored cookies, blanking their values first
func (s *CookieStore) clearCookies() {
	for name, cookie := range s.cookieStore {
		if cookie != nil {
			cookie.Value = ""
		}
		delete(s.cookieStore, name)
	}
}

// Cleanup clears all stored cookies from memory
func (s *CookieStore) Cleanup() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.clearCookies()
}
