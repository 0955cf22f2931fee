package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bot2296/pkg/retrylimit"
)

// LRCLib queries an LRCLIB compatible server.
type LRCLib struct {
	baseURL string
	client  *http.Client
	limiter *retrylimit.Limiter
}

func NewLRCLib(baseURL string) *LRCLib {
	return &LRCLib{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: retrylimit.NewLimiter(retrylimit.Limits{Initial: 2, Min: 1, Max: 5}),
	}
}

type lrcRecord struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
}

// statusError carries the HTTP status so retrylimit can classify it.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("lrclib http %d: %s", e.code, e.body)
}

func (e *statusError) StatusCode() int {
	return e.code
}

func (l *LRCLib) Lyrics(ctx context.Context, q Query) (string, error) {
	title := cleanTitle(q.Title, q.Artist)
	if title == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", q.Artist)
	if q.Duration > 0 {
		params.Set("duration", strconv.Itoa(int(q.Duration/time.Second)))
	}

	var exact lrcRecord
	found, err := l.get(ctx, "/api/get?"+params.Encode(), &exact)
	if err != nil {
		return "", err
	}
	if found && exact.PlainLyrics != "" {
		return exact.PlainLyrics, nil
	}

	search := url.Values{}
	search.Set("q", strings.TrimSpace(title+" "+q.Artist))
	var results []lrcRecord
	if _, err := l.get(ctx, "/api/search?"+search.Encode(), &results); err != nil {
		return "", err
	}
	for _, r := range results {
		if !r.Instrumental && r.PlainLyrics != "" {
			return r.PlainLyrics, nil
		}
	}
	return "", nil
}

// get decodes the JSON body into out. A 404 reports found=false without error.
func (l *LRCLib) get(ctx context.Context, path string, out any) (bool, error) {
	found := false
	policy := retrylimit.DefaultPolicy("lrclib")
	policy.Attempts = 3
	err := retrylimit.Do(ctx, l.limiter, policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
		if err != nil {
			return retrylimit.Permanent(err)
		}
		req.Header.Set("User-Agent", "bot2296/1.0")

		resp, err := l.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			found = false
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &statusError{code: resp.StatusCode, body: truncate(body)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return retrylimit.Permanent(&statusError{code: resp.StatusCode, body: truncate(body)})
		}

		if err := json.Unmarshal(body, out); err != nil {
			return retrylimit.Permanent(fmt.Errorf("lrclib returned invalid json: %w", err))
		}
		found = true
		return nil
	})
	return found, err
}
