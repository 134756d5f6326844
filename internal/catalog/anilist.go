// file: internal/catalog/anilist.go
// version: 1.0.0
// guid: 63f1fefc-6914-468c-a2cd-f016b9fca772

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// DefaultAniListURL is the public AniList GraphQL endpoint.
const DefaultAniListURL = "https://graphql.anilist.co/"

const mediaQuery = `query ($ids: [Int], $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(id_in: $ids, type: ANIME) {
      id
      format
      episodes
      title { english romaji native }
      synonyms
      relations { edges { relationType node { id } } }
    }
  }
}`

// AniListClient fetches catalog entries from AniList in chunks, under a rate
// limit, retrying throttled and server-side failures.
type AniListClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	chunkSize  int
	attempts   uint
	retryDelay time.Duration
}

// NewAniListClient creates a client for the public endpoint, overridable with
// ANILIST_BASE_URL.
func NewAniListClient() *AniListClient {
	baseURL := os.Getenv("ANILIST_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultAniListURL
	}
	return NewAniListClientWithBaseURL(baseURL)
}

// NewAniListClientWithBaseURL creates a client with a custom base URL.
func NewAniListClientWithBaseURL(baseURL string) *AniListClient {
	return &AniListClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		limiter:    rate.NewLimiter(rate.Every(time.Minute/60), 1),
		chunkSize:  50,
		attempts:   3,
		retryDelay: time.Second,
	}
}

// SetRequestsPerMinute changes the rate limit. Zero or less disables it.
func (c *AniListClient) SetRequestsPerMinute(n int) {
	if n <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

// SetChunkSize changes how many ids go into one request (AniList caps pages at 50).
func (c *AniListClient) SetChunkSize(n int) {
	if n > 0 && n <= 50 {
		c.chunkSize = n
	}
}

// SetRetry changes the retry policy.
func (c *AniListClient) SetRetry(attempts uint, delay time.Duration) {
	if attempts > 0 {
		c.attempts = attempts
	}
	c.retryDelay = delay
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type mediaResponse struct {
	Data struct {
		Page struct {
			Media []aniListMedia `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type aniListMedia struct {
	ID       int    `json:"id"`
	Format   string `json:"format"`
	Episodes *int   `json:"episodes"`
	Title    struct {
		English *string `json:"english"`
		Romaji  *string `json:"romaji"`
		Native  *string `json:"native"`
	} `json:"title"`
	Synonyms  []string `json:"synonyms"`
	Relations struct {
		Edges []struct {
			RelationType string `json:"relationType"`
			Node         struct {
				ID int `json:"id"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"relations"`
}

func (m aniListMedia) toEntry() Entry {
	e := Entry{
		ID:       m.ID,
		Format:   Format(m.Format),
		Synonyms: m.Synonyms,
	}
	if m.Episodes != nil {
		e.Episodes = *m.Episodes
	}
	if m.Title.English != nil {
		e.Titles.English = *m.Title.English
	}
	if m.Title.Romaji != nil {
		e.Titles.Romaji = *m.Title.Romaji
	}
	if m.Title.Native != nil {
		e.Titles.Native = *m.Title.Native
	}
	for _, edge := range m.Relations.Edges {
		e.Relations = append(e.Relations, Relation{Kind: RelationKind(edge.RelationType), ID: edge.Node.ID})
	}
	return e
}

// retryableError marks failures worth another attempt (429 and 5xx).
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// FetchMany implements Fetcher. Ids not present in the result do not exist.
func (c *AniListClient) FetchMany(ctx context.Context, ids []int) (map[int]Entry, error) {
	out := make(map[int]Entry, len(ids))
	for start := 0; start < len(ids); start += c.chunkSize {
		end := min(start+c.chunkSize, len(ids))
		chunk := ids[start:end]

		var media []aniListMedia
		err := retry.Do(
			func() error {
				var err error
				media, err = c.fetchChunk(ctx, chunk)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(c.attempts),
			retry.Delay(c.retryDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				var re *retryableError
				return errors.As(err, &re)
			}),
			retry.OnRetry(func(n uint, err error) {
				log.Printf("[WARN] anilist: retrying request (attempt %d): %v", n+1, err)
			}),
		)
		if err != nil {
			var re *retryableError
			if errors.As(err, &re) {
				return out, re.err
			}
			return out, err
		}
		for _, m := range media {
			out[m.ID] = m.toEntry()
		}
	}
	return out, nil
}

func (c *AniListClient) fetchChunk(ctx context.Context, ids []int) ([]aniListMedia, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(graphQLRequest{
		Query:     mediaQuery,
		Variables: map[string]any{"ids": ids, "perPage": len(ids)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Printf("[DEBUG] anilist: requesting %d ids", len(ids))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNoConnection, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("anilist returned status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("anilist returned status 404: %w", ErrNotFound)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: anilist returned status %d: %s", ErrBadRequest, resp.StatusCode, firstGraphQLError(data))
	}

	var result mediaResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrBadRequest, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, result.Errors[0].Message)
	}
	return result.Data.Page.Media, nil
}

func firstGraphQLError(data []byte) string {
	var result mediaResponse
	if err := json.Unmarshal(data, &result); err == nil && len(result.Errors) > 0 {
		return result.Errors[0].Message
	}
	return strings.TrimSpace(string(data))
}
