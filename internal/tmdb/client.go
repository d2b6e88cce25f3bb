// Package tmdb is the narrow movie-metadata collaborator interface.
//
// The engine stores snapshot fields verbatim and never validates or
// refreshes them; this client exists so the CLI can resolve a bare movie
// id into those fields. The sync core has no dependency on it.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelsync/reelsync/internal/model"
)

// Client is a minimal TMDB API client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a TMDB client. baseURL defaults to the public v3 API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// movieDetail is the subset of the TMDB movie response we keep.
type movieDetail struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	Genres      []struct {
		ID int `json:"id"`
	} `json:"genres"`
}

// GetMovie fetches the snapshot fields for a movie id.
func (c *Client) GetMovie(ctx context.Context, movieID int) (*model.MovieRef, error) {
	url := fmt.Sprintf("%s/movie/%d?api_key=%s", c.baseURL, movieID, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movie %d: %w", movieID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tmdb returned %d for movie %d: %s", resp.StatusCode, movieID, body)
	}

	var detail movieDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("failed to decode movie %d: %w", movieID, err)
	}

	ref := &model.MovieRef{
		ID:          detail.ID,
		Title:       detail.Title,
		PosterPath:  detail.PosterPath,
		VoteAverage: detail.VoteAverage,
	}
	for _, g := range detail.Genres {
		ref.GenreIDs = append(ref.GenreIDs, g.ID)
	}
	return ref, nil
}
