package main

import (
	"context"
	"strconv"

	"github.com/reelsync/reelsync/internal/model"
	"github.com/reelsync/reelsync/internal/tmdb"
)

// parseMovieID parses a positional movie id argument.
func parseMovieID(arg string) int {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		fatal("invalid movie id %q", arg)
	}
	return id
}

// resolveMovie builds the snapshot for a movie id. An explicit --title wins;
// otherwise the metadata provider is consulted when configured.
func resolveMovie(ctx context.Context, e *engine, movieID int, title string) model.MovieRef {
	if title != "" {
		return model.MovieRef{ID: movieID, Title: title}
	}
	if e.cfg.TMDB.APIKey != "" {
		client := tmdb.NewClient(e.cfg.TMDB.APIKey, e.cfg.TMDB.BaseURL)
		ref, err := client.GetMovie(ctx, movieID)
		if err == nil {
			return *ref
		}
		fatal("failed to resolve movie %d: %v (pass --title to skip lookup)", movieID, err)
	}
	fatal("no title for movie %d: pass --title or set REELSYNC_TMDB_API_KEY", movieID)
	return model.MovieRef{}
}
