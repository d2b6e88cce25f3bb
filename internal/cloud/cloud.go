// Package cloud provides the remote mirror of the user data aggregate.
//
// The mirror is one document per user id, updated through granular
// idempotent operations rather than whole-document overwrite: adds are
// set-union upserts, removes are set-difference deletes, and the
// list-shaped fields (history, comparison tray, mood) are whole-value
// replacements. Every operation is safe to retry without duplication,
// which is what makes the one-shot migration re-runnable after a partial
// failure.
//
// The mirror is never authoritative. Callers treat every write as
// best-effort and never block the mutation path on it.
package cloud

import (
	"context"

	"github.com/reelsync/reelsync/internal/model"
)

// Store is the set of remote operations the sync orchestrator issues.
// There is one idempotent operation per local mutator.
type Store interface {
	// GetUserData fetches the remote aggregate, or nil when the user has
	// no cloud document yet.
	GetUserData(ctx context.Context, userID string) (*model.UserData, error)

	// AddWatchlistMovie upserts a movie snapshot into the remote
	// watchlist set (set-union, not append).
	AddWatchlistMovie(ctx context.Context, userID string, m model.MovieRef) error

	// RemoveWatchlistMovie removes a movie id from the remote watchlist.
	// Removing an absent id is a no-op.
	RemoveWatchlistMovie(ctx context.Context, userID string, movieID int) error

	// AddFavoriteMovie upserts a movie snapshot into the remote
	// favorites set.
	AddFavoriteMovie(ctx context.Context, userID string, m model.MovieRef) error

	// RemoveFavoriteMovie removes a movie id from the remote favorites.
	RemoveFavoriteMovie(ctx context.Context, userID string, movieID int) error

	// SetRating upserts the rating for a movie.
	SetRating(ctx context.Context, userID string, movieID int, r model.Rating) error

	// RemoveRating deletes the rating for a movie.
	RemoveRating(ctx context.Context, userID string, movieID int) error

	// PutCollection upserts a whole collection document, keyed by its id.
	// Membership changes inside a collection re-put the collection.
	PutCollection(ctx context.Context, userID string, c model.Collection) error

	// DeleteCollection removes a collection by id.
	DeleteCollection(ctx context.Context, userID string, collectionID string) error

	// SetViewHistory replaces the remote view history.
	SetViewHistory(ctx context.Context, userID string, history []int) error

	// SetComparisonSlots replaces the remote comparison tray.
	SetComparisonSlots(ctx context.Context, userID string, slots []int) error

	// SetMood replaces the remote mood.
	SetMood(ctx context.Context, userID string, mood model.Mood) error

	// IsMigrated reports whether the one-shot local-to-cloud migration
	// marker is set for this user.
	IsMigrated(ctx context.Context, userID string) (bool, error)

	// SetMigrated records the migration marker. Setting it twice is
	// harmless.
	SetMigrated(ctx context.Context, userID string) error

	// DeleteUserData removes the user's cloud document entirely,
	// including the migration marker. Used only by explicit reset.
	DeleteUserData(ctx context.Context, userID string) error
}
