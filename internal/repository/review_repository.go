package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/online-cinema/internal/model"
)

// ReviewRepo owns the reviews table. UNIQUE(user_id, movie_id) enforces one
// review per user per movie.
type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create stores a review; a second review by the same user on the same
// movie returns ErrReviewExists.
func (r *ReviewRepo) Create(ctx context.Context, userID, movieID uint64, rating int, comment string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reviews (user_id, movie_id, rating, comment) VALUES (?,?,?,?)",
		userID, movieID, rating, comment)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrReviewExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// ListForMovie returns a page of a movie's reviews, newest first, plus the
// unpaginated total.
func (r *ReviewRepo) ListForMovie(ctx context.Context, movieID uint64, page, perPage int) ([]model.Review, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reviews WHERE movie_id=?", movieID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, movie_id, rating, comment, created_at FROM reviews WHERE movie_id=? ORDER BY id DESC LIMIT ? OFFSET ?",
		movieID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var rev model.Review
		var comment sql.NullString
		if err := rows.Scan(&rev.ID, &rev.UserID, &rev.MovieID, &rev.Rating, &comment, &rev.CreatedAt); err != nil {
			return nil, 0, err
		}
		rev.Comment = comment.String
		out = append(out, rev)
	}
	return out, total, rows.Err()
}

// DeleteOwn removes the caller's review of a movie. A user without a review
// on the movie gets ErrReviewNotFound; nobody can delete another user's
// review through this path.
func (r *ReviewRepo) DeleteOwn(ctx context.Context, userID, movieID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM reviews WHERE user_id=? AND movie_id=?", userID, movieID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrReviewNotFound
	}
	return nil
}
