package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/online-cinema/internal/model"
)

// EntityRepo serves the four name-unique lookup tables of the catalog:
// genres, stars, directors and certifications. They share one shape and one
// set of operations, so one repo parameterized by table covers them all.
type EntityRepo struct {
	db *sql.DB

	table string
	// countJoin aggregates how many movies reference each row. For the
	// junction-linked tables this joins the junction; certifications are
	// referenced directly from movies.certification_id.
	countJoin string
	// movieJoin lists the movies of one row for the detail endpoint.
	movieJoin string
}

func NewGenreRepo(db *sql.DB) *EntityRepo {
	return &EntityRepo{db: db, table: "genres",
		countJoin: "LEFT JOIN movies_genres j ON j.genre_id=e.id",
		movieJoin: "JOIN movies_genres j ON j.movie_id=m.id WHERE j.genre_id=?"}
}

func NewStarRepo(db *sql.DB) *EntityRepo {
	return &EntityRepo{db: db, table: "stars",
		countJoin: "LEFT JOIN movies_stars j ON j.star_id=e.id",
		movieJoin: "JOIN movies_stars j ON j.movie_id=m.id WHERE j.star_id=?"}
}

func NewDirectorRepo(db *sql.DB) *EntityRepo {
	return &EntityRepo{db: db, table: "directors",
		countJoin: "LEFT JOIN movies_directors j ON j.director_id=e.id",
		movieJoin: "JOIN movies_directors j ON j.movie_id=m.id WHERE j.director_id=?"}
}

func NewCertificationRepo(db *sql.DB) *EntityRepo {
	return &EntityRepo{db: db, table: "certifications",
		countJoin: "LEFT JOIN movies j ON j.certification_id=e.id",
		movieJoin: "WHERE m.certification_id=?"}
}

// ListWithMovieCount returns a page of entities with the number of movies
// referencing each, plus the unpaginated total.
func (r *EntityRepo) ListWithMovieCount(ctx context.Context, page, perPage int) ([]model.Entity, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+r.table).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT e.id, e.name, COUNT(j.movie_id) FROM "+r.table+" e "+
			r.countJoin+" GROUP BY e.id, e.name ORDER BY e.id LIMIT ? OFFSET ?",
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.MoviesCount); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// GetByID loads an entity and the (id, name) pairs of its movies.
func (r *EntityRepo) GetByID(ctx context.Context, id uint64) (*model.Entity, []model.Entity, error) {
	var e model.Entity
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM "+r.table+" WHERE id=? LIMIT 1", id).Scan(&e.ID, &e.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrEntityNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT m.id, m.name FROM movies m "+r.movieJoin+" ORDER BY m.id", id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var movies []model.Entity
	for rows.Next() {
		var m model.Entity
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, nil, err
		}
		movies = append(movies, m)
	}
	return &e, movies, rows.Err()
}

// Create inserts a named entity; duplicate names return ErrEntityExists.
func (r *EntityRepo) Create(ctx context.Context, name string) (*model.Entity, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO "+r.table+" (name) VALUES (?)", name)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrEntityExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Entity{ID: uint64(id), Name: name}, nil
}

// Update renames an entity.
func (r *EntityRepo) Update(ctx context.Context, id uint64, name string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+r.table+" SET name=? WHERE id=?", name, id)
	if err != nil {
		if isDuplicate(err) {
			return ErrEntityExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists uint64
		err := r.db.QueryRowContext(ctx,
			"SELECT id FROM "+r.table+" WHERE id=?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntityNotFound
		}
		return err
	}
	return nil
}

// Delete removes an entity; junction rows cascade.
func (r *EntityRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM "+r.table+" WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEntityNotFound
	}
	return nil
}
