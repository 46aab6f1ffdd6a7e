package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/online-cinema/internal/database"
	"github.com/iliyamo/online-cinema/internal/model"
)

// Movie list sort keys accepted by the catalog endpoints.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortYearNew   = "year_new"
	SortRatingTop = "rating_top"
	SortIDAsc     = "id_asc"
	SortIDDesc    = "id_desc"
)

var sortClauses = map[string]string{
	SortPriceAsc:  "m.price ASC",
	SortPriceDesc: "m.price DESC",
	SortYearNew:   "m.year DESC",
	SortRatingTop: "m.imdb DESC",
	SortIDAsc:     "m.id ASC",
	SortIDDesc:    "m.id DESC",
}

// MovieFilter carries the shared query parameters of every movie listing:
// the public catalog, a user's favorites and a user's purchased library all
// accept the same filters and sorts.
type MovieFilter struct {
	Page      int
	PerPage   int
	Year      int
	MinRating float64
	Search    string
	Sort      string
}

func (f MovieFilter) offset() int { return (f.Page - 1) * f.PerPage }

func (f MovieFilter) orderBy() string {
	if clause, ok := sortClauses[f.Sort]; ok {
		return clause
	}
	return sortClauses[SortIDDesc]
}

// MovieRepo owns the movies table, its linked entities and the favorites
// relation.
type MovieRepo struct{ db *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = "m.id, m.uuid, m.name, m.year, m.time, m.imdb, m.votes, m.meta_score, m.gross, m.description, m.price, m.certification_id"

func scanMovies(rows *sql.Rows) ([]model.Movie, error) {
	var out []model.Movie
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.UUID, &m.Name, &m.Year, &m.Time, &m.IMDb, &m.Votes,
			&m.MetaScore, &m.Gross, &m.Description, &m.Price, &m.CertificationID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// buildList assembles the filtered movie query. scopeJoin and scopeWhere
// restrict the listing to a sub-population (favorites, paid library) and may
// be empty for the public catalog. The search filter matches movie name,
// description and the names of linked stars and directors.
func buildList(f MovieFilter, scopeJoin, scopeWhere string, scopeArgs []any) (string, string, []any) {
	var b strings.Builder
	args := append([]any{}, scopeArgs...)

	b.WriteString(" FROM movies m")
	b.WriteString(scopeJoin)
	if f.Search != "" {
		b.WriteString(" LEFT JOIN movies_stars ms ON ms.movie_id=m.id")
		b.WriteString(" LEFT JOIN stars s ON s.id=ms.star_id")
		b.WriteString(" LEFT JOIN movies_directors md ON md.movie_id=m.id")
		b.WriteString(" LEFT JOIN directors d ON d.id=md.director_id")
	}
	b.WriteString(" WHERE 1=1")
	if scopeWhere != "" {
		b.WriteString(" AND " + scopeWhere)
	}
	if f.Year > 0 {
		b.WriteString(" AND m.year=?")
		args = append(args, f.Year)
	}
	if f.MinRating > 0 {
		b.WriteString(" AND m.imdb>=?")
		args = append(args, f.MinRating)
	}
	if f.Search != "" {
		b.WriteString(" AND (m.name LIKE ? OR m.description LIKE ? OR s.name LIKE ? OR d.name LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like, like)
	}

	countQuery := "SELECT COUNT(DISTINCT m.id)" + b.String()
	listQuery := "SELECT DISTINCT " + movieColumns + b.String() +
		" ORDER BY " + f.orderBy() + " LIMIT ? OFFSET ?"
	return listQuery, countQuery, args
}

func (r *MovieRepo) list(ctx context.Context, f MovieFilter, scopeJoin, scopeWhere string, scopeArgs []any) ([]model.Movie, int, error) {
	listQuery, countQuery, args := buildList(f, scopeJoin, scopeWhere, scopeArgs)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := r.db.QueryContext(ctx, listQuery, append(args, f.PerPage, f.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movies, err := scanMovies(rows)
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

// List returns a page of the public catalog plus the unpaginated total.
func (r *MovieRepo) List(ctx context.Context, f MovieFilter) ([]model.Movie, int, error) {
	return r.list(ctx, f, "", "", nil)
}

// ListFavorites returns a page of the user's favorite movies.
func (r *MovieRepo) ListFavorites(ctx context.Context, userID uint64, f MovieFilter) ([]model.Movie, int, error) {
	return r.list(ctx, f,
		" JOIN movie_user_favorites fav ON fav.movie_id=m.id",
		"fav.user_id=?", []any{userID})
}

// ListLibrary returns a page of the movies the user has paid for.
func (r *MovieRepo) ListLibrary(ctx context.Context, userID uint64, f MovieFilter) ([]model.Movie, int, error) {
	return r.list(ctx, f,
		" JOIN order_items oi ON oi.movie_id=m.id JOIN orders o ON o.id=oi.order_id",
		"o.user_id=? AND o.status='paid'", []any{userID})
}

// GetByID loads a movie with its certification name and linked entities.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := r.db.QueryRowContext(ctx,
		"SELECT "+movieColumns+", c.name FROM movies m JOIN certifications c ON c.id=m.certification_id WHERE m.id=? LIMIT 1",
		id).Scan(&m.ID, &m.UUID, &m.Name, &m.Year, &m.Time, &m.IMDb, &m.Votes,
		&m.MetaScore, &m.Gross, &m.Description, &m.Price, &m.CertificationID, &m.Certification)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, link := range []struct {
		dst   *[]model.Entity
		query string
	}{
		{&m.Genres, "SELECT g.id, g.name FROM genres g JOIN movies_genres mg ON mg.genre_id=g.id WHERE mg.movie_id=? ORDER BY g.name"},
		{&m.Stars, "SELECT s.id, s.name FROM stars s JOIN movies_stars ms ON ms.star_id=s.id WHERE ms.movie_id=? ORDER BY s.name"},
		{&m.Directors, "SELECT d.id, d.name FROM directors d JOIN movies_directors md ON md.director_id=d.id WHERE md.movie_id=? ORDER BY d.name"},
	} {
		entities, err := r.queryEntities(ctx, link.query, id)
		if err != nil {
			return nil, err
		}
		*link.dst = entities
	}
	return &m, nil
}

func (r *MovieRepo) queryEntities(ctx context.Context, query string, movieID uint64) ([]model.Entity, error) {
	rows, err := r.db.QueryContext(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MovieInput carries the fields of a create request; linked entities are
// given by name and resolved with get-or-create.
type MovieInput struct {
	Name          string
	Year          int
	Time          int
	IMDb          float64
	Votes         int
	MetaScore     *float64
	Gross         *float64
	Description   string
	Price         string
	Certification string
	Genres        []string
	Stars         []string
	Directors     []string
}

// Create inserts a movie and its entity links in one transaction. Missing
// genres, stars, directors and certifications are created on the fly. The
// public UUID is assigned here. (name, year, time) collisions return
// ErrMovieExists.
func (r *MovieRepo) Create(ctx context.Context, in MovieInput) (uint64, error) {
	var movieID uint64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		certID, err := getOrCreate(ctx, tx, "certifications", in.Certification)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO movies (uuid, name, year, time, imdb, votes, meta_score, gross, description, price, certification_id)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			uuid.NewString(), in.Name, in.Year, in.Time, in.IMDb, in.Votes,
			in.MetaScore, in.Gross, in.Description, in.Price, certID)
		if err != nil {
			if isDuplicate(err) {
				return ErrMovieExists
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		movieID = uint64(id)

		for _, link := range []struct {
			table, junction, column string
			names                   []string
		}{
			{"genres", "movies_genres", "genre_id", in.Genres},
			{"stars", "movies_stars", "star_id", in.Stars},
			{"directors", "movies_directors", "director_id", in.Directors},
		} {
			for _, name := range link.names {
				entityID, err := getOrCreate(ctx, tx, link.table, name)
				if err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx,
					"INSERT IGNORE INTO "+link.junction+" (movie_id, "+link.column+") VALUES (?,?)",
					movieID, entityID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return movieID, nil
}

// getOrCreate resolves a name to its id in a name-unique table, inserting
// when absent. Runs inside the caller's transaction; a concurrent insert of
// the same name surfaces as 1062 and is resolved with a re-read.
func getOrCreate(ctx context.Context, tx *sql.Tx, table, name string) (uint64, error) {
	var id uint64
	err := tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name=?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, "INSERT INTO "+table+" (name) VALUES (?)", name)
	if err != nil {
		if isDuplicate(err) {
			err = tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name=?", name).Scan(&id)
			return id, err
		}
		return 0, err
	}
	newID, err := res.LastInsertId()
	return uint64(newID), err
}

// MovieUpdate carries the optional fields of a partial update; nil means
// leave the column untouched.
type MovieUpdate struct {
	Name        *string
	Year        *int
	Time        *int
	IMDb        *float64
	Votes       *int
	MetaScore   *float64
	Gross       *float64
	Description *string
	Price       *string
}

// Update applies the non-nil fields of a partial update.
func (r *MovieRepo) Update(ctx context.Context, id uint64, u MovieUpdate) error {
	var sets []string
	var args []any
	add := func(column string, v any) {
		sets = append(sets, column+"=?")
		args = append(args, v)
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Year != nil {
		add("year", *u.Year)
	}
	if u.Time != nil {
		add("time", *u.Time)
	}
	if u.IMDb != nil {
		add("imdb", *u.IMDb)
	}
	if u.Votes != nil {
		add("votes", *u.Votes)
	}
	if u.MetaScore != nil {
		add("meta_score", *u.MetaScore)
	}
	if u.Gross != nil {
		add("gross", *u.Gross)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Price != nil {
		add("price", *u.Price)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE movies SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrMovieExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either absent or a no-op update; disambiguate with a lookup.
		var exists uint64
		err := r.db.QueryRowContext(ctx, "SELECT id FROM movies WHERE id=?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMovieNotFound
		}
		return err
	}
	return nil
}

// Delete removes a movie; junction rows cascade.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM movies WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// ToggleFavorite flips the favorite relation and reports the new state:
// true when the movie is now a favorite, false when it was just removed.
func (r *MovieRepo) ToggleFavorite(ctx context.Context, userID, movieID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM movie_user_favorites WHERE user_id=? AND movie_id=?", userID, movieID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return false, nil
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO movie_user_favorites (user_id, movie_id) VALUES (?,?)", userID, movieID)
	if err != nil {
		return false, err
	}
	return true, nil
}
