package model

// Movie mirrors the `movies` table. The UUID is the public identifier used in
// URLs shared outside the API; the numeric ID stays internal to the schema.
// (name, year, time) is unique so catalog imports cannot duplicate a film.
type Movie struct {
	ID              uint64   // movies.id
	UUID            string   // movies.uuid
	Name            string   // movies.name
	Year            int      // movies.year
	Time            int      // movies.time, runtime in minutes
	IMDb            float64  // movies.imdb, 0..10
	Votes           int      // movies.votes
	MetaScore       *float64 // movies.meta_score (nullable)
	Gross           *float64 // movies.gross (nullable)
	Description     string   // movies.description
	Price           string   // movies.price, DECIMAL(10,2) carried as string
	CertificationID uint64   // movies.certification_id

	Certification string   // certifications.name, joined on detail loads
	Genres        []Entity // joined via movies_genres
	Stars         []Entity // joined via movies_stars
	Directors     []Entity // joined via movies_directors
}

// Entity is the shared shape of genres, stars, directors and certifications:
// an id plus a unique name. MoviesCount is populated only by the listing
// queries that aggregate it.
type Entity struct {
	ID          uint64 // id
	Name        string // name
	MoviesCount int    // aggregate, listings only
}

// Review mirrors the `reviews` table; one review per (user, movie).
type Review struct {
	ID        uint64 // reviews.id
	UserID    uint64 // reviews.user_id
	MovieID   uint64 // reviews.movie_id
	Rating    int    // reviews.rating, 1..10
	Comment   string // reviews.comment
	CreatedAt string // reviews.created_at
}
