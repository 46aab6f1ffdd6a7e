package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-cinema/internal/middleware"
	"github.com/iliyamo/online-cinema/internal/model"
	"github.com/iliyamo/online-cinema/internal/repository"
)

// MovieHandler serves the /cinema movie endpoints: catalog, favorites and
// reviews.
type MovieHandler struct {
	Movies  *repository.MovieRepo
	Reviews *repository.ReviewRepo
}

func NewMovieHandler(movies *repository.MovieRepo, reviews *repository.ReviewRepo) *MovieHandler {
	return &MovieHandler{Movies: movies, Reviews: reviews}
}

// ----- DTOs -----

type movieItem struct {
	ID    uint64  `json:"id"`
	UUID  string  `json:"uuid"`
	Name  string  `json:"name"`
	Year  int     `json:"year"`
	Time  int     `json:"time"`
	IMDb  float64 `json:"imdb"`
	Price string  `json:"price"`
}

type entityItem struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type movieDetail struct {
	movieItem
	Votes         int          `json:"votes"`
	MetaScore     *float64     `json:"meta_score"`
	Gross         *float64     `json:"gross"`
	Description   string       `json:"description"`
	Certification string       `json:"certification"`
	Genres        []entityItem `json:"genres"`
	Stars         []entityItem `json:"stars"`
	Directors     []entityItem `json:"directors"`
}

type movieCreateReq struct {
	Name          string   `json:"name" validate:"required"`
	Year          int      `json:"year" validate:"required,gte=1888"`
	Time          int      `json:"time" validate:"required,gt=0"`
	IMDb          float64  `json:"imdb" validate:"gte=0,lte=10"`
	Votes         int      `json:"votes" validate:"gte=0"`
	MetaScore     *float64 `json:"meta_score"`
	Gross         *float64 `json:"gross"`
	Description   string   `json:"description" validate:"required"`
	Price         string   `json:"price" validate:"required"`
	Certification string   `json:"certification" validate:"required"`
	Genres        []string `json:"genres" validate:"required,min=1"`
	Stars         []string `json:"stars" validate:"required,min=1"`
	Directors     []string `json:"directors" validate:"required,min=1"`
}

type movieUpdateReq struct {
	Name        *string  `json:"name"`
	Year        *int     `json:"year"`
	Time        *int     `json:"time"`
	IMDb        *float64 `json:"imdb"`
	Votes       *int     `json:"votes"`
	MetaScore   *float64 `json:"meta_score"`
	Gross       *float64 `json:"gross"`
	Description *string  `json:"description"`
	Price       *string  `json:"price"`
}

type reviewCreateReq struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=10"`
	Comment string `json:"comment"`
}

type reviewItem struct {
	ID      uint64 `json:"id"`
	UserID  uint64 `json:"user_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
	Created string `json:"created_at"`
}

func toMovieItem(m model.Movie) movieItem {
	return movieItem{ID: m.ID, UUID: m.UUID, Name: m.Name, Year: m.Year, Time: m.Time, IMDb: m.IMDb, Price: m.Price}
}

func toEntityItems(entities []model.Entity) []entityItem {
	out := make([]entityItem, 0, len(entities))
	for _, e := range entities {
		out = append(out, entityItem{ID: e.ID, Name: e.Name})
	}
	return out
}

func toMovieDetail(m *model.Movie) movieDetail {
	return movieDetail{
		movieItem:     toMovieItem(*m),
		Votes:         m.Votes,
		MetaScore:     m.MetaScore,
		Gross:         m.Gross,
		Description:   m.Description,
		Certification: m.Certification,
		Genres:        toEntityItems(m.Genres),
		Stars:         toEntityItems(m.Stars),
		Directors:     toEntityItems(m.Directors),
	}
}

// movieFilter reads the shared listing query parameters.
func movieFilter(c echo.Context) repository.MovieFilter {
	page, perPage := pageParams(c)
	year, _ := strconv.Atoi(c.QueryParam("year"))
	minRating, _ := strconv.ParseFloat(c.QueryParam("min_rating"), 64)
	return repository.MovieFilter{
		Page:      page,
		PerPage:   perPage,
		Year:      year,
		MinRating: minRating,
		Search:    c.QueryParam("search"),
		Sort:      c.QueryParam("sort_by"),
	}
}

func renderMovieList(c echo.Context, path string, movies []model.Movie, total int, f repository.MovieFilter, emptyDetail string) error {
	if total == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": emptyDetail})
	}
	items := make([]movieItem, 0, len(movies))
	for _, m := range movies {
		items = append(items, toMovieItem(m))
	}
	return c.JSON(http.StatusOK, paginate(items, path, f.Page, f.PerPage, total))
}

// List serves the public catalog with filters, sorting and pagination.
func (h *MovieHandler) List(c echo.Context) error {
	f := movieFilter(c)
	movies, total, err := h.Movies.List(c.Request().Context(), f)
	if err != nil {
		c.Logger().Errorf("movies: list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return renderMovieList(c, "/cinema/movies/", movies, total, f, "No movies found")
}

// Get serves a movie detail with certification and linked entities.
func (h *MovieHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid movie id."})
	}
	m, err := h.Movies.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Movie not found"})
	}
	if err != nil {
		c.Logger().Errorf("movies: get %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusOK, toMovieDetail(m))
}

// Create adds a movie, creating missing linked entities on the fly.
// Moderator/admin only.
func (h *MovieHandler) Create(c echo.Context) error {
	var req movieCreateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := h.Movies.Create(c.Request().Context(), repository.MovieInput{
		Name:          req.Name,
		Year:          req.Year,
		Time:          req.Time,
		IMDb:          req.IMDb,
		Votes:         req.Votes,
		MetaScore:     req.MetaScore,
		Gross:         req.Gross,
		Description:   req.Description,
		Price:         req.Price,
		Certification: req.Certification,
		Genres:        req.Genres,
		Stars:         req.Stars,
		Directors:     req.Directors,
	})
	if errors.Is(err, repository.ErrMovieExists) {
		return c.JSON(http.StatusConflict, echo.Map{
			"detail": "Movie with name: '" + req.Name + "' year: '" + strconv.Itoa(req.Year) +
				"' time: '" + strconv.Itoa(req.Time) + "' already exists.",
		})
	}
	if err != nil {
		c.Logger().Errorf("movies: create: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}

	m, err := h.Movies.GetByID(c.Request().Context(), id)
	if err != nil {
		c.Logger().Errorf("movies: load created %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusCreated, toMovieDetail(m))
}

// Update applies a partial update. Moderator/admin only.
func (h *MovieHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid movie id."})
	}
	var req movieUpdateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	err = h.Movies.Update(c.Request().Context(), id, repository.MovieUpdate{
		Name:        req.Name,
		Year:        req.Year,
		Time:        req.Time,
		IMDb:        req.IMDb,
		Votes:       req.Votes,
		MetaScore:   req.MetaScore,
		Gross:       req.Gross,
		Description: req.Description,
		Price:       req.Price,
	})
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Movie not found"})
	}
	if errors.Is(err, repository.ErrMovieExists) {
		return c.JSON(http.StatusConflict, echo.Map{"detail": "Movie already exists."})
	}
	if err != nil {
		c.Logger().Errorf("movies: update %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}

	m, err := h.Movies.GetByID(c.Request().Context(), id)
	if err != nil {
		c.Logger().Errorf("movies: load updated %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusOK, toMovieDetail(m))
}

// Delete removes a movie. Moderator/admin only.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid movie id."})
	}
	err = h.Movies.Delete(c.Request().Context(), id)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Movie not found"})
	}
	if err != nil {
		c.Logger().Errorf("movies: delete %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.NoContent(http.StatusNoContent)
}

// ToggleFavorite flips the caller's favorite mark on a movie.
func (h *MovieHandler) ToggleFavorite(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid movie id."})
	}
	if _, err := h.Movies.GetByID(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"detail": "Movie not found"})
		}
		c.Logger().Errorf("movies: favorite lookup %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}

	user := middleware.Principal(c)
	added, err := h.Movies.ToggleFavorite(c.Request().Context(), user.ID, id)
	if err != nil {
		c.Logger().Errorf("movies: toggle favorite %d/%d: %v", user.ID, id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}

	msg := "Removed from favorites."
	if added {
		msg = "Added to favorites."
	}
	return c.JSON(http.StatusOK, echo.Map{"is_favorite": added, "message": msg})
}

// ListFavorites serves the caller's favorites with the catalog filters.
func (h *MovieHandler) ListFavorites(c echo.Context) error {
	f := movieFilter(c)
	user := middleware.Principal(c)
	movies, total, err := h.Movies.ListFavorites(c.Request().Context(), user.ID, f)
	if err != nil {
		c.Logger().Errorf("movies: list favorites %d: %v", user.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return renderMovieList(c, "/cinema/favorites/", movies, total, f, "No movies found")
}

// CreateReview stores the caller's review of a movie, one per user.
func (h *MovieHandler) CreateReview(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid movie id."})
	}
	var req reviewCreateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.Movies.GetByID(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"detail": "Movie not found"})
		}
		c.Logger().Errorf("reviews: movie lookup %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}

	user := middleware.Principal(c)
	reviewID, err := h.Reviews.Create(c.Request().Context(), user.ID, id, req.Rating, req.Comment)
	if errors.Is(err, repository.ErrReviewExists) {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Review already exists."})
	}
	if err != nil {
		c.Logger().Errorf("reviews: create %d/%d: %v", user.ID, id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusCreated, reviewItem{
		ID: reviewID, UserID: user.ID, Rating: req.Rating, Comment: req.Comment,
	})
}

// ListReviews serves a movie's reviews, newest first. Public.
func (h *MovieHandler) ListReviews(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid movie id."})
	}
	page, perPage := pageParams(c)
	reviews, total, err := h.Reviews.ListForMovie(c.Request().Context(), id, page, perPage)
	if err != nil {
		c.Logger().Errorf("reviews: list %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	if total == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "No reviews found."})
	}
	items := make([]reviewItem, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, reviewItem{
			ID: r.ID, UserID: r.UserID, Rating: r.Rating, Comment: r.Comment, Created: r.CreatedAt,
		})
	}
	path := "/cinema/movies/" + c.Param("id") + "/reviews/"
	return c.JSON(http.StatusOK, paginate(items, path, page, perPage, total))
}

// DeleteReview removes the caller's own review of a movie.
func (h *MovieHandler) DeleteReview(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid movie id."})
	}
	user := middleware.Principal(c)
	err = h.Reviews.DeleteOwn(c.Request().Context(), user.ID, id)
	if errors.Is(err, repository.ErrReviewNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "No review found."})
	}
	if err != nil {
		c.Logger().Errorf("reviews: delete %d/%d: %v", user.ID, id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.NoContent(http.StatusNoContent)
}
