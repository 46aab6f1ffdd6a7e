package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-cinema/internal/repository"
)

// EntityHandler serves one of the catalog lookup collections (genres,
// stars, directors, certifications); one instance per collection, sharing
// the parameterized EntityRepo.
type EntityHandler struct {
	Repo *repository.EntityRepo
	// path is the collection's URL segment, used in pagination links.
	path string
}

func NewEntityHandler(repo *repository.EntityRepo, path string) *EntityHandler {
	return &EntityHandler{Repo: repo, path: path}
}

type entityCreateReq struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type entityCountItem struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	MoviesCount int    `json:"movies_count"`
}

// List serves the collection with per-entity movie counts.
func (h *EntityHandler) List(c echo.Context) error {
	page, perPage := pageParams(c)
	entities, total, err := h.Repo.ListWithMovieCount(c.Request().Context(), page, perPage)
	if err != nil {
		c.Logger().Errorf("%s: list: %v", h.path, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	if total == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	items := make([]entityCountItem, 0, len(entities))
	for _, e := range entities {
		items = append(items, entityCountItem{ID: e.ID, Name: e.Name, MoviesCount: e.MoviesCount})
	}
	return c.JSON(http.StatusOK, paginate(items, "/cinema/"+h.path+"/", page, perPage, total))
}

// Get serves one entity with the (id, name) pairs of its movies.
func (h *EntityHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid id."})
	}
	entity, movies, err := h.Repo.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrEntityNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	if err != nil {
		c.Logger().Errorf("%s: get %d: %v", h.path, id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":     entity.ID,
		"name":   entity.Name,
		"movies": toEntityItems(movies),
	})
}

// Create adds a named entity. Moderator/admin only.
func (h *EntityHandler) Create(c echo.Context) error {
	var req entityCreateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	entity, err := h.Repo.Create(c.Request().Context(), req.Name)
	if errors.Is(err, repository.ErrEntityExists) {
		return c.JSON(http.StatusConflict, echo.Map{"detail": "'" + req.Name + "' already exists."})
	}
	if err != nil {
		c.Logger().Errorf("%s: create: %v", h.path, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusCreated, entityItem{ID: entity.ID, Name: entity.Name})
}

// Update renames an entity. Moderator/admin only.
func (h *EntityHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid id."})
	}
	var req entityCreateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	err = h.Repo.Update(c.Request().Context(), id, req.Name)
	if errors.Is(err, repository.ErrEntityNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	if errors.Is(err, repository.ErrEntityExists) {
		return c.JSON(http.StatusConflict, echo.Map{"detail": "'" + req.Name + "' already exists."})
	}
	if err != nil {
		c.Logger().Errorf("%s: update %d: %v", h.path, id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.JSON(http.StatusOK, entityItem{ID: id, Name: req.Name})
}

// Delete removes an entity. Moderator/admin only.
func (h *EntityHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Invalid id."})
	}
	err = h.Repo.Delete(c.Request().Context(), id)
	if errors.Is(err, repository.ErrEntityNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}
	if err != nil {
		c.Logger().Errorf("%s: delete %d: %v", h.path, id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "An error occurred while processing the request."})
	}
	return c.NoContent(http.StatusNoContent)
}
