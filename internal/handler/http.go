package handler

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const (
	unitOfWorkKey = "unit_of_work"
	moviesPath    = "/movies"

	// hiddenTitle is never shown in the film list.
	hiddenTitle = "Independence Day"
)

// UnitOfWorkFactory creates the unit of work for one request.
type UnitOfWorkFactory func() domain.UnitOfWork

type HTTPHandler struct {
	newUnitOfWork UnitOfWorkFactory
}

func NewHTTPHandler(newUnitOfWork UnitOfWorkFactory) *HTTPHandler {
	return &HTTPHandler{newUnitOfWork: newUnitOfWork}
}

// NewServer builds the fiber app serving every route of h.
func NewServer(h *HTTPHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:                 newViewEngine(),
		ViewsLayout:           "layouts/main",
		DisableStartupMessage: true,
		CaseSensitive:         true,
		ErrorHandler:          h.handleError,
	})
	h.RegisterRoutes(app)
	return app
}

func (h *HTTPHandler) RegisterRoutes(app *fiber.App) {
	app.Use(h.logRequests)
	app.Use(h.withUnitOfWork)

	app.Get("/", h.handleIndex)
	app.Get("/podcast", h.handlePodcast)
	app.Get("/health", h.handleHealth)

	app.Get(moviesPath, h.handleList)
	app.Get(moviesPath+"/add", h.handleAddForm)
	app.Post(moviesPath+"/add", h.handleAdd)
	app.Get(moviesPath+"/:id/edit", h.handleEditForm)
	app.Post(moviesPath+"/:id/edit", h.handleEdit)
	app.Get(moviesPath+"/:id/delete", h.handleDeleteConfirm)
	app.Post(moviesPath+"/:id/delete", h.handleDelete)

	app.Get("/Home", redirectTo("/"))
	app.Get("/Podcast", redirectTo("/podcast"))
	app.Get("/AllMovies", redirectTo(moviesPath))
	app.Get("/AddMovie", redirectTo(moviesPath+"/add"))
	app.Get("/EditMovie/:id", func(c *fiber.Ctx) error {
		return c.Redirect(fmt.Sprintf("%s/%s/edit", moviesPath, c.Params("id")), fiber.StatusMovedPermanently)
	})
	app.Get("/DeleteMovie/:id", func(c *fiber.Ctx) error {
		return c.Redirect(fmt.Sprintf("%s/%s/delete", moviesPath, c.Params("id")), fiber.StatusMovedPermanently)
	})
}

func redirectTo(location string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Redirect(location, fiber.StatusMovedPermanently)
	}
}

func (h *HTTPHandler) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if renderErr := h.handleError(c, err); renderErr != nil {
			return renderErr
		}
	}

	log.WithFields(log.Fields{
		"method":   c.Method(),
		"path":     c.Path(),
		"status":   c.Response().StatusCode(),
		"duration": time.Since(start),
	}).Info("request handled")
	return nil
}

func (h *HTTPHandler) withUnitOfWork(c *fiber.Ctx) error {
	c.Locals(unitOfWorkKey, h.newUnitOfWork())
	return c.Next()
}

func unitOfWork(c *fiber.Ctx) domain.UnitOfWork {
	uow, ok := c.Locals(unitOfWorkKey).(domain.UnitOfWork)
	if !ok {
		panic("handler: no unit of work in request locals")
	}
	return uow
}

func (h *HTTPHandler) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Something went wrong."

	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
		message = "Movie not found."
	case errors.Is(err, ErrInvalidMovieID):
		status = fiber.StatusBadRequest
		message = "Invalid movie ID."
	case errors.Is(err, domain.ErrConstraint):
		status = fiber.StatusUnprocessableEntity
		message = "The movie could not be stored."
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		message = fiberErr.Message
	}

	if status == fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
			"error":  err,
		}).Error("request failed")
	}

	renderErr := c.Status(status).Render("error", fiber.Map{
		"PageTitle": "Error",
		"Status":    status,
		"Message":   message,
	})
	if renderErr != nil {
		return c.Status(status).SendString(message)
	}
	return nil
}

func (h *HTTPHandler) handleIndex(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{"PageTitle": "Home"})
}

func (h *HTTPHandler) handlePodcast(c *fiber.Ctx) error {
	return c.Render("podcast", fiber.Map{"PageTitle": "Podcast"})
}

func (h *HTTPHandler) handleHealth(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

func (h *HTTPHandler) handleList(c *fiber.Ctx) error {
	movies, err := unitOfWork(c).MovieRepo().GetAll(c.UserContext())
	if err != nil {
		return err
	}

	movies = slices.DeleteFunc(movies, func(m *domain.Movie) bool {
		return m.Title == hiddenTitle
	})
	slices.SortStableFunc(movies, func(a, b *domain.Movie) int {
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})

	return c.Render("movies/list", fiber.Map{
		"PageTitle": "All Movies",
		"Movies":    movies,
	})
}

func (h *HTTPHandler) renderForm(c *fiber.Ctx, status int, heading, action string, in formInput) error {
	return c.Status(status).Render("movies/form", fiber.Map{
		"PageTitle": heading,
		"Heading":   heading,
		"Action":    action,
		"Form":      in.Form,
		"YearInput": in.YearInput,
		"Errors":    in.Validator.Errors,
		"Ratings":   domain.Ratings(),
	})
}

func (h *HTTPHandler) handleAddForm(c *fiber.Ctx) error {
	return h.renderForm(c, fiber.StatusOK, "Add Movie", moviesPath+"/add", emptyInput(domain.MovieForm{}))
}

func (h *HTTPHandler) handleAdd(c *fiber.Ctx) error {
	in := bindMovieForm(c)
	if !in.Validator.Valid() {
		return h.renderForm(c, fiber.StatusUnprocessableEntity, "Add Movie", moviesPath+"/add", in)
	}

	uow := unitOfWork(c)
	movie := domain.ToMovie(in.Form)
	uow.MovieRepo().Insert(movie)
	if err := uow.Save(c.UserContext()); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"movie_id": movie.MovieID,
		"movie":    in.Form.String(),
	}).Info("movie added")

	return c.Status(fiber.StatusCreated).Render("movies/success", fiber.Map{
		"PageTitle": "Movie Added",
		"Movie":     movie,
	})
}

func (h *HTTPHandler) findMovie(c *fiber.Ctx) (*domain.Movie, error) {
	id, err := validateMovieID(c.Params("id"))
	if err != nil {
		return nil, err
	}
	movie, err := unitOfWork(c).MovieRepo().GetByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, domain.ErrNotFound
	}
	return movie, nil
}

func (h *HTTPHandler) handleEditForm(c *fiber.Ctx) error {
	movie, err := h.findMovie(c)
	if err != nil {
		return err
	}
	return h.renderForm(c, fiber.StatusOK, "Edit Movie", editPath(movie.MovieID), emptyInput(domain.ToForm(movie)))
}

func (h *HTTPHandler) handleEdit(c *fiber.Ctx) error {
	id, err := validateMovieID(c.Params("id"))
	if err != nil {
		return err
	}

	in := bindMovieForm(c)
	if !in.Validator.Valid() {
		return h.renderForm(c, fiber.StatusUnprocessableEntity, "Edit Movie", editPath(id), in)
	}

	uow := unitOfWork(c)
	movie := domain.ToMovie(in.Form)
	movie.MovieID = id
	movie.Edited = true
	if err := uow.MovieRepo().Update(movie); err != nil {
		return err
	}
	if err := uow.Save(c.UserContext()); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"movie_id": id,
		"movie":    in.Form.String(),
	}).Info("movie updated")
	return c.Redirect(moviesPath, fiber.StatusSeeOther)
}

func (h *HTTPHandler) handleDeleteConfirm(c *fiber.Ctx) error {
	movie, err := h.findMovie(c)
	if err != nil {
		return err
	}
	return c.Render("movies/delete", fiber.Map{
		"PageTitle": "Delete Movie",
		"Movie":     movie,
		"Action":    fmt.Sprintf("%s/%d/delete", moviesPath, movie.MovieID),
	})
}

func (h *HTTPHandler) handleDelete(c *fiber.Ctx) error {
	id, err := validateMovieID(c.Params("id"))
	if err != nil {
		return err
	}

	uow := unitOfWork(c)
	if err := uow.MovieRepo().DeleteByID(c.UserContext(), id); err != nil {
		return err
	}
	if err := uow.Save(c.UserContext()); err != nil {
		return err
	}

	log.WithField("movie_id", id).Info("movie deleted")
	return c.Redirect(moviesPath, fiber.StatusSeeOther)
}

func editPath(id int64) string {
	return fmt.Sprintf("%s/%d/edit", moviesPath, id)
}
