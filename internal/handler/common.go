package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/middleware"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/storage"
)

// dbTimeout bounds the repository work of a single request.
const dbTimeout = 5 * time.Second

const maxNameLen = 255

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// parseID reads a positive numeric path parameter.  Anything else cannot
// name a row, so it is reported as not found.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

// bind decodes the request body, turning decode failures into a
// validation error on "body".
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return repository.NewValidationError("body", "invalid request body")
	}
	return nil
}

// currentUser returns the authenticated user id set by the JWT middleware.
func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

// requireName trims s and checks it is present and not too long.
func requireName(verr *repository.ValidationError, field, s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		verr.Add(field, "this field is required")
	case len(s) > maxNameLen:
		verr.Add(field, fmt.Sprintf("ensure this field has no more than %d characters", maxNameLen))
	}
	return s
}

// Pagination limits for reservation listings.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type page struct {
	Number int
	Size   int
}

func (p page) offset() int { return (p.Number - 1) * p.Size }

// parsePage reads ?page and ?page_size.  page_size is clamped to
// maxPageSize; a malformed value is a validation error.
func parsePage(c echo.Context) (page, error) {
	p := page{Number: 1, Size: defaultPageSize}
	verr := &repository.ValidationError{}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			verr.Add("page", "invalid page")
		} else {
			p.Number = n
		}
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			verr.Add("page_size", "invalid page size")
		} else {
			p.Size = min(n, maxPageSize)
		}
	}
	return p, verr.OrNil()
}

// pageLink builds the absolute URL of another page of the current request,
// or nil when that page does not exist.
func pageLink(c echo.Context, p page, number, count int) *string {
	if number < 1 || (number-1)*p.Size >= count {
		return nil
	}
	req := c.Request()
	u := url.URL{Scheme: c.Scheme(), Host: req.Host, Path: req.URL.Path}
	q := req.URL.Query()
	if number == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// paginated is the list envelope used for reservations.
type paginated[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// imageURL turns a stored image key into its public URL.
func imageURL(mediaURL string, key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	u := storage.URL(mediaURL, *key)
	return &u
}
