package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/storage"
)

// PlayHandler serves /plays and the admin image upload.
type PlayHandler struct {
	Plays *repository.PlayRepo
	Files storage.FileStorage
	Media config.MediaConfig
	Log   logrus.FieldLogger
}

func NewPlayHandler(plays *repository.PlayRepo, files storage.FileStorage, media config.MediaConfig, log logrus.FieldLogger) *PlayHandler {
	return &PlayHandler{Plays: plays, Files: files, Media: media, Log: log}
}

type playReq struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Genres      *[]uint64 `json:"genres"`
	Actors      *[]uint64 `json:"actors"`
}

func (r playReq) apply(p *model.Play) error {
	verr := &repository.ValidationError{}
	if r.Title != nil {
		p.Title = *r.Title
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	if r.Genres != nil {
		p.GenreIDs = *r.Genres
	}
	if r.Actors != nil {
		p.ActorIDs = *r.Actors
	}
	p.Title = requireName(verr, "title", p.Title)
	if p.GenreIDs == nil {
		p.GenreIDs = []uint64{}
	}
	if p.ActorIDs == nil {
		p.ActorIDs = []uint64{}
	}
	return verr.OrNil()
}

func (h *PlayHandler) withURL(p *model.Play) *model.Play {
	out := *p
	out.Image = imageURL(h.Media.URL, p.Image)
	return &out
}

// List supports ?title=, ?genres=1,2 and ?actors=3 filters.
func (h *PlayHandler) List(c echo.Context) error {
	f := repository.PlayFilter{Title: strings.TrimSpace(c.QueryParam("title"))}
	var err error
	if f.GenreIDs, err = repository.ParseIDList("genres", c.QueryParam("genres")); err != nil {
		return respond(c, h.Log, err)
	}
	if f.ActorIDs, err = repository.ParseIDList("actors", c.QueryParam("actors")); err != nil {
		return respond(c, h.Log, err)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	plays, err := h.Plays.List(ctx, f)
	if err != nil {
		return respond(c, h.Log, err)
	}
	for i := range plays {
		plays[i].Image = imageURL(h.Media.URL, plays[i].Image)
	}
	return c.JSON(http.StatusOK, plays)
}

func (h *PlayHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Plays.GetDetail(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	p.Image = imageURL(h.Media.URL, p.Image)
	return c.JSON(http.StatusOK, p)
}

func (h *PlayHandler) Create(c echo.Context) error {
	var req playReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	var p model.Play
	if err := req.apply(&p); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Plays.Create(ctx, &p); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, h.withURL(&p))
}

// Update replaces (PUT) or merges (PATCH) a play.  The image is never
// touched here; it only changes through UploadImage.
func (h *PlayHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var req playReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Plays.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if c.Request().Method == http.MethodPut {
		*p = model.Play{ID: id, Image: p.Image}
	}
	if err := req.apply(p); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Plays.Update(ctx, p); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, h.withURL(p))
}

func (h *PlayHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Plays.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Plays.Delete(ctx, id); err != nil {
		return respond(c, h.Log, err)
	}
	h.removeBlob(p.Image)
	return c.NoContent(http.StatusNoContent)
}

// UploadImage stores the multipart "image" file and points the play at it.
// The previous image, if any, is removed after the play is updated.
func (h *PlayHandler) UploadImage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Plays.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return respond(c, h.Log, repository.NewValidationError("image", "no file was submitted"))
	}
	if !storage.IsImageExt(fh.Filename) {
		return respond(c, h.Log, repository.NewValidationError("image", "unsupported image type, use jpg, jpeg, png or gif"))
	}
	if h.Media.MaxImageSize > 0 && fh.Size > h.Media.MaxImageSize {
		return respond(c, h.Log, repository.NewValidationError("image",
			fmt.Sprintf("image is larger than %d bytes", h.Media.MaxImageSize)))
	}
	src, err := fh.Open()
	if err != nil {
		return respond(c, h.Log, err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return respond(c, h.Log, err)
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return respond(c, h.Log, repository.NewValidationError("image", "upload a valid image"))
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return respond(c, h.Log, err)
	}

	key := storage.ImageKey(p.Title, fh.Filename)
	if err := h.Files.Save(key, src); err != nil {
		return respond(c, h.Log, fmt.Errorf("save image: %w", err))
	}
	if err := h.Plays.SetImage(ctx, id, key); err != nil {
		h.removeBlob(&key)
		return respond(c, h.Log, err)
	}
	h.removeBlob(p.Image)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "image": storage.URL(h.Media.URL, key)})
}

func (h *PlayHandler) removeBlob(key *string) {
	if key == nil || *key == "" {
		return
	}
	if err := h.Files.Delete(*key); err != nil {
		h.Log.WithError(err).WithField("key", *key).Warn("remove image blob failed")
	}
}
