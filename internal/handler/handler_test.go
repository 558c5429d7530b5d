package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/service"
	"github.com/iliyamo/theatre-reservation/internal/storage"
)

var media = config.MediaConfig{URL: "/media", MaxImageSize: 1 << 20}

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// call runs h against a request built from method, target and body.  The
// optional userID is what the JWT middleware would have put in context.
func call(h echo.HandlerFunc, method, target, body string, params map[string]string, userID uint64) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	if userID != 0 {
		c.Set("user_id", userID)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Errors
}

func TestGenreCreateValidation(t *testing.T) {
	db, mock := newMock(t)
	h := NewGenreHandler(repository.NewGenreRepo(db), quietLog())

	rec := call(h.Create, http.MethodPost, "/v1/genres", `{"name":"   "}`, nil, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"name": "this field is required"}, decodeErrors(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenreCreate(t *testing.T) {
	db, mock := newMock(t)
	h := NewGenreHandler(repository.NewGenreRepo(db), quietLog())

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO genres (name) VALUES (?)`)).WithArgs("Drama").
		WillReturnResult(sqlmock.NewResult(4, 1))

	rec := call(h.Create, http.MethodPost, "/v1/genres", `{"name":" Drama "}`, nil, 0)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":4,"name":"Drama"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenreCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	h := NewGenreHandler(repository.NewGenreRepo(db), quietLog())

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO genres`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Drama'"})

	rec := call(h.Create, http.MethodPost, "/v1/genres", `{"name":"Drama"}`, nil, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrors(t, rec), "name")
}

func TestGenreGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	h := NewGenreHandler(repository.NewGenreRepo(db), quietLog())

	rec := call(h.Get, http.MethodGet, "/v1/genres/abc", "", map[string]string{"id": "abc"}, 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name FROM genres WHERE id = ?`)).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	rec = call(h.Get, http.MethodGet, "/v1/genres/9", "", map[string]string{"id": "9"}, 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHallCreateValidation(t *testing.T) {
	db, _ := newMock(t)
	h := NewHallHandler(repository.NewHallRepo(db), quietLog())

	rec := call(h.Create, http.MethodPost, "/v1/theatre-halls", `{"name":"Blue","rows":0,"seats_in_row":-2}`, nil, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeErrors(t, rec)
	assert.Contains(t, errs, "rows")
	assert.Contains(t, errs, "seats_in_row")
}

func TestHallCreate(t *testing.T) {
	db, mock := newMock(t)
	h := NewHallHandler(repository.NewHallRepo(db), quietLog())

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO theatre_halls (name, num_rows, seats_in_row)`)).
		WithArgs("Blue", 15, 20).WillReturnResult(sqlmock.NewResult(1, 1))

	rec := call(h.Create, http.MethodPost, "/v1/theatre-halls", `{"name":"Blue","rows":15,"seats_in_row":20}`, nil, 0)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"Blue","rows":15,"seats_in_row":20,"capacity":300}`, rec.Body.String())
}

func TestPerformanceListRejectsBadDate(t *testing.T) {
	db, _ := newMock(t)
	h := NewPerformanceHandler(repository.NewPerformanceRepo(db), media, quietLog())

	rec := call(h.List, http.MethodGet, "/v1/performances?date=2024-13-40", "", nil, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrors(t, rec), "date")
}

func TestPerformanceList(t *testing.T) {
	db, mock := newMock(t)
	h := NewPerformanceHandler(repository.NewPerformanceRepo(db), media, quietLog())

	show := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM performances pf`)).WithArgs("2024-06-01", "%ham%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "show_time", "title", "image", "name", "num_rows", "seats_in_row", "tickets_available"}).
			AddRow(3, show, "Hamlet", "uploads/plays/hamlet-x.png", "Main", 15, 20, 299))

	rec := call(h.List, http.MethodGet, "/v1/performances?date=2024-06-01&play=Ham", "", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{
		"id": 3,
		"show_time": "2024-06-01T19:00:00Z",
		"play_title": "Hamlet",
		"play_image": "/media/uploads/plays/hamlet-x.png",
		"theatre_hall_name": "Main",
		"theatre_hall_capacity": 300,
		"tickets_available": 299
	}]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceCreateValidation(t *testing.T) {
	db, _ := newMock(t)
	h := NewPerformanceHandler(repository.NewPerformanceRepo(db), media, quietLog())

	rec := call(h.Create, http.MethodPost, "/v1/performances", `{"play":1,"show_time":"tomorrow"}`, nil, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeErrors(t, rec)
	assert.Contains(t, errs, "theatre_hall")
	assert.Equal(t, repository.ErrShowTimeFormat.Error(), errs["show_time"])
}

func newReservationHandler(db *sql.DB) *ReservationHandler {
	reservations := repository.NewReservationRepo(db)
	booking := service.NewBookingService(db, reservations, repository.NewTicketRepo(db),
		repository.NewPerformanceRepo(db), nil, quietLog())
	return NewReservationHandler(reservations, booking, media, quietLog())
}

func TestReservationCreateRequiresUser(t *testing.T) {
	db, _ := newMock(t)
	h := newReservationHandler(db)

	rec := call(h.Create, http.MethodPost, "/v1/reservations", `{"tickets":[{"row":1,"seat":1,"performance":1}]}`, nil, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReservationCreateSeatTaken(t *testing.T) {
	db, mock := newMock(t)
	h := newReservationHandler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM performances pf JOIN theatre_halls h`)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "num_rows", "seats_in_row"}).AddRow(1, "Main", 15, 20))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).WithArgs(7).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at FROM reservations`)).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tickets`)).WithArgs(15, 20, 1, 2).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	rec := call(h.Create, http.MethodPost, "/v1/reservations", `{"tickets":[{"row":15,"seat":20,"performance":1}]}`, nil, 7)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"seat already taken"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationCreateOutOfRange(t *testing.T) {
	db, mock := newMock(t)
	h := newReservationHandler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM performances pf JOIN theatre_halls h`)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "num_rows", "seats_in_row"}).AddRow(1, "Main", 15, 20))
	mock.ExpectRollback()

	rec := call(h.Create, http.MethodPost, "/v1/reservations", `{"tickets":[{"row":16,"seat":1,"performance":1}]}`, nil, 7)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"row": "row number must be in available range: (1, rows): (1, 15)"}, decodeErrors(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationListPagination(t *testing.T) {
	db, mock := newMock(t)
	h := newReservationHandler(db)

	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM reservations WHERE user_id = ?`)).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, created_at FROM reservations WHERE user_id = ?`)).WithArgs(7, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(2, created).AddRow(1, created))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets t`)).WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reservation_id", "row_num", "seat_num", "pf_id", "show_time",
			"title", "image", "name", "num_rows", "seats_in_row", "available"}).
			AddRow(5, 2, 1, 1, 3, created, "Hamlet", nil, "Main", 2, 2, 3))

	rec := call(h.List, http.MethodGet, "/v1/reservations?page=2", "", nil, 7)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count    int     `json:"count"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
		Results  []struct {
			ID      uint64 `json:"id"`
			Tickets []struct {
				Row         int `json:"row"`
				Performance struct {
					PlayTitle        string `json:"play_title"`
					TicketsAvailable int    `json:"tickets_available"`
				} `json:"performance"`
			} `json:"tickets"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 12, body.Count)
	assert.Nil(t, body.Next)
	require.NotNil(t, body.Previous)
	assert.Equal(t, "http://example.com/v1/reservations", *body.Previous)
	require.Len(t, body.Results, 2)
	require.Len(t, body.Results[0].Tickets, 1)
	assert.Equal(t, "Hamlet", body.Results[0].Tickets[0].Performance.PlayTitle)
	assert.Equal(t, 3, body.Results[0].Tickets[0].Performance.TicketsAvailable)
	assert.Empty(t, body.Results[1].Tickets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationListBadPageSize(t *testing.T) {
	db, _ := newMock(t)
	h := newReservationHandler(db)

	rec := call(h.List, http.MethodGet, "/v1/reservations?page_size=zero", "", nil, 7)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrors(t, rec), "page_size")
}

func multipartImage(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func uploadRequest(h *PlayHandler, filename string, content []byte, t *testing.T) *httptest.ResponseRecorder {
	body, ctype := multipartImage(t, filename, content)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/plays/1/upload-image", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.UploadImage(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func expectPlayByID(mock sqlmock.Sqlmock, image any) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, description, image FROM plays WHERE id = ?`)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "image"}).AddRow(1, "Hamlet", nil, image))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT genre_id FROM play_genres`)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"genre_id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT actor_id FROM play_actors`)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"actor_id"}))
}

func TestUploadImage(t *testing.T) {
	db, mock := newMock(t)
	root := t.TempDir()
	files := storage.NewFileStorage(root)
	require.NoError(t, files.Save("uploads/plays/old.png", bytes.NewReader(pngHeader)))
	h := NewPlayHandler(repository.NewPlayRepo(db), files, media, quietLog())

	expectPlayByID(mock, "uploads/plays/old.png")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE plays SET image = ? WHERE id = ?`)).
		WithArgs(sqlmock.AnyArg(), 1).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := uploadRequest(h, "poster.png", pngHeader, t)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		ID    uint64 `json:"id"`
		Image string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Regexp(t, `^/media/uploads/plays/hamlet-[0-9a-f-]{36}\.png$`, body.Image)

	key := strings.TrimPrefix(body.Image, "/media/")
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	assert.NoError(t, err)
	assert.False(t, files.Exists("uploads/plays/old.png"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadImageRejectsBadFiles(t *testing.T) {
	cases := map[string]struct {
		filename string
		content  []byte
	}{
		"extension": {"notes.txt", pngHeader},
		"content":   {"fake.png", []byte("plain text pretending to be a picture")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock := newMock(t)
			h := NewPlayHandler(repository.NewPlayRepo(db), storage.NewFileStorage(t.TempDir()), media, quietLog())
			expectPlayByID(mock, nil)

			rec := uploadRequest(h, tc.filename, tc.content, t)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeErrors(t, rec), "image")
		})
	}
}

func TestRespondHidesInternalErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, respond(c, quietLog(), sql.ErrConnDone))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
