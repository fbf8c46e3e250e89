package echo_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/member-import/internal/application/importing"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
	httpecho "github.com/mohammadpnp/member-import/internal/interfaces/http/echo"
)

type fakeStartImport struct {
	got app.StartImportInput
	out app.StartImportOutput
	err error
}

func (f *fakeStartImport) Execute(ctx context.Context, in app.StartImportInput) (app.StartImportOutput, error) {
	f.got = in
	if f.err != nil {
		return app.StartImportOutput{}, f.err
	}
	return f.out, nil
}

type fakeControl struct {
	got app.ControlInput
	out app.ControlOutput
	err error
}

func (f *fakeControl) Execute(ctx context.Context, in app.ControlInput) (app.ControlOutput, error) {
	f.got = in
	if f.err != nil {
		return app.ControlOutput{}, f.err
	}
	return f.out, nil
}

func newServer(start *fakeStartImport, control *fakeControl) *echo.Echo {
	e := echo.New()
	importHandler := httpecho.NewImportHandler(start, control, control, control)
	statusHandler := httpecho.NewStatusHandler(&fakeStatus{}, &fakeRowResults{})
	httpecho.RegisterRoutes(e, importHandler, statusHandler)
	return e
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.WriteField("affiliate_id", "aff-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unexpected json: %v", err)
	}
	data, ok := got["data"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected data payload: %#v", got)
	}
	return data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var got struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unexpected json: %v", err)
	}
	return got.Error.Code
}

func TestStartImportHandlerSuccess(t *testing.T) {
	t.Parallel()

	start := &fakeStartImport{out: app.StartImportOutput{ImportID: "imp-1", Status: "processing", TotalRows: 3, TotalChunks: 1, EstimatedTime: 1}}
	e := newServer(start, &fakeControl{})

	req := uploadRequest(t, "roster.csv", "Name\nAnn\n")
	req.Header.Set(httpecho.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["import_id"] != "imp-1" || data["total_rows"] != float64(3) {
		t.Fatalf("unexpected payload: %#v", data)
	}
	if start.got.OwnerID != "user-1" || start.got.Filename != "roster.csv" || string(start.got.Data) != "Name\nAnn\n" {
		t.Fatalf("unexpected use case input: %+v", start.got)
	}
	if start.got.AffiliateID == nil || *start.got.AffiliateID != "aff-1" {
		t.Fatalf("expected affiliate id to be forwarded")
	}
}

func TestStartImportHandlerRequiresOwner(t *testing.T) {
	t.Parallel()

	e := newServer(&fakeStartImport{}, &fakeControl{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "roster.csv", "Name\nAnn\n"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStartImportHandlerMapsErrors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		err  error
		code int
		body string
	}{
		{err: app.ErrInvalidFile, code: http.StatusBadRequest, body: "invalid_file"},
		{err: domain.ErrEmptyImport, code: http.StatusUnprocessableEntity, body: "empty_import"},
		{err: errors.New("disk full"), code: http.StatusInternalServerError, body: "internal_error"},
	} {
		e := newServer(&fakeStartImport{err: tc.err}, &fakeControl{})
		req := uploadRequest(t, "roster.csv", "Name\n")
		req.Header.Set(httpecho.HeaderUserID, "user-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		if got := errorCode(t, rec); got != tc.body {
			t.Fatalf("%v: expected code %s, got %s", tc.err, tc.body, got)
		}
	}
}

func TestStartImportHandlerMissingFile(t *testing.T) {
	t.Parallel()

	e := newServer(&fakeStartImport{}, &fakeControl{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", nil)
	req.Header.Set(httpecho.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestControlHandlers(t *testing.T) {
	t.Parallel()

	for _, action := range []string{"pause", "resume", "stop"} {
		control := &fakeControl{out: app.ControlOutput{ImportID: "imp-1", Status: "paused"}}
		e := newServer(&fakeStartImport{}, control)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/imp-1/"+action, nil)
		req.Header.Set(httpecho.HeaderUserID, "user-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", action, rec.Code)
		}
		if control.got.ImportID != "imp-1" || control.got.OwnerID != "user-1" {
			t.Fatalf("%s: unexpected input %+v", action, control.got)
		}
	}
}

func TestControlHandlerMapsErrors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		err  error
		code int
	}{
		{err: domain.ErrForbidden, code: http.StatusForbidden},
		{err: domain.ErrImportNotFound, code: http.StatusNotFound},
		{err: domain.ErrInvalidTransition, code: http.StatusConflict},
		{err: errors.New("db down"), code: http.StatusInternalServerError},
	} {
		e := newServer(&fakeStartImport{}, &fakeControl{err: tc.err})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/imp-1/stop", nil)
		req.Header.Set(httpecho.HeaderUserID, "user-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}
