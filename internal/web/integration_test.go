package web_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/productreg/internal/db"
	"github.com/vbonduro/productreg/internal/domain"
	"github.com/vbonduro/productreg/internal/intake"
	"github.com/vbonduro/productreg/internal/registry"
	"github.com/vbonduro/productreg/internal/registryd"
	"github.com/vbonduro/productreg/internal/session"
	"github.com/vbonduro/productreg/internal/stagestore/local"
	"github.com/vbonduro/productreg/internal/store"
	"github.com/vbonduro/productreg/internal/web"
	"github.com/vbonduro/productreg/internal/web/templates"
)

var minimalPNG = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

// newRegistry starts the registry stand-in on an in-memory database.
func newRegistry(t *testing.T) (*httptest.Server, *store.RecordStore) {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)
	records := store.NewRecordStore(database)
	srv := httptest.NewServer(registryd.New(records, slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv, records
}

// newTestServer starts the web app against registryURL and returns a client
// that keeps the session cookie.
func newTestServer(t *testing.T, registryURL string) (*httptest.Server, *http.Client) {
	t.Helper()
	blobs, err := local.New(t.TempDir())
	require.NoError(t, err)

	client := registry.NewClient(registryURL, 5*time.Second, slog.Default())
	sessions := session.NewManager(session.Options{
		Submitter: client,
		Querier:   client,
		Blobs:     blobs,
		Limits:    intake.Limits{MaxFiles: 5, MaxFileBytes: 1 << 20},
		TTL:       time.Hour,
	})
	srv := httptest.NewServer(web.NewServer(sessions, blobs, templates.FS, slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		sessions.Stop(context.Background())
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func buildMultipartBody(t *testing.T, files []upload, fields url.Values) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		var (
			part io.Writer
			err  error
		)
		if f.contentType == "" {
			part, err = w.CreateFormFile("files", f.name)
		} else {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
			h.Set("Content-Type", f.contentType)
			part, err = w.CreatePart(h)
		}
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func send(t *testing.T, c *http.Client, method, target, contentType string, body io.Reader, htmx bool) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func stage(t *testing.T, c *http.Client, srv *httptest.Server, files ...upload) string {
	t.Helper()
	body, ct := buildMultipartBody(t, files, nil)
	status, out := send(t, c, http.MethodPost, srv.URL+"/files", ct, body, true)
	require.Equal(t, http.StatusOK, status, out)
	return out
}

func submit(t *testing.T, c *http.Client, srv *httptest.Server, fields url.Values) string {
	t.Helper()
	status, out := send(t, c, http.MethodPost, srv.URL+"/register",
		"application/x-www-form-urlencoded", strings.NewReader(fields.Encode()), true)
	require.Equal(t, http.StatusOK, status, out)
	return out
}

func validFields(serial string) url.Values {
	return url.Values{
		"category":      {"Tools"},
		"model":         {"Model 3003"},
		"sNumber":       {serial},
		"dateOfInvoice": {"2024-03-05"},
	}
}

func TestIntegration_RegisterPage(t *testing.T) {
	reg, _ := newRegistry(t)
	srv, c := newTestServer(t, reg.URL)

	resp, err := c.Get(srv.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, string(body), "Register your product")
	assert.Contains(t, string(body), "Select Category")
	assert.Contains(t, string(body), "Model 4004")

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	assert.Len(t, c.Jar.Cookies(u), 1)
}

func TestIntegration_UpdateField(t *testing.T) {
	reg, _ := newRegistry(t)
	srv, c := newTestServer(t, reg.URL)

	out := submit(t, c, srv, url.Values{})
	assert.Contains(t, out, "Serial number is required")

	status, out := send(t, c, http.MethodPost, srv.URL+"/fields/sNumber",
		"application/x-www-form-urlencoded", strings.NewReader("sNumber=AB12"), true)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, `id="sNumber-error"`)
	assert.NotContains(t, out, "Serial number is required")

	status, _ = send(t, c, http.MethodPost, srv.URL+"/fields/color",
		"application/x-www-form-urlencoded", strings.NewReader("color=red"), true)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIntegration_StageFiles(t *testing.T) {
	reg, _ := newRegistry(t)
	srv, c := newTestServer(t, reg.URL)

	out := stage(t, c, srv, upload{name: "receipt.png", contentType: "image/png", data: minimalPNG})
	assert.Contains(t, out, "Uploaded Files:")
	assert.Contains(t, out, "receipt.png")

	// An invalid file rejects the whole batch; earlier files stay staged.
	out = stage(t, c, srv,
		upload{name: "second.png", contentType: "image/png", data: minimalPNG},
		upload{name: "notes.txt", contentType: "text/plain", data: []byte("hello")},
	)
	assert.Contains(t, out, "Only image files (jpg, png, gif) are allowed")
	assert.Contains(t, out, "receipt.png")
	assert.NotContains(t, out, "second.png")

	// Undeclared types are sniffed from content.
	out = stage(t, c, srv, upload{name: "photo.bin", data: minimalPNG})
	assert.NotContains(t, out, "Only image files")
	assert.Contains(t, out, "photo.bin")

	resp, err := c.Get(srv.URL + "/files/0")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, minimalPNG, data)

	status, _ := send(t, c, http.MethodGet, srv.URL+"/files/9", "", nil, false)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestIntegration_SubmitRequiresEverything(t *testing.T) {
	reg, _ := newRegistry(t)
	srv, c := newTestServer(t, reg.URL)

	out := submit(t, c, srv, url.Values{})
	for _, msg := range []string{
		"Category is required",
		"Model is required",
		"Serial number is required",
		"Date of Invoice is required",
		"At least one file must be uploaded",
	} {
		assert.Contains(t, out, msg)
	}

	out = submit(t, c, srv, validFields("AB-12"))
	assert.Contains(t, out, "Special Character not allowed")
}

func TestIntegration_RegisterAndList(t *testing.T) {
	reg, records := newRegistry(t)
	srv, c := newTestServer(t, reg.URL)

	stage(t, c, srv, upload{name: "receipt.png", contentType: "image/png", data: minimalPNG})
	out := submit(t, c, srv, validFields("SN123"))

	assert.Contains(t, out, "Product registered")
	assert.Contains(t, out, "Your product has been created!")
	assert.NotContains(t, out, "receipt.png", "staged files reset after success")
	assert.NotContains(t, out, `value="SN123"`, "form reset after success")

	stored, err := records.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{Category: "Tools", Model: "Model 3003", SNumber: "SN123", DateOfInvoice: "2024-03-05"}}, stored)

	status, out := send(t, c, http.MethodGet, srv.URL+"/submitted-data", "", nil, false)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, "List Of Products")
	assert.Contains(t, out, "Loading...")

	status, out = send(t, c, http.MethodGet, srv.URL+"/submitted-data/page", "", nil, true)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, "SN123")
	assert.Contains(t, out, "5 March 2024")
}

func TestIntegration_SubmitFailureKeepsForm(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database down", http.StatusInternalServerError)
	}))
	defer broken.Close()
	srv, c := newTestServer(t, broken.URL)

	stage(t, c, srv, upload{name: "receipt.png", contentType: "image/png", data: minimalPNG})
	out := submit(t, c, srv, validFields("SN123"))

	assert.Contains(t, out, "Registration failed")
	assert.Contains(t, out, `value="SN123"`)
	assert.Contains(t, out, "receipt.png")
	assert.NotContains(t, out, `type="submit" disabled`)
}

func TestIntegration_PlainPostRedirects(t *testing.T) {
	reg, _ := newRegistry(t)
	srv, c := newTestServer(t, reg.URL)

	body, ct := buildMultipartBody(t,
		[]upload{{name: "receipt.png", contentType: "image/png", data: minimalPNG}},
		validFields("SN777"),
	)
	status, out := send(t, c, http.MethodPost, srv.URL+"/register", ct, body, false)

	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, "Register your product")
	assert.Contains(t, out, "Product registered")
}

func TestIntegration_Pagination(t *testing.T) {
	reg, records := newRegistry(t)
	for i := 0; i < 20; i++ {
		require.NoError(t, records.Create(context.Background(), domain.Record{
			Category: "Storage", Model: "Model 1001", SNumber: fmt.Sprintf("SN%03d", i), DateOfInvoice: "2023-12-25",
		}))
	}
	srv, c := newTestServer(t, reg.URL)

	send(t, c, http.MethodGet, srv.URL+"/submitted-data", "", nil, false)

	status, out := send(t, c, http.MethodGet, srv.URL+"/submitted-data/page", "", nil, true)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, "SN000")
	assert.Contains(t, out, "SN007")
	assert.NotContains(t, out, "SN008")
	assert.Contains(t, out, "25 December 2023")

	status, out = send(t, c, http.MethodGet, srv.URL+"/submitted-data/page?n=3", "", nil, true)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4, strings.Count(out, "<td>SN0"))
	assert.Contains(t, out, "SN016")
	assert.Contains(t, out, "SN019")
	assert.NotContains(t, out, "SN015")

	status, _ = send(t, c, http.MethodGet, srv.URL+"/submitted-data/page?n=4", "", nil, true)
	assert.Equal(t, http.StatusBadRequest, status)

	// Without HTMX the full page carries the table.
	status, out = send(t, c, http.MethodGet, srv.URL+"/submitted-data/page?n=2", "", nil, false)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, "List Of Products")
	assert.Contains(t, out, "SN008")
}

func TestIntegration_PaginationAlwaysShown(t *testing.T) {
	t.Run("single page", func(t *testing.T) {
		reg, records := newRegistry(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, records.Create(context.Background(), domain.Record{
				Category: "Tools", Model: "Model 2002", SNumber: fmt.Sprintf("SN%03d", i), DateOfInvoice: "2024-03-05",
			}))
		}
		srv, c := newTestServer(t, reg.URL)

		send(t, c, http.MethodGet, srv.URL+"/submitted-data", "", nil, false)
		status, out := send(t, c, http.MethodGet, srv.URL+"/submitted-data/page", "", nil, true)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, out, `class="pagination"`)
		assert.Contains(t, out, `aria-current="page">1</a>`)
		assert.NotContains(t, out, "&rsaquo;")
	})

	t.Run("no records", func(t *testing.T) {
		reg, _ := newRegistry(t)
		srv, c := newTestServer(t, reg.URL)

		send(t, c, http.MethodGet, srv.URL+"/submitted-data", "", nil, false)
		status, out := send(t, c, http.MethodGet, srv.URL+"/submitted-data/page", "", nil, true)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, out, "No rows to display.")
		assert.Contains(t, out, `class="pagination"`)
		assert.NotContains(t, out, "?n=1")
	})
}

func TestIntegration_ListingFailure(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database down", http.StatusInternalServerError)
	}))
	defer broken.Close()
	srv, c := newTestServer(t, broken.URL)

	send(t, c, http.MethodGet, srv.URL+"/submitted-data", "", nil, false)
	status, out := send(t, c, http.MethodGet, srv.URL+"/submitted-data/page", "", nil, true)

	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, "Submitted records could not be loaded")
	assert.Contains(t, out, "No rows to display.")
}

func TestIntegration_HealthzAndStatic(t *testing.T) {
	reg, _ := newRegistry(t)
	srv, c := newTestServer(t, reg.URL)

	status, out := send(t, c, http.MethodGet, srv.URL+"/healthz", "", nil, false)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", out)

	status, out = send(t, c, http.MethodGet, srv.URL+"/static/app.css", "", nil, false)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, ".pagination")
}
