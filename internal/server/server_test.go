package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camazac/realty/internal/server/auth"
	"github.com/camazac/realty/internal/server/config"
	"github.com/camazac/realty/pkg/api"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

type testEnv struct {
	srv        *Server
	ts         *httptest.Server
	uploadsDir string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Path = ":memory:"
	cfg.Sessions.Type = "memory"
	cfg.Sessions.SweepInterval = 0
	cfg.Images.Dir = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(context.Background(), cfg, logger, "test")
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})

	return &testEnv{srv: srv, ts: ts, uploadsDir: cfg.Images.Dir}
}

// newClient возвращает клиента с собственной cookie jar
func (e *testEnv) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) createUser(t *testing.T, username string, isAdmin bool) {
	t.Helper()
	_, err := e.srv.Credentials().CreateUser(context.Background(), auth.NewUser{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test " + username,
		Password: "password123",
		IsAdmin:  isAdmin,
	})
	require.NoError(t, err)
}

func (e *testEnv) login(t *testing.T, username string) *http.Client {
	t.Helper()
	client := e.newClient(t)
	resp := e.postJSON(t, client, "/api/auth/login", api.LoginRequest{Username: username, Password: "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	return client
}

func (e *testEnv) postJSON(t *testing.T, client *http.Client, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(e.ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, client *http.Client, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(e.ts.URL + path)
	require.NoError(t, err)
	return resp
}

type testFile struct {
	name        string
	contentType string
	content     []byte
}

func pngFiles(n int) []testFile {
	files := make([]testFile, n)
	for i := range files {
		files[i] = testFile{name: fmt.Sprintf("photo%d.png", i+1), contentType: "image/png", content: pngBytes}
	}
	return files
}

// sendMultipart отправляет форму объекта с файлами в поле images
func (e *testEnv) sendMultipart(t *testing.T, client *http.Client, method, path string, fields map[string]string, files []testFile) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(method, e.ts.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func propertyFields() map[string]string {
	return map[string]string{
		"title":       "Casa en la playa",
		"description": "Tres dormitorios, vista al mar",
		"address":     "Av. Costanera 123",
		"price":       "25000000",
		"type":        "Casa",
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) uploadedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.uploadsDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (e *testEnv) createProperty(t *testing.T, admin *http.Client, images int) api.Property {
	t.Helper()
	resp := e.sendMultipart(t, admin, http.MethodPost, "/api/properties", propertyFields(), pngFiles(images))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.Property](t, resp)
}

func TestServer_Health(t *testing.T) {
	env := setupTestServer(t)

	resp := env.get(t, env.newClient(t), "/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestServer_RegisterMeLogout(t *testing.T) {
	env := setupTestServer(t)
	client := env.newClient(t)

	resp := env.postJSON(t, client, "/api/auth/register", api.RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		FullName: "Alice Doe",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "$2a$")

	var user api.User
	require.NoError(t, json.Unmarshal(raw, &user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsAdmin)

	// сессия открыта сразу после регистрации
	me := decode[*api.User](t, env.get(t, client, "/api/auth/me"))
	require.NotNil(t, me)
	assert.Equal(t, user.ID, me.ID)

	resp = env.postJSON(t, client, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	me = decode[*api.User](t, env.get(t, client, "/api/auth/me"))
	assert.Nil(t, me)
}

func TestServer_RegisterConflictsAndValidation(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", false)
	client := env.newClient(t)

	tests := []struct {
		name    string
		req     api.RegisterRequest
		wantMsg string
	}{
		{
			name:    "duplicate username",
			req:     api.RegisterRequest{Username: "alice", Email: "other@example.com", FullName: "A", Password: "password123"},
			wantMsg: "Username already exists",
		},
		{
			name:    "duplicate email",
			req:     api.RegisterRequest{Username: "alice2", Email: "alice@example.com", FullName: "A", Password: "password123"},
			wantMsg: "Email already exists",
		},
		{
			name:    "short password",
			req:     api.RegisterRequest{Username: "bob", Email: "bob@example.com", FullName: "Bob", Password: "short"},
			wantMsg: "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postJSON(t, client, "/api/auth/register", tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[api.ErrorResponse](t, resp)
			assert.Contains(t, body.Message, tt.wantMsg)
		})
	}
}

func TestServer_Login(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", false)

	tests := []struct {
		name       string
		req        api.LoginRequest
		wantStatus int
	}{
		{name: "success", req: api.LoginRequest{Username: "alice", Password: "password123"}, wantStatus: http.StatusOK},
		{name: "wrong password", req: api.LoginRequest{Username: "alice", Password: "wrong-password"}, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", req: api.LoginRequest{Username: "nobody", Password: "password123"}, wantStatus: http.StatusUnauthorized},
		{name: "missing password", req: api.LoginRequest{Username: "alice"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := env.newClient(t)
			resp := env.postJSON(t, client, "/api/auth/login", tt.req)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			resp.Body.Close()

			me := decode[*api.User](t, env.get(t, client, "/api/auth/me"))
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, me)
				assert.Equal(t, "alice", me.Username)
			} else {
				assert.Nil(t, me)
			}
		})
	}
}

func TestServer_NonAdminCannotCreateProperty(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", false)
	client := env.login(t, "alice")

	resp := env.sendMultipart(t, client, http.MethodPost, "/api/properties", propertyFields(), pngFiles(1))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	list := decode[[]api.Property](t, env.get(t, client, "/api/properties"))
	assert.Empty(t, list)
	assert.Empty(t, env.uploadedFiles(t))
}

func TestServer_AnonymousCannotSendMessage(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")
	property := env.createProperty(t, admin, 1)

	resp := env.postJSON(t, env.newClient(t), "/api/messages", api.CreateMessageRequest{
		PropertyID: property.ID,
		Message:    "Is it available?",
		UserName:   "Anon",
		UserEmail:  "anon@example.com",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	messages := decode[[]api.Message](t, env.get(t, admin, "/api/messages"))
	assert.Empty(t, messages)
}

func TestServer_Messages(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	env.createUser(t, "alice", false)
	admin := env.login(t, "admin")
	alice := env.login(t, "alice")
	property := env.createProperty(t, admin, 1)

	me := decode[*api.User](t, env.get(t, alice, "/api/auth/me"))
	require.NotNil(t, me)

	t.Run("created with session user", func(t *testing.T) {
		resp := env.postJSON(t, alice, "/api/messages", api.CreateMessageRequest{
			PropertyID: property.ID,
			Message:    "Is it available?",
			UserName:   "Alice",
			UserEmail:  "alice@example.com",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		msg := decode[api.Message](t, resp)
		assert.Equal(t, me.ID, msg.UserID)
	})

	t.Run("foreign userId rejected", func(t *testing.T) {
		resp := env.postJSON(t, alice, "/api/messages", api.CreateMessageRequest{
			UserID:     "someone-else",
			PropertyID: property.ID,
			Message:    "Hi",
			UserName:   "Alice",
			UserEmail:  "alice@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("unknown property rejected", func(t *testing.T) {
		resp := env.postJSON(t, alice, "/api/messages", api.CreateMessageRequest{
			PropertyID: "missing",
			Message:    "Hi",
			UserName:   "Alice",
			UserEmail:  "alice@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decode[api.ErrorResponse](t, resp)
		assert.Contains(t, body.Fields, "propertyId")
	})

	t.Run("only admin lists messages", func(t *testing.T) {
		resp := env.get(t, alice, "/api/messages")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()

		messages := decode[[]api.Message](t, env.get(t, admin, "/api/messages"))
		require.Len(t, messages, 1)
		assert.Equal(t, "Is it available?", messages[0].Message)
	})
}

func TestServer_UpdateKeepThreeUploadTwo(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")

	created := env.createProperty(t, admin, 5)
	require.Len(t, created.Images, 5)
	require.Len(t, env.uploadedFiles(t), 5)

	keep := []string{created.Images[0], created.Images[2], created.Images[4]}
	keepJSON, err := json.Marshal(keep)
	require.NoError(t, err)

	fields := propertyFields()
	fields["existingImages"] = string(keepJSON)
	fields["price"] = "26000000"

	resp := env.sendMultipart(t, admin, http.MethodPatch, "/api/properties/"+created.ID, fields, pngFiles(2))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[api.Property](t, resp)

	require.Len(t, updated.Images, 5)
	assert.Equal(t, keep, updated.Images[:3])
	assert.Equal(t, int64(26000000), updated.Price)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	// удаленные файлы исчезли, на диске ровно итоговый набор
	var want []string
	for _, ref := range updated.Images {
		want = append(want, path.Base(ref))
	}
	assert.ElementsMatch(t, want, env.uploadedFiles(t))

	for _, ref := range []string{created.Images[1], created.Images[3]} {
		resp := env.get(t, admin, ref)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	}

	resp = env.get(t, env.newClient(t), updated.Images[0])
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, pngBytes, data)
}

func TestServer_UpdateKeepFourUploadThree(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")

	created := env.createProperty(t, admin, 5)

	keepJSON, err := json.Marshal(created.Images[:4])
	require.NoError(t, err)
	fields := propertyFields()
	fields["existingImages"] = string(keepJSON)

	resp := env.sendMultipart(t, admin, http.MethodPatch, "/api/properties/"+created.ID, fields, pngFiles(3))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[api.ErrorResponse](t, resp)
	assert.Contains(t, body.Fields, "images")

	stored := decode[api.Property](t, env.get(t, admin, "/api/properties/"+created.ID))
	assert.Equal(t, created.Images, stored.Images)
	assert.Len(t, env.uploadedFiles(t), 5)
}

func TestServer_UpdateDuplicateKeptImagesCountOnce(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")

	created := env.createProperty(t, admin, 2)

	first := created.Images[0]
	keepJSON, err := json.Marshal([]string{first, first, first})
	require.NoError(t, err)
	fields := propertyFields()
	fields["existingImages"] = string(keepJSON)

	resp := env.sendMultipart(t, admin, http.MethodPatch, "/api/properties/"+created.ID, fields, pngFiles(3))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[api.Property](t, resp)

	require.Len(t, updated.Images, 4)
	assert.Equal(t, first, updated.Images[0])
	assert.Len(t, env.uploadedFiles(t), 4)
}

func TestServer_UpdateNotFound(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")

	resp := env.sendMultipart(t, admin, http.MethodPatch, "/api/properties/missing", propertyFields(), pngFiles(1))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	assert.Empty(t, env.uploadedFiles(t))
}

func TestServer_RejectsDisguisedExecutable(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")

	files := []testFile{
		{name: "front.png", contentType: "image/png", content: pngBytes},
		{name: "photo.jpg", contentType: "image/jpeg", content: append([]byte("MZ\x90\x00"), bytes.Repeat([]byte{0}, 64)...)},
	}
	resp := env.sendMultipart(t, admin, http.MethodPost, "/api/properties", propertyFields(), files)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	resp.Body.Close()

	list := decode[[]api.Property](t, env.get(t, admin, "/api/properties"))
	assert.Empty(t, list)
	// файлы отклоненного запроса не остаются на диске
	assert.Empty(t, env.uploadedFiles(t))
}

func TestServer_CreateValidation(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")

	t.Run("no images", func(t *testing.T) {
		resp := env.sendMultipart(t, admin, http.MethodPost, "/api/properties", propertyFields(), nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("six images", func(t *testing.T) {
		resp := env.sendMultipart(t, admin, http.MethodPost, "/api/properties", propertyFields(), pngFiles(6))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("bad price", func(t *testing.T) {
		fields := propertyFields()
		fields["price"] = "12.5k"
		resp := env.sendMultipart(t, admin, http.MethodPost, "/api/properties", fields, pngFiles(1))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decode[api.ErrorResponse](t, resp)
		assert.Contains(t, body.Fields, "price")
	})

	assert.Empty(t, env.uploadedFiles(t))
}

func TestServer_DemotedAdminIsRefused(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")

	me := decode[*api.User](t, env.get(t, admin, "/api/auth/me"))
	require.NotNil(t, me)
	require.True(t, me.IsAdmin)

	_, err := env.srv.Credentials().SetAdmin(context.Background(), me.ID, false)
	require.NoError(t, err)

	resp := env.sendMultipart(t, admin, http.MethodPost, "/api/properties", propertyFields(), pngFiles(1))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_DeleteProperty(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "admin", true)
	admin := env.login(t, "admin")

	created := env.createProperty(t, admin, 3)
	require.Len(t, env.uploadedFiles(t), 3)

	req, err := http.NewRequest(http.MethodDelete, env.ts.URL+"/api/properties/"+created.ID, nil)
	require.NoError(t, err)
	resp, err := admin.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Empty(t, env.uploadedFiles(t))

	resp = env.get(t, admin, "/api/properties/"+created.ID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = admin.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_UploadNotFound(t *testing.T) {
	env := setupTestServer(t)

	for _, p := range []string{"/uploads/1700000000000-0123456789ab.png", "/uploads/..%2Frealty.db", "/uploads/notes.txt"} {
		resp := env.get(t, env.newClient(t), p)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, p)
		resp.Body.Close()
	}
}

func TestServer_LogoutWithoutSession(t *testing.T) {
	env := setupTestServer(t)

	resp := env.postJSON(t, env.newClient(t), "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[api.MessageResponse](t, resp)
	assert.NotEmpty(t, body.Message)
}
