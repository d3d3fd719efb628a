package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileFixture creates a user and returns its bearer token and sandbox root.
func fileFixture(t *testing.T, a *testAPI) (string, string) {
	t.Helper()
	token := a.createUserAndToken(t, "alice", "pa55word")
	claims, err := a.users.Authenticate(context.Background(), "alice", "pa55word")
	require.NoError(t, err)
	return token, claims.HomeDir
}

func TestListFiles(t *testing.T) {
	a := newTestAPI(t)
	token, home := fileFixture(t, a)

	require.NoError(t, os.WriteFile(filepath.Join(home, "hello.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(home, "sub"), 0o700))

	resp := a.request(t, http.MethodGet, "/api/files?path=.", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Entries []fileEntry `json:"entries"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Entries, 2)

	names := map[string]bool{}
	for _, e := range body.Entries {
		names[e.Name] = e.IsDir
	}
	assert.False(t, names["hello.txt"])
	assert.True(t, names["sub"])
}

func TestListFiles_TraversalDenied(t *testing.T) {
	a := newTestAPI(t)
	token, _ := fileFixture(t, a)

	resp := a.request(t, http.MethodGet, "/api/files?path="+url.QueryEscape("../../etc"), token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var er errorResponse
	decodeBody(t, resp, &er)
	assert.Equal(t, "access denied", er.Error, "sandbox violations must not disclose paths")
}

func TestReadFile_TextAndBinary(t *testing.T) {
	a := newTestAPI(t)
	token, home := fileFixture(t, a)

	require.NoError(t, os.WriteFile(filepath.Join(home, "note.txt"), []byte("some text"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, "blob.bin"), []byte{0x7f, 0x45, 0x4c, 0x46, 0x00, 0x01}, 0o644))

	resp := a.request(t, http.MethodGet, "/api/files/content?path=note.txt", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var text struct {
		Binary  bool   `json:"binary"`
		Content string `json:"content"`
		Size    int64  `json:"size"`
	}
	decodeBody(t, resp, &text)
	assert.False(t, text.Binary)
	assert.Equal(t, "some text", text.Content)

	resp = a.request(t, http.MethodGet, "/api/files/content?path=blob.bin", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var blob struct {
		Binary  bool   `json:"binary"`
		Content string `json:"content"`
		Size    int64  `json:"size"`
	}
	decodeBody(t, resp, &blob)
	assert.True(t, blob.Binary, "NUL bytes mark the file binary")
	assert.Empty(t, blob.Content, "binary reads return metadata only")
	assert.Equal(t, int64(6), blob.Size)
}

func TestReadFile_NotFound(t *testing.T) {
	a := newTestAPI(t)
	token, _ := fileFixture(t, a)

	resp := a.request(t, http.MethodGet, "/api/files/content?path=missing.txt", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWriteFile(t *testing.T) {
	a := newTestAPI(t)
	token, home := fileFixture(t, a)

	resp := a.request(t, http.MethodPut, "/api/files/content", token,
		writeFileRequest{Path: "docs/readme.md", Content: "# hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	content, err := os.ReadFile(filepath.Join(home, "docs", "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "# hi", string(content))

	// traversal in the body path is denied too
	resp = a.request(t, http.MethodPut, "/api/files/content", token,
		writeFileRequest{Path: "../escape.txt", Content: "x"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUploadFile(t *testing.T) {
	a := newTestAPI(t)
	token, home := fileFixture(t, a)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", "incoming"))
	fw, err := mw.CreateFormFile("file", "upload.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/files/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	content, err := os.ReadFile(filepath.Join(home, "incoming", "upload.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
}

func TestDeleteFile(t *testing.T) {
	a := newTestAPI(t)
	token, home := fileFixture(t, a)

	require.NoError(t, os.MkdirAll(filepath.Join(home, "dir", "nested"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, "dir", "nested", "f.txt"), []byte("x"), 0o644))

	// recursive directory delete
	resp := a.request(t, http.MethodDelete, "/api/files?path=dir", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoDirExists(t, filepath.Join(home, "dir"))

	// the sandbox root itself is protected
	resp = a.request(t, http.MethodDelete, "/api/files?path=.", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.request(t, http.MethodDelete, "/api/files?path=missing", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
