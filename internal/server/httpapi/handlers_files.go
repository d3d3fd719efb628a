package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mkrutov/termgate/internal/server/auth"
	"github.com/mkrutov/termgate/internal/server/sandbox"
)

type fileEntry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"isDir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

type writeFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// resolveRequestPath applies the sandbox resolver to the caller's path
// argument. Every file handler goes through here before touching the
// filesystem.
func (a *API) resolveRequestPath(w http.ResponseWriter, r *http.Request, requested string) (string, *auth.Claims, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", nil, false
	}

	abs, err := sandbox.Resolve(claims.HomeDir, requested)
	if err != nil {
		a.logger.Warn(r.Context(), "sandbox violation", "username", claims.Username)
		writeServiceError(w, err)
		return "", nil, false
	}

	return abs, claims, true
}

func (a *API) handleListFiles(w http.ResponseWriter, r *http.Request) {
	abs, _, ok := a.resolveRequestPath(w, r, r.URL.Query().Get("path"))
	if !ok {
		return
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	entries := make([]fileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, fileEntry{
			Name:    de.Name(),
			IsDir:   de.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// isBinary sniffs for a NUL byte in the first 512 bytes.
func isBinary(f *os.File) (bool, error) {
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}

func (a *API) handleReadFile(w http.ResponseWriter, r *http.Request) {
	abs, _, ok := a.resolveRequestPath(w, r, r.URL.Query().Get("path"))
	if !ok {
		return
	}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if info.IsDir() {
		writeError(w, http.StatusBadRequest, "path is a directory")
		return
	}

	binary, err := isBinary(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if binary {
		// binary files return metadata only, never content
		writeJSON(w, http.StatusOK, map[string]any{
			"binary": true,
			"name":   info.Name(),
			"size":   info.Size(),
		})
		return
	}

	if info.Size() > a.cfg.MaxFileReadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	content, err := io.ReadAll(io.LimitReader(f, a.cfg.MaxFileReadBytes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"binary":  false,
		"name":    info.Name(),
		"size":    info.Size(),
		"content": string(content),
	})
}

func (a *API) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	var req writeFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	abs, _, ok := a.resolveRequestPath(w, r, req.Path)
	if !ok {
		return
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := os.WriteFile(abs, []byte(req.Content), 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	// uploads land in the requested directory under the uploaded file's
	// base name; the joined path is sandbox-checked as a whole
	target := filepath.Join(r.FormValue("path"), filepath.Base(header.Filename))
	abs, _, ok := a.resolveRequestPath(w, r, target)
	if !ok {
		return
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	dst, err := os.Create(abs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok", "name": filepath.Base(header.Filename)})
}

func (a *API) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	abs, claims, ok := a.resolveRequestPath(w, r, r.URL.Query().Get("path"))
	if !ok {
		return
	}

	// the sandbox root itself is not deletable
	if abs == filepath.Clean(claims.HomeDir) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := os.RemoveAll(abs); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
