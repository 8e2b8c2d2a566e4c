package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type questionRequest struct {
	CollectionName string `json:"collection_name"`
	Question       string `json:"question"`
}

type questionResponse struct {
	Answer string `json:"answer"`
}

type uploadResponse struct {
	Message      string   `json:"message"`
	SavedFiles   []string `json:"saved_files"`
	InvalidFiles []string `json:"invalid_files"`
}

type collectionInfo struct {
	Name   string `json:"name"`
	Chunks int64  `json:"chunks"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// handleAddPDF accepts a multipart batch of PDF files and ingests each one
// into the requested collection. A failing file is reported and skipped;
// it never aborts the rest of the batch.
func (s *Server) handleAddPDF(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart request")
		return
	}

	collection := r.FormValue("collection_name")
	if collection == "" {
		writeError(w, http.StatusUnprocessableEntity, "collection_name is required")
		return
	}

	startPage := 1
	if v := r.FormValue("start_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusUnprocessableEntity, "start_page must be a positive number")
			return
		}
		startPage = n
	}

	overwriteValue := r.FormValue("overwrite")
	if overwriteValue == "" {
		// Destroying or appending to a collection must be an explicit choice.
		writeError(w, http.StatusUnprocessableEntity, "overwrite is required")
		return
	}
	overwrite, err := strconv.ParseBool(overwriteValue)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "overwrite must be a boolean")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to prepare upload directory")
		return
	}

	var saved, invalid []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			invalid = append(invalid, name)
			continue
		}

		path, err := s.saveUpload(fh, name)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		if _, err := s.ingestor.IngestPDF(r.Context(), path, collection, startPage, overwrite); err != nil {
			s.log.Error().Err(err).Str("file", name).Str("collection", collection).Msg("ingestion failed")
			invalid = append(invalid, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		saved = append(saved, name)

		// Subsequent files extend the same collection even when the first
		// one replaced it.
		overwrite = false
	}

	if len(saved) == 0 {
		writeError(w, http.StatusBadRequest, "no valid files to ingest")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:      "file processing finished",
		SavedFiles:   saved,
		InvalidFiles: invalid,
	})
}

func (s *Server) saveUpload(fh *multipart.FileHeader, name string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(s.cfg.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

// handleQuestion answers one question against one collection.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	answer, err := s.pipeline.Answer(ctx, req.CollectionName, req.Question)
	if err != nil {
		s.log.Error().Err(err).Str("collection", req.CollectionName).Msg("question failed")
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, questionResponse{Answer: answer})
}

// handleListCollections returns every known collection with its chunk count.
func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	infos := make([]collectionInfo, 0, len(names))
	for _, name := range names {
		count, err := s.store.Count(r.Context(), name)
		if err != nil {
			count = 0
		}
		infos = append(infos, collectionInfo{Name: name, Chunks: count})
	}

	writeJSON(w, http.StatusOK, infos)
}

// handleDeleteCollection removes a collection and all its chunks.
func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.Delete(r.Context(), name); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
