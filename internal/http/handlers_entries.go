package http

import (
	"bytes"
	"net/http"
	"strconv"

	"fuellog/internal/core"
	"fuellog/internal/export"
	applog "fuellog/internal/log"
)

type syncResponse struct {
	Synced int `json:"synced"`
}

func (s *Server) decodeEntryInput(w http.ResponseWriter, r *http.Request) (core.EntryInput, error) {
	var in core.EntryInput
	if err := DecodeJSON(w, r, &in); err != nil {
		return core.EntryInput{}, err
	}
	return sanitizeEntryInput(in), nil
}

// handlePreviewEntry returns the derived fields for a partially filled
// entry. Problems with the input are reported in the body, not as an error.
func (s *Server) handlePreviewEntry(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeEntryInput(w, r)
	if err != nil {
		s.writeError(w, r, err, applog.OpPreview, http.StatusUnprocessableEntity)
		return
	}
	p, err := s.entries.Preview(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, applog.OpPreview, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeEntryInput(w, r)
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate, http.StatusUnprocessableEntity)
		return
	}
	entry, err := s.entries.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate, http.StatusUnprocessableEntity)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/entries/"+strconv.FormatInt(entry.ID, 10)).
		JSON(entry).
		Write(w)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	f, err := ParseEntryFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, applog.OpList, http.StatusUnprocessableEntity)
		return
	}
	entries, err := s.entries.Query(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err, applog.OpList, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		s.writeError(w, r, err, applog.OpRead, http.StatusUnprocessableEntity)
		return
	}
	entry, err := s.entries.Entry(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, applog.OpRead, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleExportEntries downloads the filtered history as an XLSX workbook.
func (s *Server) handleExportEntries(w http.ResponseWriter, r *http.Request) {
	f, err := ParseEntryFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, applog.OpExport, http.StatusUnprocessableEntity)
		return
	}
	entries, err := s.entries.Query(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err, applog.OpExport, http.StatusUnprocessableEntity)
		return
	}

	// Buffer the workbook so an encoding failure can still answer 500.
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, entries); err != nil {
		s.writeError(w, r, err, applog.OpExport, http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(f)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)

	applog.FromContext(r.Context()).WithComponent(applog.ComponentExport).InfoContext(r.Context(), "Entries exported",
		applog.FieldCount, len(entries))
}

// handleSyncEntries appends the filtered history to the spreadsheet.
func (s *Server) handleSyncEntries(w http.ResponseWriter, r *http.Request) {
	f, err := ParseEntryFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, applog.OpSync, http.StatusUnprocessableEntity)
		return
	}
	n, err := s.entries.SyncToSheets(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err, applog.OpSync, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Synced: n})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.entries.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err, applog.OpRead, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
