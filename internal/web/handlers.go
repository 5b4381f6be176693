package web

import (
	"bytes"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/JonMunkholm/pifcsv/internal/core"
	"github.com/JonMunkholm/pifcsv/internal/logging"
	"github.com/JonMunkholm/pifcsv/internal/output"
	"github.com/JonMunkholm/pifcsv/internal/service"
	"github.com/JonMunkholm/pifcsv/internal/web/templates"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.UploadPage(templates.UploadPageParams{
		Formats:       output.FormatNames(),
		DefaultFormat: string(s.service.Defaults().Format),
		MaxFileSize:   s.cfg.Upload.MaxFileSize,
		StoreEnabled:  s.service.Store() != nil,
	})
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render upload page", "error", err)
	}
}

// handleHealth reports liveness and, when a store is configured, whether it
// answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.service.Store()
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "none"})
		return
	}
	if err := st.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("store ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "store": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "up"})
}

// handleFormats lists the output formats.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	infos := make([]output.FormatInfo, 0, len(output.FormatRegistry))
	for _, name := range output.FormatNames() {
		infos = append(infos, output.FormatRegistry[output.Format(name)])
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleStatus reports conversion slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.limiter.Status())
}

// handleConvert converts an uploaded template and returns the encoded
// records as an attachment. The whole output is buffered so that a template
// failing on its last row still produces an error response instead of a
// truncated file.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	opts, err := convertOptions(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	name := filepath.Base(header.Filename)
	var buf bytes.Buffer
	sum, err := s.service.Convert(r.Context(), file, name, &buf, opts)
	s.metrics.Observe(sum, err)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	info := output.FormatRegistry[sum.Format]
	w.Header().Set("Content-Type", info.MIMEType)
	w.Header().Set("Content-Disposition", contentDisposition(output.OutputPath(name, sum.Format)))
	w.Header().Set("X-Pifcsv-Records", strconv.Itoa(sum.Records))
	w.Header().Set("X-Pifcsv-Diagnostics", strconv.Itoa(len(sum.Diagnostics)))
	if s.service.Store() != nil {
		w.Header().Set("X-Pifcsv-Run-Id", sum.RunID.String())
	}
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write conversion response", "error", err)
	}
}

// contentDisposition marks the response as a download named filename,
// quoting and escaping the client-chosen name as needed.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// ColumnInfo describes one decoded header cell.
type ColumnInfo struct {
	Index     int    `json:"index"`
	Header    string `json:"header"`
	Keyword   string `json:"keyword"`
	Subsystem string `json:"subsystem"`
	Name      string `json:"name,omitempty"`
	Unit      string `json:"unit,omitempty"`
	Known     bool   `json:"known"`
}

// HeadersResponse is the body of POST /api/headers.
type HeadersResponse struct {
	Columns    []ColumnInfo `json:"columns"`
	Subsystems []string     `json:"subsystems"`
	Unknown    []int        `json:"unknown,omitempty"`
}

// handleHeaders decodes the header row of an uploaded template so authors
// can check how each column will be read.
func (s *Server) handleHeaders(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	opts, err := convertOptions(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	h, err := s.service.Headers(file, filepath.Base(header.Filename), opts)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, newHeadersResponse(h))
}

func newHeadersResponse(h *core.Header) HeadersResponse {
	resp := HeadersResponse{
		Columns:    make([]ColumnInfo, len(h.Columns)),
		Subsystems: h.Subsystems(),
		Unknown:    h.Unknown(),
	}
	for i, c := range h.Columns {
		resp.Columns[i] = ColumnInfo{
			Index:     c.Index + 1,
			Header:    c.Header,
			Keyword:   string(c.Kind),
			Subsystem: c.Subsystem,
			Name:      c.Name,
			Unit:      c.Unit,
			Known:     c.Known(),
		}
	}
	return resp
}

// formFile reads the "file" part of a size-limited multipart request,
// responding with an error itself when it returns ok=false.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, errTooLarge, http.StatusRequestEntityTooLarge)
		} else {
			respondError(w, r, errBadForm, http.StatusBadRequest)
		}
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return nil, nil, false
	}
	if header.Size == 0 {
		file.Close()
		respondError(w, r, errors.New("empty file"), http.StatusBadRequest)
		return nil, nil, false
	}
	return file, header, true
}

// convertOptions reads the optional format, merge and charset form fields.
func convertOptions(r *http.Request) (service.Options, error) {
	var opts service.Options

	if v := r.FormValue("format"); v != "" {
		f, err := output.ParseFormat(v)
		if err != nil {
			return opts, invalidOption(err.Error(), "Choose one of the formats listed by GET /api/formats")
		}
		opts.Format = f
	}
	if v := r.FormValue("merge"); v != "" {
		merge, err := strconv.ParseBool(v)
		if err != nil {
			return opts, invalidOption("merge must be true or false", "Send merge=true or leave it out")
		}
		opts.MergeProperties = merge
	}
	opts.Charset = r.FormValue("charset")
	return opts, nil
}

func invalidOption(msg, action string) error {
	return &core.ConversionError{Kind: core.KindValue, Code: "REQ001", Message: msg, Action: action}
}
