package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"collate/api/internal/collate"
	"collate/api/internal/logging"
	"collate/api/internal/search"
	"collate/api/internal/session"
)

const defaultMaxUploadBytes = 32 << 20

type HTTPServer struct {
	session    *session.Session
	corsOrigin string
	maxUpload  int64
	log        logging.Logger
}

type Options struct {
	CORSOrigin     string
	MaxUploadBytes int64
	Logger         logging.Logger
}

func NewHTTPServer(sess *session.Session, opts Options) *HTTPServer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewForTests()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	corsOrigin := opts.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &HTTPServer{
		session:    sess,
		corsOrigin: corsOrigin,
		maxUpload:  maxUpload,
		log:        logger.With("component", "http"),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"store": map[string]any{"status": "ok"},
		}

		if err := s.session.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["store"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "state":
		if r.Method != http.MethodGet {
			break
		}
		writeJSON(w, http.StatusOK, s.session.State())
		return

	case "paragraphs":
		if r.Method != http.MethodGet {
			break
		}
		s.handleParagraphs(w, r)
		return

	case "search":
		if r.Method != http.MethodGet {
			break
		}
		s.handleSearch(w, r)
		return

	case "view":
		if r.Method != http.MethodPut {
			break
		}
		var body struct {
			View string `json:"view"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.session.SetView(session.View(body.View)); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"view": body.View})
		return

	case "documents":
		s.handleDocuments(w, r, parts[2:])
		return

	case "manual-comments":
		s.handleManualComments(w, r, parts[2:])
		return

	case "statuses":
		s.handleStatuses(w, r, parts[2:])
		return

	case "notification":
		if r.Method != http.MethodPost || len(parts) != 3 || parts[2] != "dismiss" {
			break
		}
		s.session.DismissNotification()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return

	case "export":
		if r.Method != http.MethodGet {
			break
		}
		data, err := s.session.Export()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="collate-export-%s.json"`, time.Now().UTC().Format("2006-01-02")))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return

	case "import":
		if r.Method != http.MethodPost {
			break
		}
		data, ok := s.readBody(w, r)
		if !ok {
			return
		}
		if err := s.session.Import(r.Context(), data); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.session.State())
		return

	case "projects":
		s.handleProjects(w, r, parts[2:])
		return

	case "clear":
		if r.Method != http.MethodPost {
			break
		}
		s.session.ClearAll(r.Context())
		writeJSON(w, http.StatusOK, s.session.State())
		return

	case "recovery":
		s.handleRecovery(w, r)
		return

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleParagraphs(w http.ResponseWriter, r *http.Request) {
	filter, err := collate.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.fail(w, r, validationError(err.Error()))
		return
	}
	query := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, map[string]any{
		"filter":        filter,
		"query":         query,
		"paragraphs":    s.session.Paragraphs(filter, query),
		"unresolvedIds": s.session.UnresolvedIDs(filter, query),
	})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := search.Query{
		Text:       strings.TrimSpace(values.Get("q")),
		FilterKind: search.Kind(values.Get("kind")),
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.fail(w, r, validationError("limit must be a non-negative integer"))
			return
		}
		q.Limit = limit
	}
	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			s.fail(w, r, validationError("offset must be a non-negative integer"))
			return
		}
		q.Offset = offset
	}
	writeJSON(w, http.StatusOK, s.session.Search(q))
}

func (s *HTTPServer) handleDocuments(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"documents": s.session.State().Documents})
		return
	}

	if len(parts) == 0 && r.Method == http.MethodPost {
		filename := strings.TrimSpace(r.URL.Query().Get("filename"))
		if filename == "" {
			s.fail(w, r, session.ErrEmptyFilename)
			return
		}
		data, ok := s.readBody(w, r)
		if !ok {
			return
		}
		note, err := s.session.AddDocument(r.Context(), filename, data)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"notification": note,
			"state":        s.session.State(),
		})
		return
	}

	if len(parts) > 0 && r.Method == http.MethodDelete {
		if err := s.session.RemoveDocument(r.Context(), strings.Join(parts, "/")); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.session.State())
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleManualComments(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 && r.Method == http.MethodPost {
		var body struct {
			ID             string `json:"id"`
			ReviewerName   string `json:"reviewerName"`
			ParagraphIndex *int   `json:"paragraphIndex"`
			Text           string `json:"text"`
			Source         string `json:"source"`
			Date           string `json:"date"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.ParagraphIndex == nil {
			s.fail(w, r, validationError("paragraphIndex is required"))
			return
		}
		mc, err := s.session.AddManualComment(r.Context(), collate.ManualComment{
			ID:             body.ID,
			ReviewerName:   body.ReviewerName,
			ParagraphIndex: *body.ParagraphIndex,
			Text:           body.Text,
			Source:         collate.CommentSource(body.Source),
			Date:           body.Date,
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"manualComment": mc})
		return
	}

	if len(parts) == 1 && r.Method == http.MethodDelete {
		if err := s.session.RemoveManualComment(r.Context(), parts[0]); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleStatuses(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 1 && parts[0] == "bulk" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			IDs    []string `json:"ids"`
			Status string   `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		status, err := collate.ParseResolution(body.Status)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.session.BulkSetStatus(r.Context(), body.IDs, status); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": len(body.IDs)})
		return
	}

	if len(parts) == 1 && r.Method == http.MethodPut {
		var body struct {
			Status string  `json:"status"`
			Note   *string `json:"note"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		status, err := collate.ParseResolution(body.Status)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.session.SetStatus(r.Context(), parts[0], status, body.Note); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": parts[0], "status": status})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleProjects(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"projects": s.session.Projects(r.Context())})
		return
	}

	if len(parts) == 0 && r.Method == http.MethodPost {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		info, saved, err := s.session.SaveProject(r.Context(), body.Name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"saved": saved, "project": info})
		return
	}

	if len(parts) == 1 && parts[0] == "new" && r.Method == http.MethodPost {
		s.session.NewProject(r.Context())
		writeJSON(w, http.StatusOK, s.session.State())
		return
	}

	if len(parts) == 2 && parts[1] == "load" && r.Method == http.MethodPost {
		if err := s.session.LoadProject(r.Context(), parts[0]); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.session.State())
		return
	}

	if len(parts) == 1 && r.Method == http.MethodDelete {
		s.session.DeleteProject(r.Context(), parts[0])
		writeJSON(w, http.StatusOK, map[string]any{"projects": s.session.Projects(r.Context())})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleRecovery(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap, ok := s.session.RecoverableSession(r.Context())
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"available": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"available":         true,
			"savedAt":           snap.SavedAt,
			"paragraphCount":    len(snap.MergedParagraphs),
			"documentFilenames": snap.DocumentFilenames,
		})
	case http.MethodPost:
		if !s.session.Recover(r.Context()) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "No recoverable session", nil)
			return
		}
		writeJSON(w, http.StatusOK, s.session.State())
	case http.MethodDelete:
		s.session.DismissRecovery(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// fail writes err in the error envelope. Unexpected errors are logged.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "request_id", requestID(r.Context()), "path", r.URL.Path, "err", err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", fmt.Sprintf("Body exceeds %d bytes", tooLarge.Limit), nil)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Could not read body", nil)
		return nil, false
	}
	return data, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.log.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
