package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tanpawarit/Chative-Finance-Assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/checkpoint"
	contractx "github.com/tanpawarit/Chative-Finance-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Finance-Assistant/pkg/errx"
)

const maxChatBody = 1 << 20

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the POST /chat payload.
type ChatRequest struct {
	UserID       string        `json:"userId"`
	Message      string        `json:"message"`
	History      []ChatMessage `json:"history,omitempty"`
	SessionID    string        `json:"sessionId,omitempty"`
	DocumentPath string        `json:"documentPath,omitempty"`
	ImagePath    string        `json:"imagePath,omitempty"`
}

type PlanSummary struct {
	Tasks     []string `json:"tasks"`
	Reasoning string   `json:"reasoning,omitempty"`
	Fallback  bool     `json:"fallback"`
}

type ChatResponse struct {
	Reply     string        `json:"reply"`
	History   []ChatMessage `json:"history"`
	SessionID string        `json:"sessionId"`
	Plan      PlanSummary   `json:"plan"`
	Status    string        `json:"status"`
}

type UploadResponse struct {
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
	Size     int64  `json:"size"`
	Status   string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"memory_backend": s.deps.MemoryBackend,
		"checkpoints":    s.deps.Sessions != nil,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBody)).Decode(&req); err != nil {
		s.writeError(w, r, errx.BadRequest(err, "invalid json"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.writeError(w, r, errx.BadRequest(orchestrator.ErrInvalidUser, "userId is required"))
		return
	}

	document, err := s.uploadRef(req.DocumentPath)
	if err != nil {
		s.writeError(w, r, errx.BadRequest(err, "documentPath must reference an uploaded file"))
		return
	}
	image, err := s.uploadRef(req.ImagePath)
	if err != nil {
		s.writeError(w, r, errx.BadRequest(err, "imagePath must reference an uploaded file"))
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = s.newSessionID(req.UserID)
	}

	resp, err := s.deps.Turns.HandleTurn(r.Context(), orchestrator.TurnRequest{
		UserID:    strings.TrimSpace(req.UserID),
		SessionID: sessionID,
		Message:   req.Message,
		History:   toMessages(req.History),
		Attachments: statex.Attachments{
			Document: document,
			Image:    image,
		},
	})
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			err = errx.BadRequest(err, validationMessage(err))
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:     resp.Reply,
		History:   fromMessages(resp.History),
		SessionID: resp.SessionID,
		Plan: PlanSummary{
			Tasks:     resp.Plan.Names(),
			Reasoning: resp.Plan.Reasoning,
			Fallback:  resp.Plan.Fallback,
		},
		Status: "success",
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, errx.New(err, http.StatusRequestEntityTooLarge, "file too large"))
			return
		}
		s.writeError(w, r, errx.BadRequest(err, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.writeError(w, r, errx.New(err, http.StatusInternalServerError, "file upload failed"))
		return
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	path := filepath.Join(s.cfg.UploadDir, name)
	out, err := os.Create(path)
	if err != nil {
		s.writeError(w, r, errx.New(err, http.StatusInternalServerError, "file upload failed"))
		return
	}

	size, err := io.Copy(out, io.LimitReader(file, s.cfg.MaxFileSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && size > s.cfg.MaxFileSize {
		err = errx.New(fmt.Errorf("upload exceeds %d bytes", s.cfg.MaxFileSize), http.StatusRequestEntityTooLarge, "file too large")
	}
	if err != nil {
		_ = os.Remove(path)
		var appErr *errx.AppError
		if !errors.As(err, &appErr) {
			err = errx.New(err, http.StatusInternalServerError, "file upload failed")
		}
		s.writeError(w, r, err)
		return
	}

	filename := header.Filename
	if filename == "" {
		filename = name
	}
	logger(r).Info().Str("filename", filename).Str("path", path).Int64("size", size).Msg("file uploaded")
	writeJSON(w, http.StatusOK, UploadResponse{Filename: filename, Filepath: path, Size: size, Status: "success"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "checkpoints disabled"})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	sessions, err := s.deps.Sessions.ListSessions(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []checkpoint.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "checkpoints disabled"})
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	snap, err := s.deps.Sessions.Latest(r.Context(), id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		s.writeError(w, r, errx.NotFound(err, "session not found"))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

var errOutsideUploads = errors.New("attachment is outside the upload directory")

// uploadRef confines an attachment reference to the upload directory. A
// bare file name resolves inside it; anything that escapes it is rejected.
func (s *Server) uploadRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if filepath.Base(ref) == ref {
		ref = filepath.Join(s.cfg.UploadDir, ref)
	}

	root, err := filepath.Abs(s.cfg.UploadDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", errOutsideUploads, ref)
	}
	return filepath.Join(s.cfg.UploadDir, rel), nil
}

// newSessionID returns <user>_<YYYYmmdd_HHMMSS>_<8 hex>.
func (s *Server) newSessionID(userID string) string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%s_%s_%s", strings.TrimSpace(userID), s.now().Format("20060102_150405"), hex.EncodeToString(b[:]))
}

func toMessages(in []ChatMessage) []statex.Message {
	out := make([]statex.Message, 0, len(in))
	for _, m := range in {
		role, ok := statex.ParseRole(m.Role)
		if !ok || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, statex.Message{Role: role, Content: m.Content})
	}
	return out
}

func fromMessages(in []statex.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(in))
	for _, m := range in {
		out = append(out, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidMessage):
		return "message is required"
	case errors.Is(err, orchestrator.ErrInvalidUser):
		return "userId is required"
	case errors.Is(err, orchestrator.ErrInvalidSession):
		return "sessionId is invalid"
	default:
		return "invalid request"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errx.Status(err)
	ev := logger(r).Warn()
	if status >= http.StatusInternalServerError {
		ev = logger(r).Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
