package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/app"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

// RPCHandler exposes the room operations as JSON request/response endpoints
// for the bot ingress. Every reply is {ok:true, ...} or {ok:false, error:code}.
type RPCHandler struct {
	service *app.RoomService
	refs    *ref.Service
	logger  *slog.Logger
}

func NewRPCHandler(service *app.RoomService, refs *ref.Service, logger *slog.Logger) *RPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCHandler{service: service, refs: refs, logger: logger}
}

// Register installs the room routes on mux.
func (h *RPCHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/rooms/create", h.handleCreate)
	mux.HandleFunc("/rooms/mode", h.handleMode)
	mux.HandleFunc("/rooms/course", h.handleCourse)
	mux.HandleFunc("/rooms/template", h.handleTemplate)
	mux.HandleFunc("/rooms/join", h.handleJoin)
	mux.HandleFunc("/rooms/start", h.handleStart)
	mux.HandleFunc("/rooms/answer", h.handleAnswer)
	mux.HandleFunc("/rooms/review", h.handleReview)
	mux.HandleFunc("/rooms/group-review", h.handleGroupReview)
	mux.HandleFunc("/callback", h.handleCallback)
}

func (h *RPCHandler) writeOK(w http.ResponseWriter, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["ok"] = true
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *RPCHandler) writeErr(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	if code == "internal" {
		h.logger.Error("rpc failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": code})
}

func decode[T any](w http.ResponseWriter, r *http.Request, req *T) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *RPCHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID    string `json:"roomId"`
		ChatID    int64  `json:"chatId"`
		OwnerID   string `json:"ownerId"`
		OwnerName string `json:"ownerName"`
	}
	if !decode(w, r, &req) {
		return
	}
	roomID, err := h.service.Create(r.Context(), app.CreateRequest{
		RoomID:    req.RoomID,
		ChatID:    req.ChatID,
		OwnerID:   req.OwnerID,
		OwnerName: req.OwnerName,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]any{"roomId": roomID})
}

func (h *RPCHandler) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   string `json:"roomId"`
		CallerID string `json:"callerId"`
		Count    int    `json:"count"`
	}
	if !decode(w, r, &req) {
		return
	}
	count, err := h.service.SetMode(r.Context(), req.RoomID, req.CallerID, req.Count)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]any{"count": count})
}

func (h *RPCHandler) handleCourse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   string `json:"roomId"`
		CallerID string `json:"callerId"`
		CourseID string `json:"courseId"`
	}
	if !decode(w, r, &req) {
		return
	}
	courseID, err := h.service.SetCourse(r.Context(), req.RoomID, req.CallerID, req.CourseID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]any{"courseId": courseID})
}

func (h *RPCHandler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   string `json:"roomId"`
		CallerID string `json:"callerId"`
		Kind     string `json:"kind"`
	}
	if !decode(w, r, &req) {
		return
	}
	kind, err := h.service.SetTemplate(r.Context(), req.RoomID, req.CallerID, domain.TemplateKind(req.Kind))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]any{"kind": string(kind)})
}

func (h *RPCHandler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
		Name   string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	readyCount, err := h.service.Join(r.Context(), req.RoomID, req.UserID, req.Name)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]any{"readyCount": readyCount})
}

func (h *RPCHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   string `json:"roomId"`
		CallerID string `json:"callerId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.Start(r.Context(), req.RoomID, req.CallerID); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, nil)
}

func (h *RPCHandler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID        string `json:"roomId"`
		UserID        string `json:"userId"`
		QuestionIndex int    `json:"questionIndex"`
		OptionIndex   int    `json:"optionIndex"`
	}
	if !decode(w, r, &req) {
		return
	}
	duplicate, err := h.service.Answer(r.Context(), req.RoomID, req.UserID, req.QuestionIndex, req.OptionIndex)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]any{"duplicate": duplicate})
}

func (h *RPCHandler) handleReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
	}
	if !decode(w, r, &req) {
		return
	}
	text, err := h.service.Review(r.Context(), req.RoomID, req.UserID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]any{"text": text})
}

func (h *RPCHandler) handleGroupReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if !decode(w, r, &req) {
		return
	}
	text, err := h.service.GroupReview(r.Context(), req.RoomID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeOK(w, map[string]any{"text": text})
}

// handleCallback decodes a raw control payload into a typed command and
// dispatches it. CoursePage carries the course list the positional refs in
// the payload were built against.
func (h *RPCHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string   `json:"userId"`
		Data       string   `json:"data"`
		CoursePage []string `json:"coursePage"`
	}
	if !decode(w, r, &req) {
		return
	}
	cmd, err := ParseCommand(req.Data)
	if err != nil {
		http.Error(w, "invalid callback payload", http.StatusBadRequest)
		return
	}
	switch cmd.Kind {
	case CommandAnswer:
		duplicate, err := h.service.Answer(r.Context(), cmd.RoomID, req.UserID, cmd.QuestionIndex, cmd.Option)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		h.writeOK(w, map[string]any{"duplicate": duplicate})
	case CommandGroupReview:
		text, err := h.service.GroupReview(r.Context(), cmd.RoomID)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		h.writeOK(w, map[string]any{"text": text})
	case CommandCourse:
		courseID, err := h.refs.ResolveRef(r.Context(), cmd.CourseRef, req.CoursePage)
		if err != nil {
			if errors.Is(err, domain.ErrAliasNotFound) {
				h.writeErr(w, err)
				return
			}
			http.Error(w, "invalid course ref", http.StatusBadRequest)
			return
		}
		set, err := h.service.SetCourse(r.Context(), cmd.RoomID, req.UserID, courseID)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		h.writeOK(w, map[string]any{"courseId": set})
	}
}
