package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/opsdesk/internal/auth"
	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
)

// multipartOverhead is the room left for boundaries and part headers on top
// of the file itself.
const multipartOverhead = 1 << 20

type openSessionRequest struct {
	ResumeToken string `json:"resume_token"`
}

type submitRequest struct {
	Text string `json:"text"`
}

type messageView struct {
	chat.Message
	Time string `json:"time"`
}

type sessionView struct {
	chat.View
	Messages []messageView `json:"messages"`
}

type turnView struct {
	User         messageView        `json:"user"`
	Bot          messageView        `json:"bot"`
	Notification *chat.Notification `json:"notification,omitempty"`
	Stale        bool               `json:"stale,omitempty"`
}

func toMessageView(m chat.Message, language string) messageView {
	return messageView{Message: m, Time: chat.FormatTime(m.Timestamp, language)}
}

func toSessionView(v chat.View) sessionView {
	out := sessionView{View: v, Messages: make([]messageView, len(v.Messages))}
	for i, m := range v.Messages {
		out.Messages[i] = toMessageView(m, v.Language)
	}
	return out
}

// AttachmentPath is where a stored attachment of a session is served.
func AttachmentPath(sessionToken, attachmentID string) string {
	return "/api/chat/sessions/" + url.PathEscape(sessionToken) + "/attachments/" + url.PathEscape(attachmentID)
}

func (s *Server) chatRoutes(r chi.Router) {
	r.Post("/", s.openSession)
	r.Route("/{token}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Delete("/", s.closeSession)
		r.Post("/file", s.stageFile)
		r.Delete("/file", s.removeFile)
		r.Post("/messages", s.submit)
		r.Post("/clear", s.clear)
		r.Get("/attachments/{id}", s.attachment)
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*chat.Orchestrator, bool) {
	o, err := s.deps.Sessions.Get(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return o, true
}

// openSession handles POST /api/chat/sessions. The body is optional.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
			return
		}
	}
	o := s.deps.Sessions.Open(req.ResumeToken)
	writeJSON(w, http.StatusCreated, toSessionView(o.State()))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(o.State()))
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Close(chi.URLParam(r, "token")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stageFile handles POST /api/chat/sessions/{token}/file with a multipart
// "file" part.
func (s *Server) stageFile(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes+multipartOverhead)
	part, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.stage(w, o, chat.File{Size: s.deps.MaxUploadBytes + 1})
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing file: %v", err))
		return
	}
	defer part.Close()

	f := chat.File{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	}
	if f.Size <= s.deps.MaxUploadBytes {
		f.Data, err = io.ReadAll(part)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("read file: %v", err))
			return
		}
	}
	s.stage(w, o, f)
}

// stage stages f and answers with the resulting view, or with 422 and
// the rejection details.
func (s *Server) stage(w http.ResponseWriter, o *chat.Orchestrator, f chat.File) {
	err := o.StageFile(f)
	var rej *chat.Rejection
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toSessionView(o.State()))
	case errors.As(err, &rej):
		body := map[string]any{
			"error":       rej.Title(),
			"description": rej.Description(),
			"reason":      string(rej.Reason),
		}
		if rej.Reason == chat.ReasonTooLarge {
			body["max_bytes"] = rej.MaxBytes
		} else {
			body["allowed"] = rej.Allowed
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, chat.ErrUploadsDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, chat.ErrSessionClosed):
		writeError(w, http.StatusGone, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) removeFile(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	o.RemoveFile()
	writeJSON(w, http.StatusOK, toSessionView(o.State()))
}

// submit handles POST /api/chat/sessions/{token}/messages. It blocks until
// the turn resolves. A JWT caller's user id is sent as the turn's user.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	ctx := r.Context()
	if p, ok := auth.PrincipalFromContext(ctx); ok && !p.Service {
		ctx = chat.WithUserID(ctx, p.UserID)
	}
	res, err := o.Submit(ctx, req.Text)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrTurnInFlight):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, chat.ErrEmptySubmission):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chat.ErrSessionClosed):
		writeError(w, http.StatusGone, err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	lang := o.State().Language
	writeJSON(w, http.StatusOK, turnView{
		User:         toMessageView(res.User, lang),
		Bot:          toMessageView(res.Bot, lang),
		Notification: res.Notification,
		Stale:        res.Stale,
	})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	o.Clear()
	writeJSON(w, http.StatusOK, toSessionView(o.State()))
}

func (s *Server) attachment(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	f, err := o.Attachment(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	ct := f.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Data)
}
