package http

import (
	"encoding/json"
	"log"
	"net/http"

	"topic-quiz-service/internal/domain"
)

// auditLog records who performed a destructive mutation. The username
// is put in the context by RequireAdmin, so it is always present on
// guarded routes.
func auditLog(r *http.Request, action string, id int64) {
	if admin, ok := AdminFromContext(r.Context()); ok {
		log.Printf("admin %q %s %d", admin, action, id)
	}
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	token, err := h.admin.Authorize(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) adminLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.admin.ListTopics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

func (h *Handler) adminCreateTopic(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	topic, err := h.admin.CreateTopic(r.Context(), payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

func (h *Handler) adminDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteTopic(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	auditLog(r, "deleted topic", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.admin.ListQuestions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

func (h *Handler) adminCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TopicID       int64  `json:"topicId"`
		Question      string `json:"question"`
		Option1       string `json:"option1"`
		Option2       string `json:"option2"`
		Option3       string `json:"option3"`
		Option4       string `json:"option4"`
		CorrectOption string `json:"correctOption"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	question, err := h.admin.CreateQuestion(r.Context(), domain.Question{
		TopicID:       payload.TopicID,
		Question:      payload.Question,
		Option1:       payload.Option1,
		Option2:       payload.Option2,
		Option3:       payload.Option3,
		Option4:       payload.Option4,
		CorrectOption: payload.CorrectOption,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *Handler) adminDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	auditLog(r, "deleted question", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminRankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.admin.Rankings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rankings": rankings})
}

func (h *Handler) adminDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteResult(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	auditLog(r, "deleted result", id)
	w.WriteHeader(http.StatusNoContent)
}
