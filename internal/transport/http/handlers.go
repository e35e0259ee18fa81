package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"topic-quiz-service/internal/app"
	"topic-quiz-service/internal/domain"
)

const sessionCookieName = "quiz_session"

// Handler wires the quiz and admin use cases into an HTTP API.
type Handler struct {
	quiz  *app.QuizService
	admin *app.AdminService
}

func NewHandler(quiz *app.QuizService, admin *app.AdminService) *Handler {
	return &Handler{quiz: quiz, admin: admin}
}

// Router builds the full route table. Everything under /api/admin
// except login/logout goes through the admin gate.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/players", h.registerPlayer).Methods(http.MethodPost)
	api.HandleFunc("/topics", h.listTopics).Methods(http.MethodGet)
	api.HandleFunc("/topics/{id:[0-9]+}/quiz", h.startAttempt).Methods(http.MethodGet)
	api.HandleFunc("/topics/{id:[0-9]+}/answers", h.submitAnswers).Methods(http.MethodPost)
	api.HandleFunc("/topics/{id:[0-9]+}/leaderboard", h.leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/topics/{id:[0-9]+}/leaderboard/live", h.leaderboardLive).Methods(http.MethodGet)

	api.HandleFunc("/admin/login", h.adminLogin).Methods(http.MethodPost)
	api.HandleFunc("/admin/logout", h.adminLogout).Methods(http.MethodPost)

	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.RequireAdmin)
	adminRouter.HandleFunc("/topics", h.adminListTopics).Methods(http.MethodGet)
	adminRouter.HandleFunc("/topics", h.adminCreateTopic).Methods(http.MethodPost)
	adminRouter.HandleFunc("/topics/{id:[0-9]+}", h.adminDeleteTopic).Methods(http.MethodDelete)
	adminRouter.HandleFunc("/questions", h.adminListQuestions).Methods(http.MethodGet)
	adminRouter.HandleFunc("/questions", h.adminCreateQuestion).Methods(http.MethodPost)
	adminRouter.HandleFunc("/questions/{id:[0-9]+}", h.adminDeleteQuestion).Methods(http.MethodDelete)
	adminRouter.HandleFunc("/rankings", h.adminRankings).Methods(http.MethodGet)
	adminRouter.HandleFunc("/results/{id:[0-9]+}", h.adminDeleteResult).Methods(http.MethodDelete)

	return r
}

func (h *Handler) registerPlayer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	token, err := h.quiz.RegisterPlayer(r.Context(), payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (h *Handler) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.quiz.Topics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r)
	if !ok {
		return
	}
	token := sessionToken(r)
	if token == "" {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	questions, err := h.quiz.StartAttempt(r.Context(), token, topicID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topicId":   topicID,
		"questions": questions,
	})
}

func (h *Handler) submitAnswers(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r)
	if !ok {
		return
	}
	token := sessionToken(r)
	if token == "" {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	var payload struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	answers := make(map[int64]string, len(payload.Answers))
	for rawID, label := range payload.Answers {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			continue
		}
		answers[id] = label
	}

	result, lb, err := h.quiz.SubmitAnswers(r.Context(), token, topicID, answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":      result,
		"leaderboard": lb,
	})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r)
	if !ok {
		return
	}
	lb, err := h.quiz.Leaderboard(r.Context(), topicID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return r.Header.Get("X-Session-Token")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
