package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"interview-voice-agent/internal/interviewer"
	"interview-voice-agent/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": "Thank You"})
}

type generateBody struct {
	Type      string     `json:"type"`
	Role      string     `json:"role"`
	Level     string     `json:"level"`
	TechStack stringList `json:"techstack"`
	Amount    flexInt    `json:"amount"`
	UserID    string     `json:"userID"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "data": "Invalid request body"})
		return
	}

	rec, err := s.deps.Generator.Generate(r.Context(), interviewer.GenerateRequest{
		Type:      body.Type,
		Role:      body.Role,
		Level:     body.Level,
		TechStack: body.TechStack,
		Amount:    int(body.Amount),
		UserID:    body.UserID,
	})
	if errors.Is(err, interviewer.ErrInvalidRequest) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "data": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("generate interview")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "data": "Internal Server Error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"data":      "Interview created successfully",
		"interview": rec,
	})
}

type saveBody struct {
	Role      string     `json:"role"`
	Type      string     `json:"type"`
	Level     string     `json:"level"`
	Amount    flexString `json:"amount"`
	UserID    string     `json:"userId"`
	TechStack stringList `json:"techstack"`
}

func (s *Server) handleSaveInterview(w http.ResponseWriter, r *http.Request) {
	var body saveBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request body"})
		return
	}

	req := storage.SaveRequest{
		Role:      strings.TrimSpace(body.Role),
		Type:      strings.TrimSpace(body.Type),
		Level:     strings.TrimSpace(body.Level),
		Amount:    string(body.Amount),
		UserID:    strings.TrimSpace(body.UserID),
		TechStack: body.TechStack,
	}
	if len(req.Missing()) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing required fields: role, type, level, userId"})
		return
	}

	res, err := s.deps.Interviews.SaveInterview(r.Context(), req)
	if err != nil || !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "Internal server error"
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": msg})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    res.Data,
		"message": "Interview data saved successfully",
	})
}

func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	records, err := s.deps.Interviews.ListInterviews(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("list interviews")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Failed to load interviews"})
		return
	}

	samples := false
	if len(records) == 0 {
		records = s.sampleInterviews()
		samples = len(records) > 0
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": records, "samples": samples})
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.deps.Interviews.GetInterview(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		if sample := s.findSample(id); sample != nil {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": sample})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Interview not found"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("interview_id", id).Msg("get interview")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Failed to load interview"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
}

func (s *Server) sampleInterviews() []storage.InterviewRecord {
	if s.deps.Catalogue == nil {
		return []storage.InterviewRecord{}
	}
	now := time.Now().UTC()
	records := make([]storage.InterviewRecord, 0, len(s.deps.Catalogue.Samples))
	for _, sample := range s.deps.Catalogue.Samples {
		records = append(records, storage.InterviewRecord{
			ID:        sample.ID,
			UserID:    "system",
			Role:      sample.Role,
			Type:      sample.Type,
			Level:     sample.Level,
			TechStack: append([]string{}, sample.TechStack...),
			Questions: append([]string{}, sample.Questions...),
			Finalized: true,
			CreatedAt: now,
		})
	}
	return records
}

func (s *Server) findSample(id string) *storage.InterviewRecord {
	for _, rec := range s.sampleInterviews() {
		if rec.ID == id {
			return &rec
		}
	}
	return nil
}

type signUpBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body signUpBody
	if err := decodeJSON(w, r, &body); err != nil || body.Email == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Email and password are required"})
		return
	}
	res := s.deps.Auth.SignUp(r.Context(), body.Name, strings.TrimSpace(body.Email), body.Password)
	writeJSON(w, resultStatus(res.Success, http.StatusBadRequest), res)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body signUpBody
	if err := decodeJSON(w, r, &body); err != nil || body.Email == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Email and password are required"})
		return
	}
	res := s.deps.Auth.SignIn(r.Context(), strings.TrimSpace(body.Email), body.Password)
	writeJSON(w, resultStatus(res.Success, http.StatusUnauthorized), res)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	res := s.deps.Auth.CurrentUser(r.Context(), token)
	writeJSON(w, resultStatus(res.Success, http.StatusUnauthorized), res)
}

func resultStatus(success bool, failure int) int {
	if success {
		return http.StatusOK
	}
	return failure
}
