package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mahaj/topic-chat/pkg/auth"
	"github.com/mahaj/topic-chat/pkg/store"
)

var validate = validator.New()

type signupRequest struct {
	Username  string `json:"username" validate:"required,max=50,excludes=:"`
	Firstname string `json:"firstname" validate:"required,max=100"`
	Lastname  string `json:"lastname" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userProfile struct {
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type loginResponse struct {
	Message string      `json:"message"`
	User    userProfile `json:"user"`
	Rooms   []string    `json:"rooms"`
	Token   string      `json:"token"`
}

func (s *server) signupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("password hash failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	err = s.users.Create(r.Context(), req.Username, req.Firstname, req.Lastname, hash)
	if errors.Is(err, store.ErrUserExists) {
		writeError(w, http.StatusConflict, "Username already exists.")
		return
	}
	if err != nil {
		s.log.Error("user create failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, map[string]string{"message": "Signup successful"})
}

func (s *server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Username and password required.")
		return
	}

	user, err := s.users.ByUsername(r.Context(), req.Username)
	if errors.Is(err, store.ErrUserNotFound) || (err == nil && !auth.CheckPassword(req.Password, user.PasswordHash)) {
		writeError(w, http.StatusUnauthorized, "Invalid password or username.")
		return
	}
	if err != nil {
		s.log.Error("user lookup failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := s.tokens.GenerateToken(user.Username)
	if err != nil {
		s.log.Error("token generation failed", "username", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, loginResponse{
		Message: "Login successful",
		User:    userProfile{Username: user.Username, Firstname: user.Firstname, Lastname: user.Lastname},
		Rooms:   s.rooms,
		Token:   token,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
