package handler

import (
	"net/http"

	"github.com/sakif/coderun/internal/language"
)

// LanguageLister is the read-only view of the language table the API needs.
type LanguageLister interface {
	Languages() []language.Profile
}

// LanguagesHandler lists the languages the engine accepts.
type LanguagesHandler struct {
	languages LanguageLister
}

// NewLanguagesHandler creates a new LanguagesHandler.
func NewLanguagesHandler(languages LanguageLister) *LanguagesHandler {
	return &LanguagesHandler{languages: languages}
}

// HandleList writes every supported profile. Toolchain paths stay private.
func (h *LanguagesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": h.languages.Languages(),
	})
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
