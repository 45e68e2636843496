package spots

import (
	"log"
	"net/http"
)

// Inspiration returns the quotes and images for the inspiration page.
func (h *Handler) Inspiration(w http.ResponseWriter, r *http.Request) {
	content, err := h.content.Inspiration(r.Context())
	if err != nil {
		log.Printf("inspiration fetch error: %v", err)
		http.Error(w, `{"error":"content unavailable"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, content)
}
