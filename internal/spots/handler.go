package spots

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/nature-spots/backend/internal/models"
	"github.com/ayush/nature-spots/backend/internal/store"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Store defines the persistence interface for spots, saves and the
// user lookups the profile pages need.
type Store interface {
	CreateSpot(ctx context.Context, req models.SpotRequest, userID int64) (*models.NatureSpot, error)
	GetSpot(ctx context.Context, id int64) (*models.NatureSpot, error)
	UpdateSpot(ctx context.Context, id int64, req models.SpotRequest) (*models.NatureSpot, error)
	DeleteSpot(ctx context.Context, id int64) error
	ListSpots(ctx context.Context) ([]models.NatureSpot, error)
	ListSpotsByOwner(ctx context.Context, userID int64) ([]models.NatureSpot, error)
	ListSavedSpots(ctx context.Context, userID int64) ([]models.NatureSpot, error)
	SavedSpotIDs(ctx context.Context, userID int64) ([]int64, error)
	IsSaved(ctx context.Context, userID, spotID int64) (bool, error)
	SaveSpot(ctx context.Context, userID, spotID int64) error
	UnsaveSpot(ctx context.Context, userID, spotID int64) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// ContentStore defines the interface for inspiration page content.
type ContentStore interface {
	Inspiration(ctx context.Context) (*models.InspirationContent, error)
}

// FileStore defines the interface for image storage.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds the spot, profile and inspiration HTTP handlers.
type Handler struct {
	store   Store
	content ContentStore
	images  FileStore
}

func NewHandler(store Store, content ContentStore, images FileStore) *Handler {
	return &Handler{store: store, content: content, images: images}
}

// currentUserID returns the identity injected by the auth middleware,
// or 0 for an anonymous request.
func currentUserID(r *http.Request) int64 {
	id, _ := r.Context().Value("user_id").(int64)
	return id
}

// spotID parses the {id} route parameter. An unparsable id behaves
// like a missing spot.
func spotID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// normalizeImageURL replaces an empty image URL with the "no image"
// placeholder.
func normalizeImageURL(url string) string {
	if strings.TrimSpace(url) == "" {
		return models.NoImage
	}
	return strings.TrimSpace(url)
}

func validateSpotRequest(req *models.SpotRequest) error {
	if strings.TrimSpace(req.Title) == "" ||
		strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.Location) == "" {
		return errors.New("title, description, and location are required")
	}
	req.ImageURL = normalizeImageURL(req.ImageURL)
	return nil
}

// ListResponse is the payload for GET /api/spots.
type ListResponse struct {
	Spots    []models.NatureSpot `json:"spots"`
	TagCloud []string            `json:"tags"`
	SavedIDs []int64             `json:"saved_ids"`
	Query    string              `json:"q"`
	Tag      string              `json:"tag"`
}

// List returns spots filtered by the q/tag query parameters, the tag
// cloud over all spots, and which of them the viewer has saved.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ListSpots(r.Context())
	if err != nil {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	q := r.URL.Query().Get("q")
	tag := r.URL.Query().Get("tag")

	resp := ListResponse{
		Spots:    FilterSpots(all, q, tag),
		TagCloud: TagCloud(all),
		SavedIDs: []int64{},
		Query:    strings.TrimSpace(q),
		Tag:      strings.ToLower(strings.TrimSpace(tag)),
	}

	if userID := currentUserID(r); userID != 0 {
		ids, err := h.store.SavedSpotIDs(r.Context(), userID)
		if err != nil {
			http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
			return
		}
		if ids != nil {
			resp.SavedIDs = ids
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new spot owned by the current user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var req models.SpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := validateSpotRequest(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	spot, err := h.store.CreateSpot(r.Context(), req, userID)
	if err != nil {
		log.Printf("create spot error: %v", err)
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, spot)
}

// DetailResponse is the payload for GET /api/spots/{id}.
type DetailResponse struct {
	*models.NatureSpot
	IsSaved bool `json:"is_saved"`
}

// Get returns one spot and whether the viewer has saved it.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := spotID(r)
	if !ok {
		http.Error(w, `{"error":"spot not found"}`, http.StatusNotFound)
		return
	}

	spot, err := h.store.GetSpot(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"spot not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	resp := DetailResponse{NatureSpot: spot}
	if userID := currentUserID(r); userID != 0 {
		saved, err := h.store.IsSaved(r.Context(), userID, spot.ID)
		if err != nil {
			http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
			return
		}
		resp.IsSaved = saved
	}

	writeJSON(w, http.StatusOK, resp)
}

// ownedSpot loads the spot and enforces that the current user owns it.
// It writes the error response itself and returns nil when the caller
// should stop.
func (h *Handler) ownedSpot(w http.ResponseWriter, r *http.Request) *models.NatureSpot {
	id, ok := spotID(r)
	if !ok {
		http.Error(w, `{"error":"spot not found"}`, http.StatusNotFound)
		return nil
	}

	spot, err := h.store.GetSpot(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"spot not found"}`, http.StatusNotFound)
			return nil
		}
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return nil
	}

	if spot.UserID != currentUserID(r) {
		http.Error(w, `{"error":"you do not own this spot"}`, http.StatusForbidden)
		return nil
	}
	return spot
}

// Update edits the five editable fields of a spot the user owns.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	spot := h.ownedSpot(w, r)
	if spot == nil {
		return
	}

	var req models.SpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := validateSpotRequest(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateSpot(r.Context(), spot.ID, req)
	if err != nil {
		log.Printf("update spot %d error: %v", spot.ID, err)
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a spot the user owns. Saves referencing it go with it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	spot := h.ownedSpot(w, r)
	if spot == nil {
		return
	}

	if err := h.store.DeleteSpot(r.Context(), spot.ID); err != nil {
		log.Printf("delete spot %d error: %v", spot.ID, err)
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	// Clean up an uploaded image; hotlinked URLs are left alone.
	h.removeStoredImage(r.Context(), spot.ImageURL)

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ToggleSave saves the spot for the current user, or un-saves it if a
// save already exists. Losing a concurrent-save race surfaces as a
// unique-constraint conflict and is treated as already saved.
func (h *Handler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	id, ok := spotID(r)
	if !ok {
		http.Error(w, `{"error":"spot not found"}`, http.StatusNotFound)
		return
	}
	if _, err := h.store.GetSpot(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"spot not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	saved, err := h.store.IsSaved(r.Context(), userID, id)
	if err != nil {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	if saved {
		if err := h.store.UnsaveSpot(r.Context(), userID, id); err != nil {
			http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"saved": false})
		return
	}

	if err := h.store.SaveSpot(r.Context(), userID, id); err != nil && !errors.Is(err, store.ErrConflict) {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"saved": true})
}

// ProfileResponse is the payload for the profile endpoints.
type ProfileResponse struct {
	User       *models.User        `json:"user"`
	Spots      []models.NatureSpot `json:"spots"`
	SavedSpots []models.NatureSpot `json:"saved_spots"`
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, user *models.User) {
	own, err := h.store.ListSpotsByOwner(r.Context(), user.ID)
	if err != nil {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	saved, err := h.store.ListSavedSpots(r.Context(), user.ID)
	if err != nil {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if own == nil {
		own = []models.NatureSpot{}
	}
	if saved == nil {
		saved = []models.NatureSpot{}
	}

	writeJSON(w, http.StatusOK, ProfileResponse{User: user, Spots: own, SavedSpots: saved})
}

// Profile returns a user's own spots and saved spots by username.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	h.writeProfile(w, r, user)
}

// MyProfile returns the current user's profile.
func (h *Handler) MyProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUserByID(r.Context(), currentUserID(r))
	if err != nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	h.writeProfile(w, r, user)
}
