package spots

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxImageSize caps spot image uploads at 5 MB.
const maxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadImage stores a spot image and returns the URL to reference it
// from a spot's image_url field.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		http.Error(w, `{"error":"invalid multipart form"}`, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, `{"error":"image file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		http.Error(w, `{"error":"image too large"}`, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		http.Error(w, `{"error":"failed to read image"}`, http.StatusBadRequest)
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		http.Error(w, `{"error":"unsupported image type"}`, http.StatusBadRequest)
		return
	}

	key := fmt.Sprintf("spots/%s%s", uuid.New().String(), ext)
	if err := h.images.Upload(r.Context(), key, data, contentType); err != nil {
		log.Printf("image upload error: %v", err)
		http.Error(w, `{"error":"image upload failed"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"key": key,
		"url": "/api/images/" + key,
	})
}

// removeStoredImage deletes the object behind an image URL that points
// at our own image store. Best effort; a leaked object is not worth
// failing the request over.
func (h *Handler) removeStoredImage(ctx context.Context, imageURL string) {
	key, ok := strings.CutPrefix(imageURL, "/api/images/")
	if !ok || key == "" {
		return
	}
	if err := h.images.Remove(ctx, key); err != nil {
		log.Printf("image remove %s error: %v", key, err)
	}
}

// DownloadImage streams a stored spot image.
func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	// Reject traversal-style keys before hitting the object store.
	if key == "" || strings.Contains(key, "..") || path.Clean(key) != key {
		http.Error(w, `{"error":"image not found"}`, http.StatusNotFound)
		return
	}

	data, contentType, err := h.images.Download(r.Context(), key)
	if err != nil {
		http.Error(w, `{"error":"image not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
