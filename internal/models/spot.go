package models

import "time"

// NoImage is stored in place of an empty image URL so the frontend
// always has a displayable value.
const NoImage = "no image"

// NatureSpot is a user-submitted listing stored in the nature_spots table.
// Tags is the raw comma-separated string as entered; it is split and
// normalized only when the tag cloud is built.
type NatureSpot struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Tags        string    `json:"tags"`
	ImageURL    string    `json:"image_url"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// SavedSpot is a bookmark: user UserID has saved spot SpotID.
// The (user_id, spot_id) pair is unique.
type SavedSpot struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SpotID    int64     `json:"spot_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SpotRequest is the JSON body for creating or updating a spot.
type SpotRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Tags        string `json:"tags"`
	ImageURL    string `json:"image_url"`
}

// InspirationContent is the payload for GET /api/inspiration.
type InspirationContent struct {
	Quotes []string `json:"quotes"`
	Images []string `json:"images"`
}
