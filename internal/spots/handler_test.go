package spots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/nature-spots/backend/internal/models"
	"github.com/ayush/nature-spots/backend/internal/store"
)

// fakeStore is an in-memory Store with the same constraint semantics
// as PostgresStore: unique usernames/emails, a unique (user, spot)
// save pair, and cascade from spot deletion to its saves.
type fakeStore struct {
	nextUserID int64
	nextSpotID int64
	nextSaveID int64
	users      map[int64]*models.User
	spots      map[int64]*models.NatureSpot
	saves      map[int64]*models.SavedSpot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[int64]*models.User),
		spots: make(map[int64]*models.NatureSpot),
		saves: make(map[int64]*models.SavedSpot),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, username, email, hashedPw string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return nil, store.ErrConflict
		}
	}
	f.nextUserID++
	u := &models.User{ID: f.nextUserID, Username: username, Email: email, Password: hashedPw, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateSpot(_ context.Context, req models.SpotRequest, userID int64) (*models.NatureSpot, error) {
	f.nextSpotID++
	sp := &models.NatureSpot{
		ID: f.nextSpotID, Title: req.Title, Description: req.Description,
		Location: req.Location, Tags: req.Tags, ImageURL: req.ImageURL,
		UserID: userID, CreatedAt: time.Now(),
	}
	f.spots[sp.ID] = sp
	return sp, nil
}

func (f *fakeStore) GetSpot(_ context.Context, id int64) (*models.NatureSpot, error) {
	if sp, ok := f.spots[id]; ok {
		return sp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateSpot(_ context.Context, id int64, req models.SpotRequest) (*models.NatureSpot, error) {
	sp, ok := f.spots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sp.Title, sp.Description, sp.Location = req.Title, req.Description, req.Location
	sp.Tags, sp.ImageURL = req.Tags, req.ImageURL
	return sp, nil
}

func (f *fakeStore) DeleteSpot(_ context.Context, id int64) error {
	if _, ok := f.spots[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.spots, id)
	for saveID, sv := range f.saves {
		if sv.SpotID == id {
			delete(f.saves, saveID)
		}
	}
	return nil
}

func descending(spots []models.NatureSpot) []models.NatureSpot {
	sort.Slice(spots, func(i, j int) bool { return spots[i].ID > spots[j].ID })
	return spots
}

func (f *fakeStore) ListSpots(_ context.Context) ([]models.NatureSpot, error) {
	var out []models.NatureSpot
	for _, sp := range f.spots {
		out = append(out, *sp)
	}
	return descending(out), nil
}

func (f *fakeStore) ListSpotsByOwner(_ context.Context, userID int64) ([]models.NatureSpot, error) {
	var out []models.NatureSpot
	for _, sp := range f.spots {
		if sp.UserID == userID {
			out = append(out, *sp)
		}
	}
	return descending(out), nil
}

func (f *fakeStore) ListSavedSpots(_ context.Context, userID int64) ([]models.NatureSpot, error) {
	var out []models.NatureSpot
	for _, sv := range f.saves {
		if sv.UserID == userID {
			if sp, ok := f.spots[sv.SpotID]; ok {
				out = append(out, *sp)
			}
		}
	}
	return descending(out), nil
}

func (f *fakeStore) SavedSpotIDs(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for _, sv := range f.saves {
		if sv.UserID == userID {
			ids = append(ids, sv.SpotID)
		}
	}
	return ids, nil
}

func (f *fakeStore) IsSaved(_ context.Context, userID, spotID int64) (bool, error) {
	for _, sv := range f.saves {
		if sv.UserID == userID && sv.SpotID == spotID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SaveSpot(_ context.Context, userID, spotID int64) error {
	if saved, _ := f.IsSaved(context.Background(), userID, spotID); saved {
		return store.ErrConflict
	}
	f.nextSaveID++
	f.saves[f.nextSaveID] = &models.SavedSpot{ID: f.nextSaveID, UserID: userID, SpotID: spotID}
	return nil
}

func (f *fakeStore) UnsaveSpot(_ context.Context, userID, spotID int64) error {
	for saveID, sv := range f.saves {
		if sv.UserID == userID && sv.SpotID == spotID {
			delete(f.saves, saveID)
		}
	}
	return nil
}

type fakeContent struct{}

func (fakeContent) Inspiration(_ context.Context) (*models.InspirationContent, error) {
	return &models.InspirationContent{
		Quotes: []string{"The earth has music for those who listen."},
		Images: []string{"https://example.com/forest.jpg"},
	}, nil
}

type fakeImages struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeImages() *fakeImages {
	return &fakeImages{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeImages) Upload(_ context.Context, key string, data []byte, contentType string) error {
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeImages) Download(_ context.Context, key string) ([]byte, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("no such object")
	}
	return data, f.types[key], nil
}

func (f *fakeImages) Remove(_ context.Context, key string) error {
	delete(f.objects, key)
	delete(f.types, key)
	return nil
}

// testRouter mounts the handler the way cmd/server does, with the
// session middleware replaced by a fixed identity (0 = anonymous).
func testRouter(h *Handler, userID int64) http.Handler {
	requireAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID == 0 {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), "user_id", userID)))
		})
	}
	optionalAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != 0 {
				r = r.WithContext(context.WithValue(r.Context(), "user_id", userID))
			}
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewRouter()
	r.Route("/api/spots", func(r chi.Router) {
		r.With(optionalAuth).Get("/", h.List)
		r.With(optionalAuth).Get("/{id}", h.Get)
		r.With(requireAuth).Post("/", h.Create)
		r.With(requireAuth).Put("/{id}", h.Update)
		r.With(requireAuth).Delete("/{id}", h.Delete)
		r.With(requireAuth).Post("/{id}/save", h.ToggleSave)
	})
	r.With(requireAuth).Get("/api/profile", h.MyProfile)
	r.Get("/api/profile/{username}", h.Profile)
	r.Get("/api/inspiration", h.Inspiration)
	r.With(requireAuth).Post("/api/images", h.UploadImage)
	r.Get("/api/images/*", h.DownloadImage)
	return r
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// seedUser adds a user directly to the fake store.
func seedUser(t *testing.T, fs *fakeStore, username string) *models.User {
	t.Helper()
	u, err := fs.CreateUser(context.Background(), username, username+"@example.com", "x")
	require.NoError(t, err)
	return u
}

func seedSpot(t *testing.T, fs *fakeStore, userID int64, title, tags string) *models.NatureSpot {
	t.Helper()
	sp, err := fs.CreateSpot(context.Background(), models.SpotRequest{
		Title: title, Description: "desc of " + title, Location: "somewhere",
		Tags: tags, ImageURL: models.NoImage,
	}, userID)
	require.NoError(t, err)
	return sp
}

func TestList_NewestFirstWithTagCloud(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	seedSpot(t, fs, alice.ID, "First", "Oak, Pine")
	seedSpot(t, fs, alice.ID, "Second", "Birch")
	h := NewHandler(fs, fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, 0), http.MethodGet, "/api/spots/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Spots, 2)
	assert.Equal(t, "Second", resp.Spots[0].Title)
	assert.Equal(t, "First", resp.Spots[1].Title)
	assert.Equal(t, []string{"birch", "oak", "pine"}, resp.TagCloud)
	assert.Empty(t, resp.SavedIDs)
}

func TestList_TagFilterKeepsFullCloud(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	oak := seedSpot(t, fs, alice.ID, "Oak grove", "Oak, Pine")
	seedSpot(t, fs, alice.ID, "Birch trail", "Birch")
	h := NewHandler(fs, fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, 0), http.MethodGet, "/api/spots/?tag=oak", nil)

	var resp ListResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Spots, 1)
	assert.Equal(t, oak.ID, resp.Spots[0].ID)
	assert.Equal(t, []string{"birch", "oak", "pine"}, resp.TagCloud,
		"cloud covers all spots, not the filtered view")
}

func TestList_MarksSavedSpotsForViewer(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	bob := seedUser(t, fs, "bob")
	sp := seedSpot(t, fs, alice.ID, "Lake", "water")
	require.NoError(t, fs.SaveSpot(context.Background(), bob.ID, sp.ID))
	h := NewHandler(fs, fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, bob.ID), http.MethodGet, "/api/spots/", nil)

	var resp ListResponse
	decode(t, rec, &resp)
	assert.Equal(t, []int64{sp.ID}, resp.SavedIDs)
}

func TestCreate_RequiresLogin(t *testing.T) {
	h := NewHandler(newFakeStore(), fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, 0), http.MethodPost, "/api/spots/", models.SpotRequest{
		Title: "Lake", Description: "calm", Location: "north",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreate_NormalizesEmptyImageURL(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	h := NewHandler(fs, fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, alice.ID), http.MethodPost, "/api/spots/", models.SpotRequest{
		Title: "Lake", Description: "calm", Location: "north", Tags: "water", ImageURL: "  ",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var sp models.NatureSpot
	decode(t, rec, &sp)
	assert.Equal(t, models.NoImage, sp.ImageURL)
	assert.Equal(t, alice.ID, sp.UserID)
}

func TestCreate_MissingFields(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	h := NewHandler(fs, fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, alice.ID), http.MethodPost, "/api/spots/", models.SpotRequest{
		Title: "Lake",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fs.spots)
}

func TestGet_DetailReportsSaved(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	bob := seedUser(t, fs, "bob")
	sp := seedSpot(t, fs, alice.ID, "Lake", "water")
	require.NoError(t, fs.SaveSpot(context.Background(), bob.ID, sp.ID))
	h := NewHandler(fs, fakeContent{}, newFakeImages())
	path := fmt.Sprintf("/api/spots/%d", sp.ID)

	asBob := do(t, testRouter(h, bob.ID), http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, asBob.Code)
	var savedView DetailResponse
	decode(t, asBob, &savedView)
	assert.True(t, savedView.IsSaved)

	anonymous := do(t, testRouter(h, 0), http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, anonymous.Code)
	var anonView DetailResponse
	decode(t, anonymous, &anonView)
	assert.False(t, anonView.IsSaved)
}

func TestGet_UnknownSpot(t *testing.T) {
	h := NewHandler(newFakeStore(), fakeContent{}, newFakeImages())

	assert.Equal(t, http.StatusNotFound,
		do(t, testRouter(h, 0), http.MethodGet, "/api/spots/42", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		do(t, testRouter(h, 0), http.MethodGet, "/api/spots/notanid", nil).Code)
}

func TestUpdate_OwnerOnly(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	bob := seedUser(t, fs, "bob")
	sp := seedSpot(t, fs, alice.ID, "Lake", "water")
	h := NewHandler(fs, fakeContent{}, newFakeImages())
	path := fmt.Sprintf("/api/spots/%d", sp.ID)
	edit := models.SpotRequest{
		Title: "Lake View", Description: "updated", Location: "north", Tags: "water, calm",
	}

	asBob := do(t, testRouter(h, bob.ID), http.MethodPut, path, edit)
	assert.Equal(t, http.StatusForbidden, asBob.Code)
	assert.Equal(t, "Lake", fs.spots[sp.ID].Title)

	anonymous := do(t, testRouter(h, 0), http.MethodPut, path, edit)
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	asAlice := do(t, testRouter(h, alice.ID), http.MethodPut, path, edit)
	require.Equal(t, http.StatusOK, asAlice.Code)
	assert.Equal(t, "Lake View", fs.spots[sp.ID].Title)
	assert.Equal(t, models.NoImage, fs.spots[sp.ID].ImageURL)
}

func TestDelete_OwnerOnlyAndCascadesToSaves(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	bob := seedUser(t, fs, "bob")
	sp := seedSpot(t, fs, alice.ID, "Lake", "water")
	require.NoError(t, fs.SaveSpot(context.Background(), bob.ID, sp.ID))
	h := NewHandler(fs, fakeContent{}, newFakeImages())
	path := fmt.Sprintf("/api/spots/%d", sp.ID)

	asBob := do(t, testRouter(h, bob.ID), http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusForbidden, asBob.Code)

	asAlice := do(t, testRouter(h, alice.ID), http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, asAlice.Code)

	assert.Empty(t, fs.spots)
	saved, err := fs.ListSavedSpots(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, saved, "deleting a spot removes it from saved lists")
}

func TestToggleSave_Toggles(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	bob := seedUser(t, fs, "bob")
	sp := seedSpot(t, fs, alice.ID, "Lake", "water")
	h := NewHandler(fs, fakeContent{}, newFakeImages())
	router := testRouter(h, bob.ID)
	path := fmt.Sprintf("/api/spots/%d/save", sp.ID)

	first := do(t, router, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Len(t, fs.saves, 1)

	second := do(t, router, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Empty(t, fs.saves, "second toggle un-saves")
}

func TestToggleSave_RequiresLoginAndExistingSpot(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	sp := seedSpot(t, fs, alice.ID, "Lake", "water")
	h := NewHandler(fs, fakeContent{}, newFakeImages())

	anonymous := do(t, testRouter(h, 0), http.MethodPost, fmt.Sprintf("/api/spots/%d/save", sp.ID), nil)
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	missing := do(t, testRouter(h, alice.ID), http.MethodPost, "/api/spots/999/save", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestProfile_OwnAndSavedSpots(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	bob := seedUser(t, fs, "bob")
	own1 := seedSpot(t, fs, alice.ID, "Alice One", "")
	own2 := seedSpot(t, fs, alice.ID, "Alice Two", "")
	bobs := seedSpot(t, fs, bob.ID, "Bob Spot", "")
	require.NoError(t, fs.SaveSpot(context.Background(), alice.ID, bobs.ID))
	h := NewHandler(fs, fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, 0), http.MethodGet, "/api/profile/alice", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProfileResponse
	decode(t, rec, &resp)
	assert.Equal(t, "alice", resp.User.Username)
	require.Len(t, resp.Spots, 2)
	assert.Equal(t, own2.ID, resp.Spots[0].ID, "own spots newest first")
	assert.Equal(t, own1.ID, resp.Spots[1].ID)
	require.Len(t, resp.SavedSpots, 1)
	assert.Equal(t, bobs.ID, resp.SavedSpots[0].ID)
}

func TestProfile_UnknownUser(t *testing.T) {
	h := NewHandler(newFakeStore(), fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, 0), http.MethodGet, "/api/profile/nobody", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMyProfile(t *testing.T) {
	fs := newFakeStore()
	alice := seedUser(t, fs, "alice")
	seedSpot(t, fs, alice.ID, "Mine", "")
	h := NewHandler(fs, fakeContent{}, newFakeImages())

	anonymous := do(t, testRouter(h, 0), http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	rec := do(t, testRouter(h, alice.ID), http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProfileResponse
	decode(t, rec, &resp)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Len(t, resp.Spots, 1)
}

func TestInspiration(t *testing.T) {
	h := NewHandler(newFakeStore(), fakeContent{}, newFakeImages())

	rec := do(t, testRouter(h, 0), http.MethodGet, "/api/inspiration", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var content models.InspirationContent
	decode(t, rec, &content)
	assert.NotEmpty(t, content.Quotes)
	assert.NotEmpty(t, content.Images)
}
