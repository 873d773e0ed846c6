package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"notiplay/internal/app"
	"notiplay/internal/domain"
)

const maxAvatarBytes = 5 << 20

// Services are the use cases exposed over HTTP.
type Services struct {
	Trivia      *app.TriviaService
	Redemption  *app.RedemptionService
	News        *app.NewsService
	Profile     *app.ProfileService
	Leaderboard *app.LeaderboardService
	Avatars     app.AvatarStore
}

// APIHandler serves the REST endpoints.
type APIHandler struct {
	svc    Services
	logger *slog.Logger
}

func NewAPIHandler(svc Services, logger *slog.Logger) *APIHandler {
	return &APIHandler{svc: svc, logger: logger}
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, h.logger, r, err)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		return errors.Wrap(domain.ErrInvalidInput, "malformed json body")
	}
	return nil
}

func (h *APIHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.svc.Redemption.Catalog(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (h *APIHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Redemption.RedeemByID(r.Context(), SessionFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.svc.Leaderboard.Leaderboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *APIHandler) LatestNews(w http.ResponseWriter, r *http.Request) {
	articles, err := h.svc.News.Latest(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(articles))
}

func (h *APIHandler) Feed(w http.ResponseWriter, r *http.Request) {
	articles, err := h.svc.News.Feed(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(articles))
}

func (h *APIHandler) Article(w http.ResponseWriter, r *http.Request) {
	article, err := h.svc.News.Article(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *APIHandler) Reactions(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.News.Board(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board.Counts())
}

type reactRequest struct {
	Kind string `json:"kind"`
}

func (h *APIHandler) React(w http.ResponseWriter, r *http.Request) {
	var req reactRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Kind == "" {
		h.fail(w, r, errors.Wrap(domain.ErrInvalidInput, "kind is required"))
		return
	}
	board, err := h.svc.News.Board(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.News.React(r.Context(), SessionFrom(r.Context()), board, req.Kind); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board.Counts())
}

func (h *APIHandler) Comments(w http.ResponseWriter, r *http.Request) {
	thread, err := h.svc.News.Thread(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(thread.Comments()))
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *APIHandler) Comment(w http.ResponseWriter, r *http.Request) {
	session := SessionFrom(r.Context())
	if !session.Authenticated() {
		h.fail(w, r, domain.ErrUnauthenticated)
		return
	}
	var req commentRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	thread, err := h.svc.News.Thread(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.News.Comment(r.Context(), session, thread, req.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *APIHandler) RandomFact(w http.ResponseWriter, r *http.Request) {
	fact, err := h.svc.News.RandomFact(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fact)
}

func (h *APIHandler) CallsToAction(w http.ResponseWriter, r *http.Request) {
	ctas, err := h.svc.News.CallsToAction(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ctas))
}

func (h *APIHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Profile.Profile(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if err := decodeBody(r, &update); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.svc.Profile.Update(r.Context(), SessionFrom(r.Context()), update)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UploadAvatar takes a multipart form with the picture in the "avatar" field.
func (h *APIHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	session := SessionFrom(r.Context())
	if !session.Authenticated() {
		h.fail(w, r, domain.ErrUnauthenticated)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+(1<<10))
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		h.fail(w, r, errors.Wrap(domain.ErrInvalidInput, "avatar too large or malformed"))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.fail(w, r, errors.Wrap(domain.ErrInvalidInput, "avatar file is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, errors.Wrap(domain.ErrInvalidInput, "read avatar"))
		return
	}

	url, err := h.svc.Profile.UploadAvatar(r.Context(), session, header.Filename, data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"image": url})
}

// Avatar serves a stored avatar file.
func (h *APIHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Avatars.Avatar(r.Context(), mux.Vars(r)["path"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(data)
}

func (h *APIHandler) Badges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.svc.Profile.Badges(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *APIHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Profile.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(categories))
}

type categoriesBody struct {
	CategoryIDs []string `json:"categoryIds"`
}

func (h *APIHandler) UserCategories(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Profile.UserCategories(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesBody{CategoryIDs: nonNil(ids)})
}

func (h *APIHandler) SaveCategories(w http.ResponseWriter, r *http.Request) {
	var body categoriesBody
	if err := decodeBody(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	session := SessionFrom(r.Context())
	if err := h.svc.Profile.SaveCategories(r.Context(), session, body.CategoryIDs); err != nil {
		h.fail(w, r, err)
		return
	}
	h.UserCategories(w, r)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
