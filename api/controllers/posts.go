package controllers

import (
	"net/http"
	"strings"

	"github.com/Rhaonthemoon/radio-bug/api/responses"
	"github.com/Rhaonthemoon/radio-bug/api/validators"
	"github.com/Rhaonthemoon/radio-bug/internal/posts"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type postCreateRequest struct {
	Title           string  `json:"title" validate:"required"`
	Content         string  `json:"content,omitempty"`
	Status          *string `json:"status,omitempty"`
	Featured        *bool   `json:"featured,omitempty"`
	Category        *string `json:"category,omitempty"`
	Excerpt         *string `json:"excerpt,omitempty"`
	MetaDescription *string `json:"meta_description,omitempty"`
}

type postUpdateRequest struct {
	Title           *string `json:"title,omitempty"`
	Content         *string `json:"content,omitempty"`
	Status          *string `json:"status,omitempty"`
	Featured        *bool   `json:"featured,omitempty"`
	Category        *string `json:"category,omitempty"`
	Excerpt         *string `json:"excerpt,omitempty"`
	MetaDescription *string `json:"meta_description,omitempty"`
}

func parsePostStatus(raw *string) (*enums.PostStatus, error) {
	if raw == nil {
		return nil, nil
	}
	status, err := enums.ParsePostStatus(*raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	return &status, nil
}

func parsePostCategory(raw *string) (*enums.PostCategory, error) {
	if raw == nil {
		return nil, nil
	}
	category, err := enums.ParsePostCategory(*raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	return &category, nil
}

func postListFilter(r *http.Request) (posts.ListFilter, error) {
	var filter posts.ListFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		category, err := enums.ParsePostCategory(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid category filter")
		}
		filter.Category = &category
	}
	featured, err := validators.ParseQueryBool(r, "featured")
	if err != nil {
		return filter, err
	}
	filter.Featured = featured
	return filter, nil
}

// PostPublicList serves the published editorial feed.
func PostPublicList(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := postListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListPublished(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// PostBySlug serves one published post.
func PostBySlug(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := svc.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// PostList lists every post for the admin dashboard.
func PostList(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := postListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParsePostStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filter.Status = &status
		}

		rows, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// PostByID serves one post regardless of status for the admin dashboard.
func PostByID(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// PostCreate publishes or drafts a new editorial entry.
func PostCreate(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body postCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parsePostStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := parsePostCategory(body.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Create(r.Context(), actor, posts.CreateInput{
			Title:           body.Title,
			Content:         body.Content,
			Status:          status,
			Featured:        body.Featured,
			Category:        category,
			Excerpt:         body.Excerpt,
			MetaDescription: body.MetaDescription,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

// PostUpdate applies a partial update.
func PostUpdate(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body postUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parsePostStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := parsePostCategory(body.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Update(r.Context(), actor, id, posts.UpdateInput{
			Title:           body.Title,
			Content:         body.Content,
			Status:          status,
			Featured:        body.Featured,
			Category:        category,
			Excerpt:         body.Excerpt,
			MetaDescription: body.MetaDescription,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// PostDelete removes a post and its cover image.
func PostDelete(svc posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
