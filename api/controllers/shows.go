package controllers

import (
	"net/http"
	"strings"

	"github.com/Rhaonthemoon/radio-bug/api/responses"
	"github.com/Rhaonthemoon/radio-bug/api/validators"
	"github.com/Rhaonthemoon/radio-bug/internal/shows"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type showRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`

	ArtistName       *string `json:"artist_name,omitempty"`
	ArtistBio        *string `json:"artist_bio,omitempty"`
	ArtistEmail      *string `json:"artist_email,omitempty" validate:"omitempty,email"`
	ArtistPhotoURL   *string `json:"artist_photo_url,omitempty" validate:"omitempty,url"`
	ArtistInstagram  *string `json:"artist_instagram,omitempty"`
	ArtistSoundcloud *string `json:"artist_soundcloud,omitempty"`
	ArtistWebsiteURL *string `json:"artist_website_url,omitempty" validate:"omitempty,url"`

	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
	ImageAlt *string `json:"image_alt,omitempty"`

	Genres *[]string `json:"genres,omitempty"`
	Tags   *[]string `json:"tags,omitempty"`

	ScheduleDayOfWeek *string `json:"schedule_day_of_week,omitempty"`
	ScheduleTimeSlot  *string `json:"schedule_time_slot,omitempty"`
	ScheduleFrequency *string `json:"schedule_frequency,omitempty"`

	Status   *string `json:"status,omitempty"`
	Featured *bool   `json:"featured,omitempty"`
}

type adminNotesRequest struct {
	AdminNotes *string `json:"admin_notes,omitempty"`
}

func (req showRequest) toInput() (shows.Input, error) {
	input := shows.Input{
		Title:             req.Title,
		Description:       req.Description,
		ArtistName:        req.ArtistName,
		ArtistBio:         req.ArtistBio,
		ArtistEmail:       req.ArtistEmail,
		ArtistPhotoURL:    req.ArtistPhotoURL,
		ArtistInstagram:   req.ArtistInstagram,
		ArtistSoundcloud:  req.ArtistSoundcloud,
		ArtistWebsiteURL:  req.ArtistWebsiteURL,
		ImageURL:          req.ImageURL,
		ImageAlt:          req.ImageAlt,
		Genres:            req.Genres,
		Tags:              req.Tags,
		ScheduleDayOfWeek: req.ScheduleDayOfWeek,
		ScheduleTimeSlot:  req.ScheduleTimeSlot,
		ScheduleFrequency: req.ScheduleFrequency,
		Featured:          req.Featured,
	}
	if req.Status != nil {
		status, err := enums.ParseShowStatus(*req.Status)
		if err != nil {
			return shows.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		input.Status = &status
	}
	return input, nil
}

func showListFilter(r *http.Request) (shows.ListFilter, error) {
	var filter shows.ListFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseShowStatus(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.Status = &status
	}
	featured, err := validators.ParseQueryBool(r, "featured")
	if err != nil {
		return filter, err
	}
	filter.Featured = featured
	if raw := strings.TrimSpace(r.URL.Query().Get("genre")); raw != "" {
		filter.Genre = &raw
	}
	return filter, nil
}

// ShowBySlug serves the public show page.
func ShowBySlug(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		show, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, show)
	}
}

// ShowList lists shows; artists only see their own.
func ShowList(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := showListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ShowByID fetches one show, enforcing ownership for artists.
func ShowByID(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "showId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		show, err := svc.GetByID(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, show)
	}
}

// ShowArtistRequest submits a new show request for review.
func ShowArtistRequest(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body showRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		show, err := svc.Request(r.Context(), actor.ID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, show)
	}
}

// ShowArtistMine lists every show owned by the caller.
func ShowArtistMine(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMine(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ShowArtistApproved lists the caller's approved active shows, the set that
// accepts new episodes.
func ShowArtistApproved(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListApprovedMine(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ShowCreate lets an admin create a show directly, skipping the request flow.
func ShowCreate(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body showRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		show, err := svc.Create(r.Context(), actor.ID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, show)
	}
}

// ShowUpdate applies a partial update.
func ShowUpdate(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "showId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body showRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		show, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, show)
	}
}

// ShowDelete removes a show and its promo audio.
func ShowDelete(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "showId")
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

// ShowPendingRequests lists show requests awaiting review.
func ShowPendingRequests(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ShowApprove approves a pending show request and notifies the artist.
func ShowApprove(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "showId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adminNotesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		show, err := svc.Approve(r.Context(), id, body.AdminNotes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, show)
	}
}

// ShowReject rejects a pending show request. Admin notes are mandatory so the
// artist always learns why.
func ShowReject(svc shows.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "showId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adminNotesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notes := ""
		if body.AdminNotes != nil {
			notes = *body.AdminNotes
		}

		show, err := svc.Reject(r.Context(), id, notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, show)
	}
}
