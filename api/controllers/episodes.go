package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Rhaonthemoon/radio-bug/api/responses"
	"github.com/Rhaonthemoon/radio-bug/api/validators"
	"github.com/Rhaonthemoon/radio-bug/internal/authz"
	"github.com/Rhaonthemoon/radio-bug/internal/episodes"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// multipartMemoryBytes bounds how much of a proxied upload is buffered in
// memory before spilling to disk.
const multipartMemoryBytes = 32 << 20

type episodeCreateRequest struct {
	ShowID          string     `json:"show_id" validate:"required,uuid"`
	Title           string     `json:"title" validate:"required"`
	Description     string     `json:"description,omitempty"`
	AirDate         *time.Time `json:"air_date,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	Status          *string    `json:"status,omitempty"`
	Featured        *bool      `json:"featured,omitempty"`
	MixcloudURL     *string    `json:"mixcloud_url,omitempty"`
	YoutubeURL      *string    `json:"youtube_url,omitempty"`
	SpotifyURL      *string    `json:"spotify_url,omitempty"`
}

type episodeUpdateRequest struct {
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	AirDate         *time.Time `json:"air_date,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Featured        *bool      `json:"featured,omitempty"`
	MixcloudURL     *string    `json:"mixcloud_url,omitempty"`
	YoutubeURL      *string    `json:"youtube_url,omitempty"`
	SpotifyURL      *string    `json:"spotify_url,omitempty"`
}

func parseEpisodeStatus(raw *string) (*enums.EpisodeStatus, error) {
	if raw == nil {
		return nil, nil
	}
	status, err := enums.ParseEpisodeStatus(*raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	return &status, nil
}

func episodeListFilter(r *http.Request) (episodes.ListFilter, error) {
	var filter episodes.ListFilter

	showID, err := validators.ParseQueryUUID(r, "show_id")
	if err != nil {
		return filter, err
	}
	filter.ShowID = showID

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseEpisodeStatus(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.Status = &status
	}
	return filter, nil
}

// EpisodePublicByShow lists the published episodes of a show.
func EpisodePublicByShow(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListPublicByShowSlug(r.Context(), chi.URLParam(r, "showSlug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// EpisodePublicStream redirects the listener to the audio object and counts
// the play.
func EpisodePublicStream(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		url, err := svc.StreamPublic(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

// EpisodeStream redirects the owner or an admin to the audio object.
func EpisodeStream(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		url, err := svc.Stream(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

// EpisodeList lists episodes, scoped to the caller's shows for artists.
func EpisodeList(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := episodeListFilter(r)
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

// EpisodeByID fetches one episode, enforcing ownership through its show.
func EpisodeByID(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		episode, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, episode)
	}
}

// EpisodeCreate attaches a new episode to a show.
func EpisodeCreate(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body episodeCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		showID, err := parseUUIDField(body.ShowID, "show_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseEpisodeStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		episode, err := svc.Create(r.Context(), actor, episodes.CreateInput{
			ShowID:          showID,
			Title:           body.Title,
			Description:     body.Description,
			AirDate:         body.AirDate,
			DurationMinutes: body.DurationMinutes,
			Status:          status,
			Featured:        body.Featured,
			MixcloudURL:     body.MixcloudURL,
			YoutubeURL:      body.YoutubeURL,
			SpotifyURL:      body.SpotifyURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, episode)
	}
}

// EpisodeUpdate applies a partial update.
func EpisodeUpdate(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body episodeUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseEpisodeStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		episode, err := svc.Update(r.Context(), actor, id, episodes.UpdateInput{
			Title:           body.Title,
			Description:     body.Description,
			AirDate:         body.AirDate,
			DurationMinutes: body.DurationMinutes,
			Status:          status,
			Featured:        body.Featured,
			MixcloudURL:     body.MixcloudURL,
			YoutubeURL:      body.YoutubeURL,
			SpotifyURL:      body.SpotifyURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, episode)
	}
}

// EpisodeDelete removes an episode and its stored objects.
func EpisodeDelete(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "episodeId")
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

// EpisodeUploadAudio proxies a multipart audio upload through the server.
func EpisodeUploadAudio(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return episodeUpload(svc.UploadAudio, "audio", logg)
}

// EpisodeUploadImage proxies a multipart cover image upload through the server.
func EpisodeUploadImage(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return episodeUpload(svc.UploadImage, "image", logg)
}

func episodeUpload(upload func(ctx context.Context, actor authz.Actor, id uuid.UUID, file episodes.FileUpload) (*models.Episode, error), field string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		file, header, err := r.FormFile(field)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "missing file field").WithDetails(map[string]any{"field": field}))
			return
		}
		defer file.Close()

		episode, err := upload(r.Context(), actor, id, episodes.FileUpload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			SizeBytes:   header.Size,
			Body:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, episode)
	}
}

// EpisodeDeleteAudio clears the audio slot.
func EpisodeDeleteAudio(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return episodeSlotDelete(svc.DeleteAudio, logg)
}

// EpisodeDeleteImage clears the image slot.
func EpisodeDeleteImage(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return episodeSlotDelete(svc.DeleteImage, logg)
}

func episodeSlotDelete(clear func(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		episode, err := clear(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, episode)
	}
}

// EpisodePublishMixcloud pushes an archived episode to Mixcloud.
func EpisodePublishMixcloud(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		episode, err := svc.PublishMixcloud(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, episode)
	}
}

// EpisodeMixcloudStatus reports the publish progress of one episode.
func EpisodeMixcloudStatus(svc episodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "episodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.MixcloudState(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}
