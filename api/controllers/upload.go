package controllers

import (
	"net/http"
	"strings"

	"github.com/Rhaonthemoon/radio-bug/api/responses"
	"github.com/Rhaonthemoon/radio-bug/api/validators"
	"github.com/Rhaonthemoon/radio-bug/internal/uploads"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type uploadPresignRequest struct {
	FileName    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type,omitempty"`
}

type uploadConfirmRequest struct {
	Key       string `json:"key" validate:"required"`
	FileURL   string `json:"file_url" validate:"required,url"`
	FileName  string `json:"filename,omitempty"`
	SizeBytes int64  `json:"size,omitempty" validate:"omitempty,min=0"`
	Duration  *int   `json:"duration,omitempty" validate:"omitempty,min=0"`
	Bitrate   *int   `json:"bitrate,omitempty" validate:"omitempty,min=0"`
}

// UploadPresign issues a signed PUT URL for a direct client upload.
func UploadPresign(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "docId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body uploadPresignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resource := strings.TrimSpace(chi.URLParam(r, "resource"))
		result, err := svc.Presign(r.Context(), actor, resource, id, uploads.PresignInput{
			FileName:    body.FileName,
			ContentType: body.ContentType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UploadConfirm records a completed direct upload against its document.
func UploadConfirm(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "docId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body uploadConfirmRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resource := strings.TrimSpace(chi.URLParam(r, "resource"))
		doc, err := svc.Confirm(r.Context(), actor, resource, id, uploads.ConfirmInput{
			Key:             body.Key,
			FileURL:         body.FileURL,
			FileName:        body.FileName,
			SizeBytes:       body.SizeBytes,
			DurationSeconds: body.Duration,
			BitrateKbps:     body.Bitrate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}
