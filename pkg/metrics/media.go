package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MediaMetrics records side-effect outcomes around uploads and notifications.
type MediaMetrics struct {
	orphanCleanupFailure *prometheus.CounterVec
	emailSent            *prometheus.CounterVec
	emailFailure         *prometheus.CounterVec
	mixcloudPublish      *prometheus.CounterVec
	streamPlays          *prometheus.CounterVec
}

// NewMediaMetrics registers the media metrics on the provided registerer.
func NewMediaMetrics(reg prometheus.Registerer) *MediaMetrics {
	if reg == nil {
		return &MediaMetrics{}
	}
	orphanCleanupFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_orphan_cleanup_failure",
		Help: "Failed best-effort deletions of replaced storage objects.",
	}, []string{"resource"})
	emailSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_sent",
		Help: "Notification emails sent.",
	}, []string{"template"})
	emailFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_failure",
		Help: "Notification emails that failed to send.",
	}, []string{"template"})
	mixcloudPublish := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mixcloud_publish",
		Help: "Mixcloud publish attempts by outcome.",
	}, []string{"outcome"})
	streamPlays := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "episode_stream_plays",
		Help: "Episode stream redirects served.",
	}, []string{"visibility"})
	reg.MustRegister(orphanCleanupFailure, emailSent, emailFailure, mixcloudPublish, streamPlays)
	return &MediaMetrics{
		orphanCleanupFailure: orphanCleanupFailure,
		emailSent:            emailSent,
		emailFailure:         emailFailure,
		mixcloudPublish:      mixcloudPublish,
		streamPlays:          streamPlays,
	}
}

// IncOrphanCleanupFailure increments the cleanup-failure counter for a resource kind.
func (m *MediaMetrics) IncOrphanCleanupFailure(resource string) {
	if m == nil || m.orphanCleanupFailure == nil {
		return
	}
	m.orphanCleanupFailure.WithLabelValues(normalizeLabel(resource)).Inc()
}

// IncEmailSent increments the sent counter for a template.
func (m *MediaMetrics) IncEmailSent(template string) {
	if m == nil || m.emailSent == nil {
		return
	}
	m.emailSent.WithLabelValues(normalizeLabel(template)).Inc()
}

// IncEmailFailure increments the failure counter for a template.
func (m *MediaMetrics) IncEmailFailure(template string) {
	if m == nil || m.emailFailure == nil {
		return
	}
	m.emailFailure.WithLabelValues(normalizeLabel(template)).Inc()
}

// IncMixcloudPublish increments the publish counter for an outcome.
func (m *MediaMetrics) IncMixcloudPublish(outcome string) {
	if m == nil || m.mixcloudPublish == nil {
		return
	}
	m.mixcloudPublish.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncStreamPlay increments the stream counter for a visibility scope.
func (m *MediaMetrics) IncStreamPlay(visibility string) {
	if m == nil || m.streamPlays == nil {
		return
	}
	m.streamPlays.WithLabelValues(normalizeLabel(visibility)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
