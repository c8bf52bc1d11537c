package uploadclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadAudioHandshake(t *testing.T) {
	fileBody := strings.Repeat("a", 1024)

	var storageReceived string
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("storage method = %s, want PUT", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/mpeg" {
			t.Errorf("storage content type = %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		storageReceived = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	var confirmBody ConfirmRequest
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/upload/presign/episode/ep-1":
			if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
				t.Errorf("authorization = %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]string{
					"presigned_url": storage.URL + "/bucket/episodes/ep-1_1.mp3",
					"key":           "episodes/ep-1_1.mp3",
					"file_url":      "https://cdn.example.com/episodes/ep-1_1.mp3",
				},
			})
		case "/api/v1/upload/confirm/episode/ep-1":
			if err := json.NewDecoder(r.Body).Decode(&confirmBody); err != nil {
				t.Errorf("decode confirm body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"status": "confirmed"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	client, err := New(Options{BaseURL: api.URL, AccessToken: "token-123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var lastSent, lastTotal int64
	duration := 180
	result, err := client.UploadAudio(context.Background(), ResourceEpisode, "ep-1", "mix.mp3", "audio/mpeg",
		strings.NewReader(fileBody), int64(len(fileBody)), &duration, nil,
		func(sent, total int64) {
			lastSent, lastTotal = sent, total
		})
	if err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}

	if storageReceived != fileBody {
		t.Errorf("storage received %d bytes, want %d", len(storageReceived), len(fileBody))
	}
	if result.Key != "episodes/ep-1_1.mp3" {
		t.Errorf("result key = %q", result.Key)
	}
	if confirmBody.Key != "episodes/ep-1_1.mp3" || confirmBody.Size != int64(len(fileBody)) {
		t.Errorf("confirm body = %+v", confirmBody)
	}
	if confirmBody.Duration == nil || *confirmBody.Duration != 180 {
		t.Errorf("confirm duration = %v", confirmBody.Duration)
	}
	if lastSent != int64(len(fileBody)) || lastTotal != int64(len(fileBody)) {
		t.Errorf("progress sent=%d total=%d", lastSent, lastTotal)
	}
}

func TestUploadAudioPresignForbidden(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "FORBIDDEN", "message": "show does not belong to you"},
		})
	}))
	defer api.Close()

	client, err := New(Options{BaseURL: api.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.UploadAudio(context.Background(), ResourceShow, "sh-1", "promo.mp3", "",
		strings.NewReader("x"), 1, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "show does not belong to you") {
		t.Errorf("error = %v", err)
	}
}

func TestUploadAudioRejectsUnknownResource(t *testing.T) {
	client, err := New(Options{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.UploadAudio(context.Background(), "post", "p-1", "a.mp3", "",
		strings.NewReader("x"), 1, nil, nil, nil); err == nil {
		t.Fatal("expected error for unknown resource")
	}
}

func TestPutFailsOnStorageError(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "SignatureDoesNotMatch")
	}))
	defer storage.Close()

	client, err := New(Options{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = client.Put(context.Background(), storage.URL, "audio/mpeg", strings.NewReader("x"), 1, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "SignatureDoesNotMatch") {
		t.Errorf("error = %v", err)
	}
}
