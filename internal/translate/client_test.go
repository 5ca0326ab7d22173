package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fileconv/internal/services"
)

func TestTranslateSendsLibreTranslatePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/translate" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Source != "auto" || req.Target != "es" || req.Format != "text" || req.APIKey != "secret" {
			t.Fatalf("unexpected payload %#v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": "hola " + req.Q})
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL + "/", APIKey: "secret"})
	got, err := client.Translate(context.Background(), "  mundo ", "es")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hola mundo" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestTranslateOmitsEmptyAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["api_key"]; ok {
			t.Fatalf("api_key should be omitted, got %#v", raw)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"translatedText": "ok"})
	}))
	defer server.Close()

	if _, err := NewClient(Config{URL: server.URL}).Translate(context.Background(), "x", "de"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
}

func TestTranslateValidatesInput(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:1"})
	if _, err := client.Translate(context.Background(), " ", "es"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.Translate(context.Background(), "hi", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranslateSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "xx is not supported"})
	}))
	defer server.Close()

	_, err := NewClient(Config{URL: server.URL}).Translate(context.Background(), "hi", "xx")
	if !errors.Is(err, services.ErrToolFailed) {
		t.Fatalf("expected tool failure, got %v", err)
	}
	if !strings.Contains(services.FailureMessage(err), "xx is not supported") {
		t.Fatalf("expected server message, got %q", services.FailureMessage(err))
	}
}

func TestTranslateUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(Config{URL: url}).Translate(context.Background(), "hi", "fr")
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestLanguages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/languages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"code":"en","name":"English","targets":["es"]}]`))
	}))
	defer server.Close()

	langs, err := NewClient(Config{URL: server.URL}).Languages(context.Background())
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if len(langs) != 1 || langs[0].Code != "en" || langs[0].Targets[0] != "es" {
		t.Fatalf("unexpected languages %#v", langs)
	}
}
