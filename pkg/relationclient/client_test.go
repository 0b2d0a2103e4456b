package relationclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestEnemiesOf(t *testing.T) {
	enemy1 := uuid.New()
	enemy2 := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]uuid.UUID{"enemies": {enemy1, enemy2}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	enemies, err := client.EnemiesOf(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enemies) != 2 || enemies[0] != enemy1 || enemies[1] != enemy2 {
		t.Fatalf("unexpected enemies: %v", enemies)
	}
}

func TestGuildsOfEmptyIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]uuid.UUID{"guilds": {}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	guilds, err := client.GuildsOf(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(guilds) != 0 {
		t.Fatalf("expected no guilds, got %v", guilds)
	}
}

func TestHasPermissionEscapesPermissionName(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]bool{"granted": true})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	granted, err := client.HasPermission(context.Background(), uuid.New(), uuid.New(), "shop.manage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted {
		t.Fatal("expected permission granted")
	}
	if gotPath == "" {
		t.Fatal("expected request path recorded")
	}
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.EnemiesOf(context.Background(), uuid.New())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
