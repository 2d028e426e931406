package gro

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL)
	c.ConfigDir = t.TempDir()
	c.Token = ""
	return c
}

func TestLoginStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		w.Write([]byte(`{"ok":true,"token":"tok-1"}`))
	})
	mux.HandleFunc("GET /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"rooms":[{"id":3,"name":"bbq"}]}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	err := c.Login(ctx, "alice", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Fatalf("err = %v", err)
	}

	if err := c.Login(ctx, "alice", "secret"); err != nil {
		t.Fatal(err)
	}
	rooms, err := c.Rooms(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 || rooms[0].ID != 3 || rooms[0].Name != "bbq" {
		t.Fatalf("rooms = %+v", rooms)
	}

	if err := c.SaveToken(); err != nil {
		t.Fatal(err)
	}
	c.Token = ""
	if err := c.LoadToken(); err != nil || c.Token != "tok-1" {
		t.Fatalf("token = %q, err = %v", c.Token, err)
	}
}

func TestSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("room_id") != "7" {
			http.Error(w, "bad room", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(Event{Type: "message", RoomID: 7, Message: Message{ID: 1, DisplayName: "LLM Bot", Content: "hi", IsBot: true}})
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(100 * time.Millisecond)
	})
	c := newTestClient(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []Event
	if err := c.Subscribe(ctx, 7, func(ev Event) { got = append(got, ev) }); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Message.IsBot || got[0].Message.Content != "hi" {
		t.Fatalf("events = %+v", got)
	}
}
