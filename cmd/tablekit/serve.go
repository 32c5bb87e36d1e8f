package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/pkg/tablekit"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServer(client).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("[SERVER] Received shutdown signal...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// server exposes configured tables as JSON over HTTP:
//
//	GET    /health
//	GET    /tables/{table}?field=value   - rows matching every field
//	POST   /tables/{table}               - insert a row
//	GET    /tables/{table}/{id}          - one row, cache first
//	DELETE /tables/{table}/{id}
type server struct {
	client tablekit.Client
}

func newServer(client tablekit.Client) *server {
	return &server{client: client}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /tables/{table}", s.find)
	mux.HandleFunc("POST /tables/{table}", s.create)
	mux.HandleFunc("GET /tables/{table}/{id}", s.get)
	mux.HandleFunc("DELETE /tables/{table}/{id}", s.delete)
	return mux
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"tables":    s.client.Tables(),
	})
}

func (s *server) find(w http.ResponseWriter, r *http.Request) {
	t, err := s.client.Table(r.Context(), r.PathValue("table"))
	if err != nil {
		writeError(w, err)
		return
	}

	where := make(core.Record)
	for field, values := range r.URL.Query() {
		where[field] = values[0]
	}
	rows, err := t.Find(r.Context(), where)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows.Data())
}

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := r.PathValue("table")

	var data core.Record
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	t, err := s.client.Table(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	row, err := t.NewRow(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := row.Save(r.Context()); err != nil {
		log.Printf("[SERVER] Insert into %s failed after %v: %v", name, time.Since(start), err)
		writeError(w, err)
		return
	}

	log.Printf("[SERVER] Inserted into %s in %v", name, time.Since(start))
	writeJSON(w, http.StatusCreated, row.Data())
}

func (s *server) get(w http.ResponseWriter, r *http.Request) {
	rec, err := s.client.Get(r.Context(), r.PathValue("table"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) delete(w http.ResponseWriter, r *http.Request) {
	t, err := s.client.Table(r.Context(), r.PathValue("table"))
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := t.Find(r.Context(), core.Record{"id": r.PathValue("id")})
	if err != nil {
		writeError(w, err)
		return
	}
	if rows.Len() == 0 {
		writeError(w, tablekit.ErrNotFound)
		return
	}
	for _, row := range rows.Rows() {
		if _, err := row.Delete(r.Context()); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVER] WARNING: Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var connErr *core.ConnectionError
	switch {
	case errors.Is(err, tablekit.ErrNotFound), errors.Is(err, core.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.As(err, &connErr):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}
