package devstore

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Handler serves the record store over HTTP with json-server-style routes:
//
//	GET    /{collection}        list, exact-match query filters
//	POST   /{collection}        create, id assigned by the store
//	GET    /{collection}/{id}
//	PUT    /{collection}/{id}   replace
//	PATCH  /{collection}/{id}   merge fields
//	DELETE /{collection}/{id}
func (s *Store) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/{collection}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleReplace)
		r.Patch("/{id}", s.handlePatch)
		r.Delete("/{id}", s.handleDelete)
	})

	return r
}

func (s *Store) handleList(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	filter := map[string]string{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 && vs[0] != "" {
			filter[k] = vs[0]
		}
	}

	records := s.list(collection, filter)
	if records == nil {
		records = []Record{}
	}
	respondWithJSON(w, http.StatusOK, records)
}

func (s *Store) handleCreate(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created := s.create(collection, rec)
	log.Debug().Str("collection", collection).Msgf("devstore: created record %v", created["id"])
	respondWithJSON(w, http.StatusCreated, created)
}

func (s *Store) handleGet(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	rec, ok := s.get(collection, id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "record not found")
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Store) handleReplace(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	replaced, ok := s.replace(collection, id, rec)
	if !ok {
		respondWithError(w, http.StatusNotFound, "record not found")
		return
	}
	respondWithJSON(w, http.StatusOK, replaced)
}

func (s *Store) handlePatch(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var fields Record
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patched, ok := s.patch(collection, id, fields)
	if !ok {
		respondWithError(w, http.StatusNotFound, "record not found")
		return
	}
	respondWithJSON(w, http.StatusOK, patched)
}

func (s *Store) handleDelete(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	if !s.delete(collection, id) {
		respondWithError(w, http.StatusNotFound, "record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("devstore: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("devstore: failed to write JSON response")
	}
}
