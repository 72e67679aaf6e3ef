package server

import "net/http"

// handleReferenceProviders, handleReferencePatients and
// handleReferenceValidators serve the read-only directory endpoints of
// spec.md §6; the core never mutates this data, it only reads it back
// through storage.ReferenceStore.
func (s *Server) handleReferenceProviders(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	providers, err := s.deps.Backend.Providers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	respond(w, http.StatusOK, providers)
}

func (s *Server) handleReferencePatients(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	patients, err := s.deps.Backend.Patients(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	respond(w, http.StatusOK, patients)
}

func (s *Server) handleReferenceValidators(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	validators, err := s.deps.Backend.Validators(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	respond(w, http.StatusOK, validators)
}
