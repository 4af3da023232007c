package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"youthsessions/internal/sessions/partner"
)

// fakePartner serves the subset of the partner operator API the gateway calls.
type fakePartner struct {
	mu           sync.Mutex
	sessions     map[string]partner.SessionDetailDTO
	structureOf  map[string]string
	rosters      map[string][]partner.EnrolleeDTO
	writes       []string
	unavailable  bool
	nextInstance int64
}

func newFakePartner() *fakePartner {
	return &fakePartner{
		sessions:     make(map[string]partner.SessionDetailDTO),
		structureOf:  make(map[string]string),
		rosters:      make(map[string][]partner.EnrolleeDTO),
		nextInstance: 9000,
	}
}

func (p *fakePartner) host(structureID string, s partner.SessionDetailDTO) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := strconv.FormatInt(s.Session.ID, 10)
	p.sessions[id] = s
	p.structureOf[id] = structureID
}

func (p *fakePartner) enroll(sessionID string, dossierID int64, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextInstance++
	p.rosters[sessionID] = append(p.rosters[sessionID], partner.EnrolleeDTO{
		DossierID:         dossierID,
		SessionInstanceID: p.nextInstance,
		Status:            status,
	})
}

func (p *fakePartner) setUnavailable(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unavailable = down
}

func (p *fakePartner) recordedWrites() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

func (p *fakePartner) statusOf(sessionID string, dossierID int64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.rosters[sessionID] {
		if e.DossierID == dossierID {
			return e.Status, true
		}
	}
	return "", false
}

func (p *fakePartner) router() http.Handler {
	r := chi.NewRouter()
	r.Use(p.guard)
	r.Route("/operateurs", func(r chi.Router) {
		r.Get("/structures/{structureID}/sessions", p.listSessions)
		r.Get("/sessions/{sessionID}", p.getSession)
		r.Get("/sessions/{sessionID}/inscrits", p.listEnrollments)
		r.Post("/dossiers/{dossierID}/instances-session", p.createEnrollment)
		r.Put("/dossiers/{dossierID}/instances-session/{instanceID}", p.updateEnrollment)
		r.Delete("/dossiers/{dossierID}/instances-session/{instanceID}", p.deleteEnrollment)
	})
	return r
}

// guard answers 503 during an outage and 401 to tokens that were not exchanged.
func (p *fakePartner) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		down := p.unavailable
		p.mu.Unlock()
		if down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer partner-") {
			writePartnerJSON(w, http.StatusUnauthorized, map[string]string{"message": "jeton invalide"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (p *fakePartner) listSessions(w http.ResponseWriter, r *http.Request) {
	structureID := chi.URLParam(r, "structureID")
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, _ = strconv.Atoi(raw)
	}

	p.mu.Lock()
	var ids []string
	for id, owner := range p.structureOf {
		if owner == structureID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	all := make([]partner.SessionDetailDTO, 0, len(ids))
	for _, id := range ids {
		all = append(all, p.sessions[id])
	}
	p.mu.Unlock()

	start := (page - 1) * partner.PageSize
	end := start + partner.PageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	writePartnerJSON(w, http.StatusOK, partner.SessionPage{
		Page:       page,
		TotalCount: len(all),
		Sessions:   all[start:end],
	})
}

func (p *fakePartner) getSession(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	s, ok := p.sessions[chi.URLParam(r, "sessionID")]
	p.mu.Unlock()
	if !ok {
		writePartnerJSON(w, http.StatusNotFound, map[string]string{"message": "session inconnue"})
		return
	}
	writePartnerJSON(w, http.StatusOK, s)
}

func (p *fakePartner) listEnrollments(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	roster := append([]partner.EnrolleeDTO{}, p.rosters[chi.URLParam(r, "sessionID")]...)
	p.mu.Unlock()
	writePartnerJSON(w, http.StatusOK, roster)
}

func (p *fakePartner) createEnrollment(w http.ResponseWriter, r *http.Request) {
	var sessionID string
	if err := json.NewDecoder(r.Body).Decode(&sessionID); err != nil {
		writePartnerJSON(w, http.StatusBadRequest, map[string]string{"message": "corps invalide"})
		return
	}
	dossierID, err := strconv.ParseInt(chi.URLParam(r, "dossierID"), 10, 64)
	if err != nil {
		writePartnerJSON(w, http.StatusBadRequest, map[string]string{"message": "dossier invalide"})
		return
	}
	p.enroll(sessionID, dossierID, partner.StatusEnrolled)
	p.record("create", sessionID, dossierID, partner.StatusEnrolled)
	w.WriteHeader(http.StatusCreated)
}

func (p *fakePartner) updateEnrollment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"statut"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writePartnerJSON(w, http.StatusBadRequest, map[string]string{"message": "corps invalide"})
		return
	}
	instanceID, _ := strconv.ParseInt(chi.URLParam(r, "instanceID"), 10, 64)

	p.mu.Lock()
	var (
		sessionID string
		dossierID int64
		found     bool
	)
	for sid, roster := range p.rosters {
		for i := range roster {
			if roster[i].SessionInstanceID == instanceID {
				roster[i].Status = body.Status
				sessionID, dossierID, found = sid, roster[i].DossierID, true
			}
		}
	}
	p.mu.Unlock()
	if !found {
		writePartnerJSON(w, http.StatusNotFound, map[string]string{"message": "inscription inconnue"})
		return
	}
	p.record("update", sessionID, dossierID, body.Status)
	w.WriteHeader(http.StatusOK)
}

func (p *fakePartner) deleteEnrollment(w http.ResponseWriter, r *http.Request) {
	instanceID, _ := strconv.ParseInt(chi.URLParam(r, "instanceID"), 10, 64)
	p.mu.Lock()
	for sid, roster := range p.rosters {
		kept := roster[:0]
		for _, e := range roster {
			if e.SessionInstanceID != instanceID {
				kept = append(kept, e)
			}
		}
		p.rosters[sid] = kept
	}
	p.writes = append(p.writes, fmt.Sprintf("delete %d", instanceID))
	p.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (p *fakePartner) record(kind, sessionID string, dossierID int64, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, fmt.Sprintf("%s %s %d %s", kind, sessionID, dossierID, status))
}

func writePartnerJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeIdP answers token exchange with "partner-<subject>" and refuses the
// subject token "expired".
func fakeIdP() http.Handler {
	r := chi.NewRouter()
	r.Post("/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writePartnerJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
			return
		}
		subject := r.PostForm.Get("subject_token")
		if subject == "" || subject == "expired" {
			writePartnerJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writePartnerJSON(w, http.StatusOK, map[string]any{
			"access_token": "partner-" + subject,
			"expires_in":   300,
		})
	})
	return r
}
