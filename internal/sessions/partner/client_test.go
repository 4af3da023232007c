package partner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	client  *HTTPClient
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
	s.client = NewHTTPClient(s.server.URL+"/", Keys{
		SessionList:     "key-list",
		SessionDetail:   "key-detail",
		EnrollmentWrite: "key-write",
	}, 2*time.Second)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) TestListSessions() {
	s.Run("sends query, headers and decodes the page", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodGet, r.Method)
			s.Equal("/operateurs/structures/S1/sessions", r.URL.Path)
			q := r.URL.Query()
			s.Equal("150", q.Get("taillePage"))
			s.Equal("true", q.Get("rechercheInscrits"))
			s.Equal("2024-03-01", q.Get("dateDebutRecherche"))
			s.Equal("2024-03-31", q.Get("dateFinRecherche"))
			s.Equal("2", q.Get("page"))
			s.Equal("key-list", r.Header.Get("X-Gravitee-Api-Key"))
			s.Equal("APPLICATION_CEJ", r.Header.Get("operateur"))
			s.Equal("Bearer upstream-token", r.Header.Get("Authorization"))

			_, _ = io.WriteString(w, `{"page":2,"nbSessions":151,"sessions":[
				{"session":{"id":42,"nom":"Atelier CV","dateHeureDebut":"2024-03-05 10:00:00","dateHeureFin":"2024-03-05 12:00:00","animateur":"Nina","lieu":"Salle 1","nbPlacesDisponibles":8},
				 "offre":{"id":7,"nom":"CV","theme":"Emploi","type":"WORKSHOP"}}]}`)
		}

		page, err := s.client.ListSessions(context.Background(), "upstream-token", "S1", ListOptions{
			From: "2024-03-01", To: "2024-03-31", Page: 2,
		})
		s.Require().NoError(err)
		s.Equal(151, page.TotalCount)
		s.Require().Len(page.Sessions, 1)
		s.Equal(int64(42), page.Sessions[0].Session.ID)
		s.Equal(OfferTypeWorkshop, page.Sessions[0].Offer.Type)
		s.Require().NotNil(page.Sessions[0].Session.AvailableSeats)
		s.Equal(8, *page.Sessions[0].Session.AvailableSeats)
	})

	s.Run("first page omits page and open bounds", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			s.False(q.Has("page"))
			s.False(q.Has("dateDebutRecherche"))
			s.False(q.Has("dateFinRecherche"))
			_, _ = io.WriteString(w, `{"page":1,"nbSessions":0,"sessions":[]}`)
		}
		page, err := s.client.ListSessions(context.Background(), "t", "S1", ListOptions{Page: 1})
		s.Require().NoError(err)
		s.Empty(page.Sessions)
	})
}

func (s *ClientSuite) TestErrorClassification() {
	cases := []struct {
		name     string
		status   int
		body     string
		category Category
		message  string
	}{
		{name: "server error is unavailable", status: http.StatusServiceUnavailable, category: CategoryUnavailable, message: "partner unavailable"},
		{name: "gateway error is unavailable", status: http.StatusBadGateway, category: CategoryUnavailable, message: "partner unavailable"},
		{name: "not found", status: http.StatusNotFound, category: CategoryNotFound, message: "resource not found"},
		{name: "bad request carries partner message", status: http.StatusBadRequest, body: `{"code":"SESSION_FULL","message":"La session est complète"}`, category: CategoryRejected, message: "La session est complète"},
		{name: "forbidden without body", status: http.StatusForbidden, category: CategoryRejected, message: "Forbidden"},
		{name: "undecodable success body", status: http.StatusOK, body: `{"session":`, category: CategoryContractMismatch, message: "failed to parse response"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}
			_, err := s.client.GetSession(context.Background(), "t", "42")
			s.Require().Error(err)

			pe, ok := AsError(err)
			s.Require().True(ok)
			s.Equal(tc.category, pe.Category)
			s.Equal(tc.message, pe.Message)
			s.Equal(tc.status, pe.Status)
			s.Equal("get_session", pe.Endpoint)
		})
	}

	s.Run("closed server is unavailable", func() {
		s.server.Close()
		_, err := s.client.ListEnrollments(context.Background(), "t", "42")
		s.Equal(CategoryUnavailable, CategoryOf(err))
	})
}

func (s *ClientSuite) TestWrites() {
	s.Run("create posts the session id as a JSON string", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodPost, r.Method)
			s.Equal("/operateurs/dossiers/D9/instances-session", r.URL.Path)
			s.Equal("key-write", r.Header.Get("X-Gravitee-Api-Key"))
			s.Equal("application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			s.JSONEq(`"42"`, string(body))
			w.WriteHeader(http.StatusCreated)
		}
		s.NoError(s.client.CreateEnrollment(context.Background(), "t", "42", "D9"))
	})

	s.Run("update sends status, comment and actual start date", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodPut, r.Method)
			s.Equal("/operateurs/dossiers/D9/instances-session/I3", r.URL.Path)
			var body map[string]string
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
			s.Equal(map[string]string{"statut": StatusPresent, "dateDebutReelle": "2024-03-05"}, body)
			w.WriteHeader(http.StatusNoContent)
		}
		s.NoError(s.client.UpdateEnrollment(context.Background(), "t", EnrollmentUpdate{
			EnrollmentRef:   EnrollmentRef{DossierID: "D9", SessionInstanceID: "I3"},
			Status:          StatusPresent,
			ActualStartDate: "2024-03-05",
		}))
	})

	s.Run("delete addresses the enrollment", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodDelete, r.Method)
			s.Equal("/operateurs/dossiers/D9/instances-session/I3", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
		s.NoError(s.client.DeleteEnrollment(context.Background(), "t", EnrollmentRef{DossierID: "D9", SessionInstanceID: "I3"}))
	})

	s.Run("rejected write keeps partner message", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"message":"Dossier clos"}`)
		}
		err := s.client.CreateEnrollment(context.Background(), "t", "42", "D9")
		pe, ok := AsError(err)
		s.Require().True(ok)
		s.Equal(CategoryRejected, pe.Category)
		s.Equal("Dossier clos", pe.Message)
	})
}

func TestCategoryOfPlainError(t *testing.T) {
	assert.Equal(t, CategoryInternal, CategoryOf(io.EOF))
	_, ok := AsError(io.EOF)
	require.False(t, ok)
}
