package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"time"

	identitystore "youthsessions/internal/identity/store"
	"youthsessions/internal/identity/tokenexchange"
	"youthsessions/internal/platform/health"
	"youthsessions/internal/platform/logger"
	"youthsessions/internal/ratelimit/gate"
	"youthsessions/internal/sessions/gateway"
	"youthsessions/internal/sessions/handler"
	"youthsessions/internal/sessions/partner"
	"youthsessions/internal/sessions/reconcile"
	"youthsessions/internal/sessions/scheduler"
	"youthsessions/internal/sessions/service"
	"youthsessions/internal/sessions/store"
	"youthsessions/internal/sessions/workers/closure"
	httptransport "youthsessions/internal/transport/http"
)

// Harness runs the whole server in-process against a fake partner and a fake
// identity provider. Closure jobs are applied inline by the closure worker.
type Harness struct {
	Partner    *fakePartner
	Identities *identitystore.InMemoryStore
	Overlays   *store.InMemoryStore

	partnerSrv *httptest.Server
	idpSrv     *httptest.Server
	appSrv     *httptest.Server
}

// inlineClosures hands closure jobs straight to the worker.
type inlineClosures struct {
	worker *closure.Worker
}

func (c *inlineClosures) ScheduleClosure(ctx context.Context, sessionIDs []string, structureID string, observedAt time.Time) error {
	_, err := c.worker.RunOnce(ctx, scheduler.ClosureJob{
		SessionIDs:  sessionIDs,
		StructureID: structureID,
		ObservedAt:  observedAt,
	})
	return err
}

func NewHarness() (*Harness, error) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("E2E_VERBOSE") != "" {
		log = logger.New("debug")
	}

	h := &Harness{
		Partner:    newFakePartner(),
		Identities: identitystore.NewInMemory(),
		Overlays:   store.NewInMemory(),
	}
	h.partnerSrv = httptest.NewServer(h.Partner.router())
	h.idpSrv = httptest.NewServer(fakeIdP())

	gates, err := newGates()
	if err != nil {
		h.Close()
		return nil, err
	}
	api := partner.NewHTTPClient(h.partnerSrv.URL, partner.Keys{
		SessionList:     "list-key",
		SessionDetail:   "detail-key",
		EnrollmentWrite: "write-key",
	}, 5*time.Second)

	gw, err := gateway.New(api, h.Identities, gates, gateway.WithLogger(log))
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("build gateway: %w", err)
	}
	reconciler, err := reconcile.New(gw, h.Overlays, reconcile.WithLogger(log))
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("build reconciler: %w", err)
	}
	exchanger, err := tokenexchange.New(h.idpSrv.URL, "youthsessions", "secret", 5*time.Second,
		tokenexchange.WithLogger(log))
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("build exchanger: %w", err)
	}
	worker, err := closure.New(h.Overlays, closure.WithLogger(log))
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("build closure worker: %w", err)
	}

	svc, err := service.New(gw, h.Overlays, reconciler, h.Identities, exchanger,
		service.WithScheduler(&inlineClosures{worker: worker}),
		service.WithLogger(log),
	)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("build service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Config{RequestTimeout: 10 * time.Second},
		handler.New(svc, log), health.New("e2e"), log)
	h.appSrv = httptest.NewServer(router)
	return h, nil
}

func newGates() (gateway.Gates, error) {
	var gates [3]*gate.Gate
	for i, name := range []string{"listing", "detail", "write"} {
		g, err := gate.New(name, 100, time.Second)
		if err != nil {
			return gateway.Gates{}, fmt.Errorf("build %s gate: %w", name, err)
		}
		gates[i] = g
	}
	return gateway.Gates{Listing: gates[0], Detail: gates[1], Write: gates[2]}, nil
}

// URL is the base URL of the server under test.
func (h *Harness) URL() string {
	return h.appSrv.URL
}

func (h *Harness) Close() {
	for _, srv := range []*httptest.Server{h.appSrv, h.idpSrv, h.partnerSrv} {
		if srv != nil {
			srv.Close()
		}
	}
}
