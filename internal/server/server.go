package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gryork/internal/audit"
	"gryork/internal/careers"
	"gryork/internal/cases"
	"gryork/internal/validation"
	"gryork/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var decoder = newDecoder()

// Authenticator resolves the caller of a request. It returns
// types.ErrUnauthenticated when no valid credential is present.
type Authenticator interface {
	Authenticate(r *http.Request) (types.Actor, error)
}

type NBFCLister interface {
	ActiveNBFCs(ctx context.Context) ([]*types.NBFC, error)
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	auth      Authenticator
	cases     *cases.Service
	careers   *careers.Service
	audit     *audit.Writer
	nbfcs     NBFCLister
	validator *validation.Validator

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	auth Authenticator,
	caseService *cases.Service,
	careerService *careers.Service,
	auditWriter *audit.Writer,
	nbfcs NBFCLister,
	validator *validation.Validator,
) *Service {
	mux := flow.New()

	s := &Service{
		logger:    logger,
		config:    config,
		auth:      auth,
		cases:     caseService,
		careers:   careerService,
		audit:     auditWriter,
		nbfcs:     nbfcs,
		validator: validator,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.RequestID)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)

	r.HandleFunc("/api/careers/applications", s.handlePostApplication, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/api/nbfcs", s.handleListNBFCs, http.MethodGet)

		r.HandleFunc("/api/cases", s.handleListCases, http.MethodGet)
		r.HandleFunc("/api/cases/:id", s.handleGetCase, http.MethodGet)
		r.HandleFunc("/api/cases/:id/transitions", s.handlePostTransition, http.MethodPost)
		r.HandleFunc("/api/cases/:id/sla", s.handleGetSLA, http.MethodGet)
		r.HandleFunc("/api/cases/:id/quotations", s.handleListQuotations, http.MethodGet)
		r.HandleFunc("/api/cases/:id/selection", s.handlePostSelection, http.MethodPost)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleSubcontractor))

			r.HandleFunc("/api/cases", s.handlePostCase, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleNBFC, types.RoleOps, types.RoleAdmin))

			r.HandleFunc("/api/cases/:id/quotations", s.handlePostQuotation, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleAdmin, types.RoleFounder, types.RoleOps))

			r.HandleFunc("/api/audit-logs", s.handleListAuditLogs, http.MethodGet)
			r.HandleFunc("/api/audit-logs/export", s.handleExportAuditLogs, http.MethodGet)
			r.HandleFunc("/api/audit-logs/stats", s.handleAuditStats, http.MethodGet)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleAdmin, types.RoleFounder))

			r.HandleFunc("/api/careers/applications", s.handleListApplications, http.MethodGet)
			r.HandleFunc("/api/careers/applications/:id", s.handleGetApplication, http.MethodGet)
			r.HandleFunc("/api/careers/applications/:id", s.handlePatchApplication, http.MethodPatch)
		})
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Service) handleListNBFCs(w http.ResponseWriter, r *http.Request) {
	nbfcs, err := s.nbfcs.ActiveNBFCs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nbfcs)
}

// newDecoder builds the query/form decoder. Times accept RFC 3339 or a bare date.
func newDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		value := strings.TrimSpace(vals[0])
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t, nil
		}
		t, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return nil, fmt.Errorf("%q is not an RFC 3339 timestamp or YYYY-MM-DD date", value)
		}
		return t, nil
	}, time.Time{})
	return d
}
