package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seivahq/painel/internal/routing"
	"github.com/seivahq/painel/modules/proposal/domain/ports"
	"github.com/seivahq/painel/modules/proposal/infrastructure/autentique"
	"github.com/seivahq/painel/modules/proposal/infrastructure/persistence"
	"github.com/seivahq/painel/modules/proposal/presentation/controllers"
	"github.com/seivahq/painel/modules/proposal/services"
)

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

type HandlerOptions struct {
	TenancyResolver TenancyResolver
	ProposalStore   ports.ProposalStore
	PartyStore      ports.PartyStore
	CatalogStore    ports.CatalogStore
	TimelineStore   ports.TimelineStore
	Gateway         ports.SigningGateway
	Branding        controllers.BrandingStorage
	Logger          *slog.Logger
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	allowlistPath := os.Getenv("ALLOWLIST_PATH")
	if allowlistPath == "" {
		p, err := defaultAllowlistPath()
		if err != nil {
			return nil, err
		}
		allowlistPath = p
	}

	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}

	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = newLoggerFromEnv()
	}

	proposalStore := opts.ProposalStore
	partyStore := opts.PartyStore
	catalogStore := opts.CatalogStore
	timelineStore := opts.TimelineStore
	tenancyResolver := opts.TenancyResolver

	var pgPool *pgxpool.Pool
	if proposalStore == nil {
		dsn := dbDSNFromEnv()
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			return nil, err
		}
		pgPool = pool
		proposalStore = persistence.NewProposalPGStore(pgPool)
	}

	if partyStore == nil {
		if pgPool == nil {
			partyStore = persistence.NewPartyMemoryStore()
		} else {
			partyStore = persistence.NewPartyPGStore(pgPool)
		}
	}
	if catalogStore == nil {
		if pgPool == nil {
			catalogStore = persistence.NewCatalogMemoryStore()
		} else {
			catalogStore = persistence.NewCatalogPGStore(pgPool)
		}
	}
	if timelineStore == nil {
		if pgPool == nil {
			timelineStore = persistence.NewTimelineMemoryStore()
		} else {
			timelineStore = persistence.NewTimelinePGStore(pgPool)
		}
	}

	if tenancyResolver == nil {
		if path := os.Getenv("TENANTS_PATH"); path != "" {
			r, err := newStaticTenancyResolverFromFile(path)
			if err != nil {
				return nil, err
			}
			tenancyResolver = r
		} else if pgPool != nil {
			tenancyResolver = newTenancyDBResolver(pgPool)
		} else {
			return nil, errors.New("server: missing tenancy resolver (set HandlerOptions.TenancyResolver, TENANTS_PATH, or use default PG stores)")
		}
	}

	gateway := opts.Gateway
	if gateway == nil {
		c, err := autentique.New(os.Getenv("AUTENTIQUE_BASE_URL"), os.Getenv("AUTENTIQUE_TOKEN"))
		if err != nil {
			return nil, err
		}
		gateway = c
	}

	branding := opts.Branding
	if branding == nil {
		b, err := newS3BrandingStorageFromEnv(context.Background())
		if err != nil {
			return nil, err
		}
		branding = b
	}

	svc := services.ProposalService{
		Proposals: proposalStore,
		Parties:   partyStore,
		Timeline:  timelineStore,
		Gateway:   gateway,
		Scope:     services.ScopeResolver{Catalog: catalogStore},
		NowUTC:    func() time.Time { return time.Now().UTC() },
		Log:       log,
	}

	controller := controllers.ProposalController{
		Tenant:    currentTenant,
		Proposals: proposalStore,
		Parties:   partyStore,
		Service:   svc,
		Branding:  branding,
	}

	router := routing.NewRouter(classifier, log)

	router.Handle(routing.RouteClassOps, http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/p/api/proposal", http.HandlerFunc(controller.HandleProposalAPI))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/p/api/proposal", http.HandlerFunc(controller.HandleProposalAPI))

	guarded := withTenantResolution(classifier, tenancyResolver, router)

	return withAccessLog(log, guarded), nil
}

func MustNewHandler() http.Handler {
	h, err := NewHandler()
	if err != nil {
		panic(errors.New("server: failed to build handler: " + err.Error()))
	}
	return h
}

func defaultAllowlistPath() (string, error) {
	path := "config/routing/allowlist.yaml"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: allowlist not found")
}

// withTenantResolution resolves the tenant_slug query parameter for
// public routes and stores the tenant profile in the request context.
// Ops routes pass through untouched.
func withTenantResolution(classifier *routing.Classifier, tenants TenancyResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		rc := routing.RouteClassUI
		if classifier != nil {
			rc = classifier.Classify(path)
		}

		if rc == routing.RouteClassOps || rc == routing.RouteClassStatic {
			next.ServeHTTP(w, r)
			return
		}

		slug := strings.TrimSpace(r.URL.Query().Get("tenant_slug"))
		if slug == "" {
			routing.WriteClassError(w, r, rc, http.StatusBadRequest, "missing_params", "tenant_slug is required")
			return
		}

		t, ok, err := tenants.ResolveTenant(r.Context(), slug)
		if err != nil {
			routing.WriteClassError(w, r, rc, http.StatusInternalServerError, "tenant_resolve_error", "tenant resolve error")
			return
		}
		if !ok {
			routing.WriteClassError(w, r, rc, http.StatusNotFound, "tenant_not_found", "tenant not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(withTenant(r.Context(), t)))
	})
}
