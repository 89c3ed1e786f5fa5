package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/access"
	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/logger"
	"github.com/relabs-tech/tablegate/core/schema"
)

// Gateway is the table gateway over the targets G3 and CIMS
type Gateway struct {
	provider       csql.Provider
	router         *mux.Router
	resolver       *Resolver
	priority       []csql.Target
	permits        []access.Permit
	notifier       core.Notifier
	validator      *schema.Validator
	requestTimeout time.Duration
}

// Builder is a builder helper for the Gateway
type Builder struct {
	// Provider hands out connections to the targets. This is mandatory.
	Provider csql.Provider
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Priority is the resolution order of the targets. Defaults to G3, then CIMS.
	Priority []csql.Target
	// Permits grant operations to roles. Admin may do everything unless listed here.
	// Defaults to DefaultPermits.
	Permits []access.Permit
	// Notifier receives an event for every successful mutation. This is optional.
	Notifier core.Notifier
	// TableAllowList restricts the tables which can be addressed. Empty means all tables.
	TableAllowList []string
	// CatalogCacheTTL caches table resolutions. Zero resolves on every request.
	CatalogCacheTTL time.Duration
	// RequestTimeout bounds the database work of a request. Zero means no timeout.
	RequestTimeout time.Duration
}

// DefaultPermits lets every authenticated caller search and join. Mutations are
// left to the admin role.
var DefaultPermits = []access.Permit{
	{
		Role:       "everybody",
		Operations: []core.Operation{core.OperationSearch, core.OperationJoin},
	},
}

// New realizes the gateway and adds its routes to the router
func New(gb *Builder) *Gateway {
	if gb.Provider == nil {
		panic("Provider is missing")
	}
	if gb.Router == nil {
		panic("Router is missing")
	}

	priority := gb.Priority
	if len(priority) == 0 {
		priority = []csql.Target{csql.TargetG3, csql.TargetCIMS}
	}
	permits := gb.Permits
	if permits == nil {
		permits = DefaultPermits
	}

	g := &Gateway{
		provider: gb.Provider,
		router:   gb.Router,
		resolver: NewResolver(gb.Provider, priority, ResolverOptions{
			AllowList: gb.TableAllowList,
			CacheTTL:  gb.CatalogCacheTTL,
		}),
		priority:       priority,
		permits:        permits,
		notifier:       gb.Notifier,
		validator:      newRequestValidator(),
		requestTimeout: gb.RequestTimeout,
	}

	g.handleRecovery()
	g.handleCORS()
	g.handleCompression()
	access.HandleAuthorizationRoute(g.router)
	g.handleRoutes()
	return g
}

// Resolver returns the table resolver of the gateway
func (g *Gateway) Resolver() *Resolver {
	return g.resolver
}

func (g *Gateway) handleRoutes() {
	rlog := logger.Default()
	rlog.Debugln("gateway: HandleRoutes")

	g.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"message": "Welcome to the tablegate API"})
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /health GET")
	g.router.HandleFunc("/health", g.handleHealth).Methods(http.MethodOptions, http.MethodGet)

	// the fixed join must be registered before the generic search
	rlog.Debugln("  handle route: /search/teaching_staff_info POST")
	g.router.HandleFunc("/search/teaching_staff_info", g.handleTeachingStaff).Methods(http.MethodOptions, http.MethodPost)

	rlog.Debugln("  handle route: /insert/{table} POST")
	g.router.HandleFunc("/insert/{table}", g.handleInsert).Methods(http.MethodOptions, http.MethodPost)
	rlog.Debugln("  handle route: /update/{table} POST")
	g.router.HandleFunc("/update/{table}", g.handleUpdate).Methods(http.MethodOptions, http.MethodPost)
	rlog.Debugln("  handle route: /delete/{table} POST")
	g.router.HandleFunc("/delete/{table}", g.handleDelete).Methods(http.MethodOptions, http.MethodPost)
	rlog.Debugln("  handle route: /search/{table} POST")
	g.router.HandleFunc("/search/{table}", g.handleSearch).Methods(http.MethodOptions, http.MethodPost)
}

// authorize checks that the caller is authenticated and permitted to run the operation
func (g *Gateway) authorize(ctx context.Context, auth *access.Authorization, operation core.Operation) error {
	if auth == nil {
		return &Error{Kind: KindUnauthorized, Message: "Authentication required"}
	}
	if !auth.IsAuthorized(operation, g.permits) {
		logger.FromContext(ctx).Warnf("role %s is not permitted to %s", auth.Role, operation)
		if operation.Mutates() {
			return &Error{Kind: KindForbidden, Message: "Admin privileges required"}
		}
		return &Error{Kind: KindForbidden, Message: "Insufficient privileges"}
	}
	return nil
}

// requestContext applies the request timeout, if any
func (g *Gateway) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if g.requestTimeout > 0 {
		return context.WithTimeout(r.Context(), g.requestTimeout)
	}
	return context.WithCancel(r.Context())
}

// beginRequest logs the request and checks the caller's permission
func (g *Gateway) beginRequest(r *http.Request, operation core.Operation) (*access.Authorization, error) {
	auth := access.AuthorizationFromContext(r.Context())
	rlog := logger.FromContext(r.Context())
	if auth != nil {
		rlog = rlog.WithField("role", auth.Role)
	}
	rlog.Infoln("called route for", r.URL, r.Method, "operation", operation)
	return auth, g.authorize(r.Context(), auth, operation)
}
