package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"

	"github.com/relabs-tech/tablegate/core"
	"github.com/relabs-tech/tablegate/core/access"
	"github.com/relabs-tech/tablegate/core/audit"
	"github.com/relabs-tech/tablegate/core/csql"
	"github.com/relabs-tech/tablegate/core/gateway"
	"github.com/relabs-tech/tablegate/core/logger"
)

// Service holds the configuration for this service
//
// use G3_DSN="user:password@tcp(localhost:3306)/cs432g3" and CIMS_DSN="user:password@tcp(localhost:3306)/cs432cims"
type Service struct {
	G3Driver        string        `env:"G3_DRIVER,default=mysql" description:"the database driver of G3: mysql, postgres or sqlite"`
	G3DSN           string        `env:"G3_DSN,required" description:"the connection string for the G3 database"`
	CIMSDriver      string        `env:"CIMS_DRIVER,default=mysql" description:"the database driver of CIMS: mysql, postgres or sqlite"`
	CIMSDSN         string        `env:"CIMS_DSN,required" description:"the connection string for the CIMS database"`
	JwtSecret       string        `env:"JWT_SECRET,required" description:"the HMAC secret of bearer tokens"`
	JwtIssuer       string        `env:"JWT_ISSUER" description:"the required issuer of bearer tokens, empty accepts any issuer"`
	BackdoorToken   string        `env:"BACKDOOR_TOKEN" description:"a static admin token for development, never set this in production"`
	ListenAddr      string        `env:"LISTEN_ADDR,default=:5000" description:"the address to listen on"`
	LogLevel        string        `env:"LOG_LEVEL,default=info" description:"the log level: trace, debug, info, warn or error"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=0s" description:"bounds the database work of a request, 0 means no timeout"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL,default=0s" description:"caches table resolutions, 0 resolves on every request"`
	TableAllowList  string        `env:"TABLE_ALLOWLIST" description:"comma separated tables which can be addressed, empty allows all"`
	KafkaBrokers    string        `env:"KAFKA_BROKERS" description:"comma separated kafka brokers for mutation events"`
	KafkaTopic      string        `env:"KAFKA_TOPIC,default=tablegate_mutations" description:"the kafka topic for mutation events"`
}

// splitList splits a comma separated list, dropping empty entries
func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// newNotifier returns the notifier and a function which flushes it
func (s *Service) newNotifier() (core.Notifier, func(), error) {
	brokers := splitList(s.KafkaBrokers)
	if len(brokers) == 0 {
		return audit.LogNotifier{}, func() {}, nil
	}
	kafkaNotifier, err := audit.NewKafkaNotifier(brokers, s.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := kafkaNotifier.Close(); err != nil {
			logger.Default().WithError(err).Errorln("cannot close kafka notifier")
		}
	}
	return audit.MultiNotifier{audit.LogNotifier{}, kafkaNotifier}, closer, nil
}

// newRouter installs the middleware and the gateway
func (s *Service) newRouter(provider csql.Provider, notifier core.Notifier) *mux.Router {
	router := mux.NewRouter()
	logger.AddRequestID(router)

	if s.BackdoorToken != "" {
		logger.Default().Warnln("backdoor token is enabled")
		router.Use(access.NewBackdoorMiddleware(&access.BackdoorMiddlewareBuilder{
			Backdoors: map[string]access.Authorization{
				s.BackdoorToken: {Identity: "backdoor", Role: access.RoleAdmin},
			},
		}))
	}
	router.Use(access.NewJwtMiddleware(&access.JwtMiddlewareBuilder{
		Secret: []byte(s.JwtSecret),
		Issuer: s.JwtIssuer,
	}))

	gateway.New(&gateway.Builder{
		Provider:        provider,
		Router:          router,
		Notifier:        notifier,
		TableAllowList:  splitList(s.TableAllowList),
		CatalogCacheTTL: s.CatalogCacheTTL,
		RequestTimeout:  s.RequestTimeout,
	})
	return router
}

func main() {
	service := &Service{}
	if err := envdecode.StrictDecode(service); err != nil {
		logger.Default().Fatalf("invalid configuration: %v", err)
	}
	logger.InitLogger(logger.ParseLevel(service.LogLevel))
	rlog := logger.Default()

	g3, err := csql.Open(csql.TargetG3, service.G3Driver, service.G3DSN)
	if err != nil {
		rlog.Fatalln(err)
	}
	cims, err := csql.Open(csql.TargetCIMS, service.CIMSDriver, service.CIMSDSN)
	if err != nil {
		rlog.Fatalln(err)
	}
	pool := csql.NewPool(g3, cims)
	defer pool.Close()

	for target, err := range pool.Ping(context.Background()) {
		if err != nil {
			rlog.WithError(err).Warnf("target %s is not reachable yet", target)
		}
	}

	notifier, flush, err := service.newNotifier()
	if err != nil {
		rlog.Fatalln(err)
	}
	defer flush()

	srv := &http.Server{
		Addr:              service.ListenAddr,
		Handler:           service.newRouter(pool, notifier),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			rlog.WithError(err).Errorln("shutdown failed")
		}
	}()

	rlog.Infoln("listen on", service.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		rlog.WithError(err).Errorln("server failed")
	}
}
