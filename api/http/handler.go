package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/geo"
	"github.com/corkboard-io/corkboard/internal/service"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/go-chi/chi"
	"github.com/micro/go-micro/v2/broker"
	log "github.com/sirupsen/logrus"
)

// Handler is a base http-handling object.
type Handler struct {
	name               string
	router             *chi.Mux
	server             *http.Server
	db                 db.DB
	settings           *util.Settings
	geo                geo.Resolver
	broker             broker.Broker
	ipAddress          string
	httpPort           int
	tlsCertificateFile string
	tlsPrivateKeyFile  string
	options            map[string]string
}

// OptionDB applies a db connection option.
func OptionDB(db db.DB) func(*Handler) error {
	return func(handler *Handler) error {
		handler.db = db
		return nil
	}
}

// OptionSettings applies the resolved configuration.
func OptionSettings(settings *util.Settings) func(*Handler) error {
	return func(handler *Handler) error {
		handler.settings = settings
		return nil
	}
}

// OptionIPAddress applies a IP address option.
func OptionIPAddress(ipAddress string) func(*Handler) error {
	return func(handler *Handler) error {
		handler.ipAddress = ipAddress
		return nil
	}
}

// OptionHTTPPort applies a TCP port option, used by the http handler.
func OptionHTTPPort(port int) func(*Handler) error {
	return func(handler *Handler) error {
		handler.httpPort = port
		return nil
	}
}

// OptionGeoResolver applies a geo resolver option.
func OptionGeoResolver(geo geo.Resolver) func(*Handler) error {
	return func(handler *Handler) error {
		handler.geo = geo
		return nil
	}
}

// OptionMessageBroker applies a message broker option.
func OptionMessageBroker(broker broker.Broker) func(*Handler) error {
	return func(handler *Handler) error {
		handler.broker = broker
		return nil
	}
}

// OptionTLS applies TLS parameters, used by the http handler.
func OptionTLS(certFile, keyFile string) func(*Handler) error {
	return func(handler *Handler) error {
		if certFile == "" && keyFile == "" {
			return nil
		}
		handler.tlsCertificateFile = certFile
		handler.tlsPrivateKeyFile = keyFile
		return nil
	}
}

// OptionParams applies a name,value option, more than one can be added.
func OptionParams(key, value string) func(*Handler) error {
	return func(handler *Handler) error {
		if handler.options == nil {
			handler.options = make(map[string]string)
		}
		handler.options[key] = value
		return nil
	}
}

func (handler *Handler) serviceOptions() []func(*service.Service) error {
	return []func(*service.Service) error{
		service.OptionDB(handler.db),
		service.OptionSettings(handler.settings),
		service.OptionGeoResolver(handler.geo),
		service.OptionMessageBroker(handler.broker),
		service.OptionParams(handler.options),
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(200)
	_, _ = w.Write([]byte("ok"))
}

// Start commences http handling. It returns http.ErrServerClosed after Shutdown.
func (handler *Handler) Start() error {
	address := fmt.Sprintf("%s:%d", handler.ipAddress, handler.httpPort)
	handler.server = &http.Server{Addr: address, Handler: handler.router}
	if handler.tlsCertificateFile == "" {
		log.WithFields(log.Fields{
			"service": handler.name,
			"port":    handler.httpPort,
		}).Info("Starting http handler")
		return handler.server.ListenAndServe()
	}
	log.WithFields(log.Fields{
		"service": handler.name,
		"port":    handler.httpPort,
	}).Info("Starting https handler")
	return handler.server.ListenAndServeTLS(handler.tlsCertificateFile, handler.tlsPrivateKeyFile)
}

// Shutdown stops accepting connections and waits for active requests.
func (handler *Handler) Shutdown(ctx context.Context) error {
	if handler.server == nil {
		return nil
	}
	return handler.server.Shutdown(ctx)
}

// ServeHTTP makes the handler usable as a http.Handler.
func (handler *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler.router.ServeHTTP(w, r)
}

// ClientContext is http middleware that adds a request's ip address and
// user agent to the context.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ipAddr := util.ClientIP(r)
		ctx := context.WithValue(r.Context(), service.ContextIPAddr, ipAddr)
		ctx = context.WithValue(ctx, service.ContextUserAgent, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
