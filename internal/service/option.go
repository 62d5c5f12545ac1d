package service

import (
	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/geo"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/micro/go-micro/v2/broker"
)

// OptionDB set a DB connection option.
func OptionDB(db db.DB) func(*Service) error {
	return func(svc *Service) error {
		svc.db = db
		return nil
	}
}

// OptionSettings sets the resolved configuration.
func OptionSettings(settings *util.Settings) func(*Service) error {
	return func(svc *Service) error {
		svc.settings = settings
		return nil
	}
}

// OptionTokens sets the token service used to issue and rotate credentials.
func OptionTokens(tokens *token.Service) func(*Service) error {
	return func(svc *Service) error {
		svc.tokens = tokens
		return nil
	}
}

// OptionGeoResolver sets a geo resolver.
func OptionGeoResolver(geo geo.Resolver) func(*Service) error {
	return func(svc *Service) error {
		svc.geo = geo
		return nil
	}
}

// OptionParams sets a key,value option. Multiple can be set.
func OptionParams(params map[string]string) func(*Service) error {
	return func(svc *Service) error {
		svc.params = params
		return nil
	}
}

// OptionMessageBroker sets a broker client option.
func OptionMessageBroker(broker broker.Broker) func(*Service) error {
	return func(svc *Service) error {
		svc.broker = broker
		return nil
	}
}
