package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/geo"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/micro/go-micro/v2/broker"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Service represents a base structure for services.
type Service struct {
	name     string
	db       db.DB
	settings *util.Settings
	tokens   *token.Service
	broker   broker.Broker
	geo      geo.Resolver
	params   map[string]string
}

func (s *Service) apply(options []func(*Service) error) error {
	for _, option := range options {
		if err := option(s); err != nil {
			return err
		}
	}
	if s.db == nil {
		return errors.Errorf("%s: db member is nil", s.name)
	}
	if s.settings == nil {
		return errors.Errorf("%s: settings member is nil", s.name)
	}
	return nil
}

// ParamAuditTopicPrefix names the param that prefixes broker audit topics.
const ParamAuditTopicPrefix = "auditTopicPrefix"

func (s Service) auditTopicPrefix() string {
	if prefix := s.params[ParamAuditTopicPrefix]; prefix != "" {
		return prefix
	}
	return "corkboard"
}

// Stop closes all open handles.
func (s Service) Stop() {
	if s.db != nil {
		_ = db.CloseConnection(s.db)
	}
	if s.geo != nil {
		s.geo.Close()
	}
	if s.broker != nil {
		_ = s.broker.Disconnect()
	}
}

// Audit sends auditing data to configured endpoints.
func (s Service) Audit(ctx context.Context, group, action string, p *model.Principal, auditError error) {
	entry := &model.AuditEntry{
		Group:     group,
		Action:    action,
		CreatedAt: time.Now(),
	}
	ipAddr, ok := ctx.Value(ContextIPAddr).(string)
	if ok {
		entry.IPAddr = ipAddr
	}
	userAgent, ok := ctx.Value(ContextUserAgent).(string)
	if ok {
		entry.UserAgent = userAgent
	}
	if p != nil {
		entry.PrincipalID = p.ID
		entry.PrincipalUsername = p.Username
	}
	if entry.IPAddr != "" && s.geo != nil {
		geoEntry, err := s.geo.Resolve(entry.IPAddr)
		if err == nil {
			entry.Latitude = geoEntry.Latitude
			entry.Longitude = geoEntry.Longitude
			entry.Country = geoEntry.Country
			entry.Region = geoEntry.Region
			entry.City = geoEntry.City
		} else {
			log.WithError(err).WithField("ip_addr", entry.IPAddr).Debug("Resolving geo ip")
		}
	}
	if auditError != nil {
		entry.Anomaly = auditError.Error()
	}
	err := s.db.Create(entry).Error
	if err != nil {
		log.WithError(err).Error("Inserting audit entry")
	}

	// If a message broker is configured, send the audit event.
	if s.broker != nil {
		topic := fmt.Sprintf("%s.%s.%s", s.auditTopicPrefix(), group, action)
		body, _ := json.Marshal(entry)
		message := &broker.Message{
			Header: map[string]string{"group": group, "action": action},
			Body:   body,
		}
		err = s.broker.Publish(topic, message)
		if err != nil {
			log.WithError(err).Error("Sending audit entry through message broker")
		}
	}
}
