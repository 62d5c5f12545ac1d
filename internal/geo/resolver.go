package geo

import (
	"time"

	"github.com/pkg/errors"
)

// ErrUnroutable is returned for loopback, private and unparsable addresses, which
// have no location.
var ErrUnroutable = errors.New("address has no geographic location")

// Resolver maps IP addresses to geographic locations.
type Resolver interface {
	Resolve(string) (*Location, error)
	Close()
}

// Location is the geographic data derived from an ip address.
type Location struct {
	IPAddress string    `json:"ipAddress"`
	Country   string    `json:"country"`
	Region    string    `json:"region"`
	City      string    `json:"city"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}
