package geo

import (
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"
	geoip2 "github.com/oschwald/geoip2-golang"
	"github.com/pkg/errors"
)

// A Resolver backed by a MaxMind GeoLite2 City database.
// See https://dev.maxmind.com/geoip/geoip2/geolite2/

// DefaultCacheSize is the number of resolved addresses kept in memory.
const DefaultCacheSize = 1024

type cityReader interface {
	City(net.IP) (*geoip2.City, error)
	Close() error
}

type geoLiteResolver struct {
	db    cityReader
	cache *lru.Cache
}

// NewGeoLiteResolver opens the database at path.
func NewGeoLiteResolver(path string, cacheSize int) (Resolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open filename %s", path)
	}
	return newGeoLiteResolver(db, cacheSize)
}

func newGeoLiteResolver(db cityReader, cacheSize int) (*geoLiteResolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating geo cache")
	}
	return &geoLiteResolver{db: db, cache: cache}, nil
}

func (r *geoLiteResolver) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

func unroutable(ip net.IP) bool {
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return true
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

var privateBlocks = func() []*net.IPNet {
	var blocks []*net.IPNet
	for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7"} {
		_, block, _ := net.ParseCIDR(cidr)
		blocks = append(blocks, block)
	}
	return blocks
}()

func (r *geoLiteResolver) Resolve(ipAddress string) (*Location, error) {
	ip := net.ParseIP(ipAddress)
	if unroutable(ip) {
		return nil, ErrUnroutable
	}
	if cached, ok := r.cache.Get(ip.String()); ok {
		return cached.(*Location), nil
	}
	record, err := r.db.City(ip)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up %s", ipAddress)
	}

	entry := &Location{
		IPAddress: ip.String(),
		Timestamp: time.Now(),
	}
	if country, ok := record.Country.Names["en"]; ok {
		entry.Country = country
	}
	if len(record.Subdivisions) > 0 {
		if region, ok := record.Subdivisions[0].Names["en"]; ok {
			entry.Region = region
		}
	}
	if city, ok := record.City.Names["en"]; ok {
		entry.City = city
	}
	entry.Latitude = record.Location.Latitude
	entry.Longitude = record.Location.Longitude

	r.cache.Add(ip.String(), entry)
	return entry, nil
}
