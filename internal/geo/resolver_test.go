package geo

import (
	"net"
	"os"
	"testing"

	"github.com/davecgh/go-spew/spew"
	geoip2 "github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	lookups int
	closed  bool
}

func (f *fakeReader) City(ip net.IP) (*geoip2.City, error) {
	f.lookups++
	record := new(geoip2.City)
	record.Country.Names = map[string]string{"en": "United States"}
	record.City.Names = map[string]string{"en": "Boston"}
	record.Location.Latitude = 42.36
	record.Location.Longitude = -71.06
	return record, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func Test_GeoLiteResolver(t *testing.T) {
	assert := assert.New(t)
	reader := new(fakeReader)
	resolver, err := newGeoLiteResolver(reader, 0)
	require.NoError(t, err)

	entry, err := resolver.Resolve("70.20.56.211")
	require.NoError(t, err)
	assert.Equal("United States", entry.Country)
	assert.Equal("Boston", entry.City)
	assert.Empty(entry.Region)
	assert.Equal(42.36, entry.Latitude)

	_, err = resolver.Resolve("70.20.56.211")
	require.NoError(t, err)
	assert.Equal(1, reader.lookups, "second lookup should be cached")

	for _, ip := range []string{"127.0.0.1", "::1", "10.1.2.3", "192.168.0.10", "not-an-ip", ""} {
		_, err = resolver.Resolve(ip)
		assert.Equal(ErrUnroutable, err, ip)
	}
	assert.Equal(1, reader.lookups)

	resolver.Close()
	assert.True(reader.closed)
}

func Test_GeoLiteResolver_Database(t *testing.T) {
	path := os.Getenv("CORKBOARD_GEOIP_DATABASE")
	if path == "" {
		t.Skip("CORKBOARD_GEOIP_DATABASE not set")
	}
	resolver, err := NewGeoLiteResolver(path, 16)
	require.NoError(t, err)
	defer resolver.Close()

	entry, err := resolver.Resolve("70.20.56.211")
	require.NoError(t, err)
	require.Equal(t, "United States", entry.Country)
	t.Log(spew.Sdump(entry))
}
