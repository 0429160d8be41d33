package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapscout/internal/adapter/provider"
	"mapscout/internal/domain/place"
)

const foursquareFixture = `{
	"results": [
		{
			"fsq_id": "abc123",
			"name": "Strike Bowling",
			"categories": [{"name": "Bowling Alley"}],
			"geocodes": {"main": {"latitude": 52.37, "longitude": 4.89}},
			"location": {
				"address": "Damrak 1",
				"locality": "Amsterdam",
				"country": "NL"
			},
			"price": 2,
			"hours": {
				"open_now": true,
				"display": "Open until 11:00 PM"
			}
		},
		{
			"fsq_id": "",
			"name": "Ghost entry",
			"geocodes": {"main": {"latitude": 52.0, "longitude": 4.0}}
		}
	]
}`

func TestFoursquareFetchPlaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "52.300000,4.800000", r.URL.Query().Get("sw"))
		assert.Equal(t, "52.400000,4.900000", r.URL.Query().Get("ne"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(foursquareFixture))
	}))
	defer server.Close()

	source := provider.NewFoursquareSource(provider.FoursquareConfig{
		APIKey: "test-key",
		URL:    server.URL,
	})
	places, err := source.FetchPlaces(context.Background(), testBounds)

	require.NoError(t, err)
	// The entry without an ID is dropped
	require.Len(t, places, 1)

	p := places[0]
	assert.Equal(t, "fsq-abc123", p.ID)
	assert.Equal(t, "Strike Bowling", p.Name)
	assert.Equal(t, place.ProviderFoursquare, p.Provider)
	assert.Equal(t, []string{"bowling_alley"}, p.Categories)
	assert.Equal(t, "Amsterdam", p.Locality)
	require.NotNil(t, p.PriceLevel)
	assert.Equal(t, 2, *p.PriceLevel)

	// Hours ride along for the availability resolver
	hours, ok := p.Metadata["hours"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, hours["open_now"])
}
