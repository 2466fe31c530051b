package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const geocodeTimeout = 2 * time.Second

// Geocoder resolves coordinates to a human-readable place label.
type Geocoder interface {
	ReverseName(ctx context.Context, lat, lng float64) (string, error)
}

// NominatimClient is a reverse-geocoding client for a Nominatim-compatible
// endpoint. Lookups are time-bounded; callers treat failures as "no label".
type NominatimClient struct {
	baseURL string
	client  *http.Client
}

func NewNominatimClient(baseURL string) *NominatimClient {
	return &NominatimClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: geocodeTimeout},
	}
}

type nominatimResponse struct {
	Name    string `json:"name"`
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Country string `json:"country"`
	} `json:"address"`
}

func (g *NominatimClient) ReverseName(ctx context.Context, lat, lng float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lng))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	place := body.Address.City
	if place == "" {
		place = body.Address.Town
	}
	if place == "" {
		place = body.Address.Village
	}
	if place == "" {
		place = body.Name
	}
	if place == "" {
		return "", nil
	}
	if body.Address.Country != "" {
		return place + ", " + body.Address.Country, nil
	}
	return place, nil
}
