// Package feed provides a client for the French government "Prix des
// carburants" open-data feed and decodes it into the map core's station
// model.
package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carbumap/carbumap/pkg/mapview"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultFeedURL serves a ZIP archive holding the instantaneous price XML.
	DefaultFeedURL = "https://donnees.roulez-eco.fr/opendata/instantane"

	DefaultTimeout = 30 * time.Second
)

// Client downloads and decodes the instantaneous price feed.
type Client struct {
	feedURL    string
	httpClient *http.Client
}

// NewClient creates a feed client with default settings.
func NewClient() *Client {
	return NewClientWithURL(DefaultFeedURL)
}

// NewClientWithURL creates a feed client for a non-default feed location,
// used for mirrors and tests.
func NewClientWithURL(feedURL string) *Client {
	return &Client{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// FetchStations downloads the feed archive and returns the decoded stations.
// Points of sale with unparseable or out-of-range coordinates are skipped.
func (c *Client) FetchStations(ctx context.Context) ([]mapview.Station, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	return decodeArchive(body)
}

// decodeArchive extracts the price XML from the feed's ZIP wrapper.
func decodeArchive(data []byte) ([]mapview.Station, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error opening feed archive: %w", err)
	}

	for _, file := range archive.File {
		if !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening %s: %w", file.Name, err)
		}
		stations, err := ParseStations(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		return stations, nil
	}

	return nil, errors.New("no XML file in feed archive")
}

// ParseStations decodes the PrixCarburants XML document. The feed declares
// ISO-8859-1, so the decoder carries a charset reader.
func ParseStations(r io.Reader) ([]mapview.Station, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "iso-8859-1", "latin1":
			return charmap.ISO8859_1.NewDecoder().Reader(input), nil
		default:
			return input, nil
		}
	}

	var list PriceList
	if err := decoder.Decode(&list); err != nil {
		return nil, fmt.Errorf("error decoding feed XML: %w", err)
	}

	stations := make([]mapview.Station, 0, len(list.PointsOfSale))
	for i := range list.PointsOfSale {
		station, err := list.PointsOfSale[i].ToStation()
		if err != nil {
			continue
		}
		stations = append(stations, station)
	}

	return stations, nil
}
