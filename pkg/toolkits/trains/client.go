package trains

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/txn2/mcp-travel-desk/pkg/emt"
)

// pnrKey encrypts PNR numbers for the railways API: AES-128-CBC, PKCS7
// padding, IV equal to the key.
const pnrKey = "8080808080808080"

// clientTimeout bounds each railways round trip.
const clientTimeout = 30 * time.Second

var pnrSeparatorRe = regexp.MustCompile(`[\s\-]`)

// encryptPNR strips separators from a PNR number and encrypts it for the
// status endpoint.
func encryptPNR(pnr string) (string, error) {
	cleaned := pnrSeparatorRe.ReplaceAllString(pnr, "")

	block, err := aes.NewCipher([]byte(pnrKey))
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	data := []byte(cleaned)
	padLen := aes.BlockSize - len(data)%aes.BlockSize
	data = append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, []byte(pnrKey)).CryptBlocks(out, data)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Client talks to the vendor's railways APIs. These endpoints are stateless;
// one Client serves all callers.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a railways client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg.applyDefaults(),
		http: &http.Client{Timeout: clientTimeout},
	}
}

// Close releases the transport's idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// PNRStatus checks the status of an encrypted PNR number.
func (c *Client) PNRStatus(ctx context.Context, encryptedPNR string) (emt.Document, error) {
	body, err := c.post(ctx, c.cfg.RailwaysURL+"/Train/PnrchkStatus", map[string]any{
		"pnrNumber": encryptedPNR,
	})
	if err != nil {
		return emt.Document{}, err
	}
	return emt.ParseDocument(body), nil
}

// ScheduleEnquiry fetches the stop list for a train between two stations.
func (c *Client) ScheduleEnquiry(ctx context.Context, trainNo, fromStation, toStation string) (emt.Document, error) {
	body, err := c.post(ctx, c.cfg.RailwaysURL+"/Train/TrainScheduleEnquiry", map[string]any{
		"trainNo":     trainNo,
		"stationFrom": fromStation,
		"stationTo":   toStation,
	})
	if err != nil {
		return emt.Document{}, err
	}
	return emt.ParseDocument(body), nil
}

// TrainDetails resolves a train number to its name and terminal stations via
// the autosuggest API. The endpoint returns a JSON array; the first match
// wins. A miss returns an empty document, not an error.
func (c *Client) TrainDetails(ctx context.Context, trainNo string) (emt.Document, error) {
	body, err := c.post(ctx, c.cfg.AutosuggestURL, map[string]any{
		"request": trainNo,
	})
	if err != nil {
		return emt.Document{}, err
	}

	var matches []map[string]any
	if err := json.Unmarshal(body, &matches); err != nil || len(matches) == 0 {
		return emt.Document{}, nil
	}
	return emt.DocumentFrom(matches[0]), nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return body, nil
}
