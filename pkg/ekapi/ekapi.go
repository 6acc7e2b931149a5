// Package ekapi provides a client for the Electric Kiwi API.
//
// Using this package typically involves creating a Client with an
// authenticated http.Client (e.g. built from an oauth2 token source):
//
//	client := ekapi.New(httpClient)
//	if err := client.ActiveSession(ctx); err != nil { ... }
//	balance, err := client.GetAccountBalance(ctx)
//
// ActiveSession must be called before any of the other calls: it determines
// the customer number and connection id the other endpoints are keyed on.
package ekapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const (
	// ServerURL is the base URL of the Electric Kiwi API.
	ServerURL = "https://api.electrickiwi.co.nz"

	// AuthURL and TokenURL are the provider's OAuth2 endpoints.
	AuthURL  = "https://welcome.electrickiwi.co.nz/oauth/authorize"
	TokenURL = "https://welcome.electrickiwi.co.nz/oauth/token"

	// Scopes are the OAuth2 scopes the client needs.
	Scopes = "read_connection_detail read_billing_frequency read_account_running_balance read_consumption_summary read_consumption_averages read_hop_intervals_config read_hop_connection save_hop_connection read_session"
)

// Client calls the Electric Kiwi API on behalf of a single customer. The
// provided http.Client is responsible for authentication; Client maps
// rejected credentials to AuthError and any other failed call to APIError.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string

	customerNumber int
	connectionID   int
}

// New returns a Client using the provided (authenticated) http.Client.
func New(httpClient *http.Client) *Client {
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    ServerURL,
	}
}

// ActiveSession retrieves the customer's session and records the customer
// number and connection id used by the other calls.
func (c *Client) ActiveSession(ctx context.Context) error {
	var session Session
	if err := c.call(ctx, http.MethodGet, "/session/", nil, &session); err != nil {
		return err
	}
	c.customerNumber = session.CustomerNumber
	c.connectionID = session.ConnectionID
	return nil
}

// GetAccountBalance returns the account's running balance.
func (c *Client) GetAccountBalance(ctx context.Context) (AccountBalance, error) {
	var balance AccountBalance
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/account/%d/running_balance/%d/", c.customerNumber, c.connectionID), nil, &balance)
	return balance, err
}

// GetHopIntervals returns the full catalog of hour of power intervals,
// including inactive ones.
func (c *Client) GetHopIntervals(ctx context.Context) (HopIntervals, error) {
	var config hopIntervalsConfig
	err := c.call(ctx, http.MethodGet, "/hop/", nil, &config)
	return config.Intervals, err
}

// GetHop returns the hour of power currently selected for the connection.
func (c *Client) GetHop(ctx context.Context) (Hop, error) {
	var hop Hop
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/hop/%d/%d/", c.customerNumber, c.connectionID), nil, &hop)
	return hop, err
}

// PostHop submits a new hour of power selection and returns the selection as
// confirmed by the API.
func (c *Client) PostHop(ctx context.Context, interval int) (Hop, error) {
	var hop Hop
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/hop/%d/%d/", c.customerNumber, c.connectionID), hopSelection{Start: interval}, &hop)
	return hop, err
}

type hopSelection struct {
	Start int `json:"start"`
}

func (c *Client) call(ctx context.Context, method, path string, request, response any) error {
	var body io.Reader
	if request != nil {
		buf, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("ekapi: encode: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("ekapi: %w", err)
	}
	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return &AuthError{StatusCode: retrieveErr.Response.StatusCode}
		}
		return fmt.Errorf("ekapi: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		message, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(message))}
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("ekapi: decode: %w", err)
	}
	if response != nil {
		if err = json.Unmarshal(envelope.Data, response); err != nil {
			return fmt.Errorf("ekapi: decode: %w", err)
		}
	}
	return nil
}
