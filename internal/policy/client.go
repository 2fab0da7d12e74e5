package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EngineAPI is the surface of the external policy engine the evaluator
// depends on. The production implementation talks to an OPA deployment over
// its data API; tests substitute fakes to simulate outages.
type EngineAPI interface {
	Decision(ctx context.Context, input DecisionInput) (*EngineDecision, error)
	Health(ctx context.Context) (*EngineHealth, error)
}

type DecisionInput struct {
	Role     string `json:"role"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type EngineDecision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

type EngineHealth struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// EngineClient queries OPA's REST data API. Every call carries the bounded
// timeout so a slow engine cannot stall request handling.
type EngineClient struct {
	baseURL      string
	decisionPath string
	client       *http.Client
}

var _ EngineAPI = (*EngineClient)(nil)

func NewEngineClient(baseURL, decisionPath string, timeout time.Duration) *EngineClient {
	return &EngineClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		decisionPath: strings.Trim(decisionPath, "/"),
		client:       &http.Client{Timeout: timeout},
	}
}

func (c *EngineClient) Decision(ctx context.Context, input DecisionInput) (*EngineDecision, error) {
	body, err := json.Marshal(map[string]interface{}{"input": input})
	if err != nil {
		return nil, fmt.Errorf("encoding decision input: %w", err)
	}

	url := fmt.Sprintf("%s/v1/data/%s", c.baseURL, c.decisionPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("policy engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("policy engine returned status %d", resp.StatusCode)
	}

	var payload struct {
		Result *EngineDecision `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding policy engine response: %w", err)
	}
	if payload.Result == nil {
		// undefined decision: the policy does not cover this input
		return nil, fmt.Errorf("policy engine returned no decision for %s", c.decisionPath)
	}

	return payload.Result, nil
}

func (c *EngineClient) Health(ctx context.Context) (*EngineHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("policy engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &EngineHealth{Status: "unhealthy"}, nil
	}

	health := &EngineHealth{Status: "healthy"}
	if version, err := c.engineVersion(ctx); err == nil {
		health.Version = version
	} else {
		zap.S().Named("policy").Debugf("could not read engine version: %v", err)
	}
	return health, nil
}

func (c *EngineClient) engineVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/data/system/version", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		Result struct {
			Version string `json:"version"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Result.Version, nil
}
