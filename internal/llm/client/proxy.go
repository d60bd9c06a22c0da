package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"

	"contextimage/internal/host"
	"contextimage/internal/logger"
	"contextimage/internal/models"
)

// GeneratePath is the backend proxy endpoint for chat-completion generation.
const GeneratePath = "/api/backends/chat-completions/generate"

// ProxyClient posts generation requests to the chat application's backend,
// which relays them to the selected provider.
type ProxyClient struct {
	baseURL    string
	headers    host.HeaderSource
	httpClient *http.Client
}

// NewProxyClient creates a client for the backend at baseURL. A nil
// httpClient uses http.DefaultClient, which enforces no timeout.
func NewProxyClient(baseURL string, headers host.HeaderSource, httpClient *http.Client) *ProxyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ProxyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers:    headers,
		httpClient: httpClient,
	}
}

func (c *ProxyClient) Generate(ctx context.Context, req Request) (models.GenerationResult, error) {
	log := logger.FromContext(ctx)

	body, err := sonic.Marshal(NewPayload(req))
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GeneratePath, bytes.NewReader(body))
	if err != nil {
		return models.GenerationResult{}, NewTransportError(0, err.Error(), err)
	}
	if c.headers != nil {
		for key, values := range c.headers.RequestHeaders() {
			for _, v := range values {
				httpReq.Header.Add(key, v)
			}
		}
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	log.WithFields(logrus.Fields{
		"provider": req.Provider,
		"model":    req.Model,
		"parts":    countParts(req.Messages),
	}).Info("generating image")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return models.GenerationResult{}, NewTransportError(0, err.Error(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.GenerationResult{}, NewTransportError(resp.StatusCode, err.Error(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Errorf("API error response: %s", respBody)
		return models.GenerationResult{}, NewTransportError(resp.StatusCode, ErrorMessageFromBody(respBody), nil)
	}

	parsed := ParseResponse(respBody)
	if parsed.Kind == ResponseText {
		log.WithField("text", parsed.Text).Info("text response received")
	}
	return parsed.Resolve(resp.StatusCode)
}

func countParts(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n
}
