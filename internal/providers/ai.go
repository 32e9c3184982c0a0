package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "MarketPulse/pkg/errors"

	"golang.org/x/net/proxy"
)

// DefaultAITimeout bounds a full AI completion call.
const DefaultAITimeout = 20 * time.Second

// AIClient calls one OpenAI-compatible chat-completion endpoint. A
// provider may hold multiple credentials; the provider chain rotates
// them on transient failures.
type AIClient struct {
	name       string
	baseURL    string
	model      string
	keys       []string
	httpClient *http.Client
}

// NewAIClient creates an AI provider client. proxyURL is optional and
// supports socks5:// and http(s):// schemes.
func NewAIClient(name, baseURL, modelName string, keys []string, timeout time.Duration, proxyURL string) (*AIClient, error) {
	if timeout <= 0 {
		timeout = DefaultAITimeout
	}

	httpClient, err := newHTTPClient(proxyURL, timeout)
	if err != nil {
		return nil, err
	}

	return &AIClient{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      modelName,
		keys:       keys,
		httpClient: httpClient,
	}, nil
}

// Name returns the provider name used for breaker keying.
func (c *AIClient) Name() string {
	return c.name
}

// Keys returns the credential pool for chain-level rotation.
func (c *AIClient) Keys() []string {
	return c.keys
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one chat completion and returns the text of the first
// choice. Failures come back classified for the provider chain.
func (c *AIClient) Complete(ctx context.Context, apiKey, system, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	if system == "" {
		reqBody.Messages = reqBody.Messages[1:]
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", pkgerrors.NewPermanent(c.name, 0, err)
	}

	endpoint := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.NewPermanent(c.name, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Classify(c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pkgerrors.NewTransient(c.name, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatResponse
		_ = json.Unmarshal(body, &errResp)
		msg := errResp.Error.Message
		if msg == "" {
			msg = truncate(string(body), 200)
		}
		return "", pkgerrors.FromStatus(c.name, resp.StatusCode,
			fmt.Errorf("completion failed: %s", msg))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", pkgerrors.NewPermanent(c.name, resp.StatusCode,
			fmt.Errorf("malformed completion payload: %w", err))
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", pkgerrors.NewPermanent(c.name, resp.StatusCode,
			fmt.Errorf("completion returned no choices"))
	}

	return chatResp.Choices[0].Message.Content, nil
}

// newHTTPClient creates an HTTP client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}

		switch parsed.Scheme {
		case "socks5", "socks5h":
			dialer, err := newSOCKS5Dialer(parsed)
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}

		case "http", "https":
			transport.Proxy = func(req *http.Request) (*url.URL, error) {
				return parsed, nil
			}

		default:
			return nil, fmt.Errorf("unsupported proxy scheme: %s (supported: socks5, http, https)", parsed.Scheme)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// newSOCKS5Dialer creates a SOCKS5 proxy dialer.
func newSOCKS5Dialer(parsed *url.URL) (proxy.Dialer, error) {
	var auth *proxy.Auth
	if parsed.User != nil {
		password, _ := parsed.User.Password()
		auth = &proxy.Auth{
			User:     parsed.User.Username(),
			Password: password,
		}
	}

	host := parsed.Host
	if !strings.Contains(host, ":") {
		host += ":1080" // SOCKS5 default port
	}

	return proxy.SOCKS5("tcp", host, auth, proxy.Direct)
}
