// Package spire obtiene join tokens del token service de SPIRE.
//
// Un agente SPIRE en el nodo usa el join token para conectarse al server; el
// bootscript lo recibe via sustitución de ${SPIRE_JOIN_TOKEN} en los kernel
// params. Los tokens se cachean con TTL corto: un nodo reintentando el boot
// no debe quemar un token nuevo por request.
package spire

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/bootjohn/internal/cache"
	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
)

// Config configura el cliente.
type Config struct {
	// URL base del token service (ej: https://spire-tokens.spire:54440).
	URL string
	// Opts: lista separada por comas; "insecure" deshabilita la verificación
	// TLS (solo para entornos de laboratorio).
	Opts string
	// TokenTTL: cuánto cachear un token emitido.
	TokenTTL time.Duration
	// Timeout por request.
	Timeout time.Duration
}

// Client pide join tokens por host.
type Client struct {
	base  string
	http  *http.Client
	cache cache.Client
	ttl   time.Duration
}

type tokenResponse struct {
	Title     string `json:"title,omitempty"`
	Status    int    `json:"status,omitempty"`
	Detail    string `json:"detail,omitempty"`
	JoinToken string `json:"join_token,omitempty"`
}

// New crea el cliente. El cache puede ser nil (sin cacheo).
func New(cfg Config, c cache.Client) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("spire: parse url %s: %w", cfg.URL, err)
	}

	insecure := false
	for _, opt := range strings.Split(cfg.Opts, ",") {
		if strings.EqualFold(strings.TrimSpace(opt), "insecure") {
			insecure = true
			break
		}
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if hc.Timeout <= 0 {
		hc.Timeout = 5 * time.Second
	}
	if u.Scheme == "https" && insecure {
		hc.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		logger.Named("spire").Warn("insecure https connection to spire token service")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Client{
		base:  strings.TrimRight(cfg.URL, "/"),
		http:  hc,
		cache: c,
		ttl:   ttl,
	}, nil
}

// JoinToken retorna un join token para el host, cacheado si hay uno fresco.
func (c *Client) JoinToken(ctx context.Context, host string) (string, error) {
	key := "spire:" + host
	if c.cache != nil {
		if tok, err := c.cache.Get(ctx, key); err == nil && tok != "" {
			return tok, nil
		}
	}

	tok, err := c.fetch(ctx, host)
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, tok, c.ttl); err != nil {
			logger.From(ctx).Warn("spire token cache set failed", logger.Host(host), logger.Err(err))
		}
	}
	return tok, nil
}

func (c *Client) fetch(ctx context.Context, host string) (string, error) {
	endpoint := c.base + "/api/token"
	body := strings.NewReader("xname=" + url.QueryEscape(host))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("spire: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Close = true

	rsp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("spire: request token for %s: %w", host, err)
	}
	defer rsp.Body.Close()

	raw, err := io.ReadAll(rsp.Body)
	if err != nil {
		return "", fmt.Errorf("spire: read response for %s: %w", host, err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("spire: decode response for %s: %w", host, err)
	}
	if tr.JoinToken == "" {
		if tr.Title != "" || tr.Detail != "" {
			return "", fmt.Errorf("spire: token retrieval failed for %s: %s: %s", host, tr.Title, tr.Detail)
		}
		return "", fmt.Errorf("spire: no join token in response for %s (status %s)", host, rsp.Status)
	}
	return tr.JoinToken, nil
}
