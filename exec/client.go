package exec

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POLYMARKET EXECUTION CLIENT
// ═══════════════════════════════════════════════════════════════════════════════
//
// Signs CTF Exchange orders (EIP-712) and posts them to the CLOB API with
// L2 HMAC headers. The wallet is loaded on first use and credentials are
// checked before every call, so a server without trading credentials still
// serves market data and fails closed on orders.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	PolymarketCLOB = "https://clob.polymarket.com"
)

// Side is the order direction
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is the time-in-force of an order
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good til cancelled
	OrderTypeGTD OrderType = "GTD" // Good til date
	OrderTypeFOK OrderType = "FOK" // Fill or kill
)

// OrderRequest is one validated order to place
type OrderRequest struct {
	TokenID    string
	Price      decimal.Decimal
	Size       decimal.Decimal
	Side       Side
	OrderType  OrderType
	Expiration int64
	FeeRateBps int64
}

// OrderResponse is the CLOB answer to POST /order
type OrderResponse struct {
	Success  bool     `json:"success"`
	OrderID  string   `json:"orderID"`
	Status   string   `json:"status"`
	ErrorMsg string   `json:"errorMsg,omitempty"`
	TxHashes []string `json:"transactionsHashes,omitempty"`
}

// APICreds are the L2 credentials derived from a wallet
type APICreds struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Client places orders on the Polymarket CLOB
type Client struct {
	baseURL       string
	creds         Credentials
	funder        common.Address
	signatureType int
	httpClient    *http.Client
	now           func() time.Time

	mu     sync.Mutex
	signer *OrderSigner
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at another CLOB host
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithFunder sets a proxy wallet that holds the funds and its signature type
func WithFunder(address string, signatureType int) ClientOption {
	return func(c *Client) {
		if address != "" {
			c.funder = common.HexToAddress(address)
		}
		c.signatureType = signatureType
	}
}

// WithClock overrides time.Now for nonces and request timestamps
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates an execution client. It does not touch the key or the
// network; that happens on first use.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       PolymarketCLOB,
		creds:         creds,
		signatureType: SignatureTypeEOA,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if !creds.Configured() {
		log.Warn().Msg("⚠️ Missing Polymarket API credentials, trading is disabled")
	}
	return c
}

// Ready reports whether orders can be placed
func (c *Client) Ready() bool {
	_, err := c.orderSigner(true)
	return err == nil
}

// orderSigner loads the wallet once. With needAPI it also requires the L2
// credentials, which is the case for everything except key derivation.
func (c *Client) orderSigner(needAPI bool) (*OrderSigner, error) {
	if needAPI && !c.creds.Configured() {
		return nil, &Error{Kind: KindMissingCredentials, Message: msgNotInitialized}
	}
	if !c.creds.HasPrivateKey() {
		return nil, &Error{Kind: KindMissingCredentials, Message: msgNotInitialized}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.signer != nil {
		return c.signer, nil
	}

	pk, err := crypto.HexToECDSA(normalizeKey(c.creds.PrivateKey))
	if err != nil {
		return nil, &Error{Kind: KindMissingCredentials, Message: msgNotInitialized, Err: fmt.Errorf("invalid private key: %w", err)}
	}

	c.signer = NewOrderSigner(pk, c.funder, c.signatureType)
	log.Info().Str("address", c.signer.Address().Hex()).Msg("🔑 Wallet loaded")
	return c.signer, nil
}

// PlaceOrder signs and posts one order. Every failure is an *Error.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	resp, err := c.placeOrder(ctx, req)
	if err != nil {
		classified := Classify(err)
		log.Warn().
			Str("kind", string(classified.Kind)).
			Err(err).
			Str("token", shortToken(req.TokenID)).
			Msg("❌ Order failed")
		return nil, classified
	}
	return resp, nil
}

func (c *Client) placeOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	signer, err := c.orderSigner(true)
	if err != nil {
		return nil, err
	}

	params := OrderParams{
		TokenID:    req.TokenID,
		Price:      req.Price,
		Size:       req.Size,
		Side:       req.Side,
		FeeRateBps: req.FeeRateBps,
		Nonce:      c.now().UnixMilli(),
	}
	if req.OrderType == OrderTypeGTD {
		params.Expiration = req.Expiration
	}

	signed, err := signer.CreateSignedOrder(params)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(signed.ToAPIPayload(c.creds.APIKey, req.OrderType))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	log.Debug().RawJSON("request_payload", body).Msg("📤 Sending order to CLOB API")

	status, respBody, err := c.do(ctx, http.MethodPost, "/order", body, c.l2Headers(signer.Address(), http.MethodPost, "/order", body))
	if err != nil {
		return nil, err
	}

	var orderResp OrderResponse
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("order rejected (HTTP %d): %s", status, upstreamMessage(respBody))
	}
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !orderResp.Success && orderResp.ErrorMsg != "" {
		return nil, fmt.Errorf("order rejected: %s", orderResp.ErrorMsg)
	}

	log.Info().
		Str("order_id", orderResp.OrderID).
		Str("status", orderResp.Status).
		Str("side", string(req.Side)).
		Str("type", string(req.OrderType)).
		Str("price", req.Price.String()).
		Str("size", req.Size.String()).
		Msg("✅ Order placed")

	return &orderResp, nil
}

// DeriveAPICreds returns the wallet's L2 credentials, creating them when
// none exist yet. Only the private key is required.
func (c *Client) DeriveAPICreds(ctx context.Context) (*APICreds, error) {
	signer, err := c.orderSigner(false)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Unix()
	nonce := int64(0)
	signature, err := signer.SignClobAuth(timestamp, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to sign auth message: %w", err)
	}

	address := c.funder
	if address == (common.Address{}) {
		address = signer.Address()
	}
	headers := map[string]string{
		"POLY_ADDRESS":   address.Hex(),
		"POLY_SIGNATURE": signature,
		"POLY_TIMESTAMP": strconv.FormatInt(timestamp, 10),
		"POLY_NONCE":     strconv.FormatInt(nonce, 10),
	}

	status, body, err := c.do(ctx, http.MethodGet, "/auth/derive-api-key", nil, headers)
	if err != nil {
		return nil, fmt.Errorf("derive request failed: %w", err)
	}

	if status != http.StatusOK {
		log.Info().Int("status", status).Msg("No API key to derive, creating one")
		status, body, err = c.do(ctx, http.MethodPost, "/auth/api-key", nil, headers)
		if err != nil {
			return nil, fmt.Errorf("create request failed: %w", err)
		}
		if status != http.StatusOK && status != http.StatusCreated {
			return nil, fmt.Errorf("API error %d: %s", status, upstreamMessage(body))
		}
	}

	var creds APICreds
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if creds.APIKey == "" {
		return nil, fmt.Errorf("empty credentials in response")
	}
	return &creds, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// HTTP HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("connection to CLOB failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("connection to CLOB failed reading body: %w", err)
	}

	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("CLOB API response")

	return resp.StatusCode, respBody, nil
}

// l2Headers signs a request with the API secret.
// Based on: https://github.com/Polymarket/py-clob-client/blob/main/py_clob_client/signing/hmac.py
func (c *Client) l2Headers(address common.Address, method, path string, body []byte) map[string]string {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)

	// POLY_ADDRESS is the signer, not the funder
	return map[string]string{
		"POLY_ADDRESS":    address.Hex(),
		"POLY_API_KEY":    c.creds.APIKey,
		"POLY_SIGNATURE":  hmacSignature(c.creds.APISecret, timestamp+method+path+string(body)),
		"POLY_TIMESTAMP":  timestamp,
		"POLY_PASSPHRASE": c.creds.Passphrase,
	}
}

// hmacSignature is the URL-safe base64 HMAC-SHA256 of message keyed by the
// URL-safe base64 decoded secret
func hmacSignature(secret, message string) string {
	key, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		padded := secret
		if len(padded)%4 != 0 {
			padded += strings.Repeat("=", 4-len(padded)%4)
		}
		key, err = base64.URLEncoding.DecodeString(padded)
		if err != nil {
			key, _ = base64.StdEncoding.DecodeString(secret)
		}
	}

	h := hmac.New(sha256.New, key)
	h.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// upstreamMessage pulls the error text out of a CLOB error body
func upstreamMessage(body []byte) string {
	var parsed struct {
		Error    string `json:"error"`
		ErrorMsg string `json:"errorMsg"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, s := range []string{parsed.Error, parsed.ErrorMsg, parsed.Message} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}

func shortToken(tokenID string) string {
	if len(tokenID) > 16 {
		return tokenID[:16] + "..."
	}
	return tokenID
}
