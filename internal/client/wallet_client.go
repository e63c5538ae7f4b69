package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/harmonygenie/api/internal/config"
)

// TransactionSender defines the interface for chain transaction submission
type TransactionSender interface {
	GetNonce(ctx context.Context, address string) (uint64, error)
	SendTransaction(ctx context.Context, tx *ChainTransaction) (string, error)
}

// ChainTransaction is the prepared transaction handed to the gateway.
// Data carries the base64-encoded smart contract call payload.
type ChainTransaction struct {
	Nonce    uint64 `json:"nonce"`
	Value    string `json:"value"`
	Receiver string `json:"receiver"`
	Sender   string `json:"sender"`
	GasPrice uint64 `json:"gasPrice"`
	GasLimit uint64 `json:"gasLimit"`
	Data     []byte `json:"data"`
	ChainID  string `json:"chainID"`
	Version  int    `json:"version"`
}

// WalletClient submits transactions through a MultiversX-style gateway
type WalletClient struct {
	httpClient *http.Client
	gatewayURL string
	chainID    string
}

type accountResponse struct {
	Data struct {
		Account struct {
			Nonce uint64 `json:"nonce"`
		} `json:"account"`
	} `json:"data"`
	Error string `json:"error"`
}

type sendTxResponse struct {
	Data struct {
		TxHash string `json:"txHash"`
	} `json:"data"`
	Error string `json:"error"`
}

// NewWalletClient creates a new gateway client
func NewWalletClient(cfg *config.ChainConfig) *WalletClient {
	return &WalletClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		gatewayURL: cfg.GatewayURL,
		chainID:    cfg.ChainID,
	}
}

// ChainID returns the configured chain identifier
func (c *WalletClient) ChainID() string {
	return c.chainID
}

// GetNonce fetches the current account nonce for the sender address
func (c *WalletClient) GetNonce(ctx context.Context, address string) (uint64, error) {
	endpoint := fmt.Sprintf("%s/address/%s", c.gatewayURL, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	respBody, status, err := c.execute(req)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("gateway error (status %d): %s", status, string(respBody))
	}

	var account accountResponse
	if err := json.Unmarshal(respBody, &account); err != nil {
		return 0, fmt.Errorf("failed to unmarshal account response: %w", err)
	}
	if account.Error != "" {
		return 0, fmt.Errorf("gateway error: %s", account.Error)
	}

	return account.Data.Account.Nonce, nil
}

// SendTransaction submits a prepared transaction and returns the tx hash
func (c *WalletClient) SendTransaction(ctx context.Context, tx *ChainTransaction) (string, error) {
	bodyBytes, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transaction: %w", err)
	}

	endpoint := c.gatewayURL + "/transaction/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[Chain] → POST %s (receiver=%s)", endpoint, tx.Receiver)

	respBody, status, err := c.execute(req)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("gateway error (status %d): %s", status, string(respBody))
	}

	var result sendTxResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal send response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%s", result.Error)
	}
	if result.Data.TxHash == "" {
		return "", fmt.Errorf("no transaction hash in gateway response")
	}

	log.Printf("[Chain] ← tx %s accepted", result.Data.TxHash)
	return result.Data.TxHash, nil
}

func (c *WalletClient) execute(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Chain] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *WalletClient) IsConfigured() bool {
	return c.gatewayURL != ""
}
