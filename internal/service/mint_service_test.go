package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/config"
	"github.com/harmonygenie/api/internal/model"
	"github.com/harmonygenie/api/internal/wallet"
)

type countingSender struct {
	mu         sync.Mutex
	nonceCalls int
	sendCalls  int
	sendErr    error
	lastTx     *client.ChainTransaction
}

func (c *countingSender) GetNonce(ctx context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonceCalls++
	return 7, nil
}

func (c *countingSender) SendTransaction(ctx context.Context, tx *client.ChainTransaction) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendCalls++
	c.lastTx = tx
	if c.sendErr != nil {
		return "", c.sendErr
	}
	return "txhash123", nil
}

func (c *countingSender) networkCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonceCalls + c.sendCalls
}

func testChainConfig() config.ChainConfig {
	return config.ChainConfig{
		GatewayURL: "https://testnet-gateway.multiversx.com",
		ChainID:    "T",
		Collection: "MUSIC-abcdef",
		Royalties:  500,
		GasLimit:   60000000,
		GasPrice:   1000000000,
	}
}

func newMintFixture(t *testing.T) (*MintService, *wallet.Store, *countingSender, string) {
	t.Helper()

	conversations := newTestConversationService()
	conv := conversations.Create(context.Background())

	walletStore := wallet.NewStore()
	sender := &countingSender{}
	svc := NewMintService(walletStore, sender, conversations, testChainConfig())

	track := &model.TrackData{
		URL:      "https://cdn.harmonygenie.app/tracks/abc.mp3",
		Metadata: model.TrackMetadata{Title: "Relaxing Ambient Experience", Genre: "ambient", Mood: "relaxing"},
	}
	if err := conversations.SetTrack(conv.ID, track); err != nil {
		t.Fatalf("set track failed: %v", err)
	}

	return svc, walletStore, sender, conv.ID
}

func TestMint_WalletRequiredBeforeAnyNetworkCall(t *testing.T) {
	svc, _, sender, convID := newMintFixture(t)

	_, err := svc.Mint(context.Background(), &model.MintRequest{ConversationID: convID})
	if !errors.Is(err, ErrWalletNotConnected) {
		t.Fatalf("expected ErrWalletNotConnected, got %v", err)
	}
	if sender.networkCalls() != 0 {
		t.Errorf("expected zero gateway calls without a wallet, got %d", sender.networkCalls())
	}
}

func TestMint_NoTrack(t *testing.T) {
	conversations := newTestConversationService()
	conv := conversations.Create(context.Background())

	walletStore := wallet.NewStore()
	walletStore.Connect("erd1abcdefgh", "1000")
	sender := &countingSender{}
	svc := NewMintService(walletStore, sender, conversations, testChainConfig())

	_, err := svc.Mint(context.Background(), &model.MintRequest{ConversationID: conv.ID})
	if !errors.Is(err, ErrNoTrack) {
		t.Fatalf("expected ErrNoTrack, got %v", err)
	}
	if sender.networkCalls() != 0 {
		t.Errorf("expected zero gateway calls without a track, got %d", sender.networkCalls())
	}
}

func TestMint_Success(t *testing.T) {
	svc, walletStore, sender, convID := newMintFixture(t)
	walletStore.Connect("erd1abcdefgh", "1000")

	resp, err := svc.Mint(context.Background(), &model.MintRequest{ConversationID: convID})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if resp.Status != model.MintStatusSuccess {
		t.Errorf("expected success, got %q", resp.Status)
	}
	if resp.TxHash != "txhash123" {
		t.Errorf("expected tx hash, got %q", resp.TxHash)
	}

	tx := sender.lastTx
	if tx == nil {
		t.Fatal("expected a submitted transaction")
	}
	if tx.Sender != "erd1abcdefgh" || tx.Receiver != "erd1abcdefgh" {
		t.Errorf("expected a self-call, got sender=%q receiver=%q", tx.Sender, tx.Receiver)
	}
	if tx.Value != "0" {
		t.Errorf("expected zero value, got %q", tx.Value)
	}
	if tx.Nonce != 7 {
		t.Errorf("expected the fetched nonce, got %d", tx.Nonce)
	}
	if tx.ChainID != "T" || tx.GasLimit != 60000000 {
		t.Errorf("unexpected chain parameters: %+v", tx)
	}
	if !strings.HasPrefix(string(tx.Data), "ESDTNFTCreate@") {
		t.Errorf("unexpected payload %q", tx.Data)
	}
}

func TestMint_GatewayErrorMapped(t *testing.T) {
	svc, walletStore, sender, convID := newMintFixture(t)
	walletStore.Connect("erd1abcdefgh", "1000")
	sender.sendErr = errors.New("transaction generation failed: insufficient funds")

	resp, err := svc.Mint(context.Background(), &model.MintRequest{ConversationID: convID})
	if err != nil {
		t.Fatalf("expected the failure in the mint state, got %v", err)
	}
	if resp.Status != model.MintStatusError {
		t.Errorf("expected error status, got %q", resp.Status)
	}
	if resp.Error != "Insufficient funds to cover the minting transaction." {
		t.Errorf("expected mapped message, got %q", resp.Error)
	}
}

func TestMint_GetAndReset(t *testing.T) {
	svc, walletStore, sender, convID := newMintFixture(t)
	walletStore.Connect("erd1abcdefgh", "1000")
	sender.sendErr = errors.New("user rejected")

	resp, err := svc.Mint(context.Background(), &model.MintRequest{ConversationID: convID})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	got, err := svc.Get(resp.MintID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != model.MintStatusError {
		t.Errorf("expected error state, got %q", got.Status)
	}

	reset, err := svc.Reset(resp.MintID)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if reset.Status != model.MintStatusIdle {
		t.Errorf("expected idle after reset, got %q", reset.Status)
	}
	if reset.TxHash != "" || reset.Error != "" {
		t.Errorf("expected cleared attempt, got %+v", reset)
	}

	if _, err := svc.Get("unknown"); !errors.Is(err, ErrMintNotFound) {
		t.Errorf("expected ErrMintNotFound, got %v", err)
	}
	if _, err := svc.Reset("unknown"); !errors.Is(err, ErrMintNotFound) {
		t.Errorf("expected ErrMintNotFound on reset, got %v", err)
	}
}

func TestMapMintError(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"signed with Invalid Signature", "The transaction signature was invalid. Please reconnect your wallet and try again."},
		{"insufficient funds for sender", "Insufficient funds to cover the minting transaction."},
		{"insufficient gas limit", "The transaction did not have enough gas. Please try again."},
		{"request rejected by user", "The transaction was rejected in your wallet."},
		{"something unexpected", "something unexpected"},
	}

	for _, tc := range cases {
		if got := mapMintError(tc.in); got != tc.want {
			t.Errorf("mapMintError(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
