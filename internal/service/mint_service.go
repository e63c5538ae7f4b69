package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/config"
	"github.com/harmonygenie/api/internal/model"
	"github.com/harmonygenie/api/internal/wallet"
)

// ErrMintNotFound is returned for unknown mint ids.
var ErrMintNotFound = errors.New("mint not found")

// ErrWalletNotConnected fails a mint before any network call is made.
var ErrWalletNotConnected = errors.New("please connect your wallet to mint this track as an NFT")

// ErrNoTrack means the conversation has no finished track to mint.
var ErrNoTrack = errors.New("no track to mint")

// MintService packages a finished track into an ESDTNFTCreate transaction
// and submits it through the chain gateway. Each attempt is its own
// MintState walking idle -> minting -> success|error; reset returns a
// terminal attempt to idle for a retry.
type MintService struct {
	mu            sync.Mutex
	mints         map[string]*model.MintState
	wallet        *wallet.Store
	sender        client.TransactionSender
	conversations *ConversationService
	cfg           config.ChainConfig
}

func NewMintService(walletStore *wallet.Store, sender client.TransactionSender, conversations *ConversationService, cfg config.ChainConfig) *MintService {
	return &MintService{
		mints:         make(map[string]*model.MintState),
		wallet:        walletStore,
		sender:        sender,
		conversations: conversations,
		cfg:           cfg,
	}
}

// Mint submits the conversation's finished track as an NFT. Requires a
// connected wallet; without one it fails immediately and never touches the
// gateway.
func (s *MintService) Mint(ctx context.Context, req *model.MintRequest) (*model.MintResponse, error) {
	walletState := s.wallet.Get()
	if !walletState.Connected || walletState.Address == "" {
		return nil, ErrWalletNotConnected
	}

	track, err := s.conversations.Track(req.ConversationID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, ErrNoTrack
	}

	state := &model.MintState{
		ID:        uuid.New().String(),
		Status:    model.MintStatusIdle,
		CreatedAt: time.Now(),
	}
	s.put(state)

	s.transition(state.ID, model.MintStatusMinting, "", "")

	txHash, err := s.submit(ctx, walletState.Address, track)
	if err != nil {
		msg := mapMintError(err.Error())
		log.Printf("[Mint] %s failed: %v", state.ID, err)
		s.transition(state.ID, model.MintStatusError, "", msg)
		return s.response(state.ID), nil
	}

	s.transition(state.ID, model.MintStatusSuccess, txHash, "")
	return s.response(state.ID), nil
}

// Get returns the state of a mint attempt.
func (s *MintService) Get(mintID string) (*model.MintResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.mints[mintID]
	if !ok {
		return nil, ErrMintNotFound
	}
	return &model.MintResponse{
		MintID: state.ID,
		Status: state.Status,
		TxHash: state.TxHash,
		Error:  state.Error,
	}, nil
}

// Reset returns a terminal mint attempt to idle so the user can retry or
// dismiss. Resetting an in-flight mint is rejected.
func (s *MintService) Reset(mintID string) (*model.MintResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.mints[mintID]
	if !ok {
		return nil, ErrMintNotFound
	}
	if state.Status == model.MintStatusMinting {
		return nil, fmt.Errorf("mint in progress")
	}

	state.Status = model.MintStatusIdle
	state.TxHash = ""
	state.Error = ""

	return &model.MintResponse{MintID: state.ID, Status: state.Status}, nil
}

// submit builds the ESDTNFTCreate transaction and sends it. NFT creation is
// a self-call: receiver equals sender.
func (s *MintService) submit(ctx context.Context, address string, track *model.TrackData) (string, error) {
	nonce, err := s.sender.GetNonce(ctx, address)
	if err != nil {
		return "", err
	}

	title := track.Metadata.Title
	if title == "" {
		title = "Generated Song"
	}

	attributes, err := buildMintAttributes(track)
	if err != nil {
		return "", err
	}

	payload := buildESDTNFTCreate(s.cfg.Collection, 1, title, s.cfg.Royalties, track.URL, attributes)

	tx := &client.ChainTransaction{
		Nonce:    nonce,
		Value:    "0",
		Receiver: address,
		Sender:   address,
		GasPrice: s.cfg.GasPrice,
		GasLimit: s.cfg.GasLimit,
		Data:     []byte(payload),
		ChainID:  s.cfg.ChainID,
		Version:  1,
	}

	return s.sender.SendTransaction(ctx, tx)
}

func (s *MintService) put(state *model.MintState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mints[state.ID] = state
}

func (s *MintService) transition(mintID string, status model.MintStatus, txHash, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.mints[mintID]; ok {
		state.Status = status
		state.TxHash = txHash
		state.Error = errMsg
	}
}

func (s *MintService) response(mintID string) *model.MintResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.mints[mintID]
	return &model.MintResponse{
		MintID: state.ID,
		Status: state.Status,
		TxHash: state.TxHash,
		Error:  state.Error,
	}
}

// mapMintError translates known gateway error substrings into user-facing
// messages. Unmapped errors pass through verbatim.
func mapMintError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid signature"):
		return "The transaction signature was invalid. Please reconnect your wallet and try again."
	case strings.Contains(lower, "insufficient funds"):
		return "Insufficient funds to cover the minting transaction."
	case strings.Contains(lower, "insufficient gas"):
		return "The transaction did not have enough gas. Please try again."
	case strings.Contains(lower, "user rejected"), strings.Contains(lower, "rejected by user"):
		return "The transaction was rejected in your wallet."
	default:
		return msg
	}
}
