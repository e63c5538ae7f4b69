package model

import "time"

// MintState is one mint attempt. Created fresh per attempt and reset to
// idle when the user dismisses a result or retries. No transition skips
// the minting state.
type MintState struct {
	ID        string     `json:"id"`
	Status    MintStatus `json:"status"`
	TxHash    string     `json:"txHash,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// MintRequest is the body for POST /api/mint.
type MintRequest struct {
	ConversationID string `json:"conversationId" validate:"required,uuid4"`
}

// MintResponse is returned for mint state reads and submissions.
type MintResponse struct {
	MintID string     `json:"mintId"`
	Status MintStatus `json:"status"`
	TxHash string     `json:"txHash,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// WalletState is the API view of the injectable wallet store.
type WalletState struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Balance   string `json:"balance,omitempty"`
}

// WalletConnectRequest is the body for POST /api/wallet/connect.
type WalletConnectRequest struct {
	Address string `json:"address" validate:"required,min=8"`
	Balance string `json:"balance,omitempty"`
}
