package wallet

import (
	"testing"

	"github.com/harmonygenie/api/internal/model"
)

func TestStore_ConnectDisconnect(t *testing.T) {
	store := NewStore()

	if store.Get().Connected {
		t.Fatal("expected a fresh store to be disconnected")
	}

	state := store.Connect("erd1abcdefgh", "1000")
	if !state.Connected || state.Address != "erd1abcdefgh" || state.Balance != "1000" {
		t.Errorf("unexpected state after connect: %+v", state)
	}

	state = store.Disconnect()
	if state.Connected || state.Address != "" {
		t.Errorf("unexpected state after disconnect: %+v", state)
	}
}

func TestStore_SubscribeNotifies(t *testing.T) {
	store := NewStore()

	var seen []model.WalletState
	unsubscribe := store.Subscribe(func(state model.WalletState) {
		seen = append(seen, state)
	})

	store.Connect("erd1abcdefgh", "1000")
	store.Disconnect()

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if !seen[0].Connected || seen[1].Connected {
		t.Errorf("unexpected notification order: %+v", seen)
	}

	unsubscribe()
	store.Connect("erd1abcdefgh", "1000")
	if len(seen) != 2 {
		t.Errorf("expected no notifications after unsubscribe, got %d", len(seen))
	}
}
