package custody

import (
	"context"
	"testing"
)

func TestLedgerDepositWithdraw(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()

	ledger.Mint("alice", "wbnb", 100)
	if err := ledger.Deposit(ctx, "wbnb", "alice", 60); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := ledger.Balance("alice", "wbnb"); got != 40 {
		t.Fatalf("alice balance = %d, want 40", got)
	}
	if got := ledger.Custodied("wbnb"); got != 60 {
		t.Fatalf("custodied = %d, want 60", got)
	}

	if err := ledger.Withdraw(ctx, "wbnb", "bob", 25); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := ledger.Balance("bob", "wbnb"); got != 25 {
		t.Fatalf("bob balance = %d, want 25", got)
	}
	if got := ledger.Custodied("wbnb"); got != 35 {
		t.Fatalf("custodied = %d, want 35", got)
	}
}

func TestLedgerInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()

	ledger.Mint("alice", "wbnb", 10)
	if err := ledger.Deposit(ctx, "wbnb", "alice", 11); err == nil {
		t.Fatalf("expected error for overdraft deposit")
	}
	if err := ledger.Withdraw(ctx, "wbnb", "alice", 1); err == nil {
		t.Fatalf("expected error for empty custody withdraw")
	}
	if got := ledger.Balance("alice", "wbnb"); got != 10 {
		t.Fatalf("failed transfer changed balance to %d", got)
	}
}

func TestLedgerCaseInsensitiveKeys(t *testing.T) {
	ledger := NewLedger()
	ledger.Mint("0xABCD", "WBNB", 5)
	if got := ledger.Balance("0xabcd", "wbnb"); got != 5 {
		t.Fatalf("balance = %d, want 5", got)
	}
}
