package domain

import (
	"testing"
)

func TestBalance_CreditLock(t *testing.T) {
	b := &Balance{}

	b.Credit(1000)
	if b.AvailableAtoms != 1000 {
		t.Errorf("expected 1000, got %d", b.AvailableAtoms)
	}

	b.Lock(400)
	if b.LockedAtoms != 400 {
		t.Errorf("expected locked 400, got %d", b.LockedAtoms)
	}
	if b.AvailableAtoms != 600 {
		t.Errorf("expected available 600, got %d", b.AvailableAtoms)
	}

	b.Unlock(200)
	if b.LockedAtoms != 200 {
		t.Errorf("expected locked 200, got %d", b.LockedAtoms)
	}
	if b.AvailableAtoms != 800 {
		t.Errorf("expected available 800, got %d", b.AvailableAtoms)
	}

	b.VerifyInvariant()
}

func TestBalance_SpendLocked(t *testing.T) {
	b := &Balance{AvailableAtoms: 500}
	b.Lock(500)
	b.SpendLocked(300)

	if b.LockedAtoms != 200 {
		t.Errorf("expected locked 200, got %d", b.LockedAtoms)
	}
	if b.TotalAtoms() != 200 {
		t.Errorf("expected total 200, got %d", b.TotalAtoms())
	}
}

func TestBalance_LockPanic_Insufficient(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when lock exceeds available")
		}
	}()

	b := &Balance{AvailableAtoms: 50}
	b.Lock(100) // Should panic
}

func TestBalance_UnlockPanic_ExceedsLocked(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when unlock exceeds locked")
		}
	}()

	b := &Balance{AvailableAtoms: 100, LockedAtoms: 10}
	b.Unlock(20) // Should panic
}

func TestSplitTicker(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		base    string
		quote   string
		wantErr bool
	}{
		{"Valid", "BTC-USD", "BTC", "USD", false},
		{"Missing Quote", "BTC-", "", "", true},
		{"Missing Dash", "BTCUSD", "", "", true},
		{"Too Many Parts", "BTC-USD-X", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, quote, err := SplitTicker(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitTicker(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if base != tt.base || quote != tt.quote {
				t.Errorf("SplitTicker(%q) = %q,%q want %q,%q", tt.in, base, quote, tt.base, tt.quote)
			}
		})
	}
}
