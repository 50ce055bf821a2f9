package account

import "testing"

func TestDebitCapsAtBalance(t *testing.T) {
	a := New("interest", 100)
	got := a.Debit(150)
	if got != 100 {
		t.Fatalf("debited = %v, want 100", got)
	}
	if a.Balance != 0 {
		t.Fatalf("balance = %v, want 0", a.Balance)
	}
}

func TestDebitExactAmount(t *testing.T) {
	a := New("interest", 100)
	got := a.Debit(40)
	if got != 40 || a.Balance != 60 {
		t.Fatalf("got debited=%v balance=%v", got, a.Balance)
	}
}

func TestDebitNonPositiveOrNegativeBalanceIsNoop(t *testing.T) {
	a := New("interest", 100)
	if got := a.Debit(0); got != 0 {
		t.Fatalf("debit(0) = %v, want 0", got)
	}
	if got := a.Debit(-5); got != 0 {
		t.Fatalf("debit(-5) = %v, want 0", got)
	}
}

func TestCreditRejectsNegative(t *testing.T) {
	a := New("principal", 0)
	if err := a.Credit(-1); err == nil {
		t.Fatal("expected an error crediting a negative amount")
	}
}

func TestCreditIncrementsBalance(t *testing.T) {
	a := New("principal", 10)
	if err := a.Credit(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Balance != 15 {
		t.Fatalf("balance = %v, want 15", a.Balance)
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	a := New("interest", 5)
	a.Debit(1000)
	if a.Balance < 0 {
		t.Fatalf("balance went negative: %v", a.Balance)
	}
}
