package rules

import "testing"

func TestTurnManagerStartsWithPlayer1Drawing(t *testing.T) {
	tm := NewTurnManager("Alice", "Bob")

	if tm.ActivePlayer() != "Alice" {
		t.Fatalf("expected Alice active, got %s", tm.ActivePlayer())
	}
	if tm.InactivePlayer() != "Bob" {
		t.Fatalf("expected Bob inactive, got %s", tm.InactivePlayer())
	}
	if tm.TurnNumber() != 1 {
		t.Fatalf("expected turn 1, got %d", tm.TurnNumber())
	}
	if !tm.NeedsToDraw() || tm.CurrentPhase() != PhaseNeedsDraw {
		t.Fatalf("expected draw gate raised, got phase %s", tm.CurrentPhase())
	}
}

func TestTurnManagerEndTurnWrapsTurnNumber(t *testing.T) {
	tm := NewTurnManager("Alice", "Bob")

	tm.CompleteDraw()
	if tm.CurrentPhase() != PhaseMain {
		t.Fatalf("expected MAIN after draw, got %s", tm.CurrentPhase())
	}

	next := tm.EndTurn()
	if next != "Bob" {
		t.Fatalf("expected Bob after first end turn, got %s", next)
	}
	if tm.TurnNumber() != 1 {
		t.Fatalf("expected to remain on turn 1 for player2, got %d", tm.TurnNumber())
	}
	if !tm.NeedsToDraw() {
		t.Fatalf("expected draw gate raised for Bob")
	}

	tm.CompleteDraw()
	next = tm.EndTurn()
	if next != "Alice" {
		t.Fatalf("expected Alice after wrap, got %s", next)
	}
	if tm.TurnNumber() != 2 {
		t.Fatalf("expected turn 2 after wrap, got %d", tm.TurnNumber())
	}
	if tm.ActiveSeat() != 0 {
		t.Fatalf("expected seat 0 active, got %d", tm.ActiveSeat())
	}
}

func TestTurnManagerCloneIsIndependent(t *testing.T) {
	tm := NewTurnManager("Alice", "Bob")
	cp := tm.Clone()

	tm.CompleteDraw()
	tm.EndTurn()

	if cp.ActivePlayer() != "Alice" || !cp.NeedsToDraw() {
		t.Fatalf("clone mutated with original: active=%s needsDraw=%v", cp.ActivePlayer(), cp.NeedsToDraw())
	}
}

func TestRestoreTurnManager(t *testing.T) {
	tm := RestoreTurnManager("Alice", "Bob", 1, 4, false)

	if tm.ActivePlayer() != "Bob" || tm.TurnNumber() != 4 || tm.NeedsToDraw() {
		t.Fatalf("unexpected restored state: active=%s turn=%d needsDraw=%v",
			tm.ActivePlayer(), tm.TurnNumber(), tm.NeedsToDraw())
	}
}
