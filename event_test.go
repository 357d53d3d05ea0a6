package jana2

import "testing"

func TestEventResetClearsIdentityAndBumpsGeneration(t *testing.T) {
	e := newEvent(0)
	e.EventNumber = 42
	e.RunNumber = 7
	e.Sequential = true
	gen := e.Generation()

	e.reset()

	if e.EventNumber != 0 || e.RunNumber != 0 || e.Sequential {
		t.Fatalf("expected identity fields cleared after reset, got %+v", e)
	}
	if e.Generation() != gen+1 {
		t.Fatalf("expected generation to bump by 1, got %d want %d", e.Generation(), gen+1)
	}
}

func TestEventParentMap(t *testing.T) {
	e := newEvent(0)
	parent := newEvent(0)
	parent.Level = LevelTimeslice

	if _, ok := e.Parent(LevelTimeslice); ok {
		t.Fatal("expected no parent before SetParent")
	}
	e.SetParent(LevelTimeslice, parent)
	got, ok := e.Parent(LevelTimeslice)
	if !ok || got != parent {
		t.Fatalf("expected to retrieve the set parent, got %+v ok=%v", got, ok)
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		LevelNone:         "None",
		LevelSubevent:     "Subevent",
		LevelPhysicsEvent: "PhysicsEvent",
		LevelTimeslice:    "Timeslice",
		LevelBlock:        "Block",
		LevelRun:          "Run",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}
