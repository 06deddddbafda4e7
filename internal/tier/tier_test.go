package tier

import (
	"encoding/json"
	"testing"
)

func TestResolve_UnknownPlanFallsBackToFree(t *testing.T) {
	free := Resolve(PlanFree)
	for _, plan := range []string{"nonexistent-plan", "", "  ", "platinum"} {
		got := Resolve(plan)
		if got.Plan != free.Plan || got.DailyClaimCoins != free.DailyClaimCoins {
			t.Fatalf("Resolve(%q) = %+v, want free table", plan, got)
		}
	}
}

func TestResolve_CaseAndSpaceInsensitive(t *testing.T) {
	if got := Resolve(" Gold "); got.Plan != PlanGold {
		t.Fatalf("Resolve(\" Gold \") = %s, want gold", got.Plan)
	}
}

func TestLimit_ZeroCapDenies(t *testing.T) {
	var cap Limit
	if cap.Allows(0) {
		t.Fatal("zero cap must deny even at zero usage")
	}
}

func TestLimit_UnlimitedAlwaysAllows(t *testing.T) {
	for _, used := range []int{0, 1, 1 << 30} {
		if !Unlimited.Allows(used) {
			t.Fatalf("Unlimited.Allows(%d) = false", used)
		}
	}
}

func TestLimit_JSONRoundTrip(t *testing.T) {
	raw, errMarshal := json.Marshal(Unlimited)
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	if string(raw) != `"∞"` {
		t.Fatalf("unlimited encodes as %s, want \"∞\"", raw)
	}

	var parsed Limit
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		t.Fatalf("unmarshal: %v", errUnmarshal)
	}
	if !parsed.IsUnlimited() {
		t.Fatal("round-tripped unlimited lost the sentinel")
	}

	var bounded Limit
	if errUnmarshal := json.Unmarshal([]byte("25"), &bounded); errUnmarshal != nil {
		t.Fatalf("unmarshal bounded: %v", errUnmarshal)
	}
	if bounded != 25 {
		t.Fatalf("bounded = %d, want 25", bounded)
	}
}

func TestResolve_EveryPlanHasDefaultModel(t *testing.T) {
	for _, plan := range Plans() {
		caps := Resolve(plan)
		if caps.DefaultModel() == "" {
			t.Fatalf("plan %s has no default model", plan)
		}
		if !caps.AllowsModel(caps.DefaultModel()) {
			t.Fatalf("plan %s default model not in allowed list", plan)
		}
	}
}

func TestCost_KnownActions(t *testing.T) {
	if Cost(ActionGeneration) != 5000 {
		t.Fatalf("generation cost = %d, want 5000", Cost(ActionGeneration))
	}
	if Cost(ActionCodeFix) != 10000 {
		t.Fatalf("code fix cost = %d, want 10000", Cost(ActionCodeFix))
	}
	if Cost(Action("unknown")) != 0 {
		t.Fatal("unknown action must cost zero")
	}
}

func TestFromStored_PrefersSnapshot(t *testing.T) {
	caps := Resolve(PlanSilver)
	caps.DailyClaimCoins = 12345 // admin-tuned override in the stored snapshot
	raw, errMarshal := json.Marshal(caps)
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}

	got := FromStored(PlanSilver, raw)
	if got.DailyClaimCoins != 12345 {
		t.Fatalf("stored snapshot must win, got %d", got.DailyClaimCoins)
	}
}

func TestFromStored_FallsBackWhenUnusable(t *testing.T) {
	want := Resolve(PlanGold)

	for name, stored := range map[string][]byte{
		"empty":      nil,
		"malformed":  []byte(`{`),
		"blank":      []byte(`{}`),
		"other plan": []byte(`{"plan":"free"}`),
	} {
		got := FromStored(PlanGold, stored)
		if got.Plan != want.Plan || got.DailyClaimCoins != want.DailyClaimCoins {
			t.Fatalf("%s snapshot must fall back to the table, got %+v", name, got)
		}
	}
}
