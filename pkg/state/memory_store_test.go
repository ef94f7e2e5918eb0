package state_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-factory/pkg/state"
	"github.com/goliatone/go-factory/pkg/state/storetest"
)

type settings struct {
	Name  string
	Limit int
}

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) state.Store[settings] {
		return state.NewMemoryStore[settings]()
	}, settings{Name: "a", Limit: 1}, settings{Name: "b", Limit: 2})
}

func TestMemoryStoreMetaIsDetached(t *testing.T) {
	store := state.NewMemoryStore[settings]()
	extra := map[string]string{"origin": "test"}
	if _, err := store.Create(context.Background(), "k", settings{Name: "a"}, state.Meta{Extra: extra}); err != nil {
		t.Fatalf("create: %v", err)
	}
	extra["origin"] = "changed"

	_, meta, _, err := store.Load(context.Background(), "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.Extra["origin"] != "test" {
		t.Fatalf("expected stored meta unaffected by caller mutation, got %q", meta.Extra["origin"])
	}
	meta.Extra["origin"] = "mutated"

	_, again, _, _ := store.Load(context.Background(), "k")
	if again.Extra["origin"] != "test" {
		t.Fatalf("expected loaded meta to be a copy, got %q", again.Extra["origin"])
	}
}
