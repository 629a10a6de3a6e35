// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package compile

import (
	"testing"

	"github.com/google/uuid"

	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

func TestCloneIsIndependent(t *testing.T) {
	src := uuid.New()
	model := &fwmodel.Rule{
		ID:  uuid.New(),
		Src: []uuid.UUID{src},
		Negations: map[string]bool{
			"src": true,
		},
	}

	r := FromModel(model)
	c := r.Clone()

	c.Src = append(c.Src, uuid.New())
	c.Neg["dst"] = true

	if len(r.Src) != 1 {
		t.Errorf("original Src mutated by clone: got %d elements, want 1", len(r.Src))
	}
	if r.Neg["dst"] {
		t.Errorf("original Neg mutated by clone")
	}
	if !c.Neg["src"] {
		t.Errorf("clone lost the original negation flag")
	}
}

func TestIsAnySlotDistinguishesEmptyFromFiltered(t *testing.T) {
	model := &fwmodel.Rule{ID: uuid.New()}
	r := FromModel(model)

	if !r.IsAnySlot("src") {
		t.Errorf("freshly built rule with no src elements should report any=true")
	}

	r.SetSlot("src", []uuid.UUID{uuid.New()})
	r.SetSlot("src", nil)

	if r.IsAnySlot("src") {
		t.Errorf("slot filtered down to empty should not report any=true")
	}
	if !r.HasEmptyRE["src"] {
		t.Errorf("SetSlot should have marked HasEmptyRE for src")
	}
}
