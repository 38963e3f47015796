package catalog

import (
	"testing"

	"github.com/cybercompass/compass/internal/models"
)

func TestAll_WellFormed(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("catalog is empty")
	}

	seen := make(map[string]bool)
	for _, c := range all {
		if seen[c.ID] {
			t.Errorf("duplicate challenge ID %s", c.ID)
		}
		seen[c.ID] = true

		if c.Title == "" || c.Prompt == "" {
			t.Errorf("%s: missing title or prompt", c.ID)
		}
		if len(c.Options) < 2 {
			t.Errorf("%s: expected at least 2 options, got %d", c.ID, len(c.Options))
		}

		correct := 0
		optIDs := make(map[string]bool)
		for _, o := range c.Options {
			if o.IsCorrect {
				correct++
			}
			if optIDs[o.ID] {
				t.Errorf("%s: duplicate option ID %s", c.ID, o.ID)
			}
			optIDs[o.ID] = true
		}
		if correct != 1 {
			t.Errorf("%s: expected exactly 1 correct option, got %d", c.ID, correct)
		}

		valid := false
		for _, cat := range models.Categories {
			if c.Category == cat {
				valid = true
			}
		}
		if !valid {
			t.Errorf("%s: unknown category %s", c.ID, c.Category)
		}
	}
}

func TestAll_Ordered(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("challenges not ordered by ID: %s before %s", all[i-1].ID, all[i].ID)
		}
	}
}

func TestByCategory(t *testing.T) {
	total := 0
	for _, cat := range models.Categories {
		cs := ByCategory(cat)
		if len(cs) == 0 {
			t.Errorf("category %s has no challenges", cat)
		}
		for _, c := range cs {
			if c.Category != cat {
				t.Errorf("ByCategory(%s) returned challenge in %s", cat, c.Category)
			}
		}
		total += len(cs)
	}
	if total != Count() {
		t.Errorf("categories cover %d challenges, catalog has %d", total, Count())
	}
}

func TestGet(t *testing.T) {
	c, err := Get("ch_deepfake_01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Category != models.CategoryDeepfakes {
		t.Errorf("category = %s, want %s", c.Category, models.CategoryDeepfakes)
	}
	if c.CorrectOption() == nil {
		t.Error("no correct option")
	}

	if _, err := Get("ch_nope"); err == nil {
		t.Error("expected error for unknown challenge")
	}
}
