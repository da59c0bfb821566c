package stores

import (
	"testing"
)

// TestLayoutsDefaults tests the initial model shape
func TestLayoutsDefaults(t *testing.T) {
	view, err := LayoutsView(LayoutsDescriptor().Initial)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.Layouts) != 0 || view.Active != "" {
		t.Errorf("Expected no layouts and no selection initially, got %+v", view)
	}
}

// TestSaveLayoutUpsert tests that saving twice updates in place
func TestSaveLayoutUpsert(t *testing.T) {
	s := newTestStore(LayoutsDescriptor())

	if err := s.Mutate(SaveLayout("main", map[string]any{"split": "vertical"})); err != nil {
		t.Fatalf("SaveLayout failed: %v", err)
	}
	if err := s.Mutate(SaveLayout("main", map[string]any{"split": "horizontal"})); err != nil {
		t.Fatalf("SaveLayout failed: %v", err)
	}

	view, _ := LayoutsView(s.Get())
	if len(view.Layouts) != 1 {
		t.Fatalf("Expected a single layout after upsert, got %d", len(view.Layouts))
	}
	if view.Layouts[0].Panes["split"] != "horizontal" {
		t.Errorf("Expected the second save to win, got %v", view.Layouts[0].Panes)
	}
}

// TestDeleteLayout tests deletion including the active-selection cleanup
func TestDeleteLayout(t *testing.T) {
	s := newTestStore(LayoutsDescriptor())

	if err := s.Mutate(SaveLayout("main", map[string]any{"split": "vertical"})); err != nil {
		t.Fatalf("SaveLayout failed: %v", err)
	}
	if err := s.Mutate(ActivateLayout("main")); err != nil {
		t.Fatalf("ActivateLayout failed: %v", err)
	}
	if err := s.Mutate(DeleteLayout("main")); err != nil {
		t.Fatalf("DeleteLayout failed: %v", err)
	}

	view, _ := LayoutsView(s.Get())
	if len(view.Layouts) != 0 {
		t.Errorf("Expected no layouts after deletion, got %d", len(view.Layouts))
	}
	if view.Active != "" {
		t.Errorf("Expected the selection to clear with the layout, got %q", view.Active)
	}

	// Deleting an unknown layout changes nothing
	changes := 0
	defer countChanges(s, &changes)()
	if err := s.Mutate(DeleteLayout("missing")); err != nil {
		t.Fatalf("DeleteLayout failed: %v", err)
	}
	if changes != 0 {
		t.Errorf("Expected deleting an unknown layout to be a no-op, got %d changes", changes)
	}
}

// TestActivateLayout tests selection rules
func TestActivateLayout(t *testing.T) {
	s := newTestStore(LayoutsDescriptor())

	if err := s.Mutate(SaveLayout("main", nil)); err != nil {
		t.Fatalf("SaveLayout failed: %v", err)
	}

	// Unknown layouts cannot be selected
	changes := 0
	unsubscribe := countChanges(s, &changes)
	if err := s.Mutate(ActivateLayout("missing")); err != nil {
		t.Fatalf("ActivateLayout failed: %v", err)
	}
	unsubscribe()
	if changes != 0 {
		t.Errorf("Expected activating an unknown layout to be a no-op, got %d changes", changes)
	}

	if err := s.Mutate(ActivateLayout("main")); err != nil {
		t.Fatalf("ActivateLayout failed: %v", err)
	}
	view, _ := LayoutsView(s.Get())
	if view.Active != "main" {
		t.Errorf("Expected main to be active, got %q", view.Active)
	}
}
