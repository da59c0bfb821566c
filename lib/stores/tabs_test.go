package stores

import (
	"testing"
)

// TestTabsDefaults tests the initial model shape
func TestTabsDefaults(t *testing.T) {
	view, err := TabsView(TabsDescriptor().Initial)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.Areas) != 0 {
		t.Errorf("Expected no areas initially, got %v", view.Areas)
	}
}

// TestOpenTab tests opening and re-activating tabs
func TestOpenTab(t *testing.T) {
	s := newTestStore(TabsDescriptor())

	if err := s.Mutate(OpenTab("editor", "a")); err != nil {
		t.Fatalf("OpenTab failed: %v", err)
	}
	if err := s.Mutate(OpenTab("editor", "b")); err != nil {
		t.Fatalf("OpenTab failed: %v", err)
	}

	view, _ := TabsView(s.Get())
	area := view.Areas["editor"]
	if len(area.Open) != 2 || area.Active != "b" {
		t.Fatalf("Expected 2 open tabs with b active, got %+v", area)
	}

	// Re-opening an open tab only re-activates it
	if err := s.Mutate(OpenTab("editor", "a")); err != nil {
		t.Fatalf("OpenTab failed: %v", err)
	}
	view, _ = TabsView(s.Get())
	area = view.Areas["editor"]
	if len(area.Open) != 2 || area.Active != "a" {
		t.Errorf("Expected re-opening to only activate, got %+v", area)
	}
}

// TestCloseTab tests the active-tab handover
func TestCloseTab(t *testing.T) {
	s := newTestStore(TabsDescriptor())

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Mutate(OpenTab("editor", id)); err != nil {
			t.Fatalf("OpenTab failed: %v", err)
		}
	}

	// Closing the active tab hands activity to the last remaining one
	if err := s.Mutate(CloseTab("editor", "c")); err != nil {
		t.Fatalf("CloseTab failed: %v", err)
	}
	view, _ := TabsView(s.Get())
	if area := view.Areas["editor"]; len(area.Open) != 2 || area.Active != "b" {
		t.Errorf("Expected b to become active, got %+v", area)
	}

	// Closing an inactive tab leaves the active one alone
	if err := s.Mutate(CloseTab("editor", "a")); err != nil {
		t.Fatalf("CloseTab failed: %v", err)
	}
	view, _ = TabsView(s.Get())
	if area := view.Areas["editor"]; len(area.Open) != 1 || area.Active != "b" {
		t.Errorf("Expected b to stay active, got %+v", area)
	}

	// Closing the last tab clears the selection
	if err := s.Mutate(CloseTab("editor", "b")); err != nil {
		t.Fatalf("CloseTab failed: %v", err)
	}
	view, _ = TabsView(s.Get())
	if area := view.Areas["editor"]; len(area.Open) != 0 || area.Active != "" {
		t.Errorf("Expected an empty area, got %+v", area)
	}
}

// TestCloseUnknownTab tests that closing a missing tab changes nothing
func TestCloseUnknownTab(t *testing.T) {
	s := newTestStore(TabsDescriptor())

	if err := s.Mutate(OpenTab("editor", "a")); err != nil {
		t.Fatalf("OpenTab failed: %v", err)
	}

	changes := 0
	defer countChanges(s, &changes)()
	if err := s.Mutate(CloseTab("editor", "zz")); err != nil {
		t.Fatalf("CloseTab failed: %v", err)
	}
	if changes != 0 {
		t.Errorf("Expected no change when closing an unknown tab, got %d", changes)
	}
}

// TestActivateTab tests explicit activation
func TestActivateTab(t *testing.T) {
	s := newTestStore(TabsDescriptor())

	for _, id := range []string{"a", "b"} {
		if err := s.Mutate(OpenTab("editor", id)); err != nil {
			t.Fatalf("OpenTab failed: %v", err)
		}
	}

	if err := s.Mutate(ActivateTab("editor", "a")); err != nil {
		t.Fatalf("ActivateTab failed: %v", err)
	}
	view, _ := TabsView(s.Get())
	if view.Areas["editor"].Active != "a" {
		t.Errorf("Expected a to be active, got %+v", view.Areas["editor"])
	}

	// Activating a tab that is not open is ignored
	changes := 0
	defer countChanges(s, &changes)()
	if err := s.Mutate(ActivateTab("editor", "zz")); err != nil {
		t.Fatalf("ActivateTab failed: %v", err)
	}
	if changes != 0 {
		t.Errorf("Expected activating an unknown tab to be a no-op, got %d changes", changes)
	}
}
