package content

import (
	"context"
	"path/filepath"
	"testing"

	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/storage"
	"github.com/louisbranch/gather.space/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "gather.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return NewService(store, store), store
}

func TestEnsureDefaultsSeedsOnce(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}

	items, err := svc.MenuItems(ctx)
	if err != nil {
		t.Fatalf("MenuItems() error = %v", err)
	}
	if len(items) == 0 {
		t.Fatal("MenuItems() returned no seeded entries")
	}

	// An edited row survives a reseed.
	edited := storage.ContentSection{Key: "about", Title: "About us", Body: "Custom body."}
	if err := svc.SaveSection(ctx, edited); err != nil {
		t.Fatalf("SaveSection() error = %v", err)
	}
	if err := svc.EnsureDefaults(ctx); err != nil {
		t.Fatalf("repeat EnsureDefaults() error = %v", err)
	}
	section, err := svc.Section(ctx, "about")
	if err != nil {
		t.Fatalf("Section() error = %v", err)
	}
	if section.Body != "Custom body." {
		t.Errorf("Body = %q, want edit preserved", section.Body)
	}
}

func TestSectionCacheInvalidation(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()

	original := storage.ContentSection{Key: "help", Title: "Help", Body: "v1"}
	if err := svc.SaveSection(ctx, original); err != nil {
		t.Fatalf("SaveSection() error = %v", err)
	}

	// Populate the cache, then write behind the service's back.
	if _, err := svc.Section(ctx, "help"); err != nil {
		t.Fatalf("Section() error = %v", err)
	}
	direct := storage.ContentSection{Key: "help", Title: "Help", Body: "v2"}
	if err := store.UpsertSection(ctx, direct); err != nil {
		t.Fatalf("UpsertSection() error = %v", err)
	}

	// The cache still serves v1 until a service write drops it.
	section, err := svc.Section(ctx, "help")
	if err != nil {
		t.Fatalf("Section() error = %v", err)
	}
	if section.Body != "v1" {
		t.Fatalf("Body = %q, want cached v1", section.Body)
	}

	if err := svc.SaveMenuItem(ctx, storage.MenuItem{Key: "x", Title: "X", Position: 9}); err != nil {
		t.Fatalf("SaveMenuItem() error = %v", err)
	}
	section, err = svc.Section(ctx, "help")
	if err != nil {
		t.Fatalf("Section() after invalidation error = %v", err)
	}
	if section.Body != "v2" {
		t.Errorf("Body = %q, want v2 after invalidation", section.Body)
	}
}

func TestSectionNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.Section(context.Background(), "missing")
	if !platformerrors.IsCode(err, platformerrors.CodeContentSectionNotFound) {
		t.Fatalf("Section() error = %v, want code %s", err, platformerrors.CodeContentSectionNotFound)
	}
}

func TestRenderTemplate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl := storage.Template{Key: "reminder", Body: "Reminder: {event_name} starts on {event_date}."}
	if err := svc.SaveTemplate(ctx, tmpl); err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}

	got, err := svc.RenderTemplate(ctx, "reminder", map[string]string{
		"event_name": "Autumn Meetup",
		"event_date": "2026-10-10 19:00",
	})
	if err != nil {
		t.Fatalf("RenderTemplate() error = %v", err)
	}
	want := "Reminder: Autumn Meetup starts on 2026-10-10 19:00."
	if got != want {
		t.Errorf("RenderTemplate() = %q, want %q", got, want)
	}
}

func TestRenderPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		values map[string]string
		want   string
	}{
		{"plain text", "no placeholders", nil, "no placeholders"},
		{"single", "hi {name}", map[string]string{"name": "Ada"}, "hi Ada"},
		{"missing value", "hi {name}!", nil, "hi !"},
		{"unclosed brace", "hi {name", map[string]string{"name": "Ada"}, "hi {name"},
		{"adjacent", "{a}{b}", map[string]string{"a": "1", "b": "2"}, "12"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenderPlaceholders(tc.body, tc.values); got != tc.want {
				t.Errorf("RenderPlaceholders(%q) = %q, want %q", tc.body, got, tc.want)
			}
		})
	}
}

func TestNodeTree(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	rootID, err := svc.SaveNode(ctx, storage.Node{Key: "faq", Title: "FAQ", IsMainMenu: true})
	if err != nil {
		t.Fatalf("SaveNode(root) error = %v", err)
	}
	childID, err := svc.SaveNode(ctx, storage.Node{ParentID: &rootID, Title: "Parking", Content: "Street parking only.", OrderIndex: 1})
	if err != nil {
		t.Fatalf("SaveNode(child) error = %v", err)
	}

	children, err := svc.Children(ctx, &rootID)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(children) != 1 || children[0].ID != childID {
		t.Fatalf("Children() = %v, want the parking node", children)
	}

	menu, err := svc.MainMenuNodes(ctx)
	if err != nil {
		t.Fatalf("MainMenuNodes() error = %v", err)
	}
	if len(menu) != 1 || menu[0].ID != rootID {
		t.Fatalf("MainMenuNodes() = %v, want the FAQ root", menu)
	}

	byKey, err := svc.NodeByKey(ctx, "faq")
	if err != nil {
		t.Fatalf("NodeByKey() error = %v", err)
	}
	if byKey.ID != rootID {
		t.Errorf("NodeByKey().ID = %d, want %d", byKey.ID, rootID)
	}

	if err := svc.DeleteNode(ctx, rootID); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}
	if _, err := svc.Node(ctx, childID); !platformerrors.IsCode(err, platformerrors.CodeContentNodeNotFound) {
		t.Errorf("Node(child) after subtree delete error = %v, want code %s", err, platformerrors.CodeContentNodeNotFound)
	}
}
