// Package content manages editable copy: informational sections, the main
// menu, reusable message templates, and the navigable node tree.
package content

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/storage"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type defaults struct {
	Sections []struct {
		Key   string `yaml:"key"`
		Title string `yaml:"title"`
		Body  string `yaml:"body"`
	} `yaml:"sections"`
	Menu []struct {
		Key      string `yaml:"key"`
		Title    string `yaml:"title"`
		Position int    `yaml:"position"`
	} `yaml:"menu"`
	Templates []struct {
		Key  string `yaml:"key"`
		Body string `yaml:"body"`
	} `yaml:"templates"`
}

// Service serves content reads through a cache and invalidates it on every
// write. The cache is owned by the service instance, nothing else touches it.
type Service struct {
	store storage.ContentStore
	nodes storage.NodeStore
	cache *cache
}

// NewService creates a content service over the given stores.
func NewService(store storage.ContentStore, nodes storage.NodeStore) *Service {
	return &Service{store: store, nodes: nodes, cache: newCache()}
}

// EnsureDefaults seeds sections, menu items and templates that do not exist
// yet. Existing rows are never overwritten, edits made through the admin
// panel survive restarts.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	var seed defaults
	if err := yaml.Unmarshal(defaultsYAML, &seed); err != nil {
		return fmt.Errorf("decode default content: %w", err)
	}

	existingSections := map[string]bool{}
	sections, err := s.store.ListSections(ctx)
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}
	for _, section := range sections {
		existingSections[section.Key] = true
	}
	for _, section := range seed.Sections {
		if existingSections[section.Key] {
			continue
		}
		err := s.store.UpsertSection(ctx, storage.ContentSection{
			Key:   section.Key,
			Title: section.Title,
			Body:  strings.TrimSpace(section.Body),
		})
		if err != nil {
			return fmt.Errorf("seed section %s: %w", section.Key, err)
		}
	}

	existingMenu := map[string]bool{}
	items, err := s.store.ListMenuItems(ctx)
	if err != nil {
		return fmt.Errorf("list menu items: %w", err)
	}
	for _, item := range items {
		existingMenu[item.Key] = true
	}
	for _, item := range seed.Menu {
		if existingMenu[item.Key] {
			continue
		}
		err := s.store.UpsertMenuItem(ctx, storage.MenuItem{
			Key:      item.Key,
			Title:    item.Title,
			Position: item.Position,
		})
		if err != nil {
			return fmt.Errorf("seed menu item %s: %w", item.Key, err)
		}
	}

	existingTemplates := map[string]bool{}
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	for _, tmpl := range templates {
		existingTemplates[tmpl.Key] = true
	}
	for _, tmpl := range seed.Templates {
		if existingTemplates[tmpl.Key] {
			continue
		}
		err := s.store.UpsertTemplate(ctx, storage.Template{Key: tmpl.Key, Body: tmpl.Body})
		if err != nil {
			return fmt.Errorf("seed template %s: %w", tmpl.Key, err)
		}
	}

	s.cache.invalidate()
	return nil
}

// Section returns one section by key.
func (s *Service) Section(ctx context.Context, key string) (storage.ContentSection, error) {
	if section, ok := s.cache.section(key); ok {
		return section, nil
	}
	section, err := s.store.GetSection(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return storage.ContentSection{}, platformerrors.New(platformerrors.CodeContentSectionNotFound, fmt.Sprintf("section %q not found", key))
		}
		return storage.ContentSection{}, fmt.Errorf("get section: %w", err)
	}
	s.cache.putSection(section)
	return section, nil
}

// SaveSection creates or overwrites a section.
func (s *Service) SaveSection(ctx context.Context, section storage.ContentSection) error {
	if strings.TrimSpace(section.Key) == "" {
		return platformerrors.New(platformerrors.CodeContentSectionNotFound, "section key is empty")
	}
	if err := s.store.UpsertSection(ctx, section); err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}
	s.cache.invalidate()
	return nil
}

// DeleteSection removes a section.
func (s *Service) DeleteSection(ctx context.Context, key string) error {
	if err := s.store.DeleteSection(ctx, key); err != nil {
		if isNotFound(err) {
			return platformerrors.New(platformerrors.CodeContentSectionNotFound, fmt.Sprintf("section %q not found", key))
		}
		return fmt.Errorf("delete section: %w", err)
	}
	s.cache.invalidate()
	return nil
}

// MenuItems returns the main menu in display order.
func (s *Service) MenuItems(ctx context.Context) ([]storage.MenuItem, error) {
	if items, ok := s.cache.menu(); ok {
		return items, nil
	}
	items, err := s.store.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	s.cache.putMenu(items)
	return items, nil
}

// SaveMenuItem creates or overwrites a menu entry.
func (s *Service) SaveMenuItem(ctx context.Context, item storage.MenuItem) error {
	if err := s.store.UpsertMenuItem(ctx, item); err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	s.cache.invalidate()
	return nil
}

// DeleteMenuItem removes a menu entry.
func (s *Service) DeleteMenuItem(ctx context.Context, key string) error {
	if err := s.store.DeleteMenuItem(ctx, key); err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	s.cache.invalidate()
	return nil
}

// Template returns one template body by key.
func (s *Service) Template(ctx context.Context, key string) (storage.Template, error) {
	if tmpl, ok := s.cache.template(key); ok {
		return tmpl, nil
	}
	tmpl, err := s.store.GetTemplate(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return storage.Template{}, platformerrors.New(platformerrors.CodeContentSectionNotFound, fmt.Sprintf("template %q not found", key))
		}
		return storage.Template{}, fmt.Errorf("get template: %w", err)
	}
	s.cache.putTemplate(tmpl)
	return tmpl, nil
}

// SaveTemplate creates or overwrites a template.
func (s *Service) SaveTemplate(ctx context.Context, tmpl storage.Template) error {
	if err := s.store.UpsertTemplate(ctx, tmpl); err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	s.cache.invalidate()
	return nil
}

// RenderTemplate loads a template and substitutes {placeholder} values.
// Placeholders with no value render empty rather than leaking braces.
func (s *Service) RenderTemplate(ctx context.Context, key string, values map[string]string) (string, error) {
	tmpl, err := s.Template(ctx, key)
	if err != nil {
		return "", err
	}
	return RenderPlaceholders(tmpl.Body, values), nil
}

// RenderPlaceholders substitutes {placeholder} markers in body.
func RenderPlaceholders(body string, values map[string]string) string {
	var out strings.Builder
	for {
		open := strings.Index(body, "{")
		if open < 0 {
			out.WriteString(body)
			break
		}
		length := strings.Index(body[open:], "}")
		if length < 0 {
			out.WriteString(body)
			break
		}
		out.WriteString(body[:open])
		out.WriteString(values[body[open+1:open+length]])
		body = body[open+length+1:]
	}
	return out.String()
}

// Node returns one tree node by ID.
func (s *Service) Node(ctx context.Context, nodeID int64) (storage.Node, error) {
	node, err := s.nodes.GetNode(ctx, nodeID)
	if err != nil {
		if isNotFound(err) {
			return storage.Node{}, platformerrors.New(platformerrors.CodeContentNodeNotFound, fmt.Sprintf("node %d not found", nodeID))
		}
		return storage.Node{}, fmt.Errorf("get node: %w", err)
	}
	return node, nil
}

// NodeByKey returns one tree node by its stable key.
func (s *Service) NodeByKey(ctx context.Context, key string) (storage.Node, error) {
	node, err := s.nodes.GetNodeByKey(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return storage.Node{}, platformerrors.New(platformerrors.CodeContentNodeNotFound, fmt.Sprintf("node %q not found", key))
		}
		return storage.Node{}, fmt.Errorf("get node by key: %w", err)
	}
	return node, nil
}

// Children returns the ordered children of a node; nil parent means roots.
func (s *Service) Children(ctx context.Context, parentID *int64) ([]storage.Node, error) {
	nodes, err := s.nodes.ListChildren(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return nodes, nil
}

// MainMenuNodes returns nodes pinned to the main menu.
func (s *Service) MainMenuNodes(ctx context.Context) ([]storage.Node, error) {
	if nodes, ok := s.cache.mainMenuNodes(); ok {
		return nodes, nil
	}
	nodes, err := s.nodes.ListMainMenuNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list main menu nodes: %w", err)
	}
	s.cache.putMainMenuNodes(nodes)
	return nodes, nil
}

// SaveNode creates or updates a tree node and returns its ID.
func (s *Service) SaveNode(ctx context.Context, node storage.Node) (int64, error) {
	nodeID, err := s.nodes.UpsertNode(ctx, node)
	if err != nil {
		return 0, fmt.Errorf("upsert node: %w", err)
	}
	s.cache.invalidate()
	return nodeID, nil
}

// DeleteNode removes a node and its whole subtree.
func (s *Service) DeleteNode(ctx context.Context, nodeID int64) error {
	if err := s.nodes.DeleteNode(ctx, nodeID); err != nil {
		if isNotFound(err) {
			return platformerrors.New(platformerrors.CodeContentNodeNotFound, fmt.Sprintf("node %d not found", nodeID))
		}
		return fmt.Errorf("delete node: %w", err)
	}
	s.cache.invalidate()
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// cache is a plain invalidate-on-write cache. Writes drop the whole cache,
// the next read repopulates the entry it needs.
type cache struct {
	mu        sync.RWMutex
	sections  map[string]storage.ContentSection
	templates map[string]storage.Template
	menuItems []storage.MenuItem
	menuNodes []storage.Node
}

func newCache() *cache {
	c := &cache{}
	c.reset()
	return c
}

func (c *cache) reset() {
	c.sections = make(map[string]storage.ContentSection)
	c.templates = make(map[string]storage.Template)
	c.menuItems = nil
	c.menuNodes = nil
}

func (c *cache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *cache) section(key string) (storage.ContentSection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	section, ok := c.sections[key]
	return section, ok
}

func (c *cache) putSection(section storage.ContentSection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections[section.Key] = section
}

func (c *cache) template(key string) (storage.Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tmpl, ok := c.templates[key]
	return tmpl, ok
}

func (c *cache) putTemplate(tmpl storage.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[tmpl.Key] = tmpl
}

func (c *cache) menu() ([]storage.MenuItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.menuItems, c.menuItems != nil
}

func (c *cache) putMenu(items []storage.MenuItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menuItems = items
}

func (c *cache) mainMenuNodes() ([]storage.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.menuNodes, c.menuNodes != nil
}

func (c *cache) putMainMenuNodes(nodes []storage.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menuNodes = nodes
}
