package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/gather.space/internal/storage"
)

// startSetSection expects "<key> [title...]" and asks for the body text.
// An omitted title keeps the stored one, or falls back to the key.
func (b *Bot) startSetSection(ctx context.Context, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		b.send(ctx, chatID, "Usage: /set_section <key> [title]")
		return
	}
	b.states.set(chatID, chatState{
		kind:         stateAwaitSectionBody,
		contentKey:   parts[0],
		contentTitle: strings.Join(parts[1:], " "),
	})
	b.send(ctx, chatID, fmt.Sprintf("Send the text for section %s:", parts[0]))
}

func (b *Bot) finishSetSection(ctx context.Context, chatID int64, state chatState, body string) {
	title := state.contentTitle
	if title == "" {
		title = state.contentKey
		if section, err := b.content.Section(ctx, state.contentKey); err == nil {
			title = section.Title
		}
	}
	err := b.content.SaveSection(ctx, storage.ContentSection{
		Key:   state.contentKey,
		Title: title,
		Body:  body,
	})
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.states.clear(chatID)
	b.send(ctx, chatID, fmt.Sprintf("Section %s saved.", state.contentKey))
}

func (b *Bot) deleteSection(ctx context.Context, chatID int64, args string) {
	key := strings.TrimSpace(args)
	if key == "" {
		b.send(ctx, chatID, "Usage: /del_section <key>")
		return
	}
	if err := b.content.DeleteSection(ctx, key); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Section %s deleted.", key))
}

// setMenuItem expects "<key> <position> <title...>". The title is what the
// reply keyboard shows, the key routes the press.
func (b *Bot) setMenuItem(ctx context.Context, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) < 3 {
		b.send(ctx, chatID, "Usage: /set_menu <key> <position> <title>")
		return
	}
	position, err := strconv.Atoi(parts[1])
	if err != nil {
		b.send(ctx, chatID, "The position must be a number.")
		return
	}
	err = b.content.SaveMenuItem(ctx, storage.MenuItem{
		Key:      parts[0],
		Title:    strings.Join(parts[2:], " "),
		Position: position,
	})
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Menu item %s saved.", parts[0]))
}

func (b *Bot) deleteMenuItem(ctx context.Context, chatID int64, args string) {
	key := strings.TrimSpace(args)
	if key == "" {
		b.send(ctx, chatID, "Usage: /del_menu <key>")
		return
	}
	if err := b.content.DeleteMenuItem(ctx, key); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Menu item %s deleted.", key))
}

// startSetTemplate expects a template key and asks for the body, which may
// carry {placeholder} markers.
func (b *Bot) startSetTemplate(ctx context.Context, chatID int64, args string) {
	key := strings.TrimSpace(args)
	if key == "" {
		b.send(ctx, chatID, "Usage: /set_template <key>")
		return
	}
	b.states.set(chatID, chatState{kind: stateAwaitTemplateBody, contentKey: key})
	b.send(ctx, chatID, fmt.Sprintf("Send the text for template %s. Placeholders like {event_name} are substituted on delivery:", key))
}

func (b *Bot) finishSetTemplate(ctx context.Context, chatID int64, state chatState, body string) {
	if err := b.content.SaveTemplate(ctx, storage.Template{Key: state.contentKey, Body: body}); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.states.clear(chatID)
	b.send(ctx, chatID, fmt.Sprintf("Template %s saved.", state.contentKey))
}

// startSetNode expects "<key> <title...>" for a main menu node, or
// "<parent-key>/<key> <title...>" to nest under an existing node, then asks
// for the node text.
func (b *Bot) startSetNode(ctx context.Context, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		b.send(ctx, chatID, "Usage: /set_node <key> <title> or /set_node <parent-key>/<key> <title>")
		return
	}
	parentKey, key, nested := strings.Cut(parts[0], "/")
	if !nested {
		key, parentKey = parentKey, ""
	}
	b.states.set(chatID, chatState{
		kind:          stateAwaitNodeContent,
		contentKey:    key,
		contentTitle:  strings.Join(parts[1:], " "),
		nodeParentKey: parentKey,
	})
	b.send(ctx, chatID, fmt.Sprintf("Send the text for node %s (or a dash for none):", key))
}

func (b *Bot) finishSetNode(ctx context.Context, chatID int64, state chatState, body string) {
	node := storage.Node{
		Key:        state.contentKey,
		Title:      state.contentTitle,
		IsMainMenu: state.nodeParentKey == "",
	}
	if strings.TrimSpace(body) != "-" {
		node.Content = body
	}
	if state.nodeParentKey != "" {
		parent, err := b.content.NodeByKey(ctx, state.nodeParentKey)
		if err != nil {
			b.replyError(ctx, chatID, err)
			return
		}
		node.ParentID = &parent.ID
	}
	// Editing an existing key updates the node in place.
	if existing, err := b.content.NodeByKey(ctx, state.contentKey); err == nil {
		node.ID = existing.ID
		node.OrderIndex = existing.OrderIndex
	}
	if _, err := b.content.SaveNode(ctx, node); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.states.clear(chatID)
	b.send(ctx, chatID, fmt.Sprintf("Node %s saved.", state.contentKey))
}

func (b *Bot) deleteNode(ctx context.Context, chatID int64, args string) {
	key := strings.TrimSpace(args)
	if key == "" {
		b.send(ctx, chatID, "Usage: /del_node <key>")
		return
	}
	node, err := b.content.NodeByKey(ctx, key)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if err := b.content.DeleteNode(ctx, node.ID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Node %s deleted along with its subtree.", key))
}
