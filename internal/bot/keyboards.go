package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/louisbranch/gather.space/internal/event"
	"github.com/louisbranch/gather.space/internal/storage"
)

// mainMenuKeyboard builds the persistent reply keyboard from the editable
// menu items followed by any content nodes pinned to the main menu.
func mainMenuKeyboard(items []storage.MenuItem, nodes []storage.Node) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, item := range items {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(item.Title)))
	}
	for _, node := range nodes {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(node.Title)))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// eventListKeyboard renders one button per upcoming event.
func eventListKeyboard(events []storage.Event) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ev := range events {
		label := fmt.Sprintf("%s — %s", ev.Name, ev.StartsAt.Format(event.ScheduleLayout))
		data := Action{Kind: ActionShowEvent, EventID: ev.ID}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// eventDetailKeyboard offers the action matching the viewer's registration
// state: register when they hold no seat, confirm/cancel when they do.
func eventDetailKeyboard(eventID string, reg storage.Registration, hasSeat bool) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if !hasSeat {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			"📝 Register",
			Action{Kind: ActionRegister, EventID: eventID}.Encode(),
		))
	} else {
		if reg.Status != storage.StatusConfirmed {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				"✅ Confirm",
				Action{Kind: ActionConfirm, EventID: eventID}.Encode(),
			))
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			"❌ Cancel",
			Action{Kind: ActionCancel, EventID: eventID}.Encode(),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(row...))
}

// confirmPromptKeyboard is attached to reminders; the confirm action books
// a seat first when the recipient holds none.
func confirmPromptKeyboard(eventID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				"✅ Confirm",
				Action{Kind: ActionConfirm, EventID: eventID}.Encode(),
			),
		),
	)
}

// consentKeyboard asks for the data processing decision.
func consentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I agree", Action{Kind: ActionConsentGrant}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ No", Action{Kind: ActionConsentDeny}.Encode()),
		),
	)
}

// nodeKeyboard renders one button per child node.
func nodeKeyboard(children []storage.Node) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, child := range children {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			child.Title,
			Action{Kind: ActionShowNode, NodeID: child.ID}.Encode(),
		)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// adminEventKeyboard offers per-event organizer actions.
func adminEventKeyboard(eventID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Remind", Action{Kind: ActionAdminRemind, EventID: eventID}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("📄 Export", Action{Kind: ActionAdminExport, EventID: eventID}.Encode()),
		),
	)
}

// adminPanelKeyboard lists active events plus the stats shortcut.
func adminPanelKeyboard(events []storage.Event) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ev := range events {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			ev.Name,
			Action{Kind: ActionAdminEvent, EventID: ev.ID}.Encode(),
		)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📊 Stats", Action{Kind: ActionAdminStats}.Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
