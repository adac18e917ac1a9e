package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind discriminates callback actions.
type ActionKind string

// Callback actions the transport understands. The wire tokens are short
// because Telegram caps callback data at 64 bytes.
const (
	ActionShowEvent    ActionKind = "ev"
	ActionRegister     ActionKind = "reg"
	ActionConfirm      ActionKind = "cf"
	ActionCancel       ActionKind = "cx"
	ActionShowNode     ActionKind = "nd"
	ActionConsentGrant ActionKind = "cy"
	ActionConsentDeny  ActionKind = "cn"
	ActionAdminEvent   ActionKind = "aev"
	ActionAdminRemind  ActionKind = "arm"
	ActionAdminExport  ActionKind = "aex"
	ActionAdminStats   ActionKind = "ast"
)

// Action is a decoded callback payload. Kind is always set; EventID and
// NodeID are populated for the kinds that carry one.
type Action struct {
	Kind    ActionKind
	EventID string
	NodeID  int64
}

// Encode renders the action as callback data.
func (a Action) Encode() string {
	switch a.Kind {
	case ActionShowNode:
		return fmt.Sprintf("%s:%d", a.Kind, a.NodeID)
	case ActionShowEvent, ActionRegister, ActionConfirm, ActionCancel,
		ActionAdminEvent, ActionAdminRemind, ActionAdminExport:
		return fmt.Sprintf("%s:%s", a.Kind, a.EventID)
	default:
		return string(a.Kind)
	}
}

// DecodeAction parses callback data. This is the only place raw callback
// strings are interpreted; handlers work with the typed Action.
func DecodeAction(data string) (Action, error) {
	kind, payload, _ := strings.Cut(data, ":")
	switch ActionKind(kind) {
	case ActionConsentGrant, ActionConsentDeny, ActionAdminStats:
		if payload != "" {
			return Action{}, fmt.Errorf("action %q carries unexpected payload", kind)
		}
		return Action{Kind: ActionKind(kind)}, nil
	case ActionShowNode:
		nodeID, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("action %q: bad node id %q", kind, payload)
		}
		return Action{Kind: ActionShowNode, NodeID: nodeID}, nil
	case ActionShowEvent, ActionRegister, ActionConfirm, ActionCancel,
		ActionAdminEvent, ActionAdminRemind, ActionAdminExport:
		if payload == "" {
			return Action{}, fmt.Errorf("action %q is missing an event id", kind)
		}
		return Action{Kind: ActionKind(kind), EventID: payload}, nil
	default:
		return Action{}, fmt.Errorf("unknown action %q", data)
	}
}
