// Package feishu implements the operator control channel on Feishu (Lark).
//
// The bridge connects the console to a Feishu bot. Outbound, it renders
// console messages as interactive cards and posts or patches them through
// the IM API. Inbound, it holds a long-lived WebSocket event connection and
// feeds text messages and card button presses to a Handler.
//
//	┌──────────┐  HandleText      ┌──────────┐  im.message.receive_v1  ┌────────┐
//	│ console  │◄─────────────────│  bridge  │◄────────────────────────│ Feishu │
//	│          │  HandleSelector  │ (this    │◄──── card.action.trigger│        │
//	│          │─────────────────►│  pkg)    │──── im/v1/messages ────►│        │
//	└──────────┘  Send / Edit     └──────────┘                         └────────┘
//
// # Cards
//
// Each console message becomes a card with one markdown element and one
// action row per button row. A button's value is {"payload": "<selector>"};
// the payload comes back verbatim in the card action callback.
//
// # Identity
//
// Operators are identified by chat id (oc_...). The allow-list in config
// lists chat ids, which keeps a session bound to the conversation it was
// started in.
package feishu
