// Package console is the operator-facing side of RelayDesk.
//
// It turns chat input from allow-listed operators into registry queries,
// message log pages and interaction sessions, and renders the results as
// chat messages with buttons. It also announces device activity (first
// check-in, inbound messages, send reports, form submissions) to every
// operator as an event.Sink.
//
// The console knows nothing about a specific chat platform. A Channel
// delivers Messages; the Feishu bridge is the production implementation.
//
// # Inputs
//
//	HandleText      free text: "cancel", numbers, message bodies, root commands
//	HandleSelector  button presses carrying a session.Selector or menu payload
//
// Text input is debounced per operator (500ms by default); inputs inside
// the window are dropped without a reply.
package console
