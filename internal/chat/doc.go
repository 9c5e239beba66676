// Package chat implements the session broadcast hub behind the group chat:
// the Registry of connected sessions, the wire protocol, and the Router that
// turns inbound session actions into outbound events for the right recipients.
//
// The package knows nothing about sockets. A transport adapter reports
// connects, disconnects and decoded actions to the Router, and the Router
// hands encoded frames back through the Transport interface.
package chat
