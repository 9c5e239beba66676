package chat

//go:generate go run go.uber.org/mock/mockgen -source=transport.go -destination=mock_transport_test.go -package=chat

// Transport is the per-connection delivery side of the transport adapter.
//
// Send must not block: it either queues the frame for the session or fails.
// Close tears down the session's connection and must tolerate ids that are
// already gone.
type Transport interface {
	Send(id SessionID, frame []byte) error
	Close(id SessionID)
}
