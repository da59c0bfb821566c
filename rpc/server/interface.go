package server

import (
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/transport"
)

// IRPCServerAdapter is the interface for all sync server adapters.
// It is responsible for handling requests and for the session lifecycle.
type IRPCServerAdapter interface {
	// Handle handles a request of a session. The response must be passed to
	// respond exactly once before returning. Both respond and session.Push
	// enqueue into the same ordered session queue, which lets the adapter
	// control where the response lands relative to its pushes.
	// If an error occurs, it should be set in the response.
	Handle(session transport.ISession, req *common.Message, respond func(resp *common.Message))

	// SessionClosed releases everything the adapter holds for the session
	// (subscriptions in particular). Called by the transport layer after the
	// session's connection is gone.
	SessionClosed(session transport.ISession)
}
