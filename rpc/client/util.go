package client

import (
	"fmt"

	"github.com/ValentinKolb/sVS/lib/logging"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/serializer"
	"github.com/ValentinKolb/sVS/rpc/transport"
)

// Logger is the logger for the rpc client (docu see lib/logging)
var Logger = logging.GetLogger("rpc")

// ChannelUnavailableError reports a request that could not be delivered
// because the sync channel is down. Replica stores keep serving local state
// while this persists; the next successful reconnect re-seeds them.
type ChannelUnavailableError struct {
	Addr string
	Err  error
}

func (e *ChannelUnavailableError) Error() string {
	return fmt.Sprintf("sync channel to %s unavailable: %v", e.Addr, e.Err)
}

func (e *ChannelUnavailableError) Unwrap() error {
	return e.Err
}

// invokeRPCRequest sends a request over the transport and validates the
// response. Transport failures are wrapped in ChannelUnavailableError so
// callers can tell a dead channel from a request the authority rejected.
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	// Send the request
	respBytes, err := transport.Send(reqBytes)
	if err != nil {
		return nil, &ChannelUnavailableError{Addr: transport.Endpoint(), Err: err}
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, fmt.Errorf("request rejected: %s", resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("unexpected response type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	// Return the response
	return resp, nil
}
