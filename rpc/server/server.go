package server

import (
	"fmt"

	"github.com/ValentinKolb/sVS/lib/logging"
	"github.com/ValentinKolb/sVS/lib/store"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/serializer"
	"github.com/ValentinKolb/sVS/rpc/transport"
)

var Logger = logging.GetLogger("rpc")

// NewSyncServer creates a new sync server for the given registry.
// It takes a config, registry, transport and serializer as parameters.
//
// The registry decides what the server serves: every store created in it is
// reachable over the sync channel, and the stores must be authority
// instances. Several servers (e.g. one per transport) can share a single
// registry, they then serve the same stores.
//
// Usage:
//
//	s := server.NewSyncServer(
//		config,
//		registry,
//		unix.NewUnixDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewSyncServer(
	config common.ServerConfig,
	registry *store.Registry,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *syncServer {
	Logger.Infof("Created sync server")
	Logger.Infof(config.String())

	return &syncServer{
		config:     config,
		registry:   registry,
		transport:  transport,
		serializer: serializer,
		adapter:    NewSyncServerAdapter(registry, serializer),
	}
}

type syncServer struct {
	config     common.ServerConfig
	registry   *store.Registry
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
}

// registerTransportHandler wires the adapter into the transport layer
func (s *syncServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(session transport.ISession, req []byte, respond func(resp []byte)) {
		// reply serializes a message and enqueues it as the response
		reply := func(msg *common.Message) {
			data, err := s.serializer.Serialize(*msg)
			if err != nil {
				Logger.Errorf("Failed to serialize response: %v", err)
				data, _ = s.serializer.Serialize(*common.NewErrorResponse(
					fmt.Sprintf("failed to serialize response: %v", err),
				))
			}
			respond(data)
		}

		// Decode the request
		var msg common.Message
		if err := s.serializer.Deserialize(req, &msg); err != nil {
			reply(common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %v", err)))
			return
		}

		// Let the adapter handle the request
		s.adapter.Handle(session, &msg, reply)
	})

	s.transport.RegisterCloseHandler(func(session transport.ISession) {
		s.adapter.SessionClosed(session)
	})
}

// Serve configures the transport layer and serves until the listener closes.
// An invalid log level in the config panics, like every misconfigured level
// does.
func (s *syncServer) Serve() error {
	if s.config.LogLevel != "" {
		logging.SetGlobalLogLevel(logging.ParseLogLevel(s.config.LogLevel))
	}

	s.registerTransportHandler()
	return s.transport.Listen(s.config)
}
