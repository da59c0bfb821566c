package serve

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/sVS/cmd/util"
	"github.com/ValentinKolb/sVS/lib/storage"
	"github.com/ValentinKolb/sVS/lib/storage/engines/badger"
	"github.com/ValentinKolb/sVS/lib/storage/engines/jsonfile"
	"github.com/ValentinKolb/sVS/lib/storage/engines/memory"
	"github.com/ValentinKolb/sVS/lib/store"
	"github.com/ValentinKolb/sVS/lib/store/astore"
	"github.com/ValentinKolb/sVS/lib/stores"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/serializer"
	"github.com/ValentinKolb/sVS/rpc/server"
	"github.com/ValentinKolb/sVS/rpc/transport"
	"github.com/ValentinKolb/sVS/rpc/transport/tcp"
	"github.com/ValentinKolb/sVS/rpc/transport/unix"
	"github.com/ValentinKolb/sVS/rpc/transport/ws"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	servedStores   []store.Descriptor

	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the sVS authority server",
		Long:    `Start the sVS authority server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SVS_<flag> (e.g. SVS_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "stores"
	ServeCmd.PersistentFlags().String(key, "preferences,hotbars,tabs,layouts", cmdUtil.WrapString("Comma-separated list of built-in stores to serve"))

	key = "engine"
	ServeCmd.PersistentFlags().String(key, "jsonfile", cmdUtil.WrapString("Persistence engine to use (jsonfile, badger, memory)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("Directory the persistence engine stores its files in (ignored for memory)"))

	key = "flush-quiescence-ms"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Debounce window in milliseconds: a store is flushed once no mutation arrived for this long (0 = default 500)"))

	key = "flush-max-delay-ms"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Upper bound in milliseconds for how long continuous mutation can defer a flush (0 = default 5000)"))

	key = "badger-sync-writes"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Force an fsync per BadgerDB write (only for the badger engine)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the sync channel will listen (e.g. localhost:8080, /tmp/svs.sock, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address for the metrics and pprof HTTP endpoint (e.g. localhost:9090, empty = disabled)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("Timeout for single write operations in seconds"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warning, error)"))

	key = "transport-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the write buffer for the transport (in KB, ignored for unix)"))

	key = "transport-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the read buffer for the transport (in KB, ignored for unix)"))

	key = "transport-tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 30, cmdUtil.WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The linger time for the transport (in seconds, only for tcp)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse the stores to serve
	descs, err := descriptorsFor(viper.GetString("stores"))
	if err != nil {
		return err
	}
	servedStores = descs

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.TransportConfig{
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
	}

	return nil
}

// run starts the sVS authority server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "tcp":
		t = tcp.NewTCPDefaultServerTransport()
	case "unix":
		t = unix.NewUnixDefaultServerTransport()
	case "ws":
		t = ws.NewWSServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	// create the persistence engine
	backend, err := newBackend()
	if err != nil {
		return err
	}

	// create the registry and pre-create the served stores. Replicas can only
	// attach to stores that exist, so all of them are created eagerly.
	registry := store.NewRegistry(func(desc store.Descriptor) (store.IStore, error) {
		return astore.New(desc, backend), nil
	})
	for _, desc := range servedStores {
		if _, err := registry.GetOrCreate(desc); err != nil {
			return fmt.Errorf("failed to create store %q: %w", desc.Name, err)
		}
	}

	// optionally expose metrics and pprof
	if addr := viper.GetString("metrics-endpoint"); addr != "" {
		http.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			metrics.WritePrometheus(w, true)
		})
		// the pprof handlers register themselves on the default mux
		go func() {
			if err := http.ListenAndServe(addr, nil); err != nil {
				fmt.Printf("metrics endpoint failed: %v\n", err)
			}
		}()
	}

	serv := server.NewSyncServer(
		*serveCmdConfig,
		registry,
		t,
		s,
	)

	// serve until the listener fails or a shutdown signal arrives
	errCh := make(chan error, 1)
	go func() {
		errCh <- serv.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		fmt.Printf("received %s, flushing stores\n", sig)
		if err := registry.FlushAll(); err != nil {
			fmt.Printf("flush on shutdown failed: %v\n", err)
		}
		if err := registry.Close(); err != nil {
			fmt.Printf("store shutdown failed: %v\n", err)
		}
		if err := backend.Close(); err != nil {
			fmt.Printf("engine shutdown failed: %v\n", err)
		}
		return nil
	}
}

// newBackend creates the persistence engine selected by the engine flag
func newBackend() (storage.IBackend, error) {
	quiescence := time.Duration(viper.GetInt("flush-quiescence-ms")) * time.Millisecond
	maxDelay := time.Duration(viper.GetInt("flush-max-delay-ms")) * time.Millisecond
	dataDir := viper.GetString("data-dir")

	switch viper.GetString("engine") {
	case "jsonfile":
		return jsonfile.New(jsonfile.Config{
			Dir:        dataDir,
			Quiescence: quiescence,
			MaxDelay:   maxDelay,
		})
	case "badger":
		return badger.New(badger.Config{
			Dir:        filepath.Join(dataDir, "badger"),
			SyncWrites: viper.GetBool("badger-sync-writes"),
			Quiescence: quiescence,
			MaxDelay:   maxDelay,
		})
	case "memory":
		return memory.New(&memory.Options{
			Quiescence: quiescence,
			MaxDelay:   maxDelay,
		})
	default:
		return nil, fmt.Errorf("invalid engine %s", viper.GetString("engine"))
	}
}

// descriptorsFor resolves a comma-separated list of built-in store names
func descriptorsFor(names string) ([]store.Descriptor, error) {
	byName := make(map[string]store.Descriptor)
	available := make([]string, 0)
	for _, desc := range stores.All() {
		byName[desc.Name] = desc
		available = append(available, desc.Name)
	}
	sort.Strings(available)

	var descs []store.Descriptor
	for _, raw := range strings.Split(names, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		desc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown store %q (available: %s)", name, strings.Join(available, ", "))
		}
		descs = append(descs, desc)
	}
	if len(descs) == 0 {
		return nil, fmt.Errorf("no stores configured")
	}
	return descs, nil
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("svs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
