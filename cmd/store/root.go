package store

import (
	"github.com/ValentinKolb/sVS/cmd/util"
	"github.com/ValentinKolb/sVS/rpc/client"
	"github.com/spf13/cobra"
)

var (
	syncClient *client.SyncClient

	// StoreCommands represents the store command group
	StoreCommands = &cobra.Command{
		Use:               "store",
		Short:             "Interact with the stores of a running sVS server",
		PersistentPreRunE: setupSyncClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the store command
	util.SetupRPCClientFlags(StoreCommands)

	// Add subcommands
	StoreCommands.AddCommand(getCmd)
	StoreCommands.AddCommand(setCmd)
	StoreCommands.AddCommand(delCmd)
	StoreCommands.AddCommand(resetCmd)
	StoreCommands.AddCommand(watchCmd)
	StoreCommands.AddCommand(listCmd)
	StoreCommands.AddCommand(flushCmd)
	StoreCommands.AddCommand(perfTestCmd)
}

// setupSyncClient initializes the sync client
func setupSyncClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the sync client
	syncClient, err = client.NewSyncClient(*config, t, s)

	return err
}
