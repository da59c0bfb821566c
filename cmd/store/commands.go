package store

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/stores"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [store] [path]",
		Short: "Reads the current model of a store",
		Long: "Reads the current model of a store. An optional dot separated path " +
			"narrows the output to one subtree (e.g. 'svs store get preferences " +
			"editor.fontSize').",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			doc, seq, err := syncClient.Fetch(name)
			if err != nil {
				return err
			}
			var value any = doc
			if len(args) == 2 {
				v, ok := document.Get(doc, splitPath(args[1])...)
				if !ok {
					return fmt.Errorf("path %q not found in store %q", args[1], name)
				}
				value = v
			}
			if out, err := json.MarshalIndent(value, "", "  "); err != nil {
				return err
			} else {
				fmt.Printf("store=%s, seq=%d\n%s\n", name, seq, out)
			}
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [store] [path] [value]",
		Short: "Sets the value at a path of a store's model",
		Long: "Sets the value at a dot separated path of a store's model " +
			"(e.g. 'svs store set preferences appearance.theme dark'). The value " +
			"is parsed as JSON where possible, so numbers, booleans, objects and " +
			"lists keep their type, everything else is stored as a string.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path, value := args[0], args[1], args[2]
			if err := mutate(name, func(doc document.Document) document.Document {
				document.Set(doc, parseValue(value), splitPath(path)...)
				return doc
			}); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [store] [path]",
		Short: "Deletes the value at a path of a store's model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			if err := mutate(name, func(doc document.Document) document.Document {
				document.Delete(doc, splitPath(path)...)
				return doc
			}); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	resetCmd = &cobra.Command{
		Use:   "reset [store]",
		Short: "Resets a store to its initial model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			desc, ok := stores.DescriptorFor(name)
			if !ok {
				return fmt.Errorf("no built-in descriptor for store %q", name)
			}
			rs, err := syncClient.NewStore(desc)
			if err != nil {
				return err
			}
			// Wait for the seed, otherwise a reset of an already initial local
			// model would be discarded as a no-op before reaching the server
			if err := syncClient.AwaitSeeded(name); err != nil {
				return err
			}
			if err := rs.Reset(); err != nil {
				return err
			}
			// Close drains the queued intent before detaching
			if err := syncClient.Close(); err != nil {
				return err
			}
			fmt.Println("reset successfully")
			return nil
		},
	}
	watchCmd = &cobra.Command{
		Use:   "watch [store]",
		Short: "Prints every snapshot of a store until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			desc, ok := stores.DescriptorFor(name)
			if !ok {
				return fmt.Errorf("no built-in descriptor for store %q", name)
			}
			rs, err := syncClient.NewStore(desc)
			if err != nil {
				return err
			}
			if err := syncClient.AwaitSeeded(name); err != nil {
				return err
			}

			printSnapshot := func(doc document.Document) {
				if out, err := json.Marshal(doc); err != nil {
					fmt.Printf("failed to render snapshot: %v\n", err)
				} else {
					fmt.Printf("%s %s\n", time.Now().Format(time.RFC3339), out)
				}
			}
			printSnapshot(rs.Get())
			rs.Subscribe(printSnapshot)

			// Stream until interrupted
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			return syncClient.Close()
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists the stores served by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := syncClient.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush [store]",
		Short: "Persists a store durably on the server (all stores if omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if err := syncClient.Flush(name); err != nil {
				return err
			}
			fmt.Println("flush successfully")
			return nil
		},
	}
)

// mutate attaches a seeded replica of the named store, applies fn to its
// model and drains the resulting intent to the server by closing the client
func mutate(name string, fn func(doc document.Document) document.Document) error {
	desc, ok := stores.DescriptorFor(name)
	if !ok {
		return fmt.Errorf("no built-in descriptor for store %q", name)
	}

	rs, err := syncClient.NewStore(desc)
	if err != nil {
		return err
	}

	// Wait for the seed so fn modifies the server state, not the initial model
	if err := syncClient.AwaitSeeded(name); err != nil {
		return err
	}

	if err := rs.Mutate(fn); err != nil {
		return err
	}

	// Close drains the queued intent before detaching
	return syncClient.Close()
}

// parseValue decodes a CLI argument as JSON, falling back to a plain string
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// splitPath turns a dot separated path argument into its segments
func splitPath(path string) []string {
	return strings.Split(path, ".")
}
