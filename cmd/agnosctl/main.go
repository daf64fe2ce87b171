// Command agnosctl drives an Agnos intake server from the terminal: it can
// submit and update records through the full fallback cascade, read the
// request/response surface, and watch the realtime stream the way a
// reviewer dashboard does.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/21Gxme/Agnos/client"
	"github.com/21Gxme/Agnos/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var server, local string

	root := &cobra.Command{
		Use:           "agnosctl",
		Short:         "Agnos intake client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", "http://localhost:3000", "intake server base URL")
	root.PersistentFlags().StringVar(&local, "local", "agnos-local.json", "fallback file for offline submissions")

	root.AddCommand(newSubmitCmd(&server, &local))
	root.AddCommand(newUpdateCmd(&server, &local))
	root.AddCommand(newGetCmd(&server, &local))
	root.AddCommand(newListCmd(&server, &local))
	root.AddCommand(newWatchCmd(&server, &local))
	return root
}

func newClient(server, local *string, realtime bool) *client.Client {
	c := client.New(*server, *local)
	if realtime {
		if _, err := c.Connect(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: realtime channel unavailable: %v\n", err)
		}
	}
	return c
}

func parseFields(kvs []string, raw string) (map[string]any, error) {
	fields := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("invalid --data JSON: %w", err)
		}
	}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("field %q is not key=value", kv)
		}
		fields[k] = v
	}
	return fields, nil
}

func newSubmitCmd(server, local *string) *cobra.Command {
	var data string
	var fields []string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new record through the fallback cascade",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := parseFields(fields, data)
			if err != nil {
				return err
			}
			c := newClient(server, local, true)
			if rt := c.Realtime(); rt != nil {
				defer rt.Close()
			}
			res, err := c.Submit(cmd.Context(), models.Record{Fields: payload})
			if err != nil {
				return err
			}
			fmt.Printf("committed via %s tier, id %s\n", res.Tier, res.Record.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "record payload as a JSON object")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "payload field as key=value (repeatable)")
	return cmd
}

func newUpdateCmd(server, local *string) *cobra.Command {
	var data, status string
	var fields []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Full-replace a record through the fallback cascade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(server, local, true)
			if rt := c.Realtime(); rt != nil {
				defer rt.Close()
			}

			rec, err := c.GetRecord(cmd.Context(), args[0])
			if err != nil {
				// The record may only exist locally, or the
				// request channel may be down; start from the
				// ID alone so the edit is still applied.
				rec = models.Record{ID: args[0]}
			}
			payload, err := parseFields(fields, data)
			if err != nil {
				return err
			}
			if rec.Fields == nil {
				rec.Fields = map[string]any{}
			}
			for k, v := range payload {
				rec.Fields[k] = v
			}
			if status != "" {
				rec.Status = status
			}
			res, err := c.Update(cmd.Context(), rec)
			if err != nil {
				return err
			}
			fmt.Printf("committed via %s tier, id %s\n", res.Tier, res.Record.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "payload fields to set, as a JSON object")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "payload field as key=value (repeatable)")
	cmd.Flags().StringVar(&status, "status", "", "new status (submitted|active|inactive)")
	return cmd
}

func newGetCmd(server, local *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(server, local, false)
			rec, err := c.GetRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
}

func newListCmd(server, local *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient(server, local, false)
			recs, err := c.ListRecords(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(recs)
		},
	}
}

func newWatchCmd(server, local *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch records and live drafts like a reviewer dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := client.New(*server, *local)
			rt, err := c.Connect()
			if err != nil {
				return err
			}
			defer rt.Close()

			view := client.NewView()
			ctx := cmd.Context()
			for {
				select {
				case env, ok := <-rt.Events():
					if !ok {
						return nil
					}
					if err := view.Apply(env); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: bad %s event: %v\n", env.Type, err)
						continue
					}
					printEvent(view, env)
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
}

func printEvent(view *client.View, env models.Envelope) {
	switch env.Type {
	case models.TypeSyncInit:
		fmt.Printf("synced: %d records\n", len(view.Records()))
	case models.TypeRecordNew, models.TypeRecordUpdated:
		var rec models.Record
		json.Unmarshal(env.Data, &rec)
		fmt.Printf("%s: %s status=%s\n", env.Type, rec.ID, rec.Status)
	case models.TypeDraftUpdated:
		var d models.Draft
		json.Unmarshal(env.Data, &d)
		hint := ""
		if fields := view.ChangedFields(d.SessionID); len(fields) > 0 {
			hint = " typing in " + strings.Join(fields, ", ")
		}
		fmt.Printf("%s: %s%s\n", env.Type, d.SessionID, hint)
	case models.TypeDraftClosed:
		var closed models.DraftClosed
		json.Unmarshal(env.Data, &closed)
		fmt.Printf("%s: %s\n", env.Type, closed.SessionID)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
