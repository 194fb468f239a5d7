package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/savitr/internal/protocol"
	"github.com/danmuck/savitr/internal/protocol/frame"
	"github.com/danmuck/savitr/internal/protocol/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "List parameters and commands known to the codec",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := schema.Default()
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"parameters": reg.Parameters(),
				"commands":   reg.Commands(),
			})
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "PARAMETER\tTYPE\tREAD\tWRITE\tDESCRIPTION")
		for _, d := range reg.Parameters() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Type, placement(d.Read), placement(d.Write), d.Description)
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "COMMAND\tOPCODE\tPAYLOAD\tSTATUS")
		for _, c := range reg.Commands() {
			status := "ok"
			if c.Stub {
				status = "not implemented"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Name, c.Opcode, strings.Join(c.Payload, ","), status)
		}
		return tw.Flush()
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a captured 192-byte frame given as hex",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := frame.ParseHex(args[0])
		if err != nil {
			return err
		}
		values, err := protocol.Decode(f)
		if err != nil {
			return err
		}
		return printValues(cmd.OutOrStdout(), values)
	},
}

var encodeCounter uint8

var encodeCmd = &cobra.Command{
	Use:   "encode <command> [parameter=value ...]",
	Short: "Build a command frame offline and print it as hex",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := make(protocol.Values, len(args)-1)
		for _, kv := range args[1:] {
			name, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("payload %q: want parameter=value", kv)
			}
			payload[strings.TrimSpace(name)] = protocol.StringValue(strings.TrimSpace(value))
		}
		f, err := protocol.Encode(args[0], encodeCounter, payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), f.Hex())
		return nil
	},
}

func init() {
	encodeCmd.Flags().Uint8Var(&encodeCounter, "last-count", 0, "last command counter seen from the module")
}

func placement(p *schema.Placement) string {
	if p == nil {
		return "-"
	}
	s := fmt.Sprintf("%d-%d %s", p.Start, p.Finish, p.Order)
	if p.Scale != schema.ScaleIdentity {
		s += " " + p.Scale.String()
	}
	return s
}
