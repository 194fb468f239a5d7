package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/danmuck/savitr/internal/protocol"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printValues(w io.Writer, values protocol.Values) error {
	if flagJSON {
		return printJSON(w, values)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "PARAMETER\tVALUE")
	for _, name := range values.Names() {
		fmt.Fprintf(tw, "%s\t%s\n", name, values[name])
	}
	return tw.Flush()
}
