package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ryhazerus/anystore"
	"github.com/spf13/cobra"
)

var errNotFound = errors.New("not found")

func addressArg(args []string) anystore.Address {
	if len(args) == 0 {
		return anystore.Root
	}
	return anystore.ParseAddress(args[0])
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <address>",
		Short: "Print the value stored at an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := addressArg(args)
			b, ok, err := a.store.Get(cmd.Context(), addr)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %w", addr, errNotFound)
			}
			out, err := renderOutput(a.v.GetString("codec"), b)
			if err != nil {
				return fmt.Errorf("%s: %w", addr, err)
			}
			w := cmd.OutOrStdout()
			w.Write(out)
			if !bytes.HasSuffix(out, []byte("\n")) {
				io.WriteString(w, "\n")
			}
			return nil
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <address> <value|->",
		Short: "Store a value at an address; '-' reads the value from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in []byte
			if args[1] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				in = b
			} else {
				in = []byte(args[1])
			}
			value, err := encodeInput(a.v.GetString("codec"), in)
			if err != nil {
				return err
			}
			return a.store.Set(cmd.Context(), addressArg(args), value)
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <address>",
		Aliases: []string{"rm"},
		Short:   "Delete the value stored at an address",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Delete(cmd.Context(), addressArg(args))
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list [address]",
		Aliases: []string{"ls"},
		Short:   "Print the immediate children of an address",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			children, err := a.store.List(cmd.Context(), addressArg(args))
			if err != nil {
				return err
			}
			for _, c := range children {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func (a *app) walkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "walk [address]",
		Short: "Print the tree below an address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := addressArg(args)
			w := cmd.OutOrStdout()
			return anystore.Walk(cmd.Context(), a.store, root, func(addr anystore.Address, leaf bool) error {
				rel, _ := addr.Rel(root)
				indent := strings.Repeat("  ", rel.Len()-1)
				if leaf {
					fmt.Fprintf(w, "%s%s\n", indent, addr.Last())
				} else {
					fmt.Fprintf(w, "%s%s/\n", indent, addr.Last())
				}
				return nil
			})
		},
	}
}
