// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/snapgraph/graph"
	"github.com/luxfi/snapgraph/rebase"
	"github.com/luxfi/snapgraph/serialize"
	"github.com/luxfi/snapgraph/snapgraphlog"
)

var rootCmd = &cobra.Command{
	Use:   "snapgraphctl",
	Short: "Inspection and debugging tools for serialized snapshot graphs",
	Long: `snapgraphctl loads CBOR-serialized workspace snapshot graphs (produced by
the serialize package) and lets you inspect, render, clean up, or rebase
them from the command line.`,
}

func main() {
	rootCmd.AddCommand(
		inspectCmd(),
		dotCmd(),
		cleanupCmd(),
		rebaseCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadSnapshot(path string) (*graph.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return serialize.Unmarshal(data, snapgraphlog.New("snapgraphctl"))
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <snapshot-file>",
		Short: "Print node/edge counts and the root index of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("change_set: %s\n", s.ChangeSet())
			fmt.Printf("root_index: %d\n", s.RootIndex())
			fmt.Printf("nodes:      %d\n", s.NodeCount())
			fmt.Printf("edges:      %d\n", s.EdgeCount())
			root, err := s.GetNodeWeight(s.RootIndex())
			if err != nil {
				return err
			}
			fmt.Printf("root merkle hash: %s\n", root.MerkleTreeHash)
			return nil
		},
	}
}

func dotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dot <snapshot-file>",
		Short: "Render the live portion of a snapshot as Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			fmt.Print(s.Dot())
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <snapshot-file> <out-file>",
		Short: "Tombstone node/edge slots unreachable from root and write the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			s.Cleanup()
			data, err := serialize.Marshal(s)
			if err != nil {
				return err
			}
			return os.WriteFile(args[1], data, 0o644)
		},
	}
}

func rebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebase <to-rebase-file> <onto-file>",
		Short: "Detect conflicts and updates between two snapshots sharing lineage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toRebase, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			onto, err := loadSnapshot(args[1])
			if err != nil {
				return err
			}
			logger := snapgraphlog.New("snapgraphctl")
			conflicts, updates, err := rebase.DetectConflictsAndUpdates(toRebase, onto, toRebase.ChangeSet(), onto.ChangeSet(), logger)
			if err != nil {
				return err
			}
			fmt.Printf("conflicts: %d\n", len(conflicts))
			for _, c := range conflicts {
				fmt.Printf("  %#v\n", c)
			}
			fmt.Printf("updates: %d\n", len(updates))
			for _, u := range updates {
				fmt.Printf("  %#v\n", u)
			}
			if len(conflicts) > 0 {
				return rebase.RequireClean(conflicts, updates)
			}
			return nil
		},
	}
}
