// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComplete/pkg/ux"
	"github.com/AleutianAI/AleutianComplete/services/complete/completer"
	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
)

// searchFlags holds the flags of the search command.
type searchFlags struct {
	snapshot   string
	expected   []string
	candidates []string
	prefix     string
	excluded   []string
	maxChains  int
	minDepth   int
	maxDepth   int
	timeout    time.Duration
	machine    bool
}

func newSearchCmd(a *app) *cobra.Command {
	f := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find call chains in a snapshot file",
		Example: `  complete search --snapshot model.yaml --expected pkg.Bar
  complete search -s model.yaml -e pkg.Bar -e int --prefix ma --max-depth 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.search(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.snapshot, "snapshot", "s", "", "Snapshot file (YAML or JSON)")
	flags.StringArrayVarP(&f.expected, "expected", "e", nil, "Expected type, repeatable, in priority order")
	flags.StringArrayVar(&f.candidates, "candidate", nil, "Entry point symbol ID (default: all visible symbols)")
	flags.StringVarP(&f.prefix, "prefix", "p", "", "Token typed so far")
	flags.StringArrayVarP(&f.excluded, "exclude", "x", nil, "Excluded type name prefix, repeatable")
	flags.IntVar(&f.maxChains, "max-chains", 0, "Maximum chains (default from config)")
	flags.IntVar(&f.minDepth, "min-depth", 0, "Minimum chain length (default from config)")
	flags.IntVar(&f.maxDepth, "max-depth", 0, "Maximum chain length (default from config)")
	flags.DurationVar(&f.timeout, "timeout", 0, "Search timeout (default from config)")
	flags.BoolVar(&f.machine, "machine", false, "Tab-separated output for scripts")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("expected")
	return cmd
}

func (a *app) search(cmd *cobra.Command, f *searchFlags) error {
	snap, err := symbols.LoadSnapshot(f.snapshot)
	if err != nil {
		return err
	}

	candidates := f.candidates
	if len(candidates) == 0 {
		candidates = snap.Visible()
	}

	req := completer.Request{
		ExpectedTypes: f.expected,
		Candidates:    candidates,
		Prefix:        f.prefix,
		ExcludedTypes: f.excluded,
		Timeout:       f.timeout,
	}
	if cmd.Flags().Changed("max-chains") {
		req.MaxChains = &f.maxChains
	}
	if cmd.Flags().Changed("min-depth") {
		req.MinDepth = &f.minDepth
	}
	if cmd.Flags().Changed("max-depth") {
		req.MaxDepth = &f.maxDepth
	}

	comp := completer.New(a.cfg.Search, a.slog())
	resp, err := comp.Complete(cmd.Context(), snap, req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	printer := a.printer(cmd, f.machine)
	lines := make([]ux.ChainLine, 0, len(resp.Items))
	for _, item := range resp.Items {
		lines = append(lines, ux.ChainLine{
			Title:    item.Title,
			Body:     item.Body,
			Expected: item.ExpectedType,
			Length:   item.Length,
		})
	}
	printer.Chains(lines)
	printer.Summary(ux.SearchSummary{
		Chains:         len(resp.Items),
		Visited:        resp.Visited,
		Duration:       resp.Duration,
		TimedOut:       resp.TimedOut,
		FrontierCapped: resp.FrontierCapped,
		Unresolved:     resp.Unresolved,
	})
	return nil
}

func newMembersCmd(a *app) *cobra.Command {
	var (
		snapshotPath string
		static       bool
		machine      bool
	)

	cmd := &cobra.Command{
		Use:   "members TYPE",
		Short: "List the members of a type as the search sees them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := symbols.LoadSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			t := symbols.ParseTypeRef(args[0])
			members, err := snap.VisibleMembers(t, static)
			if err != nil {
				return err
			}

			lines := make([]ux.MemberLine, 0, len(members))
			for _, m := range members {
				name := m.Name
				if m.Kind == symbols.KindMethod {
					name += "()"
				}
				lines = append(lines, ux.MemberLine{
					Kind:   m.Kind.String(),
					Name:   name,
					Type:   m.Type.String(),
					Static: m.Static,
				})
			}
			a.printer(cmd, machine).Members(t.String(), lines)
			return nil
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Snapshot file (YAML or JSON)")
	cmd.Flags().BoolVar(&static, "static", false, "Only static members")
	cmd.Flags().BoolVar(&machine, "machine", false, "Tab-separated output for scripts")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

// printer picks machine output when requested, otherwise styled output on a
// terminal and plain output elsewhere.
func (a *app) printer(cmd *cobra.Command, machine bool) *ux.Printer {
	mode := ux.ModePlain
	switch {
	case machine:
		mode = ux.ModeMachine
	case cmd.OutOrStdout() == os.Stdout:
		mode = ux.DetectMode(os.Stdout)
	}
	return ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
}
