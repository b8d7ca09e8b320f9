// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethgov/governor/internal/manifest"
	"github.com/ethgov/governor/orchestrator"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	proposeCommand = &cli.Command{
		Name:      "propose",
		Usage:     "Submit the proposals of a manifest",
		ArgsUsage: " ",
		Flags:     append([]cli.Flag{manifestFlag}, accountFlags...),
		Action:    driveUntil(orchestrator.StageAwaitActive, orchestrator.StageVote),
		Description: `
Submits every proposal in the manifest and records it in the store. On a
development chain the voting delay is mined away so the proposal is open for
votes when the command returns.`,
	}
	voteCommand = &cli.Command{
		Name:      "vote",
		Usage:     "Vote on the proposals of a manifest",
		ArgsUsage: " ",
		Flags:     append([]cli.Flag{manifestFlag, supportFlag, reasonFlag}, accountFlags...),
		Action:    driveUntil(orchestrator.StageAwaitVoteEnd, orchestrator.StageQueue),
		Description: `
Casts the vote of every voting account on the proposals of the manifest,
waiting for voting to open first. On a development chain the rest of the
voting period is mined away.`,
	}
	queueCommand = &cli.Command{
		Name:      "queue",
		Usage:     "Queue succeeded proposals in the timelock",
		ArgsUsage: " ",
		Flags:     append([]cli.Flag{manifestFlag}, accountFlags...),
		Action:    driveUntil(orchestrator.StageAwaitReady, orchestrator.StageExecute),
		Description: `
Waits for voting to end and queues the proposals that succeeded. On a
development chain the timelock delay is skipped.`,
	}
	executeCommand = &cli.Command{
		Name:      "execute",
		Usage:     "Execute queued proposals once the timelock delay has passed",
		ArgsUsage: " ",
		Flags:     append([]cli.Flag{manifestFlag}, accountFlags...),
		Action:    driveUntil(orchestrator.StageSubmit, orchestrator.StageSubmit),
	}
	runCommand = &cli.Command{
		Name:      "run",
		Usage:     "Drive the proposals of a manifest from submission to execution",
		ArgsUsage: " ",
		Flags:     append([]cli.Flag{manifestFlag, supportFlag, reasonFlag}, accountFlags...),
		Action:    driveUntil(orchestrator.StageSubmit, orchestrator.StageSubmit),
		Description: `
Runs every proposal of the manifest through the whole lifecycle concurrently.
Progress is recorded after each step, so an interrupted run picks up where it
stopped without submitting anything twice.`,
	}
	cancelCommand = &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel the proposals of a manifest",
		ArgsUsage: " ",
		Flags:     append([]cli.Flag{manifestFlag}, accountFlags...),
		Action:    cancel,
		Description: `
Cancels every proposal of the manifest. The proposer may cancel while the
proposal is pending or active; guardians may cancel until it is executed.`,
	}
	statusCommand = &cli.Command{
		Name:      "status",
		Usage:     "Show the recorded proposals and their state on chain",
		ArgsUsage: " ",
		Action:    status,
	}
)

// driveUntil returns an action that runs the manifest up to a checkpoint.
// Development chains stop later because the clock can be moved instead of
// waited for.
func driveUntil(until, devUntil orchestrator.Stage) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		s, err := openSession(ctx, false)
		if err != nil {
			return err
		}
		defer s.Close()

		tasks, err := loadTasks(ctx, s)
		if err != nil {
			return err
		}
		stop := until
		if s.clock != nil {
			stop = devUntil
		}
		for i := range tasks {
			tasks[i].Until = stop
		}
		o, err := s.orchestrator()
		if err != nil {
			return err
		}
		reports, err := o.RunAll(ctx.Context, tasks)
		printReports(ctx.App.Writer, reports)
		return err
	}
}

func loadTasks(ctx *cli.Context, s *session) ([]orchestrator.Task, error) {
	m, err := manifest.Load(ctx.String(manifestFlag.Name))
	if err != nil {
		return nil, err
	}
	tasks, err := m.Tasks(s.cfg.TargetNames())
	if err != nil {
		return nil, err
	}
	if ctx.IsSet(supportFlag.Name) {
		support, err := manifest.ParseSupport(ctx.String(supportFlag.Name))
		if err != nil {
			return nil, err
		}
		for i := range tasks {
			tasks[i].Support = support
		}
	}
	if ctx.IsSet(reasonFlag.Name) {
		for i := range tasks {
			tasks[i].Reason = ctx.String(reasonFlag.Name)
		}
	}
	return tasks, nil
}

func cancel(ctx *cli.Context) error {
	s, err := openSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	tasks, err := loadTasks(ctx, s)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROPOSAL\tSTATE\tDESCRIPTION")
	for _, t := range tasks {
		id := t.Proposal.ID()
		if err := s.backend.Cancel(ctx.Context, t.Proposal); err != nil {
			w.Flush()
			return fmt.Errorf("cancel %s: %w", id, err)
		}
		state, err := s.backend.State(ctx.Context, id)
		if err != nil {
			w.Flush()
			return err
		}
		log.Info("Proposal canceled", "proposal", id)
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, state, t.Proposal.Description)
	}
	return w.Flush()
}

func status(ctx *cli.Context) error {
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.store.List(s.cfg.Node.ChainID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(ctx.App.Writer, "No proposals recorded for chain %d\n", s.cfg.Node.ChainID)
		return nil
	}
	w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROPOSAL\tSTAGE\tSTATE\tFOR\tAGAINST\tABSTAIN\tDEADLINE\tETA\tDESCRIPTION")
	for _, rec := range records {
		info, err := s.backend.Proposal(ctx.Context, rec.ProposalID)
		if err != nil {
			w.Flush()
			return fmt.Errorf("proposal %s: %w", rec.ProposalID, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n", rec.ProposalID, rec.Stage, info.State,
			info.ForVotes.Dec(), info.AgainstVotes.Dec(), info.AbstainVotes.Dec(), info.Deadline, info.ETA, rec.Description)
	}
	return w.Flush()
}

// failure highlights errors; it falls back to plain text when stdout is not
// a terminal.
var failure = color.New(color.FgRed)

func printReports(out io.Writer, reports []*orchestrator.Report) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROPOSAL\tSTAGE\tSTATE\tDESCRIPTION\tERROR")
	for _, r := range reports {
		if r == nil {
			continue
		}
		errText := ""
		if r.Err != nil {
			errText = failure.Sprint(r.Err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ProposalID, r.Stage, r.State, r.Description, errText)
	}
	w.Flush()
}
