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

// Package orchestrator drives proposals through their lifecycle: submit,
// vote, queue behind the timelock and execute. Every step re-reads the
// ledger first, so a driver restarted at any point picks up where the
// ledger is instead of submitting twice.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethgov/governor/govclient"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config holds the driver settings.
type Config struct {
	PollInterval   time.Duration // minimum time between ledger polls
	MaxRetries     uint64        // resubmissions after a transient failure
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	CallTimeout    time.Duration // bound on one submit-and-confirm call
	MaxConcurrent  int           // proposals driven at once by RunAll
}

// DefaultConfig returns the default driver settings.
func DefaultConfig() Config {
	return Config{
		PollInterval:   time.Second,
		MaxRetries:     5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		CallTimeout:    2 * time.Minute,
		MaxConcurrent:  8,
	}
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	switch {
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", governance.ErrConfiguration)
	case c.InitialBackoff <= 0:
		return fmt.Errorf("%w: initial backoff must be positive", governance.ErrConfiguration)
	case c.MaxBackoff < c.InitialBackoff:
		return fmt.Errorf("%w: max backoff below initial backoff", governance.ErrConfiguration)
	case c.CallTimeout <= 0:
		return fmt.Errorf("%w: call timeout must be positive", governance.ErrConfiguration)
	case c.MaxConcurrent <= 0:
		return fmt.Errorf("%w: max concurrent must be positive", governance.ErrConfiguration)
	}
	return nil
}

// Task is one proposal to drive to execution.
type Task struct {
	Proposal *govclient.ProposalInput
	Support  governance.VoteType
	Reason   string
	SkipVote bool // leave voting to others
	// Until stops the run before this stage, leaving the record there for a
	// later run to resume. Zero runs to execution.
	Until Stage
}

// Report is the outcome of driving one proposal.
type Report struct {
	ProposalID  common.Hash
	OperationID common.Hash
	Description string
	Stage       Stage // last stage reached
	State       governance.ProposalState
	Err         error
}

// Orchestrator drives proposals on one governor.
type Orchestrator struct {
	backend govclient.Backend
	voters  []govclient.Backend
	store   storage.Store
	clock   govclient.DevClock // nil outside development chains
	cfg     Config
	limiter *rate.Limiter
	runID   string // tags the log records of this driver

	window sync.RWMutex
}

// New creates a driver. The backend proposes, queues and executes; unless
// WithVoters says otherwise it also votes.
func New(backend govclient.Backend, store storage.Store, cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		backend: backend,
		voters:  []govclient.Backend{backend},
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		runID:   uuid.NewString(),
	}, nil
}

// WithDevClock lets the driver move a development chain forward instead of
// waiting for blocks and time to pass.
func (o *Orchestrator) WithDevClock(clock govclient.DevClock) *Orchestrator {
	o.clock = clock
	return o
}

// WithVoters replaces the accounts that vote.
func (o *Orchestrator) WithVoters(voters ...govclient.Backend) *Orchestrator {
	o.voters = voters
	return o
}

// task is the in-flight state of one Run.
type task struct {
	Task
	id     common.Hash
	opID   common.Hash
	record *storage.ProposalRecord
	report *Report
	log    log.Logger
}

// Run drives t until it is executed, reaches t.Until or can go no further.
// The report is returned even on error.
func (o *Orchestrator) Run(ctx context.Context, t Task) (*Report, error) {
	start := time.Now()
	tk, stage, err := o.load(ctx, t)
	if err != nil {
		report := &Report{Err: err}
		if t.Proposal != nil {
			report.Description = t.Proposal.Description
		}
		return report, err
	}
	tk.log.Info("Driving proposal", "stage", stage, "operation", tk.opID)

	// On a development chain, tasks that still have to vote hold a read
	// lease on window; moving the clock past a vote window takes it
	// exclusively.
	voting := o.clock != nil && !t.SkipVote && stage <= StageVote
	if voting {
		o.window.RLock()
	}
	release := func() {
		if voting {
			voting = false
			o.window.RUnlock()
		}
	}
	defer release()

	for stage != StageDone {
		if t.Until != StageSubmit && stage >= t.Until {
			tk.report.Stage = stage
			if state, err := o.backend.State(ctx, tk.id); err == nil {
				tk.report.State = state
			}
			tk.log.Info("Proposal paused", "stage", stage, "state", tk.report.State)
			return tk.report, nil
		}
		next, err := o.step(ctx, tk, stage)
		if err != nil || next > StageVote {
			release()
		}
		if err != nil {
			return o.abort(ctx, tk, stage, err)
		}
		if err := o.persist(tk, next); err != nil {
			return o.abort(ctx, tk, stage, err)
		}
		tk.log.Info("Advanced proposal", "from", stage, "to", next, "operation", tk.opID)
		stage = next
	}
	tk.report.Stage = StageDone
	tk.report.State = governance.ProposalExecuted
	lifecycleTimer.UpdateSince(start)
	tk.log.Info("Proposal executed", "operation", tk.opID)
	return tk.report, nil
}

// RunAll drives every task concurrently, each independent of the others.
// Reports come back in task order; the error joins all task errors.
func (o *Orchestrator) RunAll(ctx context.Context, tasks []Task) ([]*Report, error) {
	reports := make([]*Report, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrent)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			reports[i], errs[i] = o.Run(ctx, t)
			return nil
		})
	}
	g.Wait()
	return reports, errors.Join(errs...)
}

// load derives the ids of t and resumes from its stored record, if any.
func (o *Orchestrator) load(ctx context.Context, t Task) (*task, Stage, error) {
	if t.Proposal == nil {
		return nil, 0, fmt.Errorf("%w: no proposal", governance.ErrInvalidProposalLength)
	}
	if err := t.Proposal.Validate(); err != nil {
		return nil, 0, err
	}
	if !t.SkipVote && !t.Support.Valid() {
		return nil, 0, fmt.Errorf("%w: %d", governance.ErrInvalidVoteType, t.Support)
	}
	chainID, err := o.backend.ChainID(ctx)
	if err != nil {
		return nil, 0, err
	}
	p := t.Proposal
	tk := &task{
		Task: t,
		id:   p.ID(),
		opID: p.OperationID(o.backend.Governor()),
	}
	tk.log = log.New("run", o.runID, "proposal", tk.id)
	tk.report = &Report{ProposalID: tk.id, OperationID: tk.opID, Description: p.Description}

	record, err := o.store.Get(chainID, p.DescriptionHash())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		tk.record = &storage.ProposalRecord{
			ChainID:         chainID,
			ProposalID:      tk.id,
			DescriptionHash: p.DescriptionHash(),
			Description:     p.Description,
			Targets:         p.Targets,
			Values:          bigValues(p),
			Calldatas:       hexCalldatas(p),
			OperationID:     tk.opID,
		}
		return tk, StageSubmit, nil
	case err != nil:
		return nil, 0, err
	}
	if record.ProposalID != tk.id {
		return nil, 0, fmt.Errorf("%w: %q is stored as %s, not %s", ErrRecordMismatch, p.Description, record.ProposalID, tk.id)
	}
	stage, err := ParseStage(record.Stage)
	if err != nil {
		return nil, 0, err
	}
	tk.record = record
	return tk, stage, nil
}

func (o *Orchestrator) persist(tk *task, stage Stage) error {
	tk.record.Stage = stage.String()
	tk.record.UpdatedAt = uint64(time.Now().Unix())
	tk.report.Stage = stage
	return o.store.Put(tk.record)
}

// abort records the stage a task stopped at and fills in the report.
func (o *Orchestrator) abort(ctx context.Context, tk *task, stage Stage, err error) (*Report, error) {
	abortedCounter.Inc(1)
	tk.report.Stage = stage
	tk.report.Err = err
	if state, serr := o.backend.State(ctx, tk.id); serr == nil {
		tk.report.State = state
	}
	tk.log.Error("Proposal aborted", "stage", stage, "state", tk.report.State,
		"kind", governance.Classify(err), "err", err)
	return tk.report, err
}
