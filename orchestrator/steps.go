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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethgov/governor/govclient"
	"github.com/ethgov/governor/governance"
	"github.com/sethvargo/go-retry"
)

// step performs one stage and returns the next.
func (o *Orchestrator) step(ctx context.Context, tk *task, stage Stage) (Stage, error) {
	switch stage {
	case StageSubmit:
		err := o.submit(ctx, tk, "propose", func(ctx context.Context) (bool, error) {
			_, err := o.backend.State(ctx, tk.id)
			if errors.Is(err, governance.ErrNonexistentProposal) {
				return false, nil
			}
			return err == nil, err
		}, func(ctx context.Context) error {
			_, err := o.backend.Propose(ctx, tk.Proposal)
			if err == nil {
				proposedCounter.Inc(1)
			}
			return err
		})
		return StageAwaitActive, err

	case StageAwaitActive:
		info, err := o.await(ctx, tk, func(info *govclient.ProposalInfo, _ govclient.Head) bool {
			return info.State != governance.ProposalPending
		}, func(ctx context.Context, info *govclient.ProposalInfo, head govclient.Head) error {
			return o.moveBlocks(ctx, info.Snapshot, head)
		}, false)
		if err != nil {
			return stage, err
		}
		switch info.State {
		case governance.ProposalActive:
			if tk.SkipVote {
				return StageAwaitVoteEnd, nil
			}
			return StageVote, nil
		case governance.ProposalCanceled:
			return stage, ErrCanceled
		}
		// The vote already closed.
		return StageAwaitSucceeded, nil

	case StageVote:
		for _, voter := range o.voters {
			if err := o.vote(ctx, tk, voter); err != nil {
				return stage, err
			}
		}
		return StageAwaitVoteEnd, nil

	case StageAwaitVoteEnd:
		_, err := o.await(ctx, tk, func(info *govclient.ProposalInfo, _ govclient.Head) bool {
			return info.State != governance.ProposalPending && info.State != governance.ProposalActive
		}, func(ctx context.Context, info *govclient.ProposalInfo, head govclient.Head) error {
			return o.moveBlocks(ctx, info.Deadline+1, head)
		}, true)
		return StageAwaitSucceeded, err

	case StageAwaitSucceeded:
		state, err := o.state(ctx, tk)
		if err != nil {
			return stage, err
		}
		switch state {
		case governance.ProposalSucceeded:
			return StageQueue, nil
		case governance.ProposalQueued:
			return StageAwaitReady, nil
		case governance.ProposalExecuted:
			return StageDone, nil
		case governance.ProposalPending, governance.ProposalActive:
			return StageAwaitVoteEnd, nil
		}
		return stage, terminalError(state)

	case StageQueue:
		err := o.submit(ctx, tk, "queue", o.reached(tk, governance.ProposalSucceeded, governance.ProposalQueued),
			func(ctx context.Context) error {
				err := o.backend.Queue(ctx, tk.Proposal)
				if err == nil {
					queuedCounter.Inc(1)
				}
				return err
			})
		return StageAwaitReady, err

	case StageAwaitReady:
		info, err := o.await(ctx, tk, func(info *govclient.ProposalInfo, head govclient.Head) bool {
			return info.State != governance.ProposalQueued || head.Time >= info.ETA
		}, func(ctx context.Context, info *govclient.ProposalInfo, head govclient.Head) error {
			return o.moveTime(ctx, info.ETA, head)
		}, true)
		if err != nil {
			return stage, err
		}
		switch info.State {
		case governance.ProposalQueued:
			return StageExecute, nil
		case governance.ProposalExecuted:
			return StageDone, nil
		}
		return stage, terminalError(info.State)

	case StageExecute:
		err := o.submit(ctx, tk, "execute", o.reached(tk, governance.ProposalQueued, governance.ProposalExecuted),
			func(ctx context.Context) error {
				err := o.backend.Execute(ctx, tk.Proposal)
				if err == nil {
					executedCounter.Inc(1)
				}
				return err
			})
		return StageAwaitExecuted, err

	case StageAwaitExecuted:
		info, err := o.await(ctx, tk, func(info *govclient.ProposalInfo, _ govclient.Head) bool {
			return info.State != governance.ProposalQueued
		}, nil, false)
		if err != nil {
			return stage, err
		}
		if info.State != governance.ProposalExecuted {
			return stage, terminalError(info.State)
		}
		return StageDone, nil
	}
	return stage, nil
}

// vote casts the task's vote from voter unless it is already recorded. A
// vote window that closed first is not an error: the tally decides.
func (o *Orchestrator) vote(ctx context.Context, tk *task, voter govclient.Backend) error {
	account := voter.Account()
	err := o.submit(ctx, tk, "castVote", func(ctx context.Context) (bool, error) {
		voted, err := voter.HasVoted(ctx, tk.id, account)
		if err != nil || voted {
			return voted, err
		}
		state, err := voter.State(ctx, tk.id)
		if err != nil {
			return false, err
		}
		if state != governance.ProposalActive {
			tk.log.Warn("Vote window closed before voting", "voter", account, "state", state)
			return true, nil
		}
		return false, nil
	}, func(ctx context.Context) error {
		err := voter.CastVote(ctx, tk.id, tk.Support, tk.Reason)
		if err == nil {
			votedCounter.Inc(1)
			tk.log.Info("Vote cast", "voter", account, "support", tk.Support, "reason", tk.Reason)
		}
		return err
	})
	if errors.Is(err, governance.ErrProposalNotActive) {
		tk.log.Warn("Vote window closed while voting", "voter", account)
		return nil
	}
	return err
}

// reached returns a pre-submit check for an action that moves a proposal
// from state from to state to: done once at to or beyond, aborting on a
// terminal state.
func (o *Orchestrator) reached(tk *task, from, to governance.ProposalState) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		state, err := o.state(ctx, tk)
		if err != nil {
			return false, err
		}
		switch {
		case state == from:
			return false, nil
		case state == to || state == governance.ProposalExecuted:
			return true, nil
		}
		if err := terminalError(state); err != nil {
			return false, err
		}
		return false, governance.ErrUnexpectedProposalState
	}
}

func (o *Orchestrator) state(ctx context.Context, tk *task) (governance.ProposalState, error) {
	if err := o.wait(ctx); err != nil {
		return 0, err
	}
	return o.backend.State(ctx, tk.id)
}

// submit runs send with retries. Before every attempt check reports whether
// the ledger already shows the effect, so an attempt whose confirmation was
// lost is never sent twice. Only transient failures and clock-bound guards
// are retried.
func (o *Orchestrator) submit(ctx context.Context, tk *task, action string,
	check func(context.Context) (bool, error), send func(context.Context) error) error {
	backoff := retry.NewExponential(o.cfg.InitialBackoff)
	backoff = retry.WithCappedDuration(o.cfg.MaxBackoff, backoff)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxRetries(o.cfg.MaxRetries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		done, err := check(ctx)
		if err == nil && done {
			done, err = o.settle(ctx, check)
		}
		if err != nil {
			return o.retryable(tk, action, err)
		}
		if done {
			tk.log.Debug("Ledger already shows action", "action", action)
			return nil
		}
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
		err = send(callCtx)
		if err == nil {
			return nil
		}
		if alreadyDone(err) {
			// The guard only proves the effect is at the head.
			if done, err = o.settle(ctx, check); err == nil && done {
				return nil
			}
			if err == nil {
				err = fmt.Errorf("%w: %s dropped from the chain", governance.ErrTransient, action)
			}
		}
		return o.retryable(tk, action, err)
	})
}

// settle waits until the head a positive check observed has the backend's
// confirmations on top of it and checks again. Until then the effect may
// still be dropped from the chain, and persisting the next stage on it
// would skip a step that never happened.
func (o *Orchestrator) settle(ctx context.Context, check func(context.Context) (bool, error)) (bool, error) {
	confirmations := o.backend.Confirmations()
	if confirmations <= 1 {
		return true, nil
	}
	head, err := o.backend.Head(ctx)
	if err != nil {
		return false, err
	}
	target := head.Number + confirmations - 1
	for head.Number < target {
		if err := o.wait(ctx); err != nil {
			return false, err
		}
		if head, err = o.backend.Head(ctx); err != nil {
			return false, err
		}
	}
	return check(ctx)
}

func (o *Orchestrator) retryable(tk *task, action string, err error) error {
	if !governance.IsRetryable(err) {
		return err
	}
	retriesCounter.Inc(1)
	tk.log.Warn("Ledger call failed, retrying", "action", action, "err", err)
	return retry.RetryableError(err)
}

// alreadyDone reports guard errors that mean the action has taken effect.
func alreadyDone(err error) bool {
	return errors.Is(err, governance.ErrProposalAlreadyExists) || errors.Is(err, governance.ErrAlreadyVoted) ||
		errors.Is(err, governance.ErrAlreadyQueued) || errors.Is(err, governance.ErrAlreadyExecuted)
}

// await polls the proposal until done holds. Between polls a development
// chain is moved forward by advance; otherwise the driver waits for the
// chain. A shared advance may close vote windows of other tasks and waits
// until none of them still has to vote.
func (o *Orchestrator) await(ctx context.Context, tk *task,
	done func(*govclient.ProposalInfo, govclient.Head) bool,
	advance func(context.Context, *govclient.ProposalInfo, govclient.Head) error,
	shared bool) (*govclient.ProposalInfo, error) {
	for {
		if err := o.wait(ctx); err != nil {
			return nil, err
		}
		info, head, err := o.poll(ctx, tk)
		if err != nil {
			if governance.Classify(err) != governance.KindTransient {
				return nil, err
			}
			tk.log.Warn("Ledger read failed", "err", err)
			continue
		}
		if done(info, head) {
			return info, nil
		}
		if o.clock == nil || advance == nil {
			continue
		}
		if shared {
			o.window.Lock()
			err = advance(ctx, info, head)
			o.window.Unlock()
		} else {
			err = advance(ctx, info, head)
		}
		if err != nil {
			return nil, err
		}
	}
}

// wait blocks until the next ledger poll is allowed.
func (o *Orchestrator) wait(ctx context.Context) error {
	if err := o.limiter.Wait(ctx); err != nil {
		// The limiter refuses waits that would outlive the deadline.
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (o *Orchestrator) poll(ctx context.Context, tk *task) (*govclient.ProposalInfo, govclient.Head, error) {
	head, err := o.backend.Head(ctx)
	if err != nil {
		return nil, head, err
	}
	info, err := o.backend.Proposal(ctx, tk.id)
	return info, head, err
}

// moveBlocks mines up to block target, at least one block.
func (o *Orchestrator) moveBlocks(ctx context.Context, target uint64, head govclient.Head) error {
	n := uint64(1)
	if target > head.Number {
		n = target - head.Number
	}
	devClockCounter.Inc(int64(n))
	return o.clock.MoveBlocks(ctx, n)
}

// moveTime shifts the clock to timestamp target and mines a block there.
func (o *Orchestrator) moveTime(ctx context.Context, target uint64, head govclient.Head) error {
	if target > head.Time {
		if err := o.clock.MoveTime(ctx, target-head.Time); err != nil {
			return err
		}
	}
	devClockCounter.Inc(1)
	return o.clock.MoveBlocks(ctx, 1)
}

func bigValues(p *govclient.ProposalInput) []*big.Int {
	out := make([]*big.Int, len(p.Values))
	for i, v := range p.Values {
		if v == nil {
			out[i] = new(big.Int)
		} else {
			out[i] = v.ToBig()
		}
	}
	return out
}

func hexCalldatas(p *govclient.ProposalInput) []hexutil.Bytes {
	out := make([]hexutil.Bytes, len(p.Calldatas))
	for i, data := range p.Calldatas {
		out[i] = hexutil.Bytes(data)
	}
	return out
}
