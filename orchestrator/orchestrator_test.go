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
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethgov/governor/genesis"
	"github.com/ethgov/governor/govclient"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/ledger"
	"github.com/ethgov/governor/storage"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	voter    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	errCrash = errors.New("process killed")
)

func testConfig() Config {
	return Config{
		PollInterval:   time.Millisecond,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		CallTimeout:    time.Second,
		MaxConcurrent:  4,
	}
}

type testEnv struct {
	chain   *ledger.Chain
	deploy  *genesis.Deployment
	backend *govclient.Simulated
	clock   *govclient.SimulatedClock
	store   *storage.MemoryStore
}

func newTestEnv(t *testing.T, votingPeriod uint64) *testEnv {
	t.Helper()

	chain := ledger.New(ledger.Config{ChainID: 31337, GenesisTime: 1_700_000_000})
	cfg := genesis.DefaultBootstrapConfig()
	cfg.Governor.VotingPeriod = votingPeriod
	cfg.Allocations = []genesis.Allocation{
		{Holder: voter, Amount: uint256.NewInt(1000), Delegate: true},
	}
	d, err := genesis.Deploy(chain, cfg)
	require.NoError(t, err)
	backend, err := govclient.NewSimulated(chain, d.Addresses.Governor, d.Deployer, 1)
	require.NoError(t, err)
	return &testEnv{
		chain:   chain,
		deploy:  d,
		backend: backend,
		clock:   govclient.NewSimulatedClock(chain),
		store:   storage.NewMemoryStore(),
	}
}

func (e *testEnv) orchestrator(t *testing.T, backend govclient.Backend) *Orchestrator {
	t.Helper()

	o, err := New(backend, e.store, testConfig())
	require.NoError(t, err)
	return o.WithDevClock(e.clock)
}

func (e *testEnv) boxTask(t *testing.T, value int64, description string) Task {
	t.Helper()

	data, err := ledger.PackBoxStore(big.NewInt(value))
	require.NoError(t, err)
	return Task{
		Proposal: &govclient.ProposalInput{
			Targets:     []common.Address{e.deploy.Box},
			Values:      []*uint256.Int{new(uint256.Int)},
			Calldatas:   [][]byte{data},
			Description: description,
		},
		Support: governance.VoteFor,
		Reason:  "Don't ask,just I do",
	}
}

// faultyBackend counts mutating calls and injects failures after a call
// has landed on the ledger.
type faultyBackend struct {
	govclient.Backend

	mu    sync.Mutex
	calls map[string]int
	lose  map[string]int // confirmations to lose per action
	crash string         // action after which the process dies
}

func newFaultyBackend(b govclient.Backend) *faultyBackend {
	return &faultyBackend{Backend: b, calls: make(map[string]int), lose: make(map[string]int)}
}

func (b *faultyBackend) after(action string, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls[action]++
	if err != nil {
		return err
	}
	if b.lose[action] > 0 {
		b.lose[action]--
		return fmt.Errorf("%w: confirmation lost", governance.ErrTransient)
	}
	if b.crash == action {
		b.crash = ""
		return errCrash
	}
	return nil
}

func (b *faultyBackend) count(action string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[action]
}

func (b *faultyBackend) Propose(ctx context.Context, p *govclient.ProposalInput) (common.Hash, error) {
	id, err := b.Backend.Propose(ctx, p)
	return id, b.after("propose", err)
}

func (b *faultyBackend) CastVote(ctx context.Context, id common.Hash, support governance.VoteType, reason string) error {
	return b.after("castVote", b.Backend.CastVote(ctx, id, support, reason))
}

func (b *faultyBackend) Queue(ctx context.Context, p *govclient.ProposalInput) error {
	return b.after("queue", b.Backend.Queue(ctx, p))
}

func (b *faultyBackend) Execute(ctx context.Context, p *govclient.ProposalInput) error {
	return b.after("execute", b.Backend.Execute(ctx, p))
}

func TestRun_BoxLifecycle(t *testing.T) {
	env := newTestEnv(t, 5)
	task := env.boxTask(t, 100, "Proposal #1 - update  value of box to 100")
	o := env.orchestrator(t, env.backend)

	report, err := o.Run(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, task.Proposal.ID(), report.ProposalID)
	require.Equal(t, task.Proposal.OperationID(env.deploy.Addresses.Governor), report.OperationID)
	require.Equal(t, StageDone, report.Stage)
	require.Equal(t, governance.ProposalExecuted, report.State)
	require.Equal(t, uint64(100), ledger.BoxValue(env.chain, env.deploy.Box).Uint64())

	rec, err := env.store.Get(31337, task.Proposal.DescriptionHash())
	require.NoError(t, err)
	require.Equal(t, "done", rec.Stage)
	require.Equal(t, report.ProposalID, rec.ProposalID)
	require.Equal(t, report.OperationID, rec.OperationID)

	// Running a finished task again changes nothing.
	faulty := newFaultyBackend(env.backend)
	report, err = env.orchestrator(t, faulty).Run(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, StageDone, report.Stage)
	require.Zero(t, faulty.count("propose")+faulty.count("castVote")+faulty.count("queue")+faulty.count("execute"))
}

func TestRun_StepByStep(t *testing.T) {
	env := newTestEnv(t, 5)
	task := env.boxTask(t, 7, "one command at a time")
	o := env.orchestrator(t, env.backend)

	steps := []struct {
		until Stage
		state governance.ProposalState
	}{
		{StageVote, governance.ProposalActive},
		{StageQueue, governance.ProposalSucceeded},
		{StageAwaitReady, governance.ProposalQueued},
	}
	for _, step := range steps {
		task.Until = step.until
		report, err := o.Run(context.Background(), task)
		require.NoError(t, err)
		require.Equal(t, step.until, report.Stage)
		require.Equal(t, step.state, report.State)

		rec, err := env.store.Get(31337, task.Proposal.DescriptionHash())
		require.NoError(t, err)
		require.Equal(t, step.until.String(), rec.Stage)
	}
	require.Zero(t, ledger.BoxValue(env.chain, env.deploy.Box).Uint64())

	task.Until = StageSubmit
	report, err := o.Run(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, governance.ProposalExecuted, report.State)
	require.Equal(t, uint64(7), ledger.BoxValue(env.chain, env.deploy.Box).Uint64())
}

func TestRun_ResumeAfterCrash(t *testing.T) {
	for _, action := range []string{"propose", "castVote", "queue", "execute"} {
		t.Run(action, func(t *testing.T) {
			env := newTestEnv(t, 5)
			task := env.boxTask(t, 42, "resume after "+action)

			first := newFaultyBackend(env.backend)
			first.crash = action
			_, err := env.orchestrator(t, first).Run(context.Background(), task)
			require.ErrorIs(t, err, errCrash)
			require.Equal(t, 1, first.count(action))

			second := newFaultyBackend(env.backend)
			report, err := env.orchestrator(t, second).Run(context.Background(), task)
			require.NoError(t, err)
			require.Equal(t, governance.ProposalExecuted, report.State)
			require.Zero(t, second.count(action), "%s was submitted twice", action)
			require.Equal(t, uint64(42), ledger.BoxValue(env.chain, env.deploy.Box).Uint64())
		})
	}
}

func TestRun_LostConfirmationIsNotResent(t *testing.T) {
	env := newTestEnv(t, 5)
	task := env.boxTask(t, 9, "lost confirmations")

	faulty := newFaultyBackend(env.backend)
	for _, action := range []string{"propose", "castVote", "queue", "execute"} {
		faulty.lose[action] = 1
	}
	report, err := env.orchestrator(t, faulty).Run(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, governance.ProposalExecuted, report.State)
	for _, action := range []string{"propose", "castVote", "queue", "execute"} {
		require.Equal(t, 1, faulty.count(action), action)
	}
}

// unconfirmedBackend mines the first proposal through a backend that does
// not wait for confirmations and then reports the call as failed, the way a
// client gives up on a receipt that is still shallow.
type unconfirmedBackend struct {
	govclient.Backend
	fast     govclient.Backend
	proposed int
}

func (b *unconfirmedBackend) Propose(ctx context.Context, p *govclient.ProposalInput) (common.Hash, error) {
	b.proposed++
	if b.proposed > 1 {
		return b.Backend.Propose(ctx, p)
	}
	id, err := b.fast.Propose(ctx, p)
	if err != nil {
		return id, err
	}
	return id, fmt.Errorf("%w: receipt dropped", governance.ErrTransient)
}

// stageHeads remembers the head block at which each stage was first persisted.
type stageHeads struct {
	*storage.MemoryStore
	chain *ledger.Chain

	mu    sync.Mutex
	heads map[string]uint64
}

func (s *stageHeads) Put(rec *storage.ProposalRecord) error {
	s.mu.Lock()
	if _, ok := s.heads[rec.Stage]; !ok {
		s.heads[rec.Stage] = s.chain.Head().Number
	}
	s.mu.Unlock()
	return s.MemoryStore.Put(rec)
}

func TestRun_ShallowEffectWaitsForConfirmations(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, 1000)
	deep, err := govclient.NewSimulated(env.chain, env.deploy.Addresses.Governor, env.deploy.Deployer, 3)
	require.NoError(t, err)
	backend := &unconfirmedBackend{Backend: deep, fast: env.backend}
	store := &stageHeads{MemoryStore: env.store, chain: env.chain, heads: make(map[string]uint64)}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				env.chain.AdvanceBlocks(1)
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	o, err := New(backend, store, testConfig())
	require.NoError(t, err)
	task := env.boxTask(t, 3, "shallow proposal")
	task.Until = StageVote
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := o.Run(ctx, task)
	require.NoError(t, err)
	require.Equal(t, StageVote, report.Stage)
	require.Equal(t, 1, backend.proposed, "proposal was sent twice")

	info, err := env.backend.Proposal(ctx, task.Proposal.ID())
	require.NoError(t, err)
	proposedAt := info.Snapshot - genesis.DefaultBootstrapConfig().Governor.VotingDelay

	store.mu.Lock()
	defer store.mu.Unlock()
	head, ok := store.heads[StageAwaitActive.String()]
	require.True(t, ok)
	require.GreaterOrEqual(t, head, proposedAt+2, "next stage persisted on a proposal with fewer than 3 confirmations")
}

func TestRun_MultipleVoters(t *testing.T) {
	env := newTestEnv(t, 5)
	task := env.boxTask(t, 5, "two voters")
	o := env.orchestrator(t, env.backend).WithVoters(env.backend, env.backend.As(voter))

	_, err := o.Run(context.Background(), task)
	require.NoError(t, err)
	votes, err := env.deploy.Contracts.Governor().Votes(task.Proposal.ID())
	require.NoError(t, err)
	require.Len(t, votes, 2)
}

func TestRun_Defeated(t *testing.T) {
	env := newTestEnv(t, 5)
	task := env.boxTask(t, 1, "defeated")
	task.Support = governance.VoteAgainst

	report, err := env.orchestrator(t, env.backend).Run(context.Background(), task)
	require.ErrorIs(t, err, ErrDefeated)
	require.Equal(t, governance.KindStateGuard, governance.Classify(err))
	require.Equal(t, governance.ProposalDefeated, report.State)
	require.Equal(t, StageAwaitSucceeded, report.Stage)
	require.Equal(t, uint64(0), ledger.BoxValue(env.chain, env.deploy.Box).Uint64())
}

func TestRun_Canceled(t *testing.T) {
	env := newTestEnv(t, 5)
	task := env.boxTask(t, 1, "canceled")
	ctx := context.Background()

	_, err := env.backend.Propose(ctx, task.Proposal)
	require.NoError(t, err)
	require.NoError(t, env.backend.Cancel(ctx, task.Proposal))

	report, err := env.orchestrator(t, env.backend).Run(ctx, task)
	require.ErrorIs(t, err, ErrCanceled)
	require.Equal(t, governance.ProposalCanceled, report.State)
}

func TestRun_ExecutionFailureStaysQueued(t *testing.T) {
	env := newTestEnv(t, 5)
	task := Task{
		Proposal: &govclient.ProposalInput{
			Targets:     []common.Address{env.deploy.Box},
			Values:      []*uint256.Int{new(uint256.Int)},
			Calldatas:   [][]byte{{0xde, 0xad, 0xbe, 0xef}},
			Description: "unknown box method",
		},
		Support: governance.VoteFor,
	}
	report, err := env.orchestrator(t, env.backend).Run(context.Background(), task)
	require.ErrorIs(t, err, governance.ErrCallReverted)
	require.Equal(t, governance.KindExecution, governance.Classify(err))
	require.Equal(t, StageExecute, report.Stage)
	require.Equal(t, governance.ProposalQueued, report.State)

	rec, err := env.store.Get(31337, task.Proposal.DescriptionHash())
	require.NoError(t, err)
	require.Equal(t, "execute", rec.Stage)
}

func TestRun_InvalidTask(t *testing.T) {
	env := newTestEnv(t, 5)
	o := env.orchestrator(t, env.backend)
	head := env.chain.Head()

	task := env.boxTask(t, 1, "invalid")
	task.Proposal.Values = nil
	_, err := o.Run(context.Background(), task)
	require.ErrorIs(t, err, governance.ErrInvalidProposalLength)

	task = env.boxTask(t, 1, "bad support")
	task.Support = 3
	_, err = o.Run(context.Background(), task)
	require.ErrorIs(t, err, governance.ErrInvalidVoteType)

	_, err = o.Run(context.Background(), Task{})
	require.ErrorIs(t, err, governance.ErrInvalidProposalLength)
	require.Equal(t, head, env.chain.Head())
}

func TestRun_RecordMismatch(t *testing.T) {
	env := newTestEnv(t, 5)
	task := env.boxTask(t, 1, "mismatch")
	require.NoError(t, env.store.Put(&storage.ProposalRecord{
		ChainID:         31337,
		ProposalID:      common.HexToHash("0x01"),
		DescriptionHash: task.Proposal.DescriptionHash(),
		Description:     "mismatch",
		Targets:         []common.Address{env.deploy.Box},
		Values:          []*big.Int{new(big.Int)},
		Calldatas:       []hexutil.Bytes{{0x01}},
	}))

	_, err := env.orchestrator(t, env.backend).Run(context.Background(), task)
	require.ErrorIs(t, err, ErrRecordMismatch)
	require.Equal(t, governance.KindConfiguration, governance.Classify(err))
}

func TestRunAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, 50)
	tasks := []Task{
		env.boxTask(t, 1, "Proposal #1"),
		env.boxTask(t, 2, "Proposal #2"),
		env.boxTask(t, 3, "Proposal #3"),
	}
	reports, err := env.orchestrator(t, env.backend).RunAll(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, reports, len(tasks))
	for i, report := range reports {
		require.Equal(t, tasks[i].Proposal.ID(), report.ProposalID)
		require.Equal(t, governance.ProposalExecuted, report.State)
	}
	records, err := env.store.List(31337)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestRunAll_JoinsErrors(t *testing.T) {
	env := newTestEnv(t, 50)
	bad := env.boxTask(t, 1, "against")
	bad.Support = governance.VoteAgainst
	tasks := []Task{env.boxTask(t, 2, "for"), bad}

	reports, err := env.orchestrator(t, env.backend).RunAll(context.Background(), tasks)
	require.ErrorIs(t, err, ErrDefeated)
	require.NoError(t, reports[0].Err)
	require.ErrorIs(t, reports[1].Err, ErrDefeated)
}

func TestRun_WaitsForChainWithoutDevClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, 5)
	o, err := New(env.backend, env.store, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	report, err := o.Run(ctx, env.boxTask(t, 1, "no clock"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StageAwaitActive, report.Stage)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for _, mutate := range []func(*Config){
		func(c *Config) { c.PollInterval = 0 },
		func(c *Config) { c.InitialBackoff = 0 },
		func(c *Config) { c.MaxBackoff = c.InitialBackoff / 2 },
		func(c *Config) { c.CallTimeout = 0 },
		func(c *Config) { c.MaxConcurrent = 0 },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		require.ErrorIs(t, cfg.Validate(), governance.ErrConfiguration)
	}
}

func TestParseStage(t *testing.T) {
	for s := StageSubmit; s <= StageDone; s++ {
		got, err := ParseStage(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	got, err := ParseStage("")
	require.NoError(t, err)
	require.Equal(t, StageSubmit, got)

	_, err = ParseStage("teleport")
	require.ErrorIs(t, err, governance.ErrConfiguration)
}
