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

package govclient

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethgov/governor/genesis"
	"github.com/ethgov/governor/governance"
	"github.com/stretchr/testify/require"
)

// devKey is the key of genesis.DevDeployer.
const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type revertError struct{ data []byte }

func (e *revertError) Error() string          { return "execution reverted" }
func (e *revertError) ErrorCode() int         { return revertCode }
func (e *revertError) ErrorData() interface{} { return hexutil.Encode(e.data) }

type nodeError struct {
	msg  string
	code int
}

func (e *nodeError) Error() string  { return e.msg }
func (e *nodeError) ErrorCode() int { return e.code }

func customError(t *testing.T, contract abi.ABI, name string, args ...interface{}) []byte {
	t.Helper()

	abiErr, ok := contract.Errors[name]
	require.True(t, ok, name)
	packed, err := abiErr.Inputs.Pack(args...)
	require.NoError(t, err)
	return append(common.CopyBytes(abiErr.ID[:4]), packed...)
}

func stringRevert(t *testing.T, reason string) []byte {
	t.Helper()

	stringT, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringT}}.Pack(reason)
	require.NoError(t, err)
	return append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)
}

// ethService answers the handful of eth_ methods the backend needs for
// reads and gas estimation.
type ethService struct {
	estimateErr error
	callOut     []byte
	callErr     error
}

func (s *ethService) ChainId() *hexutil.Big { return (*hexutil.Big)(big.NewInt(31337)) }

func (s *ethService) EstimateGas(args map[string]interface{}, block *rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	if s.estimateErr != nil {
		return 0, s.estimateErr
	}
	return 100_000, nil
}

func (s *ethService) Call(args map[string]interface{}, block *rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	return s.callOut, s.callErr
}

// evmService stands in for the development node time controls.
type evmService struct {
	mu      sync.Mutex
	mined   int
	seconds uint64
}

func (s *evmService) Mine() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mined++
	return nil
}

func (s *evmService) IncreaseTime(seconds uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seconds += seconds
	return s.seconds, nil
}

func newTestNode(t *testing.T, eth *ethService, evm *evmService) *rpc.Client {
	t.Helper()

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", eth))
	require.NoError(t, srv.RegisterName("evm", evm))
	client := rpc.DialInProc(srv)
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
	})
	return client
}

func newTestRPC(t *testing.T, eth *ethService) *RPC {
	t.Helper()

	key, err := crypto.HexToECDSA(devKey)
	require.NoError(t, err)
	b, err := NewRPC(context.Background(), newTestNode(t, eth, new(evmService)), RPCConfig{
		Governor:      common.HexToAddress("0x72"),
		Key:           key,
		Confirmations: 1,
	})
	require.NoError(t, err)
	return b
}

func TestRPC_Connect(t *testing.T) {
	b := newTestRPC(t, new(ethService))

	chainID, err := b.ChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(31337), chainID)
	require.Equal(t, genesis.DevDeployer, b.Account())
	require.Equal(t, common.HexToAddress("0x72"), b.Governor())
}

func TestRPC_RevertBeforeSending(t *testing.T) {
	eth := &ethService{}
	b := newTestRPC(t, eth)
	eth.estimateErr = &revertError{data: customError(t, governance.GovernorABI, "GovernorInsufficientProposerVotes",
		genesis.DevDeployer, big.NewInt(0), big.NewInt(10))}

	p := boxProposal(t, common.HexToAddress("0xb0"), 1, "below threshold")
	_, err := b.Propose(context.Background(), p)
	require.ErrorIs(t, err, governance.ErrBelowProposalThreshold)
	require.Equal(t, governance.KindValidation, governance.Classify(err))
	require.Contains(t, err.Error(), "GovernorInsufficientProposerVotes")
}

func TestRPC_Reads(t *testing.T) {
	eth := &ethService{}
	b := newTestRPC(t, eth)
	ctx := context.Background()

	out, err := governance.GovernorABI.Methods["state"].Outputs.Pack(uint8(governance.ProposalQueued))
	require.NoError(t, err)
	eth.callOut = out
	state, err := b.State(ctx, common.Hash{1})
	require.NoError(t, err)
	require.Equal(t, governance.ProposalQueued, state)

	eth.callOut, eth.callErr = nil, &revertError{data: customError(t, governance.GovernorABI, "GovernorNonexistentProposal", big.NewInt(1))}
	_, err = b.State(ctx, common.Hash{1})
	require.ErrorIs(t, err, governance.ErrNonexistentProposal)
}

func TestRPCClock(t *testing.T) {
	evm := new(evmService)
	clock := NewRPCClock(newTestNode(t, new(ethService), evm))
	ctx := context.Background()

	require.NoError(t, clock.MoveBlocks(ctx, 3))
	require.NoError(t, clock.MoveTime(ctx, 3601))
	require.Equal(t, 3, evm.mined)
	require.Equal(t, uint64(3601), evm.seconds)
}

func TestRPCConfig_Validation(t *testing.T) {
	key, err := crypto.HexToECDSA(devKey)
	require.NoError(t, err)
	governor := common.HexToAddress("0x72")

	for _, cfg := range []RPCConfig{
		{Governor: governor, Confirmations: 1},
		{Governor: governor, Key: key},
		{Key: key, Confirmations: 1},
	} {
		_, err := Dial(context.Background(), cfg)
		require.ErrorIs(t, err, governance.ErrConfiguration)
	}
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		kind governance.ErrorKind
	}{
		{
			name: "already voted",
			err:  &revertError{data: customError(t, governance.GovernorABI, "GovernorAlreadyCastVote", genesis.DevDeployer)},
			want: governance.ErrAlreadyVoted,
			kind: governance.KindStateGuard,
		},
		{
			name: "timelock not ready",
			err:  &revertError{data: customError(t, governance.TimelockABI, "TimelockUnexpectedOperationState", [32]byte{1}, [32]byte{4})},
			want: governance.ErrNotReady,
			kind: governance.KindStateGuard,
		},
		{
			name: "missing role",
			err:  &revertError{data: customError(t, governance.TimelockABI, "AccessControlUnauthorizedAccount", genesis.DevDeployer, [32]byte{})},
			want: governance.ErrMissingRole,
			kind: governance.KindAuthorization,
		},
		{
			name: "target reverted",
			err:  &revertError{data: stringRevert(t, "Ownable: caller is not the owner")},
			want: governance.ErrCallReverted,
			kind: governance.KindExecution,
		},
		{
			name: "unknown selector",
			err:  &revertError{data: []byte{0xde, 0xad, 0xbe, 0xef}},
			want: governance.ErrCallReverted,
			kind: governance.KindExecution,
		},
		{
			name: "revert without data",
			err:  &nodeError{msg: "execution reverted", code: revertCode},
			want: governance.ErrCallReverted,
			kind: governance.KindExecution,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"),
			want: governance.ErrTransient,
			kind: governance.KindTransient,
		},
		{
			name: "canceled",
			err:  context.Canceled,
			want: context.Canceled,
			kind: governance.KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeError(tt.err)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.kind, governance.Classify(err))
		})
	}

	// Errors the node answered with are passed through untouched.
	nonce := &nodeError{msg: "nonce too low", code: -32000}
	require.Same(t, nonce, decodeError(nonce))

	err := decodeError(&revertError{data: stringRevert(t, "Ownable: caller is not the owner")})
	require.True(t, strings.Contains(err.Error(), "Ownable"))
}
