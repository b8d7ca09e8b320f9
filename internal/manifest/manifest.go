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

// Package manifest reads YAML files that describe proposals for govctl.
//
// A manifest lists proposals; each proposal is a description and a list of
// actions. An action either carries raw calldata or names a method and its
// arguments, which are ABI encoded against the box interface or against the
// JSON ABI file the action points at:
//
//	proposals:
//	  - description: "Proposal #1 - update  value of box to 100"
//	    support: for
//	    reason: "Don't ask,just I do"
//	    actions:
//	      - target: box
//	        method: store
//	        args: ["100"]
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethgov/governor/govclient"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/ledger"
	"github.com/ethgov/governor/orchestrator"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// ErrInvalid reports a manifest that cannot be turned into proposals.
var ErrInvalid = fmt.Errorf("%w: invalid manifest", governance.ErrConfiguration)

var bigIntType = reflect.TypeOf(&big.Int{})

// Manifest is a list of proposals to drive.
type Manifest struct {
	Proposals []Proposal `yaml:"proposals"`

	dir string // ABI paths are relative to the manifest file
}

// Proposal is one proposal and how to vote on it.
type Proposal struct {
	Description string   `yaml:"description"`
	Support     string   `yaml:"support"` // for, against or abstain
	Reason      string   `yaml:"reason"`
	SkipVote    bool     `yaml:"skipVote"`
	Actions     []Action `yaml:"actions"`
}

// Action is one call the timelock makes when the proposal executes.
type Action struct {
	Target   string   `yaml:"target"` // address or a known name such as "box"
	Value    string   `yaml:"value"`  // wei, decimal or 0x hex
	Calldata string   `yaml:"calldata"`
	Method   string   `yaml:"method"`
	Args     []string `yaml:"args"`
	ABI      string   `yaml:"abi"` // JSON ABI file, the box interface when empty
}

// Default is the manifest the development network runs when none is given:
// store 100 in the box.
func Default() *Manifest {
	return &Manifest{Proposals: []Proposal{{
		Description: "Proposal #1 - update  value of box to 100",
		Support:     "for",
		Reason:      "Don't ask,just I do",
		Actions:     []Action{{Target: "box", Method: "store", Args: []string{"100"}}},
	}}}
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes a manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(m.Proposals) == 0 {
		return nil, fmt.Errorf("%w: no proposals", ErrInvalid)
	}
	return &m, nil
}

// Tasks converts the manifest into orchestrator tasks. Targets are first
// looked up in names, whose keys are lower case, and otherwise read as
// addresses.
func (m *Manifest) Tasks(names map[string]common.Address) ([]orchestrator.Task, error) {
	abis := make(map[string]abi.ABI)
	tasks := make([]orchestrator.Task, 0, len(m.Proposals))
	for i, p := range m.Proposals {
		task, err := m.task(p, names, abis)
		if err != nil {
			return nil, fmt.Errorf("proposal %d: %w", i, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (m *Manifest) task(p Proposal, names map[string]common.Address, abis map[string]abi.ABI) (orchestrator.Task, error) {
	support, err := ParseSupport(p.Support)
	if err != nil {
		return orchestrator.Task{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(p.Actions) == 0 {
		return orchestrator.Task{}, fmt.Errorf("%w: no actions", ErrInvalid)
	}
	input := &govclient.ProposalInput{Description: p.Description}
	for j, a := range p.Actions {
		target, err := resolveTarget(a.Target, names)
		if err != nil {
			return orchestrator.Task{}, fmt.Errorf("action %d: %w", j, err)
		}
		value, err := parseValue(a.Value)
		if err != nil {
			return orchestrator.Task{}, fmt.Errorf("action %d: %w", j, err)
		}
		calldata, err := m.calldata(a, abis)
		if err != nil {
			return orchestrator.Task{}, fmt.Errorf("action %d: %w", j, err)
		}
		input.Targets = append(input.Targets, target)
		input.Values = append(input.Values, value)
		input.Calldatas = append(input.Calldatas, calldata)
	}
	return orchestrator.Task{
		Proposal: input,
		Support:  support,
		Reason:   p.Reason,
		SkipVote: p.SkipVote,
	}, nil
}

// ParseSupport reads a vote direction by name or number. Empty means for.
func ParseSupport(s string) (governance.VoteType, error) {
	switch strings.ToLower(s) {
	case "", "for", "1":
		return governance.VoteFor, nil
	case "against", "0":
		return governance.VoteAgainst, nil
	case "abstain", "2":
		return governance.VoteAbstain, nil
	}
	return 0, fmt.Errorf("%w: vote %q", governance.ErrInvalidVoteType, s)
}

func resolveTarget(target string, names map[string]common.Address) (common.Address, error) {
	if addr, ok := names[strings.ToLower(target)]; ok {
		return addr, nil
	}
	if !common.IsHexAddress(target) {
		return common.Address{}, fmt.Errorf("%w: unknown target %q", ErrInvalid, target)
	}
	return common.HexToAddress(target), nil
}

func parseValue(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: value %q: %w", ErrInvalid, s, err)
	}
	return v, nil
}

func (m *Manifest) calldata(a Action, abis map[string]abi.ABI) ([]byte, error) {
	switch {
	case a.Calldata != "" && a.Method != "":
		return nil, fmt.Errorf("%w: both calldata and method given", ErrInvalid)
	case a.Calldata != "":
		data, err := hexutil.Decode(a.Calldata)
		if err != nil {
			return nil, fmt.Errorf("%w: calldata: %w", ErrInvalid, err)
		}
		return data, nil
	case a.Method == "":
		return nil, nil
	}
	contract, err := m.loadABI(a.ABI, abis)
	if err != nil {
		return nil, err
	}
	method, ok := contract.Methods[a.Method]
	if !ok {
		return nil, fmt.Errorf("%w: no method %q", ErrInvalid, a.Method)
	}
	if len(a.Args) != len(method.Inputs) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrInvalid, a.Method, len(method.Inputs), len(a.Args))
	}
	args := make([]interface{}, len(a.Args))
	for i, input := range method.Inputs {
		if args[i], err = convertArg(input.Type, a.Args[i]); err != nil {
			return nil, fmt.Errorf("%w: %s argument %q: %w", ErrInvalid, a.Method, input.Name, err)
		}
	}
	return contract.Pack(a.Method, args...)
}

func (m *Manifest) loadABI(path string, abis map[string]abi.ABI) (abi.ABI, error) {
	if path == "" {
		return ledger.BoxABI, nil
	}
	if !filepath.IsAbs(path) && m.dir != "" {
		path = filepath.Join(m.dir, path)
	}
	if parsed, ok := abis[path]; ok {
		return parsed, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	defer f.Close()
	parsed, err := abi.JSON(f)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	abis[path] = parsed
	return parsed, nil
}

var errOutOfRange = errors.New("out of range")

// convertArg turns a manifest string into the Go value abi.Pack expects for typ.
func convertArg(typ abi.Type, s string) (interface{}, error) {
	switch typ.T {
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("not an integer")
		}
		if typ.T == abi.UintTy && n.Sign() < 0 {
			return nil, errOutOfRange
		}
		rt := typ.GetType()
		if rt == bigIntType {
			return n, nil
		}
		v := reflect.New(rt).Elem()
		if typ.T == abi.UintTy {
			if !n.IsUint64() || v.OverflowUint(n.Uint64()) {
				return nil, errOutOfRange
			}
			v.SetUint(n.Uint64())
		} else {
			if !n.IsInt64() || v.OverflowInt(n.Int64()) {
				return nil, errOutOfRange
			}
			v.SetInt(n.Int64())
		}
		return v.Interface(), nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.StringTy:
		return s, nil
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("not an address")
		}
		return common.HexToAddress(s), nil
	case abi.BytesTy:
		return hexutil.Decode(s)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(b) != typ.Size {
			return nil, fmt.Errorf("want %d bytes, got %d", typ.Size, len(b))
		}
		v := reflect.New(typ.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported type %s", typ)
}
