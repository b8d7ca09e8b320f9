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

// Package config loads the govctl configuration: a TOML file with
// environment overrides on top, validated before anything touches a chain.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/orchestrator"
	"github.com/ethgov/governor/storage"
	"github.com/holiman/uint256"
)

// DevChainID is the chain id of local development nodes.
const DevChainID = 31337

// Config is the complete govctl configuration.
type Config struct {
	Node         NodeConfig
	Governor     GovernorConfig
	Timelock     TimelockConfig
	Orchestrator orchestrator.Config
	Store        storage.StoreConfig
	Log          LogConfig
	// Targets names contracts that manifests may refer to, like "box".
	Targets map[string]common.Address
}

// NodeConfig describes the chain govctl talks to.
type NodeConfig struct {
	Network       string // optional preset, see Networks
	RPCURL        string
	ChainID       uint64
	Confirmations uint64 // blocks a transaction needs before it counts
	// Dev marks a development chain, where govctl may mine blocks and move
	// time instead of waiting for them.
	Dev bool
}

// GovernorConfig holds the governor address and the parameters used when
// govctl deploys one.
type GovernorConfig struct {
	Address           common.Address
	VotingDelay       uint64 // blocks
	VotingPeriod      uint64 // blocks
	ProposalThreshold string // decimal token amount
	QuorumNumerator   uint64
	QuorumDenominator uint64
	GracePeriod       uint64 // seconds, zero for no expiry
	// Guardians may cancel any proposal that has not been executed.
	Guardians []common.Address
}

// TimelockConfig holds the timelock address and role setup.
type TimelockConfig struct {
	Address    common.Address
	MinDelay   uint64 // seconds
	Proposers  []common.Address
	Executors  []common.Address
	Cancellers []common.Address
	Admin      common.Address
}

// LogConfig controls the root logger.
type LogConfig struct {
	Verbosity  int  // 0 crit .. 5 trace
	JSON       bool // JSON lines instead of terminal output
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Networks are the known network presets, selected by NodeConfig.Network.
var Networks = map[string]NodeConfig{
	"hardhat":   {ChainID: DevChainID, Confirmations: 1, Dev: true},
	"localhost": {RPCURL: "http://127.0.0.1:8545/", ChainID: DevChainID, Confirmations: 1, Dev: true},
	"sepolia":   {ChainID: 11155111, Confirmations: 6},
}

var errUnknownKeys = errors.New("unknown configuration keys")

// Default returns the configuration of a local development network. The node
// settings come from the network preset once ApplyNetwork runs.
func Default() *Config {
	gov := governance.DefaultGovernorConfig()
	return &Config{
		Node: NodeConfig{Network: "hardhat"},
		Governor: GovernorConfig{
			VotingDelay:       gov.VotingDelay,
			VotingPeriod:      gov.VotingPeriod,
			ProposalThreshold: "0",
			QuorumNumerator:   gov.QuorumNumerator,
			QuorumDenominator: gov.QuorumDenominator,
			GracePeriod:       gov.GracePeriod,
		},
		Timelock: TimelockConfig{
			MinDelay: governance.DefaultTimelockConfig().MinDelay,
		},
		Orchestrator: orchestrator.DefaultConfig(),
		Store:        storage.DefaultStoreConfig(),
		Log: LogConfig{
			Verbosity:  3,
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// Load reads the file at path over the defaults, applies the GOVCTL_*
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without the validation, for callers that layer further
// overrides on top before validating.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", governance.ErrConfiguration, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: %s: %w %v", governance.ErrConfiguration, path, errUnknownKeys, undecoded)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyNetwork(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyNetwork fills the node settings left empty from the selected preset.
func (c *Config) ApplyNetwork() error {
	if c.Node.Network == "" {
		return nil
	}
	preset, ok := Networks[c.Node.Network]
	if !ok {
		return fmt.Errorf("%w: unknown network %q", governance.ErrConfiguration, c.Node.Network)
	}
	if c.Node.RPCURL == "" {
		c.Node.RPCURL = preset.RPCURL
	}
	if c.Node.ChainID != 0 && c.Node.ChainID != preset.ChainID {
		// An explicit chain id of another network overrides the preset.
		return nil
	}
	c.Node.ChainID = preset.ChainID
	if c.Node.Confirmations == 0 {
		c.Node.Confirmations = preset.Confirmations
	}
	c.Node.Dev = c.Node.Dev || preset.Dev
	return nil
}

// GovernorParams converts the governor section to deployment parameters.
func (c *Config) GovernorParams() (*governance.GovernorConfig, error) {
	threshold := new(uint256.Int)
	if c.Governor.ProposalThreshold != "" {
		var err error
		if threshold, err = uint256.FromDecimal(c.Governor.ProposalThreshold); err != nil {
			return nil, fmt.Errorf("%w: proposal threshold %q: %w", governance.ErrConfiguration,
				c.Governor.ProposalThreshold, err)
		}
	}
	return &governance.GovernorConfig{
		VotingDelay:       c.Governor.VotingDelay,
		VotingPeriod:      c.Governor.VotingPeriod,
		ProposalThreshold: threshold,
		QuorumNumerator:   c.Governor.QuorumNumerator,
		QuorumDenominator: c.Governor.QuorumDenominator,
		GracePeriod:       c.Governor.GracePeriod,
		Cancellers:        c.Governor.Guardians,
	}, nil
}

// TargetNames returns the names manifests may use as targets, keyed in lower
// case. The governor and timelock are always known by name once configured.
func (c *Config) TargetNames() map[string]common.Address {
	names := make(map[string]common.Address, len(c.Targets)+2)
	for name, addr := range c.Targets {
		names[strings.ToLower(name)] = addr
	}
	if c.Governor.Address != (common.Address{}) {
		names["governor"] = c.Governor.Address
	}
	if c.Timelock.Address != (common.Address{}) {
		names["timelock"] = c.Timelock.Address
	}
	return names
}

// TimelockParams converts the timelock section to deployment parameters.
func (c *Config) TimelockParams() *governance.TimelockConfig {
	return &governance.TimelockConfig{
		MinDelay:   c.Timelock.MinDelay,
		Proposers:  c.Timelock.Proposers,
		Executors:  c.Timelock.Executors,
		Cancellers: c.Timelock.Cancellers,
		Admin:      c.Timelock.Admin,
	}
}
