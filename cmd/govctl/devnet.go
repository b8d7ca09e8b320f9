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
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/genesis"
	"github.com/ethgov/governor/govclient"
	"github.com/ethgov/governor/internal/manifest"
	"github.com/ethgov/governor/ledger"
	"github.com/ethgov/governor/orchestrator"
	"github.com/ethgov/governor/storage"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
)

// devAccounts are the accounts after the deployer in the usual development
// node mnemonic.
var devAccounts = []common.Address{
	common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
	common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"),
	common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906"),
}

// devPollInterval bounds polling on the in-process chain, whose blocks only
// appear when the clock is moved.
const devPollInterval = 20 * time.Millisecond

var (
	votersFlag = &cli.UintFlag{
		Name:  "voters",
		Usage: fmt.Sprintf("Development accounts besides the deployer that receive tokens and vote (max %d)", len(devAccounts)),
	}
	devnetCommand = &cli.Command{
		Name:      "devnet",
		Usage:     "Run proposals on an in-process development chain",
		ArgsUsage: " ",
		Flags:     []cli.Flag{devManifestFlag, votersFlag},
		Action:    devnet,
		Description: `
Starts a simulated chain, deploys the token, timelock, governor and box with
the configured parameters, and drives the manifest proposals from submission
to execution. Blocks are mined and time is moved as the lifecycle needs.`,
	}
)

func devnet(ctx *cli.Context) error {
	cfg := configFrom(ctx)
	voters := ctx.Uint(votersFlag.Name)
	if voters > uint(len(devAccounts)) {
		return fmt.Errorf("--%s: at most %d", votersFlag.Name, len(devAccounts))
	}
	m := manifest.Default()
	if ctx.IsSet(devManifestFlag.Name) {
		var err error
		if m, err = manifest.Load(ctx.String(devManifestFlag.Name)); err != nil {
			return err
		}
	}

	boot := genesis.DefaultBootstrapConfig()
	gov, err := cfg.GovernorParams()
	if err != nil {
		return err
	}
	boot.Governor = gov
	boot.Timelock = cfg.TimelockParams()
	for _, holder := range devAccounts[:voters] {
		amount := new(uint256.Int).Mul(uint256.NewInt(1000), uint256.NewInt(1e18))
		boot.Allocations = append(boot.Allocations, genesis.Allocation{Holder: holder, Amount: amount, Delegate: true})
	}
	chain := ledger.New(ledger.Config{ChainID: cfg.Node.ChainID})
	d, err := genesis.Deploy(chain, boot)
	if err != nil {
		return err
	}

	// Blocks on the simulated chain are final, so waiting for more than one
	// confirmation would only stall until the clock moves.
	backend, err := govclient.NewSimulated(chain, d.Addresses.Governor, d.Deployer, 1)
	if err != nil {
		return err
	}
	names := cfg.TargetNames()
	names["box"] = d.Box
	names["governor"] = d.Addresses.Governor
	names["timelock"] = d.Addresses.Timelock
	names["token"] = d.Addresses.Token
	tasks, err := m.Tasks(names)
	if err != nil {
		return err
	}

	ocfg := cfg.Orchestrator
	ocfg.PollInterval = min(ocfg.PollInterval, devPollInterval)
	o, err := orchestrator.New(backend, storage.NewMemoryStore(), ocfg)
	if err != nil {
		return err
	}
	o.WithDevClock(govclient.NewSimulatedClock(chain))
	votingAccounts := []govclient.Backend{backend}
	for _, holder := range devAccounts[:voters] {
		votingAccounts = append(votingAccounts, backend.As(holder))
	}
	o.WithVoters(votingAccounts...)

	reports, err := o.RunAll(ctx.Context, tasks)
	printReports(ctx.App.Writer, reports)
	fmt.Fprintf(ctx.App.Writer, "\ngovernor %s\ntimelock %s\nbox      %s value %s\n",
		d.Addresses.Governor, d.Addresses.Timelock, d.Box, ledger.BoxValue(chain, d.Box).Dec())
	return err
}
