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
	"github.com/urfave/cli/v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "TOML configuration file",
		EnvVars: []string{"GOVCTL_CONFIG"},
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format logs as JSON lines",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Also write logs to this file, rotated by size",
	}
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "Network preset (hardhat, localhost, sepolia)",
	}
	rpcFlag = &cli.StringFlag{
		Name:  "rpc",
		Usage: "JSON-RPC endpoint of the node",
	}
	governorFlag = &cli.StringFlag{
		Name:  "governor",
		Usage: "Address of the governor contract",
	}
	confirmationsFlag = &cli.Uint64Flag{
		Name:  "confirmations",
		Usage: "Blocks a transaction needs before it counts",
	}
	storeFlag = &cli.StringFlag{
		Name:  "store",
		Usage: "Proposal record store (memory, file, leveldb, memorydb)",
	}
	storePathFlag = &cli.StringFlag{
		Name:  "store.path",
		Usage: "Proposal record file or database directory",
	}

	keyFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "Hex private key of the account that proposes, queues and executes",
		EnvVars: []string{"GOVCTL_PRIVATE_KEY"},
	}
	voterKeysFlag = &cli.StringSliceFlag{
		Name:  "voter.key",
		Usage: "Hex private keys of the voting accounts (defaults to --key)",
	}
	manifestFlag = &cli.StringFlag{
		Name:     "manifest",
		Aliases:  []string{"m"},
		Usage:    "YAML proposal manifest",
		Required: true,
	}
	devManifestFlag = &cli.StringFlag{
		Name:    "manifest",
		Aliases: []string{"m"},
		Usage:   "YAML proposal manifest (stores 100 in the box when omitted)",
	}
	supportFlag = &cli.StringFlag{
		Name:  "support",
		Usage: "Override the manifest vote: for, against or abstain",
	}
	reasonFlag = &cli.StringFlag{
		Name:  "reason",
		Usage: "Override the manifest vote reason",
	}
)

var globalFlags = []cli.Flag{
	configFlag,
	verbosityFlag,
	logJSONFlag,
	logFileFlag,
	networkFlag,
	rpcFlag,
	governorFlag,
	confirmationsFlag,
	storeFlag,
	storePathFlag,
}

// accountFlags are taken by every command that sends transactions.
var accountFlags = []cli.Flag{
	keyFlag,
	voterKeysFlag,
}
