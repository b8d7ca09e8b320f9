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

// govctl drives governance proposals through propose, vote, queue and
// execute, against a node or an in-process development chain.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/internal/config"
	"github.com/urfave/cli/v2"
)

const (
	metaConfig = "config"
	metaLog    = "log"
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "govctl",
		Usage:   "drive timelocked token governance proposals",
		Version: "0.3.0",
		Flags:   globalFlags,
		Commands: []*cli.Command{
			proposeCommand,
			voteCommand,
			queueCommand,
			executeCommand,
			cancelCommand,
			runCommand,
			statusCommand,
			devnetCommand,
		},
		Before: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			closer := setupLogging(cfg.Log, ctx.App.ErrWriter)
			ctx.App.Metadata = map[string]interface{}{metaConfig: cfg, metaLog: closer}
			return nil
		},
		After: func(ctx *cli.Context) error {
			if closer, ok := ctx.App.Metadata[metaLog].(io.Closer); ok {
				return closer.Close()
			}
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and lets command line flags
// override it. Flags win over the environment, which wins over the file.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Read(ctx.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if ctx.IsSet(networkFlag.Name) {
		cfg.Node = config.NodeConfig{Network: ctx.String(networkFlag.Name)}
		if err := cfg.ApplyNetwork(); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet(rpcFlag.Name) {
		cfg.Node.RPCURL = ctx.String(rpcFlag.Name)
	}
	if ctx.IsSet(confirmationsFlag.Name) {
		cfg.Node.Confirmations = ctx.Uint64(confirmationsFlag.Name)
	}
	if ctx.IsSet(governorFlag.Name) {
		addr := ctx.String(governorFlag.Name)
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: --%s: invalid address %q", governance.ErrConfiguration, governorFlag.Name, addr)
		}
		cfg.Governor.Address = common.HexToAddress(addr)
	}
	if ctx.IsSet(storeFlag.Name) {
		cfg.Store.Kind = ctx.String(storeFlag.Name)
	}
	if ctx.IsSet(storePathFlag.Name) {
		cfg.Store.Path = ctx.String(storePathFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(logJSONFlag.Name) {
		cfg.Log.JSON = ctx.Bool(logJSONFlag.Name)
	}
	if ctx.IsSet(logFileFlag.Name) {
		cfg.Log.File = ctx.String(logFileFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFrom(ctx *cli.Context) *config.Config {
	return ctx.App.Metadata[metaConfig].(*config.Config)
}
