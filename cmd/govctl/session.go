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
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethgov/governor/govclient"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/internal/config"
	"github.com/ethgov/governor/orchestrator"
	"github.com/ethgov/governor/storage"
	"github.com/urfave/cli/v2"
)

// session is a connection to a node plus the record store.
type session struct {
	cfg     *config.Config
	backend *govclient.RPC
	voters  []govclient.Backend
	clock   govclient.DevClock // nil unless the node is a development chain
	store   storage.Store
	clients []*govclient.RPC
}

// openSession connects to the configured node. A read-only session needs no
// account; it signs nothing.
func openSession(ctx *cli.Context, readOnly bool) (*session, error) {
	cfg := configFrom(ctx)
	if cfg.Node.RPCURL == "" {
		return nil, fmt.Errorf("%w: no rpc url for network %q, use 'govctl devnet' for an in-process chain",
			governance.ErrConfiguration, cfg.Node.Network)
	}
	var (
		key *ecdsa.PrivateKey
		err error
	)
	if readOnly && !ctx.IsSet(keyFlag.Name) {
		key, err = crypto.GenerateKey()
	} else {
		key, err = parseKey(ctx.String(keyFlag.Name))
	}
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", keyFlag.Name, err)
	}
	s := &session{cfg: cfg}
	if s.backend, err = s.dial(ctx, key); err != nil {
		return nil, err
	}
	for _, hex := range ctx.StringSlice(voterKeysFlag.Name) {
		voterKey, err := parseKey(hex)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("--%s: %w", voterKeysFlag.Name, err)
		}
		voter, err := s.dial(ctx, voterKey)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.voters = append(s.voters, voter)
	}
	if cfg.Node.Dev {
		s.clock = s.backend.DevClock()
	}
	if s.store, err = storage.Open(cfg.Store); err != nil {
		s.Close()
		return nil, err
	}
	chainID, _ := s.backend.ChainID(ctx.Context)
	if chainID != cfg.Node.ChainID {
		log.Warn("Node chain id differs from the configuration", "node", chainID, "config", cfg.Node.ChainID)
	}
	return s, nil
}

func (s *session) dial(ctx *cli.Context, key *ecdsa.PrivateKey) (*govclient.RPC, error) {
	client, err := govclient.Dial(ctx.Context, govclient.RPCConfig{
		URL:           s.cfg.Node.RPCURL,
		Governor:      s.cfg.Governor.Address,
		Key:           key,
		Confirmations: s.cfg.Node.Confirmations,
		PollInterval:  s.cfg.Orchestrator.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	s.clients = append(s.clients, client)
	return client, nil
}

// orchestrator builds a driver over the session accounts.
func (s *session) orchestrator() (*orchestrator.Orchestrator, error) {
	o, err := orchestrator.New(s.backend, s.store, s.cfg.Orchestrator)
	if err != nil {
		return nil, err
	}
	if len(s.voters) > 0 {
		o.WithVoters(s.voters...)
	}
	if s.clock != nil {
		o.WithDevClock(s.clock)
	}
	return o, nil
}

func (s *session) Close() {
	for _, c := range s.clients {
		c.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Warn("Failed to close record store", "err", err)
		}
	}
}

func parseKey(hex string) (*ecdsa.PrivateKey, error) {
	if hex == "" {
		return nil, fmt.Errorf("%w: private key not set", governance.ErrConfiguration)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", governance.ErrConfiguration, err)
	}
	return key, nil
}
