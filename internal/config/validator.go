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

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/storage"
)

// Environment variables layered over the configuration file.
const (
	EnvNetwork       = "GOVCTL_NETWORK"
	EnvRPCURL        = "GOVCTL_RPC_URL"
	EnvChainID       = "GOVCTL_CHAIN_ID"
	EnvConfirmations = "GOVCTL_CONFIRMATIONS"
	EnvDev           = "GOVCTL_DEV"
	EnvGovernor      = "GOVCTL_GOVERNOR"
	EnvStoreKind     = "GOVCTL_STORE_KIND"
	EnvStorePath     = "GOVCTL_STORE_PATH"
	EnvVerbosity     = "GOVCTL_VERBOSITY"
)

// Validate checks the configuration for consistency. Every failure wraps
// governance.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Node.ChainID == 0 {
		return fmt.Errorf("%w: chain id not set", governance.ErrConfiguration)
	}
	if c.Node.Confirmations == 0 {
		return fmt.Errorf("%w: confirmations must be at least 1", governance.ErrConfiguration)
	}
	if !c.Node.Dev {
		// Only a development network can be simulated in process.
		if c.Node.RPCURL == "" {
			return fmt.Errorf("%w: rpc url required on network %d", governance.ErrConfiguration, c.Node.ChainID)
		}
		if c.Governor.Address == (common.Address{}) {
			return fmt.Errorf("%w: governor address required on network %d", governance.ErrConfiguration, c.Node.ChainID)
		}
	}
	params, err := c.GovernorParams()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", governance.ErrConfiguration, err)
	}
	if err := c.Orchestrator.Validate(); err != nil {
		return err
	}
	switch c.Store.Kind {
	case storage.KindMemory, storage.KindMemoryDB:
	case storage.KindFile, storage.KindLevelDB:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: %s store needs a path", governance.ErrConfiguration, c.Store.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown store kind %q", governance.ErrConfiguration, c.Store.Kind)
	}
	if c.Log.Verbosity < 0 || c.Log.Verbosity > 5 {
		return fmt.Errorf("%w: verbosity %d out of range", governance.ErrConfiguration, c.Log.Verbosity)
	}
	return nil
}

// applyEnv overrides configuration values with the GOVCTL_* variables.
// Environment wins over the file.
func (c *Config) applyEnv() error {
	c.Node.Network = getEnvOrDefault(EnvNetwork, c.Node.Network)
	c.Node.RPCURL = getEnvOrDefault(EnvRPCURL, c.Node.RPCURL)
	c.Store.Kind = getEnvOrDefault(EnvStoreKind, c.Store.Kind)
	c.Store.Path = getEnvOrDefault(EnvStorePath, c.Store.Path)

	var err error
	if c.Node.ChainID, err = envUint(EnvChainID, c.Node.ChainID); err != nil {
		return err
	}
	if c.Node.Confirmations, err = envUint(EnvConfirmations, c.Node.Confirmations); err != nil {
		return err
	}
	if v := os.Getenv(EnvDev); v != "" {
		if c.Node.Dev, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("%w: %s: %w", governance.ErrConfiguration, EnvDev, err)
		}
	}
	if v := os.Getenv(EnvGovernor); v != "" {
		if !common.IsHexAddress(v) {
			return fmt.Errorf("%w: %s: invalid address %q", governance.ErrConfiguration, EnvGovernor, v)
		}
		c.Governor.Address = common.HexToAddress(v)
	}
	if v := os.Getenv(EnvVerbosity); v != "" {
		if c.Log.Verbosity, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("%w: %s: %w", governance.ErrConfiguration, EnvVerbosity, err)
		}
	}
	return nil
}

func envUint(key string, current uint64) (uint64, error) {
	v := getEnvOrDefault(key, strconv.FormatUint(current, 10))
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", governance.ErrConfiguration, key, err)
	}
	return n, nil
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
