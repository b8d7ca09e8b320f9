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

// e2e checks a governance deployment on a live node: the governor settings
// it reports and the timelock roles that make it the only way to act.
//
//	go run ./test/e2e <RPC_URL> <GOVERNOR>
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethgov/governor/governance"
)

func main() {
	fmt.Println("=== Governance deployment check ===")

	if len(os.Args) < 3 || !common.IsHexAddress(os.Args[2]) {
		fmt.Println("usage: go run ./test/e2e <RPC_URL> <GOVERNOR>")
		os.Exit(1)
	}
	governor := common.HexToAddress(os.Args[2])

	ctx := context.Background()
	client, err := ethclient.Dial(os.Args[1])
	if err != nil {
		fmt.Printf("❌ connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		fmt.Printf("❌ chain id: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ chain id: %s\n", chainID)

	failed := false
	fmt.Println("\n[governor]")
	for _, method := range []string{"votingDelay", "votingPeriod", "proposalThreshold", "quorumNumerator", "quorumDenominator"} {
		out, err := call(ctx, client, governor, governance.GovernorABI, method)
		failed = report(method, out, err) || failed
	}
	out, err := call(ctx, client, governor, governance.GovernorABI, "timelock")
	if failed = report("timelock", out, err) || failed; failed {
		os.Exit(1)
	}
	timelock := out[0].(common.Address)

	fmt.Println("\n[timelock]")
	out, err = call(ctx, client, timelock, governance.TimelockABI, "getMinDelay")
	failed = report("getMinDelay", out, err) || failed
	roles := []struct {
		name    string
		role    common.Hash
		account common.Address
		want    bool
	}{
		{"governor proposes", governance.ProposerRole, governor, true},
		{"governor cancels", governance.CancellerRole, governor, true},
		{"anyone executes", governance.ExecutorRole, common.Address{}, true},
		{"timelock administers itself", governance.AdminRole, timelock, true},
	}
	for _, r := range roles {
		out, err := call(ctx, client, timelock, governance.TimelockABI, "hasRole", [32]byte(r.role), r.account)
		if err == nil && out[0].(bool) != r.want {
			err = fmt.Errorf("hasRole = %v", out[0])
		}
		failed = report(r.name, nil, err) || failed
	}

	if failed {
		fmt.Println("\n❌ check failed")
		os.Exit(1)
	}
	fmt.Println("\n✓ check complete")
}

func call(ctx context.Context, client *ethclient.Client, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return contract.Unpack(method, result)
}

// report prints one check and whether it failed.
func report(name string, out []interface{}, err error) bool {
	if err != nil {
		fmt.Printf("  %s: ❌ %v\n", name, err)
		return true
	}
	switch {
	case len(out) == 0:
		fmt.Printf("  %s: ✓\n", name)
	case isBig(out[0]):
		fmt.Printf("  %s: ✓ %s\n", name, out[0].(*big.Int))
	default:
		fmt.Printf("  %s: ✓ %v\n", name, out[0])
	}
	return false
}

func isBig(v interface{}) bool {
	_, ok := v.(*big.Int)
	return ok
}
