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
	"fmt"

	"github.com/ethgov/governor/governance"
)

// Stage is a step of the proposal lifecycle driver.
type Stage uint8

const (
	StageSubmit Stage = iota
	StageAwaitActive
	StageVote
	StageAwaitVoteEnd
	StageAwaitSucceeded
	StageQueue
	StageAwaitReady
	StageExecute
	StageAwaitExecuted
	StageDone
)

var stageNames = [...]string{
	"submit", "await-active", "vote", "await-vote-end", "await-succeeded",
	"queue", "await-ready", "execute", "await-executed", "done",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// ParseStage reads a stage persisted by String. The empty string is the
// first stage.
func ParseStage(name string) (Stage, error) {
	if name == "" {
		return StageSubmit, nil
	}
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown stage %q", governance.ErrConfiguration, name)
}
