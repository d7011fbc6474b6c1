// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_StartAndWaitForExit(t *testing.T) {
	sup := NewSupervisor(nil)
	ctx := context.Background()

	proc, err := sup.Start(ctx, []string{"sh", "-c", "echo hello; sleep 0.05"}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "bg-1", proc.ID)

	deadline := time.After(2 * time.Second)
	for proc.Status() == ProcessRunning {
		select {
		case <-deadline:
			t.Fatal("process did not exit in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	assert.Equal(t, ProcessExited, proc.Status())
	assert.Equal(t, 0, proc.ExitCode())

	logs, err := sup.Logs(proc.ID)
	require.NoError(t, err)
	assert.Contains(t, logs, "hello")
}

func TestSupervisor_Kill(t *testing.T) {
	sup := NewSupervisor(nil)
	ctx := context.Background()

	proc, err := sup.Start(ctx, []string{"sleep", "30"}, nil, "")
	require.NoError(t, err)

	require.NoError(t, sup.Kill(proc.ID))

	deadline := time.After(2 * time.Second)
	for proc.Status() == ProcessRunning {
		select {
		case <-deadline:
			t.Fatal("process did not report killed in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
	assert.Equal(t, ProcessKilled, proc.Status())
}

func TestSupervisor_UnknownProcess(t *testing.T) {
	sup := NewSupervisor(nil)

	_, err := sup.Logs("bg-999")
	assert.ErrorContains(t, err, "unknown background process: bg-999")

	err = sup.Kill("bg-999")
	assert.ErrorContains(t, err, "unknown background process: bg-999")
}

func TestSupervisor_List(t *testing.T) {
	sup := NewSupervisor(nil)
	ctx := context.Background()

	_, err := sup.Start(ctx, []string{"sh", "-c", "sleep 0.05"}, nil, "")
	require.NoError(t, err)
	_, err = sup.Start(ctx, []string{"sh", "-c", "sleep 0.05"}, nil, "")
	require.NoError(t, err)

	assert.Len(t, sup.List(), 2)
}

func TestProcessLog_EvictsOldestBytesBeyondCap(t *testing.T) {
	log := &ProcessLog{}
	log.Append(make([]byte, maxLogBytes-10))
	log.Append([]byte("0123456789012345678901234"))

	assert.LessOrEqual(t, len(log.Read()), maxLogBytes)
	assert.Contains(t, log.Read(), "2345")
}
