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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxLauncher_RunHost(t *testing.T) {
	launcher := NewSandboxLauncher(nil, "", "")
	res, err := launcher.Run(context.Background(), SandboxNone, []string{"echo", "hi"}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "hi")
	assert.Equal(t, 0, res.ExitCode)
}

func TestSandboxLauncher_LinuxSeccompWithoutDockerExecutorErrors(t *testing.T) {
	launcher := NewSandboxLauncher(nil, "session-1", "/work")
	_, err := launcher.Run(context.Background(), SandboxLinuxSeccomp, []string{"ls"}, nil)
	assert.ErrorContains(t, err, "no docker executor configured")
}

func TestSandboxLauncher_MacosSeatbeltUnavailable(t *testing.T) {
	launcher := NewSandboxLauncher(nil, "", "")
	_, err := launcher.Run(context.Background(), SandboxMacosSeatbelt, []string{"ls"}, nil)
	assert.ErrorContains(t, err, "not available")
}
