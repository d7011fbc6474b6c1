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
package shuttle

// FeatureGated is an optional interface a Tool may implement to name the
// feature flag it requires. The registry's DefinitionsFiltered excludes
// such a tool's definition when that feature isn't enabled. Tools that
// don't implement this interface (including all MCP tools) are never
// excluded on this basis.
type FeatureGated interface {
	FeatureGate() string
}

// ConcurrencySafe is an optional interface a Tool may implement to report
// whether it may run concurrently with other tool calls within the same
// turn. The session loop type-asserts for this before parallelizing a
// batch of tool calls; a tool that doesn't implement it is treated as not
// safe to run in parallel.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}

// ReadOnly is an optional interface a Tool may implement to report
// whether it only reads state (never mutates the workspace, network, or
// process state). The session loop uses this alongside ConcurrencySafe
// when deciding which tool calls in a turn may be batched.
type ReadOnly interface {
	ReadOnly() bool
}

// IsConcurrencySafe reports whether tool may run alongside other tool
// calls in the same turn, defaulting to false when tool doesn't opt in.
func IsConcurrencySafe(tool Tool) bool {
	cs, ok := tool.(ConcurrencySafe)
	return ok && cs.ConcurrencySafe()
}

// IsReadOnly reports whether tool only reads state, defaulting to false
// when tool doesn't opt in.
func IsReadOnly(tool Tool) bool {
	ro, ok := tool.(ReadOnly)
	return ok && ro.ReadOnly()
}
