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

// Package safety classifies shell commands as safe, needing approval, or
// denied before the approval & sandbox supervisor acts on them.
package safety

import (
	"regexp"
	"strings"
)

// Phase tags whether a risk is merely informational or must prompt the user.
type Phase int

const (
	PhaseAllow Phase = iota
	PhaseAsk
)

// Level orders risk severity.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Risk is a single finding from the deep-analysis pass.
type Risk struct {
	Family      string
	Phase       Phase
	Level       Level
	Description string
}

// Verdict is the outcome of analyzing one command line.
type Verdict struct {
	Status       Status
	ViaWhitelist bool
	Risks        []Risk
	MaxLevel     Level
	Reason       string
}

// Status is the three-way safety classification.
type Status int

const (
	StatusSafe Status = iota
	StatusRequiresApproval
	StatusDenied
)

var unsafeOperators = []string{"&&", "||", ";", "|", ">", "<"}

// readOnlyAllowList is the fast-path whitelist of read-only commands.
var readOnlyAllowList = map[string]bool{
	"ls": true, "cat": true, "head": true, "tail": true, "wc": true,
	"grep": true, "rg": true, "find": true, "which": true, "whoami": true,
	"pwd": true, "echo": true, "date": true, "env": true, "printenv": true,
	"uname": true, "hostname": true, "df": true, "du": true, "file": true,
	"stat": true, "type": true, "git": true,
}

var gitReadOnlySubcommands = map[string]bool{
	"status": true, "log": true, "diff": true, "show": true,
	"branch": true, "tag": true, "remote": true,
}

// AnalyzeCommandSafety classifies a shell command line.
func AnalyzeCommandSafety(commandLine string) Verdict {
	if v, ok := fastWhitelist(commandLine); ok {
		return v
	}
	return deepAnalysis(commandLine)
}

func fastWhitelist(commandLine string) (Verdict, bool) {
	for _, op := range unsafeOperators {
		if strings.Contains(commandLine, op) {
			return Verdict{}, false
		}
	}

	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return Verdict{}, false
	}

	first := fields[0]
	if !readOnlyAllowList[first] {
		return Verdict{}, false
	}

	if first == "git" {
		if len(fields) < 2 || !gitReadOnlySubcommands[fields[1]] {
			return Verdict{}, false
		}
	}

	return Verdict{Status: StatusSafe, ViaWhitelist: true}, true
}

var (
	privilegeEscalationCmds = map[string]bool{"sudo": true, "su": true, "doas": true, "pkexec": true}
	codeExecutionCmds       = map[string]bool{"eval": true, "exec": true, "source": true}
	shellDashCPattern       = regexp.MustCompile(`^(bash|sh|zsh|dash|ksh)$`)
	destructiveRMPattern    = regexp.MustCompile(`rm\s+(-[a-zA-Z]*r[a-zA-Z]*f|-[a-zA-Z]*f[a-zA-Z]*r)\b`)
	sensitiveChmodPaths     = regexp.MustCompile(`chmod\s+\S+\s+(/etc|/usr|/bin|/sbin|/boot|/)\b`)
	networkExfilPattern     = regexp.MustCompile(`\b(curl|wget|nc|netcat)\b.*\b(curl|wget|nc|netcat)\b|(cat|dd)\s+\S+\s*\|\s*(curl|wget|nc|netcat)\b`)
	obfuscatedFlagPattern   = regexp.MustCompile(`\\x[0-9a-fA-F]{2}|base64\s+-d|\$\(.*\)|` + "`" + `.*` + "`")
)

// deepAnalysis tokenizes the command and classifies risk families by
// phase (Allow/Ask) and level (Low..Critical), then applies the decision
// rule from the safety contract.
func deepAnalysis(commandLine string) Verdict {
	tokens, err := tokenize(commandLine)
	if err != nil {
		return Verdict{
			Status: StatusRequiresApproval,
			Risks: []Risk{{
				Family:      "unparseable",
				Phase:       PhaseAsk,
				Level:       LevelMedium,
				Description: err.Error(),
			}},
			MaxLevel: LevelMedium,
		}
	}

	var risks []Risk

	for _, op := range unsafeOperators {
		if strings.Contains(commandLine, op) {
			risks = append(risks, Risk{
				Family:      "metacharacter_injection",
				Phase:       PhaseAsk,
				Level:       LevelMedium,
				Description: "shell metacharacter " + op + " changes command structure",
			})
			break
		}
	}

	for _, tok := range tokens {
		if privilegeEscalationCmds[tok] {
			risks = append(risks, Risk{
				Family:      "privilege_escalation",
				Phase:       PhaseAsk,
				Level:       LevelHigh,
				Description: "invokes privilege-escalation command: " + tok,
			})
		}
		if codeExecutionCmds[tok] {
			risks = append(risks, Risk{
				Family:      "code_execution",
				Phase:       PhaseAsk,
				Level:       LevelHigh,
				Description: "invokes dynamic code execution: " + tok,
			})
		}
	}

	for i, tok := range tokens {
		if shellDashCPattern.MatchString(tok) && i+1 < len(tokens) && tokens[i+1] == "-c" {
			risks = append(risks, Risk{
				Family:      "code_execution",
				Phase:       PhaseAsk,
				Level:       LevelHigh,
				Description: tok + " -c executes an arbitrary inline script",
			})
		}
	}

	if destructiveRMPattern.MatchString(commandLine) {
		risks = append(risks, Risk{
			Family:      "destructive_filesystem",
			Phase:       PhaseAsk,
			Level:       LevelCritical,
			Description: "recursive forced delete (rm -rf or equivalent)",
		})
	}

	if sensitiveChmodPaths.MatchString(commandLine) {
		risks = append(risks, Risk{
			Family:      "destructive_filesystem",
			Phase:       PhaseAsk,
			Level:       LevelHigh,
			Description: "chmod targets a system path",
		})
	}

	if networkExfilPattern.MatchString(commandLine) {
		risks = append(risks, Risk{
			Family:      "network_exfiltration",
			Phase:       PhaseAsk,
			Level:       LevelHigh,
			Description: "pipes local data to a remote endpoint",
		})
	}

	if obfuscatedFlagPattern.MatchString(commandLine) {
		risks = append(risks, Risk{
			Family:      "obfuscated_flags",
			Phase:       PhaseAsk,
			Level:       LevelMedium,
			Description: "command uses encoded or substituted arguments",
		})
	}

	return decide(risks)
}

// decide applies the §4.D decision rule to an accumulated risk set.
func decide(risks []Risk) Verdict {
	maxLevel := LevelLow
	hasAsk := false
	hasHighOrAbove := false
	var criticalReasons []string

	for _, r := range risks {
		if r.Level > maxLevel {
			maxLevel = r.Level
		}
		if r.Phase == PhaseAsk {
			hasAsk = true
		}
		if r.Level >= LevelHigh {
			hasHighOrAbove = true
		}
		if r.Level == LevelCritical {
			criticalReasons = append(criticalReasons, r.Description)
		}
	}

	if len(criticalReasons) > 0 {
		return Verdict{
			Status:   StatusDenied,
			Risks:    risks,
			MaxLevel: maxLevel,
			Reason:   strings.Join(criticalReasons, "; "),
		}
	}

	if hasAsk || hasHighOrAbove {
		return Verdict{
			Status:   StatusRequiresApproval,
			Risks:    risks,
			MaxLevel: maxLevel,
		}
	}

	if len(risks) == 0 {
		return Verdict{Status: StatusSafe, Risks: risks, MaxLevel: LevelLow}
	}

	allAllowLowMedium := true
	for _, r := range risks {
		if r.Phase != PhaseAllow || r.Level > LevelMedium {
			allAllowLowMedium = false
			break
		}
	}
	if allAllowLowMedium {
		return Verdict{Status: StatusSafe, Risks: risks, MaxLevel: maxLevel}
	}

	return Verdict{Status: StatusRequiresApproval, Risks: risks, MaxLevel: LevelLow}
}
