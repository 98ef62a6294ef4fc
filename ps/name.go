//  Copyright 2026 Google LLC
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package ps

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// DefaultCmdlineLimit is the number of cmdline bytes read when the
	// resolver doesn't set its own limit. Only argument zero is used, so a few
	// kilobytes is plenty.
	DefaultCmdlineLimit = 4096
)

// Fallback selects which name wins when the kernel's comm record doesn't
// prefix the name being checked.
type Fallback int

const (
	// FallbackExe checks the cmdline name against comm and falls back to the
	// exe link name.
	FallbackExe Fallback = iota

	// FallbackCmdline checks the exe link name against comm and falls back to
	// the cmdline name.
	FallbackCmdline
)

func (f Fallback) String() string {
	switch f {
	case FallbackExe:
		return "exe"
	case FallbackCmdline:
		return "cmdline"
	default:
		return fmt.Sprintf("Fallback(%d)", int(f))
	}
}

// ParseFallback maps a configuration value ("exe" or "cmdline") to a Fallback.
func ParseFallback(s string) (Fallback, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exe":
		return FallbackExe, nil
	case "cmdline":
		return FallbackCmdline, nil
	default:
		return FallbackExe, fmt.Errorf("unknown name fallback %q, expected exe or cmdline", s)
	}
}

// Resolver derives a program name from a process directory such as
// /proc/1234. The zero value is ready to use.
type Resolver struct {
	// CmdlineLimit caps how many bytes of the cmdline record are read. Zero or
	// less means DefaultCmdlineLimit.
	CmdlineLimit int64

	// Fallback is the tie-break policy, FallbackExe by default.
	Fallback Fallback
}

// Resolve returns the program name of the process rooted at dir. It reads the
// exe link, the comm record and the cmdline record; all three must be
// readable and both the exe and cmdline names must be derivable, otherwise
// the second return value is false.
func (r Resolver) Resolve(dir string) (string, bool) {
	exe, err := os.Readlink(filepath.Join(dir, "exe"))
	if err != nil {
		return "", false
	}

	comm, err := os.ReadFile(filepath.Join(dir, "comm"))
	if err != nil {
		return "", false
	}

	cmdline, err := r.readCmdline(filepath.Join(dir, "cmdline"))
	if err != nil {
		return "", false
	}

	return reconcile(exe, string(comm), cmdline, r.Fallback)
}

// readCmdline reads at most CmdlineLimit bytes, short reads are fine.
func (r Resolver) readCmdline(cmdlinePath string) (string, error) {
	f, err := os.Open(cmdlinePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	limit := r.CmdlineLimit
	if limit <= 0 {
		limit = DefaultCmdlineLimit
	}

	dat, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return "", err
	}
	return string(dat), nil
}

// reconcile picks the program name out of the raw exe link target, comm
// record and cmdline buffer. The result is always one of the two derived base
// names, never something built from comm.
func reconcile(exe, comm, cmdline string, fallback Fallback) (string, bool) {
	exeName, ok := baseName(sanitize(exe))
	if !ok {
		return "", false
	}

	cmdlineName, ok := baseName(sanitize(cmdline))
	if !ok {
		return "", false
	}

	// comm is truncated by the kernel (TASK_COMM_LEN) and ends with a newline.
	comm = strings.TrimRightFunc(sanitize(comm), unicode.IsSpace)

	if fallback == FallbackCmdline {
		if strings.HasPrefix(exeName, comm) {
			return exeName, true
		}
		return cmdlineName, true
	}

	if strings.HasPrefix(cmdlineName, comm) {
		return cmdlineName, true
	}
	return exeName, true
}

// baseName returns the last path segment of s, after discarding anything from
// the first NUL byte on. Both / and \ separate segments. An empty last segment
// yields false.
func baseName(s string) (string, bool) {
	s, _, _ = strings.Cut(s, "\x00")
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// sanitize replaces invalid UTF-8 sequences with U+FFFD.
func sanitize(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
