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
	"os"
	"path/filepath"
	"strconv"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"
)

const (
	// defaultLinuxProcDir is the default location of proc filesystem mount point in
	// a linux system.
	defaultLinuxProcDir = "/proc/"

	// defaultCapacity is the initial capacity of slices returned by All and Find.
	defaultCapacity = 64
)

// LinuxClient is for finding processes on linux distributions. It holds no
// mutable state and is safe for concurrent use.
type LinuxClient struct {
	// ProcDir is the proc filesystem mount point. Unit tests point it at a
	// fake tree; empty means /proc/.
	ProcDir string

	// Resolver derives the program name of each process directory.
	Resolver Resolver
}

func (c *LinuxClient) procDir() string {
	if c.ProcDir == "" {
		return defaultLinuxProcDir
	}
	return c.ProcDir
}

// FindPid resolves the process with the given pid.
func (c *LinuxClient) FindPid(pid int) (Process, bool) {
	if pid < 0 {
		return Process{}, false
	}

	name, ok := c.Resolver.Resolve(filepath.Join(c.procDir(), strconv.Itoa(pid)))
	if !ok {
		return Process{}, false
	}
	return Process{Pid: pid, Name: name}, true
}

// Self resolves the calling process through the proc dir's self link.
func (c *LinuxClient) Self() (Process, bool) {
	target, err := os.Readlink(filepath.Join(c.procDir(), "self"))
	if err != nil {
		return Process{}, false
	}

	pid, ok := parsePid(filepath.Base(target))
	if !ok {
		return Process{}, false
	}

	// The kernel writes a bare pid, relative to the proc dir.
	if !filepath.IsAbs(target) {
		target = filepath.Join(c.procDir(), target)
	}

	name, ok := c.Resolver.Resolve(target)
	if !ok {
		return Process{}, false
	}
	return Process{Pid: pid, Name: name}, true
}

// All returns every resolvable process. The result is never nil.
func (c *LinuxClient) All() []Process {
	return c.AppendAll(make([]Process, 0, defaultCapacity))
}

// Find returns the processes whose resolved name equals one of names. The
// result is never nil.
func (c *LinuxClient) Find(names []string) []Process {
	return c.AppendFind(make([]Process, 0, defaultCapacity), names)
}

// AppendAll appends every resolvable process to dst.
func (c *LinuxClient) AppendAll(dst []Process) []Process {
	return c.appendProcesses(dst, nil)
}

// AppendFind appends the processes whose resolved name equals one of names
// to dst.
func (c *LinuxClient) AppendFind(dst []Process, names []string) []Process {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		want[name] = true
	}
	return c.appendProcesses(dst, func(name string) bool { return want[name] })
}

// appendProcesses walks the proc dir and appends each entry that resolves,
// passes match (when set) and has a numeric name.
func (c *LinuxClient) appendProcesses(dst []Process, match func(string) bool) []Process {
	root := c.procDir()

	// ReadDir hands back whatever it managed to read before failing.
	entries, err := os.ReadDir(root)
	if err != nil {
		logger.Debugf("Failed to read proc dir %s: %+v", root, err)
	}

	for _, entry := range entries {
		name, ok := c.Resolver.Resolve(filepath.Join(root, entry.Name()))
		if !ok {
			// Kernel thread, zombie, not permitted or gone already.
			continue
		}

		if match != nil && !match(name) {
			continue
		}

		pid, ok := parsePid(entry.Name())
		if !ok {
			continue
		}

		dst = append(dst, Process{Pid: pid, Name: name})
	}

	return dst
}

// parsePid parses a proc dir entry name as a non-negative 32 bit pid.
func parsePid(s string) (int, bool) {
	pid, err := strconv.ParseInt(s, 10, 32)
	if err != nil || pid < 0 {
		return 0, false
	}
	return int(pid), true
}
