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

// Package ps resolves the program name and pid of processes exposed by a
// /proc style filesystem without using the ps CLI tool.
//
// Lookups never return errors. A process that exits mid-read, a permission
// failure or a malformed record only means the process is left out of the
// result.
package ps

import "fmt"

// Client for finding processes. It is a LinuxClient reading /proc/ on linux
// and nil elsewhere until set by the caller.
var Client ProcessInterface

// Process describes an OS process at the time it was read.
type Process struct {
	// Pid is the process id.
	Pid int `json:"pid" yaml:"pid"`

	// Name is the resolved program name, a base name without any directory
	// component, e.g. "sshd" rather than "/usr/sbin/sshd".
	Name string `json:"name" yaml:"name"`
}

// String returns the process as name(pid).
func (p Process) String() string {
	return fmt.Sprintf("%s(%d)", p.Name, p.Pid)
}

// ProcessInterface is the process catalog.
type ProcessInterface interface {
	// FindPid resolves a single process. The second return value is false if
	// the process does not exist or could not be resolved.
	FindPid(pid int) (Process, bool)

	// Self resolves the calling process.
	Self() (Process, bool)

	// All returns every resolvable process in directory order.
	All() []Process

	// Find returns the processes whose name is exactly one of names.
	Find(names []string) []Process

	// AppendAll appends every resolvable process to dst and returns the
	// extended slice.
	AppendAll(dst []Process) []Process

	// AppendFind appends the processes whose name is exactly one of names to
	// dst and returns the extended slice.
	AppendFind(dst []Process, names []string) []Process
}

// FindPid resolves the process with the given pid.
func FindPid(pid int) (Process, bool) {
	return Client.FindPid(pid)
}

// Self resolves the calling process.
func Self() (Process, bool) {
	return Client.Self()
}

// All returns all resolvable processes.
func All() []Process {
	return Client.All()
}

// Find returns all processes whose resolved name is one of names. Matching is
// exact and case-sensitive.
func Find(names []string) []Process {
	return Client.Find(names)
}
