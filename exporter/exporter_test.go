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

package exporter

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GoogleCloudPlatform/procname/ps"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeClient is a ps.ProcessInterface backed by a fixed process list.
type fakeClient struct {
	procs []ps.Process
	calls int
}

func (f *fakeClient) FindPid(pid int) (ps.Process, bool) {
	for _, p := range f.procs {
		if p.Pid == pid {
			return p, true
		}
	}
	return ps.Process{}, false
}

func (f *fakeClient) Self() (ps.Process, bool) {
	return ps.Process{}, false
}

func (f *fakeClient) All() []ps.Process {
	return f.AppendAll(nil)
}

func (f *fakeClient) Find(names []string) []ps.Process {
	return f.AppendFind(nil, names)
}

func (f *fakeClient) AppendAll(dst []ps.Process) []ps.Process {
	f.calls++
	return append(dst, f.procs...)
}

func (f *fakeClient) AppendFind(dst []ps.Process, names []string) []ps.Process {
	f.calls++
	for _, p := range f.procs {
		for _, name := range names {
			if p.Name == name {
				dst = append(dst, p)
				break
			}
		}
	}
	return dst
}

var testProcs = []ps.Process{
	{Pid: 1, Name: "systemd"},
	{Pid: 202, Name: "python3.11"},
	{Pid: 303, Name: "bash"},
	{Pid: 505, Name: "python3.11"},
}

func TestCollectAll(t *testing.T) {
	c := New(&fakeClient{procs: testProcs}, nil)

	expected := `
# HELP procname_processes Number of running processes per resolved program name.
# TYPE procname_processes gauge
procname_processes{name="bash"} 1
procname_processes{name="python3.11"} 2
procname_processes{name="systemd"} 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "procname_processes"); err != nil {
		t.Errorf("CollectAndCompare() returned unexpected error: %v", err)
	}

	if got := testutil.CollectAndCount(c, "procname_process_info"); got != len(testProcs) {
		t.Errorf("CollectAndCount(procname_process_info) = %d, expected: %d", got, len(testProcs))
	}
}

func TestCollectNames(t *testing.T) {
	c := New(&fakeClient{procs: testProcs}, []string{"python3.11", "sshd"})

	expected := `
# HELP procname_process_info Running process with its resolved program name, always 1.
# TYPE procname_process_info gauge
procname_process_info{name="python3.11",pid="202"} 1
procname_process_info{name="python3.11",pid="505"} 1
# HELP procname_processes Number of running processes per resolved program name.
# TYPE procname_processes gauge
procname_processes{name="python3.11"} 2
procname_processes{name="sshd"} 0
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Errorf("CollectAndCompare() returned unexpected error: %v", err)
	}
}

func TestCollectTakesNewSnapshot(t *testing.T) {
	client := &fakeClient{procs: testProcs}
	c := New(client, nil)

	testutil.CollectAndCount(c)
	testutil.CollectAndCount(c)

	if client.calls != 2 {
		t.Errorf("Collect() read the process catalog %d times, expected: 2", client.calls)
	}
}

func TestCollectEmpty(t *testing.T) {
	c := New(&fakeClient{}, nil)

	if got := testutil.CollectAndCount(c); got != 0 {
		t.Errorf("CollectAndCount() on empty catalog = %d, expected: 0", got)
	}
}

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(Handler(New(&fakeClient{procs: testProcs}, nil)))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("http.Get(%s) failed: %v", srv.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Handler returned status %d, expected: %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	for _, want := range []string{
		`procname_process_info{name="bash",pid="303"} 1`,
		`procname_processes{name="python3.11"} 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Handler response doesn't contain %q, got:\n%s", want, body)
		}
	}
}
