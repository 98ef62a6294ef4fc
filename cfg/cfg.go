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

// Package cfg is package responsible to loading and accessing the procname configuration.
package cfg

import (
	"fmt"

	"github.com/go-ini/ini"
)

var (
	// instance is the single instance of configuration sections, once loaded this package
	// should always return it.
	instance *Sections

	// dataSources is a pointer to a data source loading/defining function, unit tests will
	// want to change this pointer to whatever makes sense to its implementation.
	dataSources = defaultDataSources

	// configFile returns the path of the user's configuration file.
	configFile = defaultConfigFile
)

const (
	unixConfigPath = `/etc/default/procname.cfg`

	defaultConfig = `
[Core]
debug_logging = false

[Proc]
root = /proc/
cmdline_read_limit = 4096

[NameResolver]
fallback = exe

[Exporter]
listen_address = :9256
names =
`
)

// Sections encapsulates all the configuration sections.
type Sections struct {
	// Core defines the process wide options, i.e. logging.
	Core *Core `ini:"Core,omitempty"`

	// Proc defines where the process information filesystem is mounted and how much of it
	// is read per process.
	Proc *Proc `ini:"Proc,omitempty"`

	// NameResolver defines the tie-break policy used when resolving program names.
	NameResolver *NameResolver `ini:"NameResolver,omitempty"`

	// Exporter contains the configuration of the prometheus exporter.
	Exporter *Exporter `ini:"Exporter,omitempty"`
}

// Core contains the configurations of Core section.
type Core struct {
	DebugLogging bool `ini:"debug_logging,omitempty"`
}

// Proc contains the configurations of Proc section.
type Proc struct {
	Root             string `ini:"root,omitempty"`
	CmdlineReadLimit int64  `ini:"cmdline_read_limit,omitempty"`
}

// NameResolver contains the configurations of NameResolver section.
type NameResolver struct {
	// Fallback is either "exe" or "cmdline".
	Fallback string `ini:"fallback,omitempty"`
}

// Exporter contains the configurations of Exporter section.
type Exporter struct {
	ListenAddress string `ini:"listen_address,omitempty"`

	// Names is a comma separated list of program names to export, empty means all.
	Names string `ini:"names,omitempty"`
}

func defaultConfigFile(string) string {
	return unixConfigPath
}

// defaultDataSources returns the configuration sources in ascending priority order, later
// sources override keys set by earlier ones.
func defaultDataSources(extraDefaults []byte) []interface{} {
	res := []interface{}{[]byte(defaultConfig)}
	configFile := configFile(unixConfigPath)

	if len(extraDefaults) > 0 {
		res = append(res, extraDefaults)
	}

	return append(res, []interface{}{
		configFile + ".distro",
		configFile + ".template",
		configFile,
	}...)
}

// SetConfigFile overrides the path of the user's configuration file, it must be called
// before Load().
func SetConfigFile(path string) {
	if path == "" {
		configFile = defaultConfigFile
		return
	}
	configFile = func(string) string { return path }
}

// Load loads default configuration and the configuration from default config files.
func Load(extraDefaults []byte) error {
	opts := ini.LoadOptions{
		Loose:       true,
		Insensitive: true,
	}

	sources := dataSources(extraDefaults)
	cfg, err := ini.LoadSources(opts, sources[0], sources[1:]...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %+v", err)
	}

	sections := new(Sections)
	if err := cfg.MapTo(sections); err != nil {
		return fmt.Errorf("failed to map configuration to object: %+v", err)
	}

	instance = sections
	return nil
}

// Get returns the configuration's instance previously loaded with Load().
func Get() *Sections {
	if instance == nil {
		panic("cfg package was not initialized, Load() " +
			"should be called in the early initialization code path")
	}
	return instance
}
