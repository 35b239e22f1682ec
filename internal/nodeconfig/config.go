// Copyright 2026 The snap-coin Authors
// This file is part of the snap-coin library.
//
// The snap-coin library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The snap-coin library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package nodeconfig loads and merges snapcoind's on-disk TOML
// configuration with its CLI flag overrides, the same two-layer
// approach cmd/gprobe/config.go uses for go-probe: defaults, then an
// optional TOML file, then explicit flags on top.
package nodeconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"
)

// MetricsConfig mirrors the teacher's metrics.Config shape, trimmed to the
// InfluxDB reporter this module actually wires (internal/metrics).
type MetricsConfig struct {
	Enabled          bool   `toml:",omitempty"`
	InfluxDBEndpoint string `toml:",omitempty"`
	InfluxDBDatabase string `toml:",omitempty"`
	InfluxDBUsername string `toml:",omitempty"`
	InfluxDBPassword string `toml:",omitempty"`
	InfluxDBTags     string `toml:",omitempty"`
}

// DNSDiscoConfig configures the optional DNS-based peer discovery record
// publisher (internal/dnsdisco).
type DNSDiscoConfig struct {
	Enabled    bool   `toml:",omitempty"`
	Provider   string `toml:",omitempty"` // "route53" or "cloudflare"
	Zone       string `toml:",omitempty"`
	RecordName string `toml:",omitempty"`
}

// LogArchiveConfig configures best-effort shipping of info.log to Azure
// Blob Storage (internal/logarchive).
type LogArchiveConfig struct {
	Enabled       bool   `toml:",omitempty"`
	ContainerURL  string `toml:",omitempty"`
	ContainerName string `toml:",omitempty"`
}

// Config is the full set of snapcoind tunables: node identity, the peer
// set, the query API, and the ambient subsystems above.
type Config struct {
	NodePath      string
	NodePort      int
	APIPort       int
	SeedPeers     []string
	ReservedIPs   []string
	NoAPI         bool
	NoIBD         bool
	NoAutoPeer    bool
	Headless      bool
	CreateGenesis bool
	FullMemory    bool
	Metrics       MetricsConfig
	DNSDisco      DNSDiscoConfig
	LogArchive    LogArchiveConfig
}

// Default returns the baseline configuration applied before any TOML file
// or CLI flag is consulted, mirroring defaultNodeConfig in the teacher.
func Default() Config {
	return Config{
		NodePath:  "./snapcoin-data",
		NodePort:  30333,
		APIPort:   8080,
		SeedPeers: nil,
	}
}

// tomlSettings mirrors the teacher's tomlSettings: TOML keys are the bare
// Go struct field names, and unknown fields are a hard error (no silent
// typos in an operator's config file).
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) {
			link = fmt.Sprintf(" (see %s)", rt.String())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// LoadFile decodes a TOML configuration file into cfg, following the
// teacher's loadConfig: wrap line-numbered errors with the file name.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}

// ApplyFlags overlays cli.Context flag values onto cfg wherever the
// operator explicitly set them, the same "only touch what was set"
// discipline applied by utils.SetNodeConfig in the teacher.
func ApplyFlags(ctx *cli.Context, cfg *Config) {
	if ctx.GlobalIsSet(NodePathFlag.Name) {
		cfg.NodePath = ctx.GlobalString(NodePathFlag.Name)
	}
	if ctx.GlobalIsSet(NodePortFlag.Name) {
		cfg.NodePort = ctx.GlobalInt(NodePortFlag.Name)
	}
	if ctx.GlobalIsSet(APIPortFlag.Name) {
		cfg.APIPort = ctx.GlobalInt(APIPortFlag.Name)
	}
	if ctx.GlobalIsSet(PeersFlag.Name) {
		cfg.SeedPeers = splitCSV(ctx.GlobalString(PeersFlag.Name))
	}
	if ctx.GlobalIsSet(ReservedIPsFlag.Name) {
		cfg.ReservedIPs = splitCSV(ctx.GlobalString(ReservedIPsFlag.Name))
	}
	if ctx.GlobalIsSet(NoAPIFlag.Name) {
		cfg.NoAPI = ctx.GlobalBool(NoAPIFlag.Name)
	}
	if ctx.GlobalIsSet(NoIBDFlag.Name) {
		cfg.NoIBD = ctx.GlobalBool(NoIBDFlag.Name)
	}
	if ctx.GlobalIsSet(NoAutoPeerFlag.Name) {
		cfg.NoAutoPeer = ctx.GlobalBool(NoAutoPeerFlag.Name)
	}
	if ctx.GlobalIsSet(HeadlessFlag.Name) {
		cfg.Headless = ctx.GlobalBool(HeadlessFlag.Name)
	}
	if ctx.GlobalIsSet(CreateGenesisFlag.Name) {
		cfg.CreateGenesis = ctx.GlobalBool(CreateGenesisFlag.Name)
	}
	if ctx.GlobalIsSet(FullMemoryFlag.Name) {
		cfg.FullMemory = ctx.GlobalBool(FullMemoryFlag.Name)
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
