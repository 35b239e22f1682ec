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

// Package dnsdisco publishes the node's current Ready peer set as a
// single DNS TXT record, the same bootstrap role cmd/devp2p's "dns"
// subcommand serves for go-probe: a zone a fresh node can query to seed
// its peer list without a hardcoded address list baked into the binary.
package dnsdisco

import (
	"context"
	"fmt"
	"strings"

	"github.com/snap-coin/snap-coin-node/internal/nodelog"
)

// Provider publishes a single TXT record. Route53Publisher and
// CloudflarePublisher are the two concrete implementations named by the
// node's configuration.
type Provider interface {
	PublishTXT(ctx context.Context, name, value string) error
}

// Publisher publishes the node's peer set as the TXT record "name" each
// time Publish is called; cmd/snapcoind calls it on a fixed ticker.
type Publisher struct {
	provider Provider
	name     string
	log      nodelog.Logger
}

// New constructs a Publisher bound to a concrete Provider (Route53 or
// Cloudflare, selected by configuration) and the fully-qualified record
// name it maintains.
func New(provider Provider, recordName string, log nodelog.Logger) *Publisher {
	return &Publisher{provider: provider, name: recordName, log: log}
}

// Publish encodes addrs as a comma-separated TXT value and upserts it.
// Failures are logged, not fatal: discovery publishing is a convenience,
// never a requirement for the node to function (it can still be reached
// via its configured seed peers).
func (p *Publisher) Publish(ctx context.Context, addrs []string) {
	value := strings.Join(addrs, ",")
	if err := p.provider.PublishTXT(ctx, p.name, value); err != nil {
		p.log.Warn("dnsdisco: failed to publish peer record", "name", p.name, "err", err)
		return
	}
	p.log.Debug("dnsdisco: published peer record", "name", p.name, "peers", len(addrs))
}

// NewProvider builds the configured Provider. In cmd/snapcoind, zoneID
// comes from the DNSDisco configuration block and cloudflareToken from the
// environment; AWS credentials always come from the default chain.
func NewProvider(ctx context.Context, kind, zoneID, cloudflareToken string) (Provider, error) {
	switch kind {
	case "route53":
		return NewRoute53Publisher(ctx, zoneID)
	case "cloudflare":
		return NewCloudflarePublisher(cloudflareToken, zoneID)
	default:
		return nil, errUnsupportedProvider(kind)
	}
}

// errUnsupportedProvider is returned by NewProvider for an unrecognized
// configuration value.
func errUnsupportedProvider(name string) error {
	return fmt.Errorf("dnsdisco: unsupported provider %q (want \"route53\" or \"cloudflare\")", name)
}
