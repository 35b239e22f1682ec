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

// Package logarchive ships a snapshot of <node_path>/info.log to Azure
// Blob Storage on an interval, giving an operator durable log history
// past whatever local retention the node path's disk allows.
package logarchive

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/Azure/azure-pipeline-go/pipeline"
	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
)

// Config configures the destination container. AccountKey is read from
// the environment by cmd/snapcoind, never persisted in the TOML file.
type Config struct {
	Enabled       bool
	AccountName   string
	AccountKey    string
	ContainerName string
}

// Archiver periodically uploads the node's log file as a timestamped
// blob, logging (never failing the node on) upload errors, since
// archival is a convenience layered on top of the always-local log.
type Archiver struct {
	cfg          Config
	containerURL azblob.ContainerURL
	log          nodelog.Logger
}

// New builds an Archiver against the configured container. It is a
// no-op Archiver (Run returns immediately) if cfg.Enabled is false.
func New(cfg Config, log nodelog.Logger) (*Archiver, error) {
	if !cfg.Enabled {
		return &Archiver{cfg: cfg, log: log}, nil
	}
	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("logarchive: %w", err)
	}
	p := azblob.NewPipeline(credential, azblob.PipelineOptions{
		Log: pipeline.LogOptions{},
	})
	u, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s", cfg.AccountName, cfg.ContainerName))
	if err != nil {
		return nil, fmt.Errorf("logarchive: %w", err)
	}
	return &Archiver{cfg: cfg, containerURL: azblob.NewContainerURL(*u, p), log: log}, nil
}

// Run uploads logPath every interval until ctx is done.
func (a *Archiver) Run(ctx context.Context, logPath string, interval time.Duration) {
	if !a.cfg.Enabled {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.upload(ctx, logPath); err != nil {
				a.log.Warn("logarchive: upload failed", "path", logPath, "err", err)
			}
		}
	}
}

func (a *Archiver) upload(ctx context.Context, logPath string) error {
	f, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer f.Close()

	blobName := fmt.Sprintf("%s-%d.log", filepath.Base(logPath), time.Now().UnixNano())
	blobURL := a.containerURL.NewBlockBlobURL(blobName)
	_, err = azblob.UploadFileToBlockBlob(ctx, f, blobURL, azblob.UploadToBlockBlobOptions{})
	return err
}
