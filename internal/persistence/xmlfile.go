/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package persistence

import (
	"context"
	"os"
	"path/filepath"

	"aviary/internal/errors"
	"aviary/internal/model"
)

// File names inside the data directory.
const (
	BirdsFile     = "birds.xml"
	SightingsFile = "sightings.xml"
)

// XMLGateway keeps the table in two XML files.
type XMLGateway struct {
	dir string
}

// NewXMLGateway returns a gateway rooted at dir.
func NewXMLGateway(dir string) *XMLGateway {
	return &XMLGateway{dir: dir}
}

// Name implements Gateway.
func (g *XMLGateway) Name() string { return "xml" }

// Dir returns the data directory.
func (g *XMLGateway) Dir() string { return g.dir }

// Load reads both files. When birds.xml is missing any stale
// sightings.xml is discarded and a pair of empty documents is written.
func (g *XMLGateway) Load(ctx context.Context) ([]*model.Bird, error) {
	birdsPath := filepath.Join(g.dir, BirdsFile)
	sightingsPath := filepath.Join(g.dir, SightingsFile)

	birdsDoc, err := os.ReadFile(birdsPath)
	if os.IsNotExist(err) {
		if err := os.Remove(sightingsPath); err != nil && !os.IsNotExist(err) {
			return nil, errors.StorageFailure(g.Name(), err)
		}
		log.Info("No saved table, starting empty", "dir", g.dir)
		if err := g.Save(ctx, nil); err != nil {
			return nil, err
		}
		return []*model.Bird{}, nil
	}
	if err != nil {
		return nil, errors.StorageFailure(g.Name(), err)
	}

	sightingsDoc, err := os.ReadFile(sightingsPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.StorageFailure(g.Name(), err)
	}

	birds, err := decodeXML(g.Name(), birdsDoc, sightingsDoc)
	if err != nil {
		return nil, errors.StorageFailure(g.Name(), err)
	}
	return birds, nil
}

// Save rewrites both files. Both documents are written and synced
// before either is renamed into place, so a failed write leaves the
// previous pair untouched.
func (g *XMLGateway) Save(ctx context.Context, birds []*model.Bird) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	birdsDoc, sightingsDoc, err := encodeXML(birds)
	if err != nil {
		return errors.StorageFailure(g.Name(), err)
	}

	birdsPath := filepath.Join(g.dir, BirdsFile)
	sightingsPath := filepath.Join(g.dir, SightingsFile)

	birdsTmp, err := stageFile(birdsPath, birdsDoc)
	if err != nil {
		return errors.StorageFailure(g.Name(), err)
	}
	defer os.Remove(birdsTmp)

	sightingsTmp, err := stageFile(sightingsPath, sightingsDoc)
	if err != nil {
		return errors.StorageFailure(g.Name(), err)
	}
	defer os.Remove(sightingsTmp)

	if err := os.Rename(birdsTmp, birdsPath); err != nil {
		return errors.StorageFailure(g.Name(), err)
	}
	if err := os.Rename(sightingsTmp, sightingsPath); err != nil {
		return errors.StorageFailure(g.Name(), err)
	}
	return nil
}

// Close implements Gateway.
func (g *XMLGateway) Close() error { return nil }

// Ping checks that the data directory is still there.
func (g *XMLGateway) Ping(ctx context.Context) error {
	info, err := os.Stat(g.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.DataDirFailed(g.dir, nil).WithDetail("not a directory")
	}
	return nil
}

// createTemp is replaced in tests to simulate a full disk.
var createTemp = os.CreateTemp

// stageFile writes data to a synced temp file beside path and returns
// its name. The caller renames it into place.
func stageFile(path string, data []byte) (string, error) {
	tmp, err := createTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}
