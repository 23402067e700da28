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
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"aviary/internal/errors"
	"aviary/internal/model"
)

// Key layout:
//
//	b/<name>           bird record
//	s/<name>/<seq>     sighting record, seq zero-padded to keep order
var (
	birdKeyPrefix     = []byte("b/")
	sightingKeyPrefix = []byte("s/")
)

type levelBird struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Weight float64 `json:"weight"`
	Height float64 `json:"height"`
}

type levelSighting struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Date     string `json:"date,omitempty"`
}

// LevelDBGateway stores one key per bird and per sighting.
type LevelDBGateway struct {
	db   *leveldb.DB
	path string
}

// OpenLevelDB opens (or creates) the database directory at path.
func OpenLevelDB(path string) (*LevelDBGateway, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.StorageFailure("leveldb", pkgerrors.Wrap(err, "open database failed"))
	}
	log.Info("LevelDB storage opened", "path", path)
	return &LevelDBGateway{db: db, path: path}, nil
}

// Name implements Gateway.
func (g *LevelDBGateway) Name() string { return "leveldb" }

func birdKey(name string) []byte {
	return append(append([]byte(nil), birdKeyPrefix...), name...)
}

func sightingKey(name string, seq int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", sightingKeyPrefix, name, seq))
}

// Load implements Gateway. Birds are read before sightings so every
// sighting can find its bird.
func (g *LevelDBGateway) Load(ctx context.Context) ([]*model.Bird, error) {
	tb := newTableBuilder(g.Name())

	it := g.db.NewIterator(util.BytesPrefix(birdKeyPrefix), nil)
	for it.Next() {
		var b levelBird
		if err := json.Unmarshal(it.Value(), &b); err != nil {
			log.Warn("Skipping undecodable bird record", "key", string(it.Key()), "error", err)
			continue
		}
		tb.addBird(b.Name, b.Color, b.Weight, b.Height)
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, errors.StorageFailure(g.Name(), pkgerrors.Wrap(err, "iterate birds failed"))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	it = g.db.NewIterator(util.BytesPrefix(sightingKeyPrefix), nil)
	for it.Next() {
		var s levelSighting
		if err := json.Unmarshal(it.Value(), &s); err != nil {
			log.Warn("Skipping undecodable sighting record", "key", string(it.Key()), "error", err)
			continue
		}
		tb.addSighting(s.Name, s.Location, parseTimestamp(g.Name(), s.Name, s.Date))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, errors.StorageFailure(g.Name(), pkgerrors.Wrap(err, "iterate sightings failed"))
	}

	return tb.result(), nil
}

// Save replaces every key in a single batch.
func (g *LevelDBGateway) Save(ctx context.Context, birds []*model.Bird) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	for _, prefix := range [][]byte{birdKeyPrefix, sightingKeyPrefix} {
		it := g.db.NewIterator(util.BytesPrefix(prefix), nil)
		for it.Next() {
			batch.Delete(bytes.Clone(it.Key()))
		}
		it.Release()
		if err := it.Error(); err != nil {
			return errors.StorageFailure(g.Name(), pkgerrors.Wrap(err, "scan existing keys failed"))
		}
	}

	for _, b := range birds {
		if b == nil {
			continue
		}
		value, err := json.Marshal(levelBird{Name: b.Name, Color: b.Color, Weight: b.Weight, Height: b.Height})
		if err != nil {
			return errors.StorageFailure(g.Name(), pkgerrors.Wrap(err, "encode bird failed"))
		}
		batch.Put(birdKey(b.Name), value)

		for i, s := range b.Sightings {
			value, err := json.Marshal(levelSighting{Name: b.Name, Location: s.Location, Date: formatTimestamp(s.Timestamp)})
			if err != nil {
				return errors.StorageFailure(g.Name(), pkgerrors.Wrap(err, "encode sighting failed"))
			}
			batch.Put(sightingKey(b.Name, i), value)
		}
	}

	if err := g.db.Write(batch, nil); err != nil {
		return errors.StorageFailure(g.Name(), pkgerrors.Wrap(err, "write batch failed"))
	}
	return nil
}

// Ping implements Pinger.
func (g *LevelDBGateway) Ping(ctx context.Context) error {
	_, err := g.db.GetProperty("leveldb.stats")
	return err
}

// Close implements Gateway.
func (g *LevelDBGateway) Close() error {
	return g.db.Close()
}
