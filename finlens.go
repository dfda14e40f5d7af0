/*
Copyright 2025 Finlens Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package finlens

import (
	"embed"

	"github.com/redis/go-redis/v9"

	"github.com/finlens/finlens/config"
	"github.com/finlens/finlens/database"
	"github.com/finlens/finlens/internal/cache"
	redis_db "github.com/finlens/finlens/internal/redis-db"
	"github.com/finlens/finlens/internal/tabledetect"
	"github.com/finlens/finlens/model"
)

// SQLFiles embeds the schema migrations applied by the migrate command.
//
//go:embed sql/*.sql
var SQLFiles embed.FS

// TableDetector derives tabular blocks from extracted page text.
type TableDetector interface {
	DetectTables(pages []string) []model.Table
}

// Finlens represents the main struct for the Finlens application.
type Finlens struct {
	datasource database.IDataSource
	cache      cache.Cache
	tables     TableDetector
	redis      redis.UniversalClient
}

// NewFinlens initializes a new instance of Finlens with the provided database
// datasource. It connects the analysis cache, the run-lock Redis client and
// the default table detector.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Finlens: A pointer to the newly created Finlens instance.
// - error: An error if any of the initialization steps fail.
func NewFinlens(db database.IDataSource) (*Finlens, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	analysisCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient(configuration.Redis.Dns)
	if err != nil {
		return nil, err
	}
	newFinlens := &Finlens{
		datasource: db,
		cache:      analysisCache,
		tables:     tabledetect.New(),
		redis:      redisClient.Client(),
	}
	return newFinlens, nil
}

// NewWithDeps builds a Finlens from explicit collaborators. It is the wiring
// seam for tests and for callers bringing their own table detector. A nil
// redis client disables run locking.
func NewWithDeps(db database.IDataSource, analysisCache cache.Cache, tables TableDetector, redisClient redis.UniversalClient) *Finlens {
	return &Finlens{
		datasource: db,
		cache:      analysisCache,
		tables:     tables,
		redis:      redisClient,
	}
}
