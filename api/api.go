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

package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/finlens/finlens"
	"github.com/finlens/finlens/api/middleware"
	"github.com/finlens/finlens/config"
)

type Api struct {
	finlens *finlens.Finlens
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/documents/analyze", a.AnalyzeDocument)
	router.GET("/documents/:id", a.GetDocumentAnalysis)

	router.POST("/datasets", a.UploadDataset)
	router.GET("/datasets/:id/reconciliations", a.GetUploadReconciliations)

	router.POST("/reconciliations", a.StartReconciliation)
	router.GET("/reconciliations/:id", a.GetReconciliation)
	router.GET("/reconciliations/:id/matches", a.GetMatches)
	router.GET("/reconciliations/:id/report.csv", a.ExportMatchesReport)

	return a.router
}

func NewAPI(service *finlens.Finlens) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{finlens: service, router: r}
}
