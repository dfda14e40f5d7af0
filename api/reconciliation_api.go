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
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/finlens/finlens"
	model2 "github.com/finlens/finlens/api/model"
	"github.com/finlens/finlens/internal/apierror"
)

// UploadDataset accepts a multipart upload under the "file" field plus a
// "source" form value naming the dataset side.
func (a Api) UploadDataset(c *gin.Context) {
	source := c.PostForm("source")
	if source == "" {
		source = "dataset1"
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dataset file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	upload, err := a.finlens.UploadDataset(c.Request.Context(), source, file, fileHeader.Filename)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, model2.ToUploadDatasetResponse(upload))
}

// StartReconciliation kicks off a match run between two stored uploads.
func (a Api) StartReconciliation(c *gin.Context) {
	var req model2.StartReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reconciliationID, err := a.finlens.StartReconciliation(c.Request.Context(), req.PrimaryUploadID, req.ComparisonUploadID)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reconciliation_id": reconciliationID})
}

// GetReconciliation returns a run with its aggregates.
func (a Api) GetReconciliation(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	reconciliation, err := a.finlens.GetReconciliation(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model2.ToReconciliationResponse(reconciliation))
}

// GetUploadReconciliations lists the runs that used a stored upload.
func (a Api) GetUploadReconciliations(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	reconciliations, err := a.finlens.GetReconciliationsByUploadID(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model2.ToReconciliationResponses(reconciliations))
}

// GetMatches returns the scored pairs of a run in scoring order.
func (a Api) GetMatches(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	candidates, err := a.finlens.GetMatchesByRunID(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model2.ToMatchCandidateResponses(candidates))
}

// ExportMatchesReport streams a run's scored pairs as a CSV report.
func (a Api) ExportMatchesReport(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	candidates, err := a.finlens.GetMatchesByRunID(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_matches.csv", id))
	if err := finlens.ExportMatchesCSV(c.Writer, candidates); err != nil {
		logrus.Error(err)
	}
}
