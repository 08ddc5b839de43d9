package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/shoplens/engine"
	"github.com/spektr-org/shoplens/helpers"
	"github.com/spektr-org/shoplens/schema"
)

func (s *Server) health(c *gin.Context) {
	ds := s.current.Load()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"records":    ds.store.Len(),
		"generation": ds.generation,
		"loaded_at":  ds.loadedAt,
	})
}

// ============================================================================
// DATASET
// ============================================================================

func (s *Server) replaceDataset(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	store, err := helpers.ParseCSVStore(c.Request.Body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	generation, err := s.ReplaceDataset(c.Request.Context(), store)
	if err != nil {
		s.writeError(c, fmt.Errorf("persist dataset: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": store.Len(), "generation": generation})
}

func (s *Server) downloadDataset(c *gin.Context) {
	store, generation := s.Dataset()
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="transactions.csv"`)
	c.Header("X-Dataset-Generation", fmt.Sprint(generation))
	c.Status(http.StatusOK)
	if err := helpers.WriteCSV(c.Writer, store); err != nil {
		s.log.WithError(err).Warn("dataset download interrupted")
	}
}

// datasetOptions lists the values each filterable field takes in the
// current dataset, for building filter dropdowns.
func (s *Server) datasetOptions(c *gin.Context) {
	store, generation := s.Dataset()
	c.Header("X-Dataset-Generation", fmt.Sprint(generation))
	c.JSON(http.StatusOK, gin.H{
		"generation": generation,
		"options":    engine.FilterOptions(store),
	})
}

func (s *Server) schemaHandler(c *gin.Context) {
	c.JSON(http.StatusOK, schema.Transactions())
}

// ============================================================================
// ONE-SHOT ANALYSIS
// ============================================================================

func (s *Server) analyzeOnce(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.writeError(c, &badRequestError{Field: "query", Err: err})
		return
	}
	q, err := req.resolve(s.cfg.Defaults)
	if err != nil {
		s.writeError(c, err)
		return
	}

	report, err := s.analyze(s.current.Load(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.render(c, report, c.Query("format"))
}

// ============================================================================
// SESSIONS
// ============================================================================

func (s *Server) createSessionHandler(c *gin.Context) {
	var req filterRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, &badRequestError{Field: "body", Err: err})
			return
		}
	}
	q, err := req.resolve(s.cfg.Defaults)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ss := s.createSession(q)
	s.log.WithField("session", ss.id).Debug("session created")
	c.JSON(http.StatusCreated, gin.H{"id": ss.id, "filters": filterResponse(q)})
}

func (s *Server) sessionHandler(c *gin.Context) {
	ss, ok := s.session(c.Param("id"))
	if !ok {
		s.writeError(c, errSessionNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         ss.id,
		"created_at": ss.createdAt,
		"filters":    filterResponse(ss.currentQuery()),
	})
}

func (s *Server) updateFilters(c *gin.Context) {
	ss, ok := s.session(c.Param("id"))
	if !ok {
		s.writeError(c, errSessionNotFound)
		return
	}

	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, &badRequestError{Field: "body", Err: err})
		return
	}
	q, err := req.resolve(s.cfg.Defaults)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ss.setQuery(q)
	c.JSON(http.StatusOK, gin.H{"id": ss.id, "filters": filterResponse(q)})
}

func (s *Server) sessionReport(c *gin.Context) {
	ss, ok := s.session(c.Param("id"))
	if !ok {
		s.writeError(c, errSessionNotFound)
		return
	}

	ds := s.current.Load()
	report, cached, err := ss.reportFor(ds, s.analyze)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if cached {
		s.metrics.ReportCacheHits.Inc()
	} else {
		s.metrics.ReportCacheMisses.Inc()
	}
	s.log.WithFields(logrus.Fields{"session": ss.id, "cached": cached, "generation": ds.generation}).Debug("session report")

	c.Header("X-Dataset-Generation", fmt.Sprint(ds.generation))
	s.render(c, report, c.Query("format"))
}

func (s *Server) deleteSessionHandler(c *gin.Context) {
	if !s.deleteSession(c.Param("id")) {
		s.writeError(c, errSessionNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// RENDERING
// ============================================================================

// render writes a report as json (default), tables, charts or text.
func (s *Server) render(c *gin.Context, report *engine.Report, format string) {
	switch strings.ToLower(format) {
	case "", "json":
		c.JSON(http.StatusOK, report)
	case "tables":
		c.JSON(http.StatusOK, engine.BuildTables(report, s.cfg.Currency))
	case "charts":
		c.JSON(http.StatusOK, engine.BuildCharts(report))
	case "text":
		c.String(http.StatusOK, strings.Join(engine.BuildText(report, s.cfg.Currency), "\n")+"\n")
	default:
		s.writeError(c, &badRequestError{Field: "format", Err: fmt.Errorf("unknown format %q (json, tables, charts, text)", format)})
	}
}
