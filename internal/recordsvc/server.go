// Package recordsvc is a development implementation of the record service
// the remote task store talks to. It serves collections of schemaless
// records over HTTP from memory or Redis.
package recordsvc

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/nhle/vibratodo/internal/recordapi"
)

// Server handles the record API for every collection in its table.
type Server struct {
	table Table
	auth  *Auth
	log   *logrus.Entry
	now   func() time.Time

	// mu serializes read-modify-write cycles on updates.
	mu sync.Mutex
}

// New returns a server over table. A nil auth accepts every request.
func New(table Table, auth *Auth, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{table: table, auth: auth, log: log, now: time.Now}
}

// NewEcho builds an echo instance with the server's routes, the sonic
// serializer and request logging installed.
func (s *Server) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = SonicSerializer{}
	e.Use(RequestLogger(s.log))
	s.Register(e)
	return e
}

// Register wires the record routes onto e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	g := e.Group("/v1/collections/:name")
	if s.auth != nil {
		g.Use(s.auth.Middleware())
	}
	g.POST("/fetch", s.fetch)
	g.POST("/records", s.create)
	g.PATCH("/records", s.update)
	g.DELETE("/records", s.delete)
}

func (s *Server) fetch(c echo.Context) error {
	var params recordapi.FetchParams
	if err := c.Bind(&params); err != nil {
		return err
	}
	ctx := c.Request().Context()
	name := c.Param("name")

	all, err := s.table.All(ctx, name)
	if err != nil {
		s.log.WithError(err).WithField("collection", name).Error("fetch failed")
		return c.JSON(http.StatusInternalServerError, errorBody("storage failure"))
	}
	data, err := applyFetch(all, params)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, recordapi.FetchResponse{Success: true, Data: data})
}

func (s *Server) create(c echo.Context) error {
	var req recordapi.RecordsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	name := c.Param("name")

	results := make([]recordapi.RecordResult, 0, len(req.Records))
	for _, in := range req.Records {
		rec := cloneRecord(in)
		rec[recordapi.FieldID] = uuid.NewString()
		rec[recordapi.FieldCreatedOn] = s.now().UTC().Format(time.RFC3339Nano)
		if err := s.table.Put(ctx, name, rec); err != nil {
			s.log.WithError(err).WithField("collection", name).Error("create failed")
			results = append(results, failed(http.StatusInternalServerError, "storage failure"))
			continue
		}
		results = append(results, recordapi.RecordResult{Success: true, StatusCode: http.StatusOK, Data: rec})
	}
	return c.JSON(http.StatusOK, batch(results))
}

func (s *Server) update(c echo.Context) error {
	var req recordapi.RecordsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	name := c.Param("name")

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]recordapi.RecordResult, 0, len(req.Records))
	for _, in := range req.Records {
		id := in.ID()
		if id == "" {
			results = append(results, failed(http.StatusBadRequest, "record Id is required"))
			continue
		}
		current, ok, err := s.table.Get(ctx, name, id)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"collection": name, "id": id}).Error("update failed")
			results = append(results, failed(http.StatusInternalServerError, "storage failure"))
			continue
		}
		if !ok {
			results = append(results, failed(http.StatusNotFound, "record "+id+" not found"))
			continue
		}
		for k, v := range in {
			if k == recordapi.FieldID || k == recordapi.FieldCreatedOn {
				continue
			}
			current[k] = v
		}
		if err := s.table.Put(ctx, name, current); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"collection": name, "id": id}).Error("update failed")
			results = append(results, failed(http.StatusInternalServerError, "storage failure"))
			continue
		}
		results = append(results, recordapi.RecordResult{Success: true, StatusCode: http.StatusOK, Data: current})
	}
	return c.JSON(http.StatusOK, batch(results))
}

func (s *Server) delete(c echo.Context) error {
	var req recordapi.DeleteRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	name := c.Param("name")

	results := make([]recordapi.RecordResult, 0, len(req.RecordIDs))
	for _, id := range req.RecordIDs {
		ok, err := s.table.Delete(ctx, name, id)
		switch {
		case err != nil:
			s.log.WithError(err).WithFields(logrus.Fields{"collection": name, "id": id}).Error("delete failed")
			results = append(results, failed(http.StatusInternalServerError, "storage failure"))
		case !ok:
			results = append(results, failed(http.StatusNotFound, "record "+id+" not found"))
		default:
			results = append(results, recordapi.RecordResult{Success: true, StatusCode: http.StatusOK})
		}
	}
	return c.JSON(http.StatusOK, batch(results))
}

func batch(results []recordapi.RecordResult) recordapi.BatchResponse {
	ok := true
	for _, r := range results {
		if !r.Success {
			ok = false
			break
		}
	}
	return recordapi.BatchResponse{Success: ok, Results: results}
}

func failed(status int, msg string) recordapi.RecordResult {
	return recordapi.RecordResult{StatusCode: status, Message: msg}
}

func errorBody(msg string) recordapi.ErrorResponse {
	return recordapi.ErrorResponse{Message: msg}
}
