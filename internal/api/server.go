package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/namask/internal/logger"
	"github.com/samcharles93/namask/internal/ndarray"
	"github.com/samcharles93/namask/internal/strided"
	"github.com/samcharles93/namask/pkg/dtype"
)

type Server struct {
	store    *ArrayStore
	acquirer *ndarray.Acquirer
	log      logger.Logger
	clock    func() time.Time
}

func NewServer(store *ArrayStore, acquirer *ndarray.Acquirer, log logger.Logger) *Server {
	if store == nil {
		store = NewArrayStore()
	}
	if acquirer == nil {
		acquirer = &ndarray.Acquirer{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		store:    store,
		acquirer: acquirer,
		log:      log,
		clock:    time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/arrays", s.handleCreateArray)
	e.GET("/v1/arrays/:id", s.handleGetArray)
	e.DELETE("/v1/arrays/:id", s.handleDeleteArray)
	e.POST("/v1/arrays/:id/mask", s.handleAcquireMask)
	e.GET("/v1/arrays/:id/mask", s.handleMaskStatus)
	e.POST("/v1/arrays/:id/transpose", s.handleTranspose)

	e.POST("/v1/layout", s.handlePlanLayout)
}

func (s *Server) handleCreateArray(c *echo.Context) error {
	desc, err := decodeJSON[ndarray.Descriptor](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	a, err := ndarray.FromDescriptor(desc)
	if err != nil {
		return writeMaskError(c, err)
	}
	rec := s.store.Put(a, "", s.clock())
	s.log.Debug("array created", "id", rec.ID, "shape", a.Shape(), "dtype", a.DType().String(), "mask", a.MaskState().String())
	return c.JSON(http.StatusOK, arrayResponse(rec))
}

func (s *Server) handleGetArray(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "array not found")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return c.JSON(http.StatusOK, arrayResponse(rec))
}

func (s *Server) handleDeleteArray(c *echo.Context) error {
	id := c.Param("id")
	found, err := s.store.Delete(id)
	if !found {
		return writeNotFound(c, "array not found")
	}
	if errors.Is(err, ErrHasViews) {
		return writeError(c, http.StatusConflict, "invalid_request_error", err.Error(), "has_views")
	}
	return c.JSON(http.StatusOK, DeleteArrayResponse{ID: id, Object: "array.deleted", Deleted: true})
}

func (s *Server) handleAcquireMask(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "array not found")
	}
	req, err := decodeJSON[AcquireMaskRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	own := true
	if req.Own != nil {
		own = *req.Own
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if err := s.acquirer.Acquire(rec.Array, own, req.MultiValued); err != nil {
		s.log.Warn("mask acquire failed", "id", rec.ID, "error", err)
		return writeMaskError(c, err)
	}
	return c.JSON(http.StatusOK, arrayResponse(rec))
}

func (s *Server) handleMaskStatus(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "array not found")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return c.JSON(http.StatusOK, maskStatus(rec))
}

func (s *Server) handleTranspose(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "array not found")
	}
	req, err := decodeJSON[TransposeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	rec.mu.Lock()
	view, err := rec.Array.Transpose(req.Axes...)
	rec.mu.Unlock()
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	child := s.store.Put(view, rec.ID, s.clock())
	return c.JSON(http.StatusOK, arrayResponse(child))
}

func (s *Server) handlePlanLayout(c *echo.Context) error {
	req, err := decodeJSON[LayoutRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Shape == nil {
		return writeBadRequest(c, "shape is required")
	}
	if err := strided.CheckShape(req.Shape); err != nil {
		return writeBadRequest(c, err.Error())
	}
	strides := req.Strides
	if len(strides) == 0 && len(req.Shape) > 0 {
		name := req.DType
		if name == "" {
			name = "float64"
		}
		dt, err := dtype.Parse(name)
		if err != nil {
			return writeBadRequest(c, err.Error())
		}
		if err := strided.CheckExtent(req.Shape, dt.Size()); err != nil {
			return writeBadRequest(c, err.Error())
		}
		strides = strided.ContiguousStrides(req.Shape, dt.Size())
	}
	l, err := ndarray.PlanLayout(req.Shape, strides, req.MultiValued)
	if err != nil {
		return writeMaskError(c, err)
	}
	return c.JSON(http.StatusOK, LayoutResponse{
		Object:      "mask.layout",
		Order:       l.Order,
		MaskDType:   l.MaskType.String(),
		MaskStrides: l.MaskStrides,
		MaskBytes:   l.MaskBytes,
	})
}
