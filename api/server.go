package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/HiddyTiddy/bottom/core"
	"github.com/HiddyTiddy/bottom/types"
	"github.com/HiddyTiddy/bottom/vm"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const Version uint32 = 1

type ServerConfig struct {
	ListenerAddr   string
	ID             string
	MaxSourceBytes int64
	// runs kept for GET /runs, 0 for the default
	HistorySize int
	Logger      *zap.Logger
}

type Server struct {
	ServerConfig
	registry *core.Registry
	runner   *core.Runner
	history  *core.History
	echo     *echo.Echo

	logger *zap.Logger
}

func NewServer(config ServerConfig, registry *core.Registry, runner *core.Runner) (*Server, error) {
	if config.Logger == nil {
		config.Logger, _ = zap.NewDevelopment()
	}
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.MaxSourceBytes <= 0 {
		config.MaxSourceBytes = 64 << 10
	}
	if registry == nil {
		registry = core.NewRegistry(core.WithLogger(config.Logger))
	}
	if runner == nil {
		runner = core.NewRunner(core.RunnerOpts{Logger: config.Logger})
	}
	history := core.NewHistory(
		core.HistoryLogger(config.Logger),
		core.MaxHistoryDepth(config.HistorySize),
	)
	s := &Server{
		ServerConfig: config,
		registry:     registry,
		runner:       runner,
		history:      history,
		logger:       config.Logger.Named("api"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit(config.MaxSourceBytes)))

	e.GET("/status", s.handleStatus)
	e.POST("/run", s.handleRun)
	e.POST("/programs", s.handleStoreProgram)
	e.GET("/programs/:hash", s.handleGetProgram)
	e.POST("/programs/:hash/run", s.handleRunProgram)
	e.GET("/runs", s.handleListRuns)
	e.GET("/runs/:id", s.handleGetRun)
	s.echo = e

	return s, nil
}

// bodyLimit leaves room for the JSON envelope around the source and for
// \uXXXX escapes, which take up to six bytes per source byte.
func bodyLimit(maxSource int64) string {
	return formatBytes(maxSource*6 + 1024)
}

func formatBytes(n int64) string {
	return strconv.FormatInt(n, 10) + "B"
}

func (s *Server) Start() error {
	s.logger.Info("api server starting",
		zap.String("addr", s.ListenerAddr),
		zap.String("id", s.ID))

	err := s.echo.Start(s.ListenerAddr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets the server be mounted or tested without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) handleStatus(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, StatusMessageResponse{
		ServerID: s.ID,
		Version:  Version,
		Programs: s.registry.Len(),
	})
}

func (s *Server) handleRun(ectx echo.Context) error {
	var req RunRequest
	if err := ectx.Bind(&req); err != nil {
		return ectx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if int64(len(req.Source)) > s.MaxSourceBytes {
		return s.sourceTooLarge(ectx)
	}

	p, err := vm.Decode(req.Source)
	if err != nil {
		return syntaxErrorResponse(ectx, err)
	}
	if err := s.registry.Validate(p); err != nil {
		return ectx.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	}
	return s.run(ectx, p, req.MaxSteps)
}

func (s *Server) handleStoreProgram(ectx echo.Context) error {
	var req StoreProgramRequest
	if err := ectx.Bind(&req); err != nil {
		return ectx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if int64(len(req.Source)) > s.MaxSourceBytes {
		return s.sourceTooLarge(ectx)
	}

	e, err := s.registry.AddSource(req.Source)
	if err != nil {
		return syntaxErrorResponse(ectx, err)
	}
	return ectx.JSON(http.StatusCreated, programResponse(e, false))
}

func (s *Server) handleGetProgram(ectx echo.Context) error {
	e, status, err := s.lookup(ectx)
	if err != nil {
		return ectx.JSON(status, ErrorResponse{Error: err.Error()})
	}
	return ectx.JSON(http.StatusOK, programResponse(e, true))
}

func (s *Server) handleRunProgram(ectx echo.Context) error {
	e, status, err := s.lookup(ectx)
	if err != nil {
		return ectx.JSON(status, ErrorResponse{Error: err.Error()})
	}

	var req RunRequest
	if ectx.Request().ContentLength != 0 {
		if err := ectx.Bind(&req); err != nil {
			return ectx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
	}
	return s.run(ectx, e.Program, req.MaxSteps)
}

func (s *Server) lookup(ectx echo.Context) (*core.Entry, int, error) {
	h, err := types.HashFromHex(ectx.Param("hash"))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	e, err := s.registry.Get(h)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, http.StatusNotFound, err
		}
		return nil, http.StatusInternalServerError, err
	}
	return e, http.StatusOK, nil
}

func (s *Server) handleListRuns(ectx echo.Context) error {
	limit := 0
	if q := ectx.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			return ectx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit " + strconv.Quote(q)})
		}
		limit = n
	}

	recs := s.history.Recent(limit)
	resp := make([]RunResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, newRunResponse(rec))
	}
	return ectx.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetRun(ectx echo.Context) error {
	rec, err := s.history.Get(ectx.Param("id"))
	if err != nil {
		return ectx.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	}
	return ectx.JSON(http.StatusOK, newRunResponse(rec))
}

func (s *Server) run(ectx echo.Context, p *vm.Program, maxSteps *uint64) error {
	var opts []vm.VMOpt
	if maxSteps != nil {
		opts = append(opts, vm.MaxStepsOpt(s.runner.StepLimit(*maxSteps)))
	}

	rec := &core.RunRecord{
		ID:      uuid.NewString(),
		Hash:    s.registry.Hash(p),
		Started: time.Now().UTC(),
	}
	s.logger.Debug("run",
		zap.String("run id", rec.ID),
		zap.String("hash", rec.Hash.Prefix()))

	res, err := s.runner.Run(ectx.Request().Context(), p, opts...)
	rec.Result = res
	rec.Duration = time.Since(rec.Started)
	if err != nil && res.Fault == nil {
		rec.Err = err.Error()
	}
	if herr := s.history.Add(rec); herr != nil {
		s.logger.Error("failed to record run", zap.Error(herr))
	}

	resp := newRunResponse(rec)
	switch {
	case err == nil:
		return ectx.JSON(http.StatusOK, resp)
	case res.Fault != nil:
		return ectx.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, vm.ErrStepLimit), errors.Is(err, context.DeadlineExceeded):
		return ectx.JSON(http.StatusRequestTimeout, resp)
	default:
		return ectx.JSON(http.StatusInternalServerError, resp)
	}
}

func (s *Server) sourceTooLarge(ectx echo.Context) error {
	return ectx.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
		Error: "source exceeds " + formatBytes(s.MaxSourceBytes),
	})
}

func syntaxErrorResponse(ectx echo.Context, err error) error {
	var se *vm.SyntaxError
	if errors.As(err, &se) {
		return ectx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  se.Error(),
			Line:   se.Line,
			Column: se.Column,
		})
	}
	return ectx.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
}

func programResponse(e *core.Entry, withSource bool) ProgramResponse {
	resp := ProgramResponse{
		Hash:         e.Hash.String(),
		Instructions: e.Program.Len(),
		Listing:      e.Program.String(),
	}
	if withSource {
		resp.Source = e.Program.Source()
	}
	for _, w := range core.Lint(e.Program) {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp
}
