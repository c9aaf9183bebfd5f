package api

import (
	"time"

	"github.com/HiddyTiddy/bottom/core"
	"github.com/HiddyTiddy/bottom/vm"
)

type StatusMessageResponse struct {
	ServerID string `json:"serverId"`
	Version  uint32 `json:"version"`
	Programs int    `json:"programs"`
}

type RunRequest struct {
	Source   string  `json:"source"`
	MaxSteps *uint64 `json:"maxSteps,omitempty"`
}

type StoreProgramRequest struct {
	Source string `json:"source"`
}

type ProgramResponse struct {
	Hash         string   `json:"hash"`
	Instructions int      `json:"instructions"`
	Listing      string   `json:"listing"`
	Source       string   `json:"source,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

type FaultResponse struct {
	Kind    string  `json:"kind"`
	Index   int     `json:"index"`
	Opcode  string  `json:"opcode"`
	Operand int64   `json:"operand"`
	Unstack []int64 `json:"unstack"`
	Message string  `json:"message"`
}

type RunResponse struct {
	RunID      string         `json:"runId"`
	Hash       string         `json:"hash"`
	Status     string         `json:"status"`
	Cursor     int            `json:"cursor"`
	Steps      uint64         `json:"steps"`
	Unstack    []int64        `json:"unstack"`
	Fault      *FaultResponse `json:"fault,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	DurationMs float64        `json:"durationMs"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func newFaultResponse(f *vm.Fault) *FaultResponse {
	if f == nil {
		return nil
	}
	return &FaultResponse{
		Kind:    f.Kind.Name(),
		Index:   f.Index,
		Opcode:  f.Instr.Op.String(),
		Operand: f.Instr.N,
		Unstack: f.Unstack,
		Message: f.Error(),
	}
}

func newRunResponse(rec *core.RunRecord) RunResponse {
	res := rec.Result
	return RunResponse{
		RunID:      rec.ID,
		Hash:       rec.Hash.String(),
		Status:     res.Status.String(),
		Cursor:     res.Cursor,
		Steps:      res.Steps,
		Unstack:    res.Unstack,
		Fault:      newFaultResponse(res.Fault),
		Error:      rec.Err,
		StartedAt:  rec.Started,
		DurationMs: float64(rec.Duration.Microseconds()) / 1000,
	}
}
