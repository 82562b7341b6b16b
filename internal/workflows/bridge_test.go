package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"alert-case-service/internal/modal"
)

// jsonValue stands in for a query result payload.
type jsonValue struct {
	raw []byte
}

func (v jsonValue) HasValue() bool { return len(v.raw) > 0 }

func (v jsonValue) Get(out interface{}) error { return json.Unmarshal(v.raw, out) }

func TestTemporalBridge_Start(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("investigate-CASE-2026-0007")
	run.On("GetRunID").Return("run-1")

	req := modal.InvestigationRequest{CaseID: "c-7", CaseNumber: "CASE-2026-0007", Priority: "HIGH"}
	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.ID == "investigate-CASE-2026-0007" &&
			o.TaskQueue == "cases-q" &&
			!o.WorkflowExecutionErrorWhenAlreadyStarted
	}), mock.Anything, req).Return(run, nil).Once()

	b := NewTemporalBridge(c, "cases-q", nil)
	h, err := b.Start(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, modal.WorkflowHandle{WorkflowID: "investigate-CASE-2026-0007", RunID: "run-1"}, h)
	c.AssertExpectations(t)
}

func TestTemporalBridge_StartError(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	b := NewTemporalBridge(c, "", nil)
	_, err := b.Start(context.Background(), modal.InvestigationRequest{CaseNumber: "CASE-2026-0008"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CASE-2026-0008")
}

func TestTemporalBridge_Decide(t *testing.T) {
	c := &mocks.Client{}
	d := modal.InvestigationDecision{Outcome: modal.OutcomeReportFiled, Decider: "dave"}
	c.On("SignalWorkflow", mock.Anything, "investigate-CASE-2026-0001", "run-1", DecisionSignal, d).Return(nil).Once()

	b := NewTemporalBridge(c, "", nil)
	err := b.Decide(context.Background(), modal.WorkflowHandle{WorkflowID: "investigate-CASE-2026-0001", RunID: "run-1"}, d)
	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestTemporalBridge_Queries(t *testing.T) {
	c := &mocks.Client{}
	h := modal.WorkflowHandle{WorkflowID: "investigate-CASE-2026-0001", RunID: "run-1"}

	cfRaw, err := json.Marshal(modal.CaseFile{CaseNumber: "CASE-2026-0001", SLABreached: true})
	require.NoError(t, err)
	evRaw, err := json.Marshal([]modal.InvestigationEvent{{Kind: "CASEFILE_BUILT"}})
	require.NoError(t, err)

	c.On("QueryWorkflow", mock.Anything, h.WorkflowID, h.RunID, QueryCaseFile).Return(jsonValue{raw: cfRaw}, nil)
	c.On("QueryWorkflow", mock.Anything, h.WorkflowID, h.RunID, QueryAuditLog).Return(jsonValue{raw: evRaw}, nil)

	b := NewTemporalBridge(c, "", nil)
	cf, err := b.CaseFile(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, cf.SLABreached)

	events, err := b.Events(context.Background(), h)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "CASEFILE_BUILT", events[0].Kind)
}
