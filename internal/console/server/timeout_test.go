package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
	"github.com/xela07ax/vehicle-health-pipeline/internal/compliance"
	"github.com/xela07ax/vehicle-health-pipeline/internal/console/handler"
	"github.com/xela07ax/vehicle-health-pipeline/internal/console/server"
	"github.com/xela07ax/vehicle-health-pipeline/internal/console/service"
	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
	"github.com/xela07ax/vehicle-health-pipeline/internal/engine"
	"github.com/xela07ax/vehicle-health-pipeline/internal/reasoning"
	"github.com/xela07ax/vehicle-health-pipeline/internal/support"
	"github.com/xela07ax/vehicle-health-pipeline/internal/telemetry"
)

// stalledClient никогда не отвечает сам: ждет отмены контекста
type stalledClient struct{}

func (stalledClient) Model() string { return "stalled" }

func (stalledClient) Generate(ctx context.Context, _ string, _ reasoning.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func startPipelineServer(t *testing.T, callBudget, writeTimeout, runTimeout time.Duration) *httptest.Server {
	t.Helper()
	sim := telemetry.NewSimulator(rand.New(rand.NewPCG(7, 7)))
	orch, err := engine.NewOrchestrator(engine.Deps{
		Sensors:    sim,
		Reasoner:   reasoning.NewAgent(stalledClient{}, zap.NewNop(), reasoning.WithTimeout(callBudget)),
		Inventory:  support.NewInventory(rand.New(rand.NewPCG(1, 1))),
		Locator:    support.NewLocationResolver(support.DefaultWorkshops, rand.New(rand.NewPCG(2, 2))),
		Scheduler:  support.NewScheduler(nil),
		Compliance: compliance.NewGate(zap.NewNop()),
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)

	console := server.NewConsoleServer(
		zap.NewNop(),
		handler.NewRunHandler(orch, "", zap.NewNop(), handler.WithRunTimeout(runTimeout)),
		handler.NewAuditHandler(service.NewAuditService(audit.NewMemoryStore())),
		handler.NewFleetHandler(service.NewFleetService(sim, 10)),
	)
	ts := httptest.NewUnstartedServer(console)
	ts.Config.WriteTimeout = writeTimeout
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func postRun(t *testing.T, ts *httptest.Server) *http.Response {
	t.Helper()
	body := []byte(`{"vehicle_id":"VIN-1002","scenario":"Rod Knock"}`)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/runs", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(handler.HeaderAPIKey, "key")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateRun_StalledInferenceStillReturnsFallbackResult(t *testing.T) {
	// Два вызова модели по 100ms укладываются в WriteTimeout
	ts := startPipelineServer(t, 100*time.Millisecond, 2*time.Second, 1500*time.Millisecond)

	resp := postRun(t, ts)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res domain.PipelineResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, domain.FaultRodKnock, res.Diagnosis.FaultType)
	require.NotNil(t, res.RCA)
	assert.True(t, res.RCA.IsBatchDefect)
	require.NotNil(t, res.Compliance)

	var apiErrors int
	for _, e := range res.AuditTrail {
		if e.Action == reasoning.ActionAPIError {
			apiErrors++
		}
	}
	assert.Equal(t, 2, apiErrors)
}

func TestCreateRun_RunTimeoutAnswersBeforeWriteDeadline(t *testing.T) {
	// Бюджет модели больше окна записи: вместо обрыва соединения клиент получает 504
	ts := startPipelineServer(t, 5*time.Second, time.Second, 300*time.Millisecond)

	resp := postRun(t, ts)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}
