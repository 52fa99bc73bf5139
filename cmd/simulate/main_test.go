package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunHeuristicRodKnock(t *testing.T) {
	out, err := execute(t, "run", "--provider", "none", "--api-key", "", "--scenario", "Rod Knock", "--vehicle", "VIN-4242")
	require.NoError(t, err)

	var res struct {
		VehicleID string `json:"vehicle_id"`
		Diagnosis struct {
			FaultDetected bool   `json:"fault_detected"`
			FaultType     string `json:"fault_type"`
		} `json:"final_diagnosis"`
		Logs []struct {
			Agent  string `json:"agent"`
			Action string `json:"action"`
		} `json:"structured_logs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "VIN-4242", res.VehicleID)
	assert.True(t, res.Diagnosis.FaultDetected)
	assert.Equal(t, "Rod Knock", res.Diagnosis.FaultType)
	require.NotEmpty(t, res.Logs)
	assert.Equal(t, "TelematicsAgent", res.Logs[0].Agent)
}

func TestRunRejectsUnknownScenario(t *testing.T) {
	_, err := execute(t, "run", "--provider", "none", "--scenario", "Flat Tyre")
	assert.ErrorContains(t, err, "unknown scenario")
}

func TestRunRejectsUnknownProvider(t *testing.T) {
	_, err := execute(t, "run", "--provider", "openai")
	assert.Error(t, err)
}

func TestFleet(t *testing.T) {
	out, err := execute(t, "fleet", "--size", "12")
	require.NoError(t, err)

	var rows []struct {
		Vehicle struct {
			HealthStatus string `json:"health_status"`
		} `json:"vehicle"`
		Strategy *struct {
			ShowCard bool `json:"show_card"`
		} `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 12)
	for _, r := range rows {
		if r.Vehicle.HealthStatus == "Critical" {
			require.NotNil(t, r.Strategy)
			assert.True(t, r.Strategy.ShowCard)
		} else {
			assert.Nil(t, r.Strategy)
		}
	}

	_, err = execute(t, "fleet", "--size", "0")
	assert.Error(t, err)
}

func TestSimulateInferenceBudgetCoversRetries(t *testing.T) {
	inf := simulateInference()
	require.Greater(t, inf.MaxAttempts, uint(1))
	// Все попытки плюс задержки между ними должны уложиться в таймаут агента
	assert.Greater(t, inf.CallBudget(), inf.Timeout*time.Duration(inf.MaxAttempts))
}
