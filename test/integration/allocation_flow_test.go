//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Contributor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	IsOwner        bool   `json:"is_owner"`
	ActivationDate string `json:"activation_date"`
	CapitalCurrent string `json:"capital_current"`
}

type Allocation struct {
	Date           string `json:"date"`
	ContributorID  string `json:"contributor_id"`
	NetAlloc       string `json:"net_alloc"`
	PerformanceFee string `json:"performance_fee"`
}

func send(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, BaseURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAllocationFlow(t *testing.T) {
	// far in the past so the run never collides with real data
	day := time.Date(2001, 1, 2, 0, 0, 0, 0, time.UTC)
	activation := day.AddDate(0, 0, -1).Format("2006-01-02")
	date := day.Format("2006-01-02")

	var contributor Contributor

	t.Run("Create Contributor", func(t *testing.T) {
		resp := send(t, http.MethodPost, "/contributors", map[string]interface{}{
			"name":              "Integration Contributor",
			"capital_committed": "100",
			"activation_date":   activation,
		})
		defer resp.Body.Close()

		require.Contains(t, []int{http.StatusCreated, http.StatusAccepted}, resp.StatusCode)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&contributor))
		assert.NotEmpty(t, contributor.ID)
		assert.False(t, contributor.IsOwner)
	})

	t.Run("Store Gross Total", func(t *testing.T) {
		resp := send(t, http.MethodPut, "/daily-totals", map[string]interface{}{
			"items": []map[string]interface{}{{"date": date, "gross_total": "0"}},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("List Allocations", func(t *testing.T) {
		path := fmt.Sprintf("/allocations?start_date=%s&end_date=%s&contributor_id=%s", date, date, contributor.ID)

		// with a worker in front the recompute lands asynchronously
		var data []Allocation
		require.Eventually(t, func() bool {
			resp := send(t, http.MethodGet, path, nil)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return false
			}
			var body struct {
				Data []Allocation `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return false
			}
			data = body.Data
			return len(data) == 1
		}, 15*time.Second, 500*time.Millisecond)
		assert.Equal(t, "0", data[0].PerformanceFee)
	})

	t.Run("Delete Contributor", func(t *testing.T) {
		resp := send(t, http.MethodDelete, "/contributors/"+contributor.ID, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = send(t, http.MethodGet, "/contributors/"+contributor.ID, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Owner Cannot Be Deleted", func(t *testing.T) {
		resp := send(t, http.MethodGet, "/contributors", nil)
		defer resp.Body.Close()
		var body struct {
			Data []Contributor `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		for _, c := range body.Data {
			if !c.IsOwner {
				continue
			}
			del := send(t, http.MethodDelete, "/contributors/"+c.ID, nil)
			defer del.Body.Close()
			assert.Equal(t, http.StatusConflict, del.StatusCode)
		}
	})
}
