// planner is a standalone heuristic controller. Once per quarter it reads
// the simulator's observation and posts an allocation that weights each
// district by its non-compliance, so struggling districts get more of the
// budget.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type observation struct {
	Step       uint64    `json:"step"`
	Quarter    int       `json:"quarter"`
	Compliance []float64 `json:"compliance"`
	Reward     float64   `json:"reward"`
	Done       bool      `json:"done"`
}

type observationResponse struct {
	Observation observation `json:"observation"`
}

type share struct {
	Edu float64 `json:"edu"`
	Enf float64 `json:"enf"`
	Inc float64 `json:"inc"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "simulator base URL")
		interval = flag.Duration("interval", 5*time.Second, "poll interval")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	token := os.Getenv("SEGSIM_ADMIN_KEY")
	if token == "" {
		slog.Error("SEGSIM_ADMIN_KEY not set; cannot post allocations")
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	lastPlanned := -1

	slog.Info("planner started", "url", *baseURL, "interval", *interval)

	for {
		obs, err := observe(client, *baseURL)
		if err != nil {
			slog.Error("observe failed", "error", err)
			time.Sleep(*interval)
			continue
		}
		if obs.Done {
			slog.Info("episode finished", "step", obs.Step, "reward", obs.Reward)
			return
		}

		// Plan once per quarter; the posted split takes effect at the
		// next boundary.
		if obs.Quarter != lastPlanned {
			shares := decide(obs.Compliance)
			if err := act(client, *baseURL, token, shares); err != nil {
				slog.Error("allocation post failed", "error", err)
			} else {
				lastPlanned = obs.Quarter
				slog.Info("allocation posted",
					"for_quarter", obs.Quarter+1,
					"avg_compliance", mean(obs.Compliance),
					"reward", obs.Reward)
			}
		}

		time.Sleep(*interval)
	}
}

// decide splits the budget across districts proportionally to their
// non-compliance, keeping a 40/40/20 education/enforcement/incentive mix
// within each district.
func decide(compliance []float64) []share {
	need := make([]float64, len(compliance))
	total := 0.0
	for i, c := range compliance {
		need[i] = 1 - c
		total += need[i]
	}

	shares := make([]share, len(compliance))
	if total <= 0 {
		// Everyone complies; drop to a minimal even maintenance split.
		for i := range shares {
			w := 0.5 / float64(len(shares))
			shares[i] = share{Edu: w * 0.4, Enf: w * 0.4, Inc: w * 0.2}
		}
		return shares
	}

	for i := range shares {
		w := need[i] / total
		shares[i] = share{Edu: w * 0.4, Enf: w * 0.4, Inc: w * 0.2}
	}
	return shares
}

func observe(client *http.Client, baseURL string) (observation, error) {
	resp, err := client.Get(baseURL + "/api/v1/observation")
	if err != nil {
		return observation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return observation{}, fmt.Errorf("observation: status %d", resp.StatusCode)
	}

	var body observationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return observation{}, fmt.Errorf("decode observation: %w", err)
	}
	return body.Observation, nil
}

func act(client *http.Client, baseURL, token string, shares []share) error {
	payload, err := json.Marshal(map[string]any{"shares": shares})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/allocation", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("allocation: status %d", resp.StatusCode)
	}
	return nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
