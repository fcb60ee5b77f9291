// Command lineup-optimize is a thin stdin/stdout driver over the
// optimization pipeline: it reads one JSON request, writes the JSON
// response, and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-optimizer/internal/config"
	"github.com/stitts-dev/lineup-optimizer/internal/lineup"
	"github.com/stitts-dev/lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/lineup-optimizer/internal/stats"
)

type wireStats struct {
	PA      int `json:"pa"`
	H       int `json:"h"`
	Singles int `json:"1b"`
	Doubles int `json:"2b"`
	Triples int `json:"3b"`
	HR      int `json:"hr"`
	BB      int `json:"bb"`
	HBP     int `json:"hbp"`
	IBB     int `json:"ibb"`
}

type wirePlayer struct {
	Name       string     `json:"name"`
	Data       *wireStats `json:"data"`
	Handedness string     `json:"handedness"`
}

type wireConstraints struct {
	Fixed               map[string]string `json:"fixed"`
	MaxConsecutiveLeft  int               `json:"max_consecutive_left"`
	MaxConsecutiveRight int               `json:"max_consecutive_right"`
}

type wireRequest struct {
	Players     map[string]wirePlayer `json:"players"`
	Constraints *wireConstraints      `json:"constraints"`
	TopN        int                   `json:"top_n"`
	DeadlineMs  int                   `json:"deadline_ms"`
}

type wireLineup struct {
	Order []string `json:"order"`
	Score float64  `json:"score"`
}

type wireResponse struct {
	ExpectedRuns             float64      `json:"expected_runs"`
	Lineups                  []wireLineup `json:"lineups"`
	ExpectedRunsAboveAverage float64      `json:"expected_runs_above_average"`
}

type wireErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func main() {
	verbose := flag.Bool("verbose", false, "print a per-hitter AVG/OBP/SLG/OPS summary to stderr")
	flag.Parse()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		writeError(fmt.Errorf("error reading from stdin: %w", err))
		os.Exit(1)
	}

	var req wireRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(fmt.Errorf("malformed JSON input: %w", err))
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		writeError(fmt.Errorf("error loading config: %w", err))
		os.Exit(1)
	}

	optReq, err := toOptimizerRequest(req, cfg)
	if err != nil {
		writeError(err)
		os.Exit(1)
	}

	if *verbose {
		printPlayerSummary(optReq.Hitters)
	}

	log := logrus.NewEntry(logrus.StandardLogger())
	resp, err := optimizer.Optimize(context.Background(), optReq, log)
	if err != nil {
		writeError(err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(toWireResponse(resp), "", "  ")
	if err != nil {
		writeError(fmt.Errorf("error encoding response: %w", err))
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func toOptimizerRequest(req wireRequest, cfg *config.Config) (optimizer.Request, error) {
	hitters := make([]optimizer.HitterInput, lineup.NumSlots)
	for slot := 0; slot < lineup.NumSlots; slot++ {
		key := strconv.Itoa(slot)
		p, ok := req.Players[key]
		if !ok || p.Data == nil {
			return optimizer.Request{}, fmt.Errorf("players[%q] must supply stats", key)
		}
		hitters[slot] = optimizer.HitterInput{
			Name:       p.Name,
			Handedness: lineup.Handedness(p.Handedness),
			Counts: lineup.Counts{
				PA:      p.Data.PA,
				H:       p.Data.H,
				Singles: p.Data.Singles,
				Doubles: p.Data.Doubles,
				Triples: p.Data.Triples,
				HR:      p.Data.HR,
				BB:      p.Data.BB,
				HBP:     p.Data.HBP,
				IBB:     p.Data.IBB,
			},
		}
	}

	var constraints *optimizer.ConstraintInput
	if req.Constraints != nil {
		fixed := make(map[int]string, len(req.Constraints.Fixed))
		for slotKey, name := range req.Constraints.Fixed {
			slot, err := strconv.Atoi(slotKey)
			if err != nil {
				return optimizer.Request{}, fmt.Errorf("fixed slot %q is not an integer", slotKey)
			}
			fixed[slot] = name
		}
		constraints = &optimizer.ConstraintInput{
			Fixed:               fixed,
			MaxConsecutiveLeft:  req.Constraints.MaxConsecutiveLeft,
			MaxConsecutiveRight: req.Constraints.MaxConsecutiveRight,
		}
	}

	optReq := optimizer.Request{
		Hitters:     hitters,
		Constraints: constraints,
		TopN:        req.TopN,
		Deadline:    time.Duration(req.DeadlineMs) * time.Millisecond,
	}
	if cfg != nil {
		optReq.DefaultTopN = cfg.DefaultTopN
		optReq.MaxTopN = cfg.MaxTopN
		optReq.Workers = cfg.SearchWorkers
		optReq.MaxDeadline = cfg.SearchTimeout
	}
	return optReq, nil
}

func toWireResponse(resp *optimizer.Response) wireResponse {
	lineups := make([]wireLineup, len(resp.Lineups))
	for i, l := range resp.Lineups {
		lineups[i] = wireLineup{Order: l.Order, Score: l.Score}
	}
	return wireResponse{
		ExpectedRuns:             resp.ExpectedRuns,
		Lineups:                  lineups,
		ExpectedRunsAboveAverage: resp.ExpectedRunsAboveAverage,
	}
}

func printPlayerSummary(hitters []optimizer.HitterInput) {
	fmt.Fprintln(os.Stderr, "hitter          AVG    OBP    SLG    OPS")
	for _, h := range hitters {
		avg, obp, slg, ops := stats.Summary(h.Counts)
		fmt.Fprintf(os.Stderr, "%-15s %.3f  %.3f  %.3f  %.3f\n", h.Name, avg, obp, slg, ops)
	}
}

func writeError(err error) {
	out, _ := json.MarshalIndent(wireErrorResponse{Error: err.Error(), Status: "failed"}, "", "  ")
	fmt.Println(string(out))
}
