package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/procurewatch/bomrisk/internal/enrich"
	"github.com/procurewatch/bomrisk/internal/model"
	"github.com/procurewatch/bomrisk/internal/similarity"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serve the risk, similarity, and aggregation endpoints over HTTP.

  GET  /health
  GET  /api/parts/{mpn}/risk
  POST /api/similarity
  POST /api/evaluations/aggregate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		enricher, err := newEnricher(st)
		if err != nil {
			return err
		}
		calc, err := newCalculator()
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(enricher, calc),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// riskAssessor is the enricher surface the API uses.
type riskAssessor interface {
	Assess(ctx context.Context, mpn string) (*model.RiskAssessment, error)
}

func newRouter(assessor riskAssessor, calc *similarity.Calculator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/parts/{mpn}/risk", func(w http.ResponseWriter, req *http.Request) {
		mpn := chi.URLParam(req, "mpn")
		assessment, err := assessor.Assess(req.Context(), mpn)
		if err != nil {
			if errors.Is(err, enrich.ErrPartNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("part %s not found", mpn))
				return
			}
			zap.L().Error("assessment failed", zap.String("mpn", mpn), zap.Error(err))
			writeError(w, http.StatusBadGateway, "vendor lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, assessment)
	})

	r.Post("/api/similarity", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Target    model.PartParameters `json:"target"`
			Candidate model.PartParameters `json:"candidate"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		writeJSON(w, http.StatusOK, calc.Calculate(body.Target, body.Candidate))
	})

	r.Post("/api/evaluations/aggregate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Evaluations [][]model.ParameterEvaluation `json:"evaluations"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.Evaluations) == 0 {
			writeError(w, http.StatusBadRequest, "evaluations is required")
			return
		}
		writeJSON(w, http.StatusOK, aggregateEvaluations(body.Evaluations))
	})

	return r
}

// aggregateResponse summarizes a set of candidate evaluations against one
// target. Confidence uses the target's distinct parameter count as a fixed
// denominator so candidates with sparse data rank lower.
type aggregateResponse struct {
	TargetTotalParams int                  `json:"target_total_params"`
	Candidates        []candidateAggregate `json:"candidates"`
}

type candidateAggregate struct {
	AverageScore *int                           `json:"average_score"`
	Confidence   similarity.Confidence          `json:"confidence"`
	Parameters   []similarity.FlaggedEvaluation `json:"parameters"`
}

func aggregateEvaluations(evalLists [][]model.ParameterEvaluation) aggregateResponse {
	targetTotal := similarity.TargetTotalParamCount(evalLists)
	resp := aggregateResponse{
		TargetTotalParams: targetTotal,
		Candidates:        make([]candidateAggregate, 0, len(evalLists)),
	}
	for _, evals := range evalLists {
		agg := candidateAggregate{
			Confidence: similarity.ConfidenceWithFixedDenominator(targetTotal, evals),
			Parameters: similarity.WithComparableFlags(evals),
		}
		if avg, ok := similarity.AverageScore(evals); ok {
			agg.AverageScore = &avg
		}
		resp.Candidates = append(resp.Candidates, agg)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
