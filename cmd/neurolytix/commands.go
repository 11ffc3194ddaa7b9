package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	forecaster "github.com/neurolytix/go-forecaster"
	"github.com/neurolytix/go-forecaster/datastore"
	"github.com/neurolytix/go-forecaster/internal/metrics"
	"github.com/neurolytix/go-forecaster/monitor"
	"github.com/neurolytix/go-forecaster/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func forecastCmd() *cobra.Command {
	var (
		datasetID string
		column    string
		method    string
		horizon   int
		plotFile  string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Fit a forecasting method to a dataset column and store the forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg, metrics.New(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.service.Forecast(ctx, service.Request{
				DatasetID: datasetID,
				Column:    column,
				Method:    method,
				Horizon:   horizon,
			})
			if err != nil {
				return err
			}

			if plotFile != "" {
				history, err := st.loader.LoadSeries(ctx, datasetID, column)
				if err != nil {
					return err
				}
				f, err := os.Create(plotFile)
				if err != nil {
					return fmt.Errorf("unable to create plot file, %w", err)
				}
				defer f.Close()
				if err := forecaster.PlotForecast(f, history, res.Forecast); err != nil {
					return fmt.Errorf("unable to render plot, %w", err)
				}
				slog.Info("wrote forecast plot", "path", plotFile)
			}

			if asJSON {
				return printJSON(res)
			}
			fmt.Printf("run %s: %s forecast of %s/%s\n", res.RunID, res.Forecast.Method, datasetID, column)
			return res.Forecast.WriteCSV(os.Stdout)
		},
	}
	cmd.Flags().StringVarP(&datasetID, "dataset", "d", "", "dataset id")
	cmd.Flags().StringVar(&column, "column", "", "target column")
	cmd.Flags().StringVarP(&method, "method", "m", "", "forecasting method (default from config)")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "number of steps to forecast (default from config)")
	cmd.Flags().StringVar(&plotFile, "plot", "", "write an html chart of history and forecast")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as json")
	cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagRequired("column")
	return cmd
}

func compareCmd() *cobra.Command {
	var datasetID, column string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Score every stored forecast of a dataset against its actual values",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg, metrics.New(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer st.Close()

			cmp, err := st.service.Compare(ctx, datasetID, column)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %12s %12s %12s %10s %6s\n", "method", "rmse", "mae", "mape", "r2", "n")
			for _, name := range cmp.Ranking {
				m := cmp.Metrics[name]
				fmt.Printf("%-20s %12.4f %12.4f %12.4f %10.4f %6d\n", name, m.RMSE, m.MAE, m.MAPE, m.R2, m.N)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&datasetID, "dataset", "d", "", "dataset id")
	cmd.Flags().StringVar(&column, "column", "", "actual values column")
	cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagRequired("column")
	return cmd
}

func detectCmd() *cobra.Command {
	var datasetID, column, notify string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Flag anomalies in a dataset column and optionally raise an alert",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := buildStack(ctx, cfg, metrics.New(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.service.Detect(ctx, datasetID, column, notify)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVarP(&datasetID, "dataset", "d", "", "dataset id")
	cmd.Flags().StringVar(&column, "column", "", "column to check")
	cmd.Flags().StringVar(&notify, "notify", "", "address to alert when anomalies are found")
	cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagRequired("column")
	return cmd
}

func datasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets in the csv data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Data.Source != "csv" {
				return fmt.Errorf("listing requires the csv data source, got %q", cfg.Data.Source)
			}
			ids, err := datastore.NewCSVLoader(cfg.Data.Dir, cfg.Data.TimeColumn).ListDatasets()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func monitorCmd() *cobra.Command {
	var jobs []string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run scheduled anomaly checks and serve prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			st, err := buildStack(ctx, cfg, m)
			if err != nil {
				return err
			}
			defer st.Close()

			registry, err := monitor.NewRegistry(st.service, &monitor.Options{
				Interval:      cfg.Monitor.Interval,
				AlertsPerHour: cfg.Monitor.AlertsPerHour,
				Burst:         cfg.Monitor.Burst,
				Metrics:       m,
				Logger:        slog.Default(),
			})
			if err != nil {
				return err
			}
			defer registry.Close()

			specs := configJobs(cfg)
			for _, j := range jobs {
				spec, err := parseJob(j)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}
			for _, spec := range specs {
				if _, err := registry.Schedule(spec); err != nil {
					return err
				}
			}

			if cfg.Metrics.Addr != "" {
				srv := &http.Server{
					Addr:              cfg.Metrics.Addr,
					Handler:           metricsMux(reg),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					slog.Info("serving metrics", "addr", cfg.Metrics.Addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						slog.Error("metrics server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			slog.Info("monitor started", "jobs", len(registry.Jobs()))
			err = registry.Run(ctx)
			slog.Info("monitor stopped")
			return err
		},
	}
	cmd.Flags().StringArrayVar(&jobs, "job", nil, "anomaly check as dataset:column[:address], repeatable")
	return cmd
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
