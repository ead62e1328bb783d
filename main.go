package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrnode/internal/config"
	"github.com/cristianadrielbraun/qrnode/internal/handlers"
	"github.com/cristianadrielbraun/qrnode/internal/logging"
	"github.com/cristianadrielbraun/qrnode/internal/node"
	"github.com/cristianadrielbraun/qrnode/internal/qr"
	"github.com/cristianadrielbraun/qrnode/internal/qrnode"
	"github.com/cristianadrielbraun/qrnode/internal/tensor"
	"github.com/cristianadrielbraun/qrnode/internal/variables"
)

var version = "v0.1.0"

func main() {
	var configPath string
	root := &cobra.Command{
		Use:           "qrnode",
		Short:         "QR Code node for image generation graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "qrnode.yaml", "Path to config file")

	// serve
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the node API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	})

	// render
	var link, out, maskOut string
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Run the QR Code node once and write its outputs as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(configPath, link, out, maskOut)
		},
	}
	renderCmd.Flags().StringVarP(&link, "link", "l", qrnode.DefaultLink, "Text to encode; ${name} markers are substituted")
	renderCmd.Flags().StringVarP(&out, "out", "o", "qrcode.png", "Image output path")
	renderCmd.Flags().StringVar(&maskOut, "mask-out", "", "Mask output path (skipped when empty)")
	root.AddCommand(renderCmd)

	// nodes
	var asJSON bool
	nodesCmd := &cobra.Command{
		Use:   "nodes",
		Short: "List registered nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodes(configPath, asJSON)
		},
	}
	nodesCmd.Flags().BoolVar(&asJSON, "json", false, "Print full object info as JSON")
	root.AddCommand(nodesCmd)

	// version
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrnode %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config, configures logging and builds the executor.
func setup(configPath string) (*config.Config, *node.Executor, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, NoColors: cfg.LogFile != ""}); err != nil {
		return nil, nil, err
	}

	vars := variables.New()
	if cfg.VariablesFile != "" {
		if err := vars.LoadYAML(cfg.VariablesFile); err != nil {
			return nil, nil, err
		}
	}
	if cfg.DotenvFile != "" {
		if err := vars.LoadDotenv(cfg.DotenvFile); err != nil {
			return nil, nil, err
		}
	}

	renderer, err := qr.NewRenderer(cfg.Encoder)
	if err != nil {
		return nil, nil, err
	}
	opts := qr.DefaultOptions()
	opts.Transparent = cfg.Transparent

	reg, err := qrnode.Registry(vars, qrnode.WithRenderer(renderer), qrnode.WithOptions(opts))
	if err != nil {
		return nil, nil, fmt.Errorf("build registry: %w", err)
	}
	logging.Debug(logging.Fields{
		"encoder":     cfg.Encoder,
		"transparent": cfg.Transparent,
		"variables":   len(vars.Names()),
	}, "node registry ready")
	return cfg, node.NewExecutor(reg), nil
}

func runServe(configPath string) error {
	cfg, exec, err := setup(configPath)
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handlers.NewRouter(handlers.New(exec)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info(logging.Fields{"addr": srv.Addr, "version": version}, "qrnode listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}

	logging.Info(nil, "shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func runRender(configPath, link, out, maskOut string) error {
	_, exec, err := setup(configPath)
	if err != nil {
		return err
	}
	res, err := exec.Run(context.Background(), qrnode.Name, node.Inputs{"link": link})
	if err != nil {
		return err
	}
	img, ok := res.Outputs[0].Value.(tensor.Tensor)
	if !ok {
		return fmt.Errorf("unexpected output type %T", res.Outputs[0].Value)
	}
	if err := writePNG(out, img); err != nil {
		return err
	}
	fmt.Printf("image %v -> %s\n", img.Shape, out)

	if maskOut == "" {
		return nil
	}
	if len(res.Discarded) == 0 {
		return errors.New("node returned no mask")
	}
	mask, ok := res.Discarded[0].(tensor.Tensor)
	if !ok {
		return fmt.Errorf("unexpected mask type %T", res.Discarded[0])
	}
	if err := writePNG(maskOut, mask); err != nil {
		return err
	}
	fmt.Printf("mask %v -> %s\n", mask.Shape, maskOut)
	return nil
}

func writePNG(path string, t tensor.Tensor) error {
	data, err := tensor.EncodePNG(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func runNodes(configPath string, asJSON bool) error {
	_, exec, err := setup(configPath)
	if err != nil {
		return err
	}
	reg := exec.Registry()
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reg.ObjectInfo())
	}
	for _, name := range reg.Names() {
		display, _ := reg.DisplayName(name)
		fmt.Printf("%s\t%s\n", name, display)
	}
	return nil
}
