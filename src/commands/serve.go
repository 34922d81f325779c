package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"monzo-manager/src/api"
	"monzo-manager/src/budget"
	"monzo-manager/src/classifier"
	"monzo-manager/src/db"
	"monzo-manager/src/listener"
	"monzo-manager/src/monzo"
	"monzo-manager/src/sorter"

	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook listener, budget scheduler and admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var authorizer monzo.Authorizer
			if !nonInteractive {
				authorizer = consoleAuthorizer(cmd)
			}
			return runServe(cmd.Context(), authorizer)
		},
	}

	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "fail instead of prompting when tokens need re-authorization")

	return cmd
}

func runServe(parent context.Context, authorizer monzo.Authorizer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := connect(ctx, cfg, authorizer)
	if err != nil {
		return err
	}

	classes, err := classifier.Load(cfg.ClassesFile, cfg.OnMissingField)
	if err != nil {
		return err
	}
	log.Printf("INFO: Loaded %d transaction classes", len(classes.Classes()))

	runs, closeRuns, err := openRunStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRuns()

	salary := sorter.NewSalarySorter(client, cfg.SalaryTiers, cfg.SalaryRemainderPot).WithRecorder(runs)

	ledger := budget.NewLedgerStore(cfg.BudgetFile)
	reconciler := budget.NewReconciler(client, ledger).WithRecorder(runs)
	scheduler := budget.NewScheduler(reconciler)

	fatal := make(chan error, 1)
	scheduler.OnFatal(func(err error) {
		select {
		case fatal <- err:
		default:
		}
	})
	if _, err := scheduler.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	hookCfg, err := listener.LoadWebhookConfig(cfg.WebhookFile)
	if err != nil {
		return err
	}
	hookURL, err := webhookURL(hookCfg.URL, cfg.WebhookToken)
	if err != nil {
		return err
	}

	cache, err := db.NewDeliveryCache(cfg.DeliveryTTL)
	if err != nil {
		return err
	}
	defer cache.Close()

	dispatcher := listener.NewDispatcher(client, classes, salary, listener.Options{
		WebhookURL:  hookURL,
		SalaryClass: cfg.SalaryClass,
		Cache:       cache,
	})
	if _, err := dispatcher.EnsureWebhook(ctx); err != nil {
		return err
	}

	deps := api.Deps{
		Webhooks:          dispatcher,
		Ledger:            ledger,
		Budget:            reconciler,
		Schedule:          scheduler,
		Classifier:        classes,
		Transactions:      client,
		Sorter:            salary,
		Runs:              runs,
		Cache:             cache,
		JWTSecret:         cfg.JWTSecret,
		AdminPasswordHash: cfg.AdminPasswordHash,
		WebhookToken:      cfg.WebhookToken,
		CORSOrigins:       cfg.CORSOrigins,
		ReadOnly:          cfg.ReadOnly,
	}

	addr := hookCfg.Addr()
	if addr == "" {
		addr = ":" + cfg.Port
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("INFO: Listening for webhooks on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Printf("INFO: Shutting down server...")
	case err := <-fatal:
		log.Printf("ERROR: Budget manager hit a configuration error, shutting down: %v", err)
		runErr = err
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}
	log.Printf("INFO: Server stopped")
	return runErr
}
