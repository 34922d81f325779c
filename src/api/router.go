package api

import (
	"net/http"

	"monzo-manager/src/budget"
	"monzo-manager/src/classifier"
	"monzo-manager/src/db"
	"monzo-manager/src/handlers"
	"monzo-manager/src/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Deps is everything the HTTP surface needs. Admin routes whose dependency is
// nil are not mounted.
type Deps struct {
	Webhooks     handlers.WebhookDispatcher
	Ledger       *budget.LedgerStore
	Budget       handlers.BudgetRunner
	Schedule     handlers.NextRunner
	Classifier   *classifier.Classifier
	Transactions handlers.TransactionFetcher
	Sorter       handlers.SalarySorter
	Runs         db.RunStore
	Cache        handlers.Clearer

	JWTSecret         string
	AdminPasswordHash string
	WebhookToken      string
	CORSOrigins       []string
	ReadOnly          bool
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(d.CORSOrigins))
	r.Use(middleware.ReadOnlyMiddleware(d.ReadOnly))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	if d.Webhooks != nil {
		r.With(middleware.WebhookTokenMiddleware(d.WebhookToken)).
			Post("/webhook/monzo", handlers.MonzoWebhook(d.Webhooks))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", handlers.Login(d.AdminPasswordHash, d.JWTSecret))

		// Protected routes
		r.With(middleware.JWTAuthMiddleware(d.JWTSecret)).Group(func(r chi.Router) {
			// Budget
			if d.Ledger != nil {
				r.Get("/budget", handlers.GetBudget(d.Ledger, d.Schedule))
			}
			if d.Budget != nil {
				r.Post("/budget/run", handlers.RunBudget(d.Budget))
			}

			// Transaction classes
			if d.Classifier != nil {
				r.Get("/transaction-classes", handlers.GetTransactionClasses(d.Classifier))
				r.Post("/classify", handlers.ClassifyTransaction(d.Classifier, d.Transactions))
			}

			// Salary
			if d.Sorter != nil {
				r.Post("/salary/sort/{transaction_id}", handlers.SortSalary(d.Sorter))
			}

			// Runs
			if d.Runs != nil {
				r.Get("/runs", handlers.GetRuns(d.Runs))
			}

			// Cache
			if d.Cache != nil {
				r.Post("/admin/cache/clear", handlers.ClearDeliveryCache(d.Cache))
			}
		})
	})

	return r
}
