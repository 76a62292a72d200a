package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amberwayequine/crm-backend/api/controllers"
	"github.com/amberwayequine/crm-backend/api/middleware"
	"github.com/amberwayequine/crm-backend/internal/activity"
	"github.com/amberwayequine/crm-backend/internal/billing"
	"github.com/amberwayequine/crm-backend/internal/communications"
	"github.com/amberwayequine/crm-backend/internal/contacts"
	"github.com/amberwayequine/crm-backend/internal/deals"
	"github.com/amberwayequine/crm-backend/internal/purchaseorders"
	"github.com/amberwayequine/crm-backend/internal/shipments"
	"github.com/amberwayequine/crm-backend/internal/tasks"
	"github.com/amberwayequine/crm-backend/pkg/config"
	"github.com/amberwayequine/crm-backend/pkg/logger"
)

// Deps carries everything the router mounts. DB and Cache feed the ready
// check; Cache may be nil when redis is not configured.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Cache controllers.Pinger

	Contacts       contacts.Service
	Deals          deals.Service
	Tasks          tasks.Service
	PurchaseOrders purchaseorders.Service
	Shipments      shipments.Service
	Communications communications.Service
	Activity       activity.Service
	Billing        billing.Service
}

func New(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.CORS(cfg.App.ExtraCORSOrigins...))

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Cache))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", controllers.ContactList(deps.Contacts, logg))
			r.Post("/", controllers.ContactCreate(deps.Contacts, logg))
			r.Route("/{contactId}", func(r chi.Router) {
				r.Get("/", controllers.ContactGet(deps.Contacts, logg))
				r.Put("/", controllers.ContactUpdate(deps.Contacts, logg))
				r.Delete("/", controllers.ContactDelete(deps.Contacts, logg))
				r.Get("/timeline", controllers.ContactTimeline(deps.Contacts, logg))
			})
		})

		r.Route("/deals", func(r chi.Router) {
			r.Get("/", controllers.DealList(deps.Deals, logg))
			r.Post("/", controllers.DealCreate(deps.Deals, logg))
			r.Get("/pipeline", controllers.DealPipeline(deps.Deals, logg))
			r.Get("/admin/stale-preview", controllers.DealStalePreview(deps.Deals, cfg.Admin, logg))
			r.Post("/admin/stale-cleanup", controllers.DealStaleCleanup(deps.Deals, cfg.Admin, logg))
			r.Route("/{dealId}", func(r chi.Router) {
				r.Get("/", controllers.DealGet(deps.Deals, logg))
				r.Put("/", controllers.DealUpdate(deps.Deals, logg))
				r.Delete("/", controllers.DealArchive(deps.Deals, logg))
				r.Patch("/stage", controllers.DealMoveStage(deps.Deals, logg))
				r.Post("/won", controllers.DealMarkWon(deps.Deals, logg))
				r.Post("/lost", controllers.DealMarkLost(deps.Deals, logg))
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", controllers.TaskList(deps.Tasks, logg))
			r.Post("/", controllers.TaskCreate(deps.Tasks, logg))
			r.Get("/due-today", controllers.TaskDueToday(deps.Tasks, logg))
			r.Post("/generate", controllers.TaskGenerate(deps.Tasks, logg))
			r.Route("/{taskId}", func(r chi.Router) {
				r.Put("/", controllers.TaskUpdate(deps.Tasks, logg))
				r.Delete("/", controllers.TaskDelete(deps.Tasks, logg))
				r.Patch("/complete", controllers.TaskComplete(deps.Tasks, logg))
				r.Patch("/snooze", controllers.TaskSnooze(deps.Tasks, logg))
			})
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", controllers.PurchaseOrderList(deps.PurchaseOrders, logg))
			r.Post("/", controllers.PurchaseOrderCreate(deps.PurchaseOrders, logg))
			r.Route("/{purchaseOrderId}", func(r chi.Router) {
				r.Get("/", controllers.PurchaseOrderGet(deps.PurchaseOrders, logg))
				r.Put("/", controllers.PurchaseOrderUpdate(deps.PurchaseOrders, logg))
				r.Post("/request-quote", controllers.PurchaseOrderRequestQuote(deps.PurchaseOrders, logg))
				r.Post("/add-tracking", controllers.PurchaseOrderAddTracking(deps.PurchaseOrders, logg))
			})
		})
		r.Get("/suppliers", controllers.SupplierList(deps.PurchaseOrders, logg))

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", controllers.ShipmentList(deps.Shipments, logg))
			r.Post("/", controllers.ShipmentCreate(deps.Shipments, logg))
			r.Get("/active/summary", controllers.ShipmentActiveSummary(deps.Shipments, logg))
			r.Route("/{shipmentId}", func(r chi.Router) {
				r.Get("/", controllers.ShipmentGet(deps.Shipments, logg))
				r.Patch("/status", controllers.ShipmentUpdateStatus(deps.Shipments, logg))
				r.Patch("/notify-customer", controllers.ShipmentNotifyCustomer(deps.Shipments, logg))
				r.Post("/add-event", controllers.ShipmentAddEvent(deps.Shipments, logg))
			})
		})

		r.Route("/estimates", func(r chi.Router) {
			r.Get("/", controllers.EstimateList(deps.Billing, logg))
			r.Post("/", controllers.EstimateCreate(deps.Billing, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(deps.Billing, logg))
			r.Post("/", controllers.InvoiceCreate(deps.Billing, logg))
			r.Patch("/{invoiceId}/paid", controllers.InvoiceMarkPaid(deps.Billing, logg))
		})

		r.Route("/communications", func(r chi.Router) {
			r.Get("/", controllers.CommunicationList(deps.Communications, logg))
			r.Post("/", controllers.CommunicationLog(deps.Communications, logg))
			r.Post("/send-email", controllers.CommunicationSendEmail(deps.Communications, logg))
			r.Post("/send-sms", controllers.CommunicationSendSMS(deps.Communications, logg))
			r.Post("/log-call", controllers.CommunicationLogCall(deps.Communications, logg))
			r.Post("/ai-draft", controllers.CommunicationDraftEmail(deps.Communications, logg))
			r.Post("/twilio-webhook", controllers.TwilioInboundSMS(deps.Communications, logg))
		})

		r.Get("/activity", controllers.ActivityList(deps.Activity, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(deps.Activity, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(deps.Activity, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(deps.Activity, logg))
		})
	})

	return r
}
