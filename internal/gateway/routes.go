package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saransh1220/foodhub/internal/gateway/middleware"
	notification_http "github.com/saransh1220/foodhub/internal/modules/notification/interfaces/http"
	"github.com/saransh1220/foodhub/internal/shared/utils"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleWare
	NotificationHandler *notification_http.NotificationHandler
	// Ready reports whether backing stores are reachable. Optional.
	Ready func(ctx context.Context) error
}

// SetupRoutes creates and configures all application routes
func SetupRoutes(config RouterConfig) *http.ServeMux {
	r := NewRouter(config.AuthMiddleware)

	r.Public("GET /health", health(config.Ready))
	r.Mux().Handle("GET /metrics", promhttp.Handler())

	n := config.NotificationHandler

	// Recipient views
	r.User("GET /notifications", n.List)
	r.User("GET /notifications/unread", n.Unread)
	r.User("GET /notifications/unread-count", n.UnreadCount)
	r.User("GET /notifications/counts", n.Counts)
	r.User("GET /notifications/high-priority", n.HighPriority)
	r.User("GET /notifications/recent", n.Recent)
	r.User("GET /notifications/latest", n.Latest)
	r.User("GET /notifications/category/{category}", n.ByCategory)
	r.User("GET /notifications/priority/{priority}", n.ByPriority)
	r.User("GET /notifications/correlation/{kind}/{id}", n.ByCorrelation)
	r.User("GET /notifications/{id}", n.Get)

	// Recipient transitions
	r.User("PATCH /notifications/read-all", n.MarkAllRead)
	r.User("PATCH /notifications/{id}/read", n.MarkRead)
	r.User("PATCH /notifications/{id}/unread", n.MarkUnread)
	r.User("DELETE /notifications/{id}", n.SoftDelete)
	r.User("POST /notifications/{id}/restore", n.Restore)

	// Administration
	r.Admin("POST /notifications", n.Create)
	r.Admin("DELETE /admin/notifications/{id}", n.Purge)
	r.Admin("GET /admin/notifications/deleted", n.Deleted)
	r.Admin("POST /admin/notifications/broadcast", n.Broadcast)
	r.Admin("POST /admin/maintenance/run", n.RunMaintenance)
	r.Admin("POST /admin/maintenance/soft-delete", n.SoftDeleteOlderThan)
	r.Admin("POST /admin/maintenance/purge", n.PurgeOlderThan)

	return r.Mux()
}

func health(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				utils.WriteError(w, http.StatusServiceUnavailable, "unavailable", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
