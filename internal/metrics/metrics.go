package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealerdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealerdesk",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully reserved, by resource kind.",
		},
		[]string{"kind"},
	)

	slotConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealerdesk",
			Name:      "slot_conflicts_total",
			Help:      "Reservation attempts rejected because the slot was full.",
		},
		[]string{"kind"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dealerdesk",
			Name:      "reminders_sent_total",
			Help:      "Booking reminders dispatched by the worker.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, slotConflicts, remindersSent)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts a successful reservation for a resource kind.
func IncBookingCreated(kind string) {
	bookingsCreated.WithLabelValues(kind).Inc()
}

// IncSlotConflict counts a reservation rejected on capacity.
func IncSlotConflict(kind string) {
	slotConflicts.WithLabelValues(kind).Inc()
}

// IncReminderSent counts a dispatched reminder.
func IncReminderSent() {
	remindersSent.Inc()
}
