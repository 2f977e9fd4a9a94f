package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dealerdesk/internal/domain"
	"dealerdesk/internal/metrics"
	"dealerdesk/internal/models"
	"dealerdesk/internal/schedule"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	ReminderUpcoming = "upcoming"

	reminderQueueKey      = "reminders:queue"
	reminderDeadLetterKey = "reminders:deadletter"
)

// ReminderTask is a unit of notification work.
type ReminderTask struct {
	BookingID int64     `json:"booking_id"`
	Kind      string    `json:"kind"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers booking reminders to customers.
type Notifier interface {
	NotifyUpcoming(ctx context.Context, booking *models.Booking) error
}

// LogNotifier is the default delivery channel: it writes the reminder
// to the log. Real channels (email, SMS) plug in behind Notifier.
type LogNotifier struct {
	Logger *zerolog.Logger
}

func (n *LogNotifier) NotifyUpcoming(ctx context.Context, booking *models.Booking) error {
	n.Logger.Info().
		Int64("booking_id", booking.ID).
		Str("reference", booking.Reference).
		Str("resource", booking.ResourceName).
		Str("date", booking.Date.Format(models.DateLayout)).
		Str("time_slot", booking.TimeSlot).
		Msg("booking reminder")
	return nil
}

// ReminderWorker consumes reminder tasks from redis (in-memory channel
// as fallback) and runs a daily cron scan that enqueues reminders for
// tomorrow's confirmed bookings.
type ReminderWorker struct {
	repo         domain.Repository
	notifier     Notifier
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan ReminderTask
	pollInterval time.Duration
	cronSpec     string
	cron         *cron.Cron
	logger       *zerolog.Logger
	now          func() time.Time
}

// NewReminderWorker builds a worker with sane defaults. reminderTime is
// the daily scan time as "HH:MM".
func NewReminderWorker(repo domain.Repository, notifier Notifier, redisClient *redis.Client, retry RetryPolicy, reminderTime string, logger *zerolog.Logger) *ReminderWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}

	return &ReminderWorker{
		repo:         repo,
		notifier:     notifier,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan ReminderTask, models.WorkerQueueSize),
		pollInterval: 2 * time.Second,
		cronSpec:     cronSpecFor(reminderTime),
		logger:       logger,
		now:          time.Now,
	}
}

func cronSpecFor(reminderTime string) string {
	minutes, err := schedule.ParseClock(reminderTime)
	if err != nil {
		return fmt.Sprintf("0 %d * * *", models.ReminderHour)
	}
	return fmt.Sprintf("%d %d * * *", minutes%60, minutes/60)
}

// ScheduleReminder enqueues a reminder task. Redis first for
// durability, in-memory queue when redis is missing or down.
func (w *ReminderWorker) ScheduleReminder(ctx context.Context, bookingID int64, kind string) error {
	if bookingID == 0 {
		return errors.New("booking id is required")
	}
	if kind == "" {
		kind = ReminderUpcoming
	}

	task := ReminderTask{
		BookingID: bookingID,
		Kind:      kind,
		CreatedAt: w.now(),
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("reminder redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return errors.New("reminder queue is full")
	}
}

// Start launches the consume loop and the daily scan; stops when ctx is done.
func (w *ReminderWorker) Start(ctx context.Context) {
	w.logger.Info().Str("cron", w.cronSpec).Msg("reminder worker started")
	defer w.logger.Info().Msg("reminder worker stopped")

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.cronSpec, func() { w.scanTomorrow(ctx) }); err != nil {
		w.logger.Error().Err(err).Str("cron", w.cronSpec).Msg("failed to register daily reminder scan")
	} else {
		w.cron.Start()
		defer w.cron.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if task, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, task)
			continue
		}

		if task, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, task)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// scanTomorrow enqueues reminders for every confirmed booking on the
// next calendar day.
func (w *ReminderWorker) scanTomorrow(ctx context.Context) {
	tomorrow := schedule.DateOnly(w.now().AddDate(0, 0, 1))
	bookings, err := w.repo.GetBookingsByDateRange(ctx, tomorrow, tomorrow)
	if err != nil {
		w.logger.Error().Err(err).Msg("reminder scan failed")
		return
	}

	for _, b := range bookings {
		if b.Status != models.StatusConfirmed {
			continue
		}
		if err := w.ScheduleReminder(ctx, b.ID, ReminderUpcoming); err != nil {
			w.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("failed to enqueue scan reminder")
		}
	}
}

func (w *ReminderWorker) tryLocalQueue() (ReminderTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return ReminderTask{}, false
	}
}

func (w *ReminderWorker) tryRedis(ctx context.Context) (ReminderTask, bool) {
	if w.redis == nil {
		return ReminderTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, reminderQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return ReminderTask{}, false
		}
		w.logger.Error().Err(err).Msg("reminder redis BRPOP error")
		return ReminderTask{}, false
	}
	if len(res) != 2 {
		return ReminderTask{}, false
	}
	var task ReminderTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("failed to decode redis reminder task")
		return ReminderTask{}, false
	}
	return task, true
}

func (w *ReminderWorker) processTask(ctx context.Context, task ReminderTask) {
	booking, err := w.repo.GetBooking(ctx, task.BookingID)
	if err != nil {
		// The booking may have been removed; nothing to remind about.
		w.logger.Warn().Err(err).Int64("booking_id", task.BookingID).Msg("reminder skipped, booking not loadable")
		return
	}

	// Cancelled and completed bookings need no reminder.
	if !models.OccupiesCapacity(booking.Status) {
		return
	}

	if err := w.notifier.NotifyUpcoming(ctx, booking); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	metrics.IncReminderSent()
}

func (w *ReminderWorker) retryOrFail(ctx context.Context, task ReminderTask, cause error) {
	task.Attempts++
	if task.Attempts >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).Int64("booking_id", task.BookingID).Int("attempts", task.Attempts).Msg("reminder delivery gave up")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempts)
	w.logger.Warn().Err(cause).Int64("booking_id", task.BookingID).Dur("retry_in", delay).Msg("reminder delivery failed, retrying")
	time.AfterFunc(delay, func() {
		select {
		case w.queue <- task:
		default:
			w.logger.Error().Int64("booking_id", task.BookingID).Msg("reminder queue full, retry dropped")
		}
	})
}

func (w *ReminderWorker) pushRedis(ctx context.Context, task ReminderTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, reminderQueueKey, data).Err()
}

func (w *ReminderWorker) pushDeadLetter(ctx context.Context, task ReminderTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("booking_id", task.BookingID).Msg("failed to encode deadletter task")
		return
	}
	if err := w.redis.LPush(ctx, reminderDeadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("booking_id", task.BookingID).Msg("deadletter push failed")
	}
}
