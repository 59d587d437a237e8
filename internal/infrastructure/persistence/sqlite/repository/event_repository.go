package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
	"freestylecal/internal/infrastructure/persistence/sqlite/model"
	"freestylecal/internal/ports"
)

// Columns overwritten when an incoming event collides on the natural key.
var replacedColumns = []string{
	"time",
	"city",
	"country",
	"venue",
	"official_link",
	"description",
	"date_canonical",
	"scrape_timestamp",
}

var naturalKeyColumns = []clause.Column{{Name: "name"}, {Name: "date"}, {Name: "organizer"}}

type EventRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.EventRepository = (*EventRepository)(nil)

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

// WithClock overrides the scrape timestamp source.
func (r *EventRepository) WithClock(now func() time.Time) *EventRepository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *EventRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	return r.db.WithContext(ctx), nil
}

func (r *EventRepository) UpsertMany(ctx context.Context, events []event.Event) (ports.UpsertReport, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.UpsertReport{}, err
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "repository.events"))
	report := ports.UpsertReport{}

	for _, item := range events {
		if err := ctx.Err(); err != nil {
			return report, errs.Wrap(err, "upsert events")
		}

		if err := r.upsertOne(db, item); err != nil {
			recordErr := &errs.RecordError{Record: item.Key().String(), Err: err}
			report.Failed++
			report.Errors = append(report.Errors, recordErr)
			logging.Warn(logCtx, "event not stored", slog.Any("err", errs.Loggable(recordErr)))
			continue
		}
		report.Written++
	}

	logging.Debug(logCtx, "events upserted", slog.Int("written", report.Written), slog.Int("failed", report.Failed))
	return report, nil
}

func (r *EventRepository) upsertOne(db *gorm.DB, item event.Event) error {
	if err := event.Check(&item); err != nil {
		return err
	}

	row := toEventModel(item, r.now().UTC().Format(time.RFC3339Nano))
	if err := db.Clauses(clause.OnConflict{
		Columns:   naturalKeyColumns,
		DoUpdates: clause.AssignmentColumns(replacedColumns),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert event row")
	}
	return nil
}

func (r *EventRepository) ListAll(ctx context.Context) ([]event.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Event
	if err := db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "list events")
	}

	out := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromEventModel(row))
	}
	return out, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id uint64) (event.Event, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return event.Event{}, err
	}

	var row model.Event
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return event.Event{}, ports.ErrEventNotFound
		}
		return event.Event{}, errs.Wrapf(err, "get event %d", id)
	}
	return fromEventModel(row), nil
}

func (r *EventRepository) Count(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.Model(&model.Event{}).Count(&n).Error; err != nil {
		return 0, errs.Wrap(err, "count events")
	}
	return n, nil
}

func toEventModel(e event.Event, stamp string) model.Event {
	return model.Event{
		Name:            e.Name,
		Date:            e.Date,
		Time:            e.Time,
		City:            e.City,
		Country:         e.Country,
		Venue:           e.Venue,
		Organizer:       e.Organizer,
		OfficialLink:    e.OfficialLink,
		Description:     e.Description,
		DateCanonical:   event.IsCanonicalDate(e.Date),
		ScrapeTimestamp: stamp,
	}
}

func fromEventModel(row model.Event) event.Event {
	return event.Event{
		ID:              row.ID,
		Name:            row.Name,
		Date:            row.Date,
		Time:            row.Time,
		City:            row.City,
		Country:         row.Country,
		Venue:           row.Venue,
		Organizer:       row.Organizer,
		OfficialLink:    row.OfficialLink,
		Description:     row.Description,
		ScrapeTimestamp: row.ScrapeTimestamp,
	}
}
